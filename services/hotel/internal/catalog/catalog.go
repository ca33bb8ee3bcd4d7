// Package catalog holds the hotel's static offerings: spa treatments, the
// in-room dining menu and nearby attractions.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultData []byte

type SpaService struct {
	ID          int     `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Duration    string  `yaml:"duration" json:"duration"`
	Price       float64 `yaml:"price" json:"price"`
	Category    string  `yaml:"category" json:"category"`
}

type MenuItem struct {
	ID          int     `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Price       float64 `yaml:"price" json:"price"`
	Category    string  `yaml:"category" json:"category"`
}

type Attraction struct {
	ID          int     `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Rating      float64 `yaml:"rating" json:"rating"`
	Distance    string  `yaml:"distance" json:"distance"`
	Duration    string  `yaml:"duration" json:"duration"`
	Category    string  `yaml:"category" json:"category"`
	Has360      bool    `yaml:"has360" json:"has360"`
}

type Catalog struct {
	SpaServices []SpaService `yaml:"spa_services"`
	MenuItems   []MenuItem   `yaml:"menu_items"`
	Attractions []Attraction `yaml:"attractions"`

	spaByID  map[int]SpaService
	menuByID map[int]MenuItem
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultData)
}

// MustDefault panics if the embedded catalog is malformed.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML catalog and indexes it by id.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c.spaByID = make(map[int]SpaService, len(c.SpaServices))
	for _, s := range c.SpaServices {
		if _, dup := c.spaByID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate spa service id %d", s.ID)
		}
		if s.Price <= 0 {
			return nil, fmt.Errorf("spa service %d has no price", s.ID)
		}
		c.spaByID[s.ID] = s
	}

	c.menuByID = make(map[int]MenuItem, len(c.MenuItems))
	for _, m := range c.MenuItems {
		if _, dup := c.menuByID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate menu item id %d", m.ID)
		}
		if m.Price <= 0 {
			return nil, fmt.Errorf("menu item %d has no price", m.ID)
		}
		c.menuByID[m.ID] = m
	}

	return &c, nil
}

func (c *Catalog) SpaService(id int) (SpaService, bool) {
	s, ok := c.spaByID[id]
	return s, ok
}

func (c *Catalog) MenuItem(id int) (MenuItem, bool) {
	m, ok := c.menuByID[id]
	return m, ok
}

// Spa lists treatments, optionally filtered by category ("" or "All" means everything).
func (c *Catalog) Spa(category string) []SpaService {
	out := make([]SpaService, 0, len(c.SpaServices))
	for _, s := range c.SpaServices {
		if matchCategory(category, s.Category) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Menu(category string) []MenuItem {
	out := make([]MenuItem, 0, len(c.MenuItems))
	for _, m := range c.MenuItems {
		if matchCategory(category, m.Category) {
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) Tourism(category string) []Attraction {
	out := make([]Attraction, 0, len(c.Attractions))
	for _, a := range c.Attractions {
		if matchCategory(category, a.Category) {
			out = append(out, a)
		}
	}
	return out
}

func matchCategory(want, have string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, "all") || strings.EqualFold(want, have)
}
