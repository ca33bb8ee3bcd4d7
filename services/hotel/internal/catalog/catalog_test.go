package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.SpaServices, 6)
	assert.Len(t, c.MenuItems, 8)
	assert.Len(t, c.Attractions, 6)

	s, ok := c.SpaService(4)
	require.True(t, ok)
	assert.Equal(t, "Hot Stone Therapy", s.Name)
	assert.Equal(t, 380.0, s.Price)

	m, ok := c.MenuItem(8)
	require.True(t, ok)
	assert.Equal(t, "Dom Pérignon Champagne", m.Name)

	_, ok = c.MenuItem(99)
	assert.False(t, ok)
}

func TestFilters(t *testing.T) {
	c := MustDefault()

	assert.Len(t, c.Spa("massage"), 2)
	assert.Len(t, c.Spa("All"), 6)
	assert.Len(t, c.Menu("Seafood"), 2)
	assert.Empty(t, c.Menu("Breakfast"))

	culture := c.Tourism("Culture")
	require.Len(t, culture, 1)
	assert.False(t, culture[0].Has360)
}

func TestParse_RejectsDuplicatesAndFreeItems(t *testing.T) {
	_, err := Parse([]byte("menu_items:\n  - {id: 1, name: A, price: 5}\n  - {id: 1, name: B, price: 6}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("spa_services:\n  - {id: 1, name: A, price: 0}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("spa_services: [\n"))
	assert.Error(t, err)
}
