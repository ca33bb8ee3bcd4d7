package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/pkg/utils"
)

const (
	StatusConfirmed = "confirmed"

	// PriceTolerance absorbs floating point drift in client-computed totals.
	PriceTolerance = 0.01

	DiningDeliveryWindow = 30 * time.Minute

	MaxNotesLength  = 1000
	MaxOrderItems   = 50
	MaxItemQuantity = 20
)

// Customer is the authenticated guest a booking or order is written for.
type Customer struct {
	ID    primitive.ObjectID
	Email string
	Name  string
}

type SpaBookingRequest struct {
	ServiceID       int     `json:"serviceId"`
	ServiceName     string  `json:"serviceName"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	Duration        string  `json:"duration"`
	Price           float64 `json:"price"`
	Therapist       string  `json:"therapist,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	PaymentIntentID string  `json:"paymentIntentId"`
}

func (r *SpaBookingRequest) Normalize() {
	r.ServiceName = utils.NormalizeString(r.ServiceName)
	r.Date = utils.NormalizeString(r.Date)
	r.Time = utils.NormalizeString(r.Time)
	r.Duration = utils.NormalizeString(r.Duration)
	r.Therapist = utils.NormalizeString(r.Therapist)
	r.Notes = utils.NormalizeString(r.Notes)
	r.PaymentIntentID = utils.NormalizeString(r.PaymentIntentID)
}

func (r *SpaBookingRequest) Validate() error {
	if r.ServiceID <= 0 {
		return Invalid("serviceId is required")
	}
	if r.ServiceName == "" || r.Date == "" || r.Time == "" || r.Duration == "" {
		return Invalid("serviceName, date, time and duration are required")
	}
	if r.Price <= 0 {
		return Invalid("price must be positive")
	}
	if r.PaymentIntentID == "" {
		return Invalid("paymentIntentId is required")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return Invalid("date must be YYYY-MM-DD")
	}
	if utils.RuneLen(r.Notes) > MaxNotesLength {
		return Invalid("notes are too long")
	}
	return nil
}

type SpaBooking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceID       int                `bson:"service_id" json:"serviceId"`
	ServiceName     string             `bson:"service_name" json:"serviceName"`
	Date            string             `bson:"date" json:"date"`
	Time            string             `bson:"time" json:"time"`
	Duration        string             `bson:"duration" json:"duration"`
	Price           float64            `bson:"price" json:"price"`
	Therapist       string             `bson:"therapist,omitempty" json:"therapist,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PaymentIntentID string             `bson:"payment_intent_id" json:"paymentIntentId"`
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	UserEmail       string             `bson:"user_email" json:"userEmail"`
	Status          string             `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}

type OrderItem struct {
	ID       int     `bson:"id" json:"id"`
	Name     string  `bson:"name" json:"name"`
	Price    float64 `bson:"price" json:"price"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

type DiningOrderRequest struct {
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	DeliveryAddress string      `json:"deliveryAddress,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	PaymentIntentID string      `json:"paymentIntentId"`
}

func (r *DiningOrderRequest) Normalize() {
	for i := range r.Items {
		r.Items[i].Name = utils.NormalizeString(r.Items[i].Name)
	}
	r.DeliveryAddress = utils.NormalizeString(r.DeliveryAddress)
	r.Notes = utils.NormalizeString(r.Notes)
	r.PaymentIntentID = utils.NormalizeString(r.PaymentIntentID)
}

// Validate checks shape only; Subtotal and catalog checks happen in the service.
func (r *DiningOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return Invalid("items are required")
	}
	if len(r.Items) > MaxOrderItems {
		return Invalid("too many items")
	}
	for _, it := range r.Items {
		if it.ID <= 0 || it.Name == "" {
			return Invalid("each item needs an id and name")
		}
		if it.Price <= 0 {
			return Invalid("item price must be positive")
		}
		if it.Quantity <= 0 || it.Quantity > MaxItemQuantity {
			return Invalid("item quantity must be between 1 and 20")
		}
	}
	if r.Total <= 0 {
		return Invalid("total must be positive")
	}
	if r.PaymentIntentID == "" {
		return Invalid("paymentIntentId is required")
	}
	if utils.RuneLen(r.Notes) > MaxNotesLength || utils.RuneLen(r.DeliveryAddress) > MaxNotesLength {
		return Invalid("notes are too long")
	}
	return nil
}

// Subtotal sums price × quantity over the items.
func (r *DiningOrderRequest) Subtotal() float64 {
	sum := 0.0
	for _, it := range r.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// TotalMatches reports whether the client total is within PriceTolerance of the subtotal.
func (r *DiningOrderRequest) TotalMatches() bool {
	return WithinTolerance(r.Subtotal(), r.Total)
}

func WithinTolerance(a, b float64) bool {
	return math.Abs(a-b) <= PriceTolerance+1e-9
}

type DiningOrder struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Total             float64            `bson:"total" json:"total"`
	DeliveryAddress   string             `bson:"delivery_address,omitempty" json:"deliveryAddress,omitempty"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PaymentIntentID   string             `bson:"payment_intent_id" json:"paymentIntentId"`
	UserID            primitive.ObjectID `bson:"user_id" json:"userId"`
	UserEmail         string             `bson:"user_email" json:"userEmail"`
	Status            string             `bson:"status" json:"status"`
	EstimatedDelivery time.Time          `bson:"estimated_delivery" json:"estimatedDelivery"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
}
