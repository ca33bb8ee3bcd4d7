package domain

import (
	"math"
	"strings"
)

const (
	MaxPaymentAmount   = 1_000_000
	MaxMetadataEntries = 20
)

type PaymentIntentRequest struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (r *PaymentIntentRequest) Normalize(defaultCurrency string) {
	r.Currency = strings.ToLower(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = defaultCurrency
	}
	r.Description = strings.TrimSpace(r.Description)
}

func (r *PaymentIntentRequest) Validate() error {
	if r.Amount <= 0 || math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return Invalid("amount must be positive")
	}
	if r.Amount > MaxPaymentAmount {
		return Invalid("amount is too large")
	}
	if len(r.Currency) != 3 {
		return Invalid("currency must be a 3-letter ISO code")
	}
	if len(r.Metadata) > MaxMetadataEntries {
		return Invalid("too many metadata entries")
	}
	return nil
}

// MinorUnits converts major currency units to the provider's integer amount.
func (r *PaymentIntentRequest) MinorUnits() int64 {
	return int64(math.Round(r.Amount * 100))
}

// PaymentIntentParams is what the provider needs to mint an intent.
type PaymentIntentParams struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type PaymentIntent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
}
