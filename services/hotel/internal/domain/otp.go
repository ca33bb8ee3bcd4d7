package domain

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OTPMin         = 100000
	OTPMax         = 999999
	MaxOTPAttempts = 3
)

// OTPIssue is one row of the otp_codes issuance log. Expired rows are removed
// by the collection's TTL index.
type OTPIssue struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	CodeHash  string             `bson:"code_hash"`
	Purpose   string             `bson:"purpose"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
}

const (
	OTPPurposeRegistration = "registration"
	OTPPurposeResend       = "resend"
)

// GenerateOTP returns a uniformly random code in [OTPMin, OTPMax].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(OTPMax-OTPMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+OTPMin, 10), nil
}

// ValidOTPFormat accepts exactly six digits in range.
func ValidOTPFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return n >= OTPMin && n <= OTPMax
}
