package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/pkg/utils"
)

const (
	MinPhoneDigits    = 10
	MinPasswordLength = 6
	MaxNameLength     = 100
	MaxRoomNoLength   = 10
)

// Guest is the account record in the guests collection.
type Guest struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GuestID      string               `bson:"guest_id" json:"guestId"`
	Name         string               `bson:"name" json:"name"`
	Email        string               `bson:"email" json:"email"`
	Phone        string               `bson:"phone" json:"phone"`
	RoomNo       string               `bson:"room_no" json:"roomNo"`
	PasswordHash string               `bson:"password_hash" json:"-"`
	IsVerified   bool                 `bson:"is_verified" json:"isVerified"`
	OTPHash      string               `bson:"otp_hash,omitempty" json:"-"`
	OTPExpiresAt *time.Time           `bson:"otp_expires_at,omitempty" json:"-"`
	OTPAttempts  int                  `bson:"otp_attempts" json:"-"`
	VerifiedAt   *time.Time           `bson:"verified_at,omitempty" json:"verifiedAt,omitempty"`
	Bookings     []primitive.ObjectID `bson:"bookings,omitempty" json:"-"`
	Orders       []primitive.ObjectID `bson:"orders,omitempty" json:"-"`
	CreatedAt    time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updatedAt"`
}

// HasActiveCode reports whether an unexpired code is on record at now.
func (g *Guest) HasActiveCode(now time.Time) bool {
	return g.OTPHash != "" && g.OTPExpiresAt != nil && now.Before(*g.OTPExpiresAt)
}

// GuestInfo is the public view of a guest.
type GuestInfo struct {
	ID         string `json:"id"`
	GuestID    string `json:"guestId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	RoomNo     string `json:"roomNo"`
	IsVerified bool   `json:"isVerified"`
}

func (g *Guest) Info() GuestInfo {
	return GuestInfo{
		ID:         g.ID.Hex(),
		GuestID:    g.GuestID,
		Name:       g.Name,
		Email:      g.Email,
		Phone:      g.Phone,
		RoomNo:     g.RoomNo,
		IsVerified: g.IsVerified,
	}
}

// NewGuestID builds GUEST{room}_{4 digits} from the clock's last four millisecond digits.
func NewGuestID(roomNo string, now time.Time) string {
	return fmt.Sprintf("GUEST%s_%04d", roomNo, now.UnixMilli()%10000)
}

// RandomGuestID is used when the clock-derived id collides.
func RandomGuestID(roomNo string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GUEST%s_%04d", roomNo, n.Int64()), nil
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	RoomNo   string `json:"roomNo"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = utils.NormalizeString(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	// a phone with no digits stays as typed so Validate reports the digit rule
	if phone := utils.NormalizePhone(r.Phone); phone != "" {
		r.Phone = phone
	} else {
		r.Phone = strings.TrimSpace(r.Phone)
	}
	r.RoomNo = strings.ToUpper(strings.Join(strings.Fields(r.RoomNo), ""))
}

// Validate checks fields in the order the website reports them.
func (r *RegisterRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Phone == "" || r.RoomNo == "" || r.Password == "" {
		return Invalid("All fields are required")
	}
	if !utils.IsValidEmail(r.Email) {
		return Invalid("Invalid email format")
	}
	if utils.CountDigits(r.Phone) < MinPhoneDigits {
		return Invalid("Phone must be at least 10 digits")
	}
	if len(r.Password) < MinPasswordLength {
		return Invalid("Password must be at least 6 characters")
	}
	if utils.RuneLen(r.Name) > MaxNameLength {
		return Invalid("Name is too long")
	}
	if len(r.RoomNo) > MaxRoomNoLength {
		return Invalid("Room number is too long")
	}
	return nil
}

// RegisterResult is returned to the client after registration.
type RegisterResult struct {
	Guest        *Guest
	OTPDelivered bool
	DevOTP       string
}

type SendOTPRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (r *SendOTPRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.Name = utils.NormalizeString(r.Name)
}

func (r *SendOTPRequest) Validate() error {
	if r.Email == "" {
		return Invalid("Email is required")
	}
	if !utils.IsValidEmail(r.Email) {
		return Invalid("Invalid email format")
	}
	return nil
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

func (r *VerifyOTPRequest) Validate() error {
	if r.Email == "" || r.OTP == "" {
		return Invalid("Email and OTP are required")
	}
	if !ValidOTPFormat(r.OTP) {
		return ErrInvalidOTPFormat
	}
	return nil
}

// GuestLoginRequest accepts the identifier as guestId or, from older clients, userId.
type GuestLoginRequest struct {
	GuestID  string `json:"guestId"`
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

func (r *GuestLoginRequest) Identifier() string {
	if id := strings.TrimSpace(r.GuestID); id != "" {
		return id
	}
	return strings.TrimSpace(r.UserID)
}

func (r *GuestLoginRequest) Validate() error {
	if r.Identifier() == "" || r.Password == "" {
		return Invalid("Guest ID and password are required")
	}
	return nil
}

type AccountLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *AccountLoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

func (r *AccountLoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return Invalid("Email and password are required")
	}
	return nil
}

// Session is a signed account session handed to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn int64     `json:"expiresIn"`
	User      GuestInfo `json:"user"`
}
