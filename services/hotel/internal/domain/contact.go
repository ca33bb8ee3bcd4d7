package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/pkg/utils"
)

const MaxContactMessageLength = 5000

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (r *ContactRequest) Normalize() {
	r.Name = utils.NormalizeString(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Phone = utils.NormalizePhone(r.Phone)
	r.Subject = utils.NormalizeString(r.Subject)
	r.Message = utils.NormalizeString(r.Message)
}

func (r *ContactRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Message == "" {
		return Invalid("Name, email and message are required")
	}
	if !utils.IsValidEmail(r.Email) {
		return Invalid("Invalid email format")
	}
	if utils.RuneLen(r.Message) > MaxContactMessageLength {
		return Invalid("Message is too long")
	}
	if utils.RuneLen(r.Name) > MaxNameLength || utils.RuneLen(r.Subject) > 200 {
		return Invalid("Name or subject is too long")
	}
	return nil
}

type ContactMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Subject   string             `bson:"subject,omitempty" json:"subject,omitempty"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
