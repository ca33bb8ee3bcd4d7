package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/diagnosis/zayna-hotel/pkg/utils"
)

type ChatEntry struct {
	Message   string    `bson:"message" json:"message"`
	Reply     string    `bson:"reply" json:"reply"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ChatHistory is one document per guest, capped on append.
type ChatHistory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Messages  []ChatEntry        `bson:"messages" json:"messages"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ChatRequest's Message is raw JSON so a non-string value can be rejected explicitly.
type ChatRequest struct {
	Message interface{} `json:"message"`
}

// Text returns the message when it is a non-blank string.
func (r *ChatRequest) Text() (string, bool) {
	s, ok := r.Message.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

type ChatTurnRequest struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
}

func (r *ChatTurnRequest) Validate(maxLen int) error {
	if strings.TrimSpace(r.Message) == "" || strings.TrimSpace(r.Reply) == "" {
		return Invalid("message and reply are required")
	}
	if utils.RuneLen(r.Message) > maxLen || utils.RuneLen(r.Reply) > maxLen {
		return Invalid("message or reply is too long")
	}
	return nil
}
