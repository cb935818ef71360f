package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message between two users.
type Message struct {
	ID         primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	SenderID   string             `json:"-"         bson:"sender"`
	ReceiverID string             `json:"-"         bson:"receiver"`
	Content    string             `json:"content"   bson:"content"`
	IsRead     bool               `json:"isRead"    bson:"isRead"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// MessageView is a message with both participants resolved.
type MessageView struct {
	Message
	Sender   *UserSummary `json:"sender"`
	Receiver *UserSummary `json:"receiver"`
}

// SendMessageRequest is the JSON body for POST /messages.
type SendMessageRequest struct {
	Receiver string `json:"receiver" validate:"required"`
	Content  string `json:"content"  validate:"required,max=5000"`
}
