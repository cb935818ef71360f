package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StoryStatus string

const (
	StoryDraft     StoryStatus = "draft"
	StorySubmitted StoryStatus = "submitted"
	StoryApproved  StoryStatus = "approved"
	StoryRejected  StoryStatus = "rejected"
)

const DefaultStoryCategory = "uncategorized"

// Story is a script submission stored in MongoDB.
type Story struct {
	ID        primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	AuthorID  string             `json:"-"         bson:"author"`
	Title     string             `json:"title"     bson:"title"`
	Script    string             `json:"script"    bson:"script"`
	Rating    float64            `json:"rating"    bson:"rating"`
	Category  string             `json:"category"  bson:"category"`
	Img       string             `json:"img,omitempty" bson:"img,omitempty"`
	Status    StoryStatus        `json:"status"    bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// StoryView is a story with its author resolved.
type StoryView struct {
	Story
	Author *UserSummary `json:"author"`
}

// CreateStoryRequest is the JSON body for POST /stories.
type CreateStoryRequest struct {
	Title    string      `json:"title"    validate:"required,max=200"`
	Script   string      `json:"script"   validate:"required"`
	Rating   float64     `json:"rating"   validate:"gte=0"`
	Category string      `json:"category" validate:"max=50"`
	Img      string      `json:"img"      validate:"max=255"`
	Status   StoryStatus `json:"status"   validate:"omitempty,oneof=draft submitted approved rejected"`
}
