package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/storyhub/backend/internal/models"
)

func TestParseObjectID(t *testing.T) {
	oid := primitive.NewObjectID()

	got, err := parseObjectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = parseObjectID("not-an-object-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDoc_RoundTrip(t *testing.T) {
	changed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	u := &models.User{
		Username:          "alice",
		Email:             "a@x.com",
		PasswordHash:      "$2a$12$hash",
		PasswordChangedAt: &changed,
		Profile:           models.Profile{Town: "Nellore", Category: "writer", Rating: 4},
	}

	doc := toUserDoc(u)
	doc.ID = primitive.NewObjectID()

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, "$2a$12$hash", fields["password"])
	assert.Equal(t, "Nellore", fields["town"], "profile fields are stored inline")

	var decoded userDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	back := decoded.toModel()
	assert.Equal(t, doc.ID.Hex(), back.ID)
	assert.Equal(t, u.PasswordHash, back.PasswordHash)
	assert.Equal(t, u.Profile, back.Profile)
	require.NotNil(t, back.PasswordChangedAt)
	assert.True(t, back.PasswordChangedAt.Equal(changed))
}

func TestUserDoc_OmitsUnsetPasswordChange(t *testing.T) {
	raw, err := bson.Marshal(toUserDoc(&models.User{Username: "bob", Email: "b@x.com"}))
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	_, present := fields["passwordChangedAt"]
	assert.False(t, present)
}
