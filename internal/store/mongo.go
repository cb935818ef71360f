package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/storyhub/backend/internal/models"
)

// MongoStore handles users, stories and messages in MongoDB.
type MongoStore struct {
	users    *mongo.Collection
	stories  *mongo.Collection
	messages *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:    db.Collection("users"),
		stories:  db.Collection("stories"),
		messages: db.Collection("messages"),
	}
}

// EnsureIndexes creates the unique identity indexes and the lookup indexes
// used by listing queries. Safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("mongo user indexes: %w", err)
	}
	_, err = s.stories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo story indexes: %w", err)
	}
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo message indexes: %w", err)
	}
	return nil
}

// userDoc is the persisted shape of models.User.
type userDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Username          string             `bson:"username"`
	Email             string             `bson:"email"`
	Password          string             `bson:"password"`
	PasswordChangedAt *time.Time         `bson:"passwordChangedAt,omitempty"`
	models.Profile    `bson:",inline"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		Username:          u.Username,
		Email:             u.Email,
		Password:          u.PasswordHash,
		PasswordChangedAt: u.PasswordChangedAt,
		Profile:           u.Profile,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func (d userDoc) toModel() *models.User {
	return &models.User{
		ID:                d.ID.Hex(),
		Username:          d.Username,
		Email:             d.Email,
		PasswordHash:      d.Password,
		PasswordChangedAt: d.PasswordChangedAt,
		Profile:           d.Profile,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// parseObjectID maps malformed ids to ErrNotFound: an id that cannot exist
// is indistinguishable from one that does not.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := s.users.InsertOne(ctx, toUserDoc(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return doc.toModel(), nil
}

// SetPassword writes the hash and its change time in one single-document
// update, which MongoDB applies atomically.
func (s *MongoStore) SetPassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"password":          hash,
		"passwordChangedAt": changedAt,
		"updatedAt":         changedAt,
	}})
	if err != nil {
		return fmt.Errorf("mongo update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) InsertStory(ctx context.Context, story *models.Story) error {
	now := time.Now().UTC()
	story.CreatedAt, story.UpdatedAt = now, now

	res, err := s.stories.InsertOne(ctx, story)
	if err != nil {
		return fmt.Errorf("mongo insert story: %w", err)
	}
	story.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoStore) ListStories(ctx context.Context) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.stories.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list stories: %w", err)
	}
	defer cur.Close(ctx)

	var stories []models.Story
	if err := cur.All(ctx, &stories); err != nil {
		return nil, fmt.Errorf("mongo decode stories: %w", err)
	}
	return stories, nil
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	now := time.Now().UTC()
	msg.CreatedAt, msg.UpdatedAt = now, now

	res, err := s.messages.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("mongo insert message: %w", err)
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Conversation returns the messages exchanged between a and b, oldest first.
func (s *MongoStore) Conversation(ctx context.Context, a, b string) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender": a, "receiver": b},
		bson.M{"sender": b, "receiver": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo conversation: %w", err)
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("mongo decode messages: %w", err)
	}
	return msgs, nil
}
