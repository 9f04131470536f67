package users

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/trailgo-app/trailgo-backend/pkg/logger"
	"github.com/trailgo-app/trailgo-backend/pkg/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no user matches the given identifier
var ErrNotFound = errors.New("user not found")

// UserRepositoryInterface is the interface for a UserRepository
type UserRepositoryInterface interface {
	Add(ctx context.Context, user *User) error
	FindAll(ctx context.Context, description query.Description) ([]User, int, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Remove(ctx context.Context, id string) error
}

// UserRepository does everything related to user storing
type UserRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// Add validates the candidate document, hashes the password, discards the
// confirmation and persists the user. Plaintext never reaches the database.
func (s UserRepository) Add(ctx context.Context, user *User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.LastModifiedAt = time.Now()
	user.Email = strings.ToLower(user.Email)

	if err := user.Validate(); err != nil {
		return err
	}

	if err := user.hashPassword(); err != nil {
		return err
	}

	_, err := s.DB.InsertOne(ctx, user)
	return err
}

// FindAll executes a query description against the collection. The default
// projection keeps the password hash out of every listing.
func (s UserRepository) FindAll(ctx context.Context, description query.Description) ([]User, int, error) {
	users := []User{}

	count, err := s.DB.CountDocuments(ctx, description.Filter)
	if err != nil {
		return nil, 0, err
	}

	if description.PageRequested && description.Skip >= count {
		return nil, 0, query.ErrPageOutOfRange
	}

	findOptions := options.Find()
	findOptions.SetSort(description.Sort)
	findOptions.SetProjection(description.Projection)
	findOptions.SetSkip(description.Skip)
	findOptions.SetLimit(description.Limit)

	cursor, err := s.DB.Find(ctx, description.Filter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &users)
	if err != nil {
		return nil, 0, err
	}

	return users, int(count), nil
}

// FindByID finds a user by ID
func (s UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	var u = User{}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	result := s.DB.FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail finds a user by email
func (s UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u = User{}

	result := s.DB.FindOne(ctx, bson.M{"email": strings.ToLower(email)})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err := result.Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Update re-runs the validators and persists a changed user
func (s UserRepository) Update(ctx context.Context, user *User) error {
	user.LastModifiedAt = time.Now()
	user.Email = strings.ToLower(user.Email)

	if err := user.ValidateStored(); err != nil {
		return err
	}

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": user})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return ErrNotFound
	}

	return nil
}

// Remove deletes a user
func (s UserRepository) Remove(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := s.DB.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount != 1 {
		return ErrNotFound
	}

	return nil
}
