package users

import (
	"context"
	"strings"
	"time"

	"github.com/trailgo-app/trailgo-backend/pkg/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MockUserRepository is a user repository for testing
type MockUserRepository struct {
	Users []*User
}

// Add mirrors the persistence path: validate, hash, discard the confirmation
func (m *MockUserRepository) Add(_ context.Context, user *User) error {
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

	m.Users = append(m.Users, user)
	return nil
}

// FindAll returns the requested page of users in insertion order
func (m *MockUserRepository) FindAll(_ context.Context, description query.Description) ([]User, int, error) {
	count := int64(len(m.Users))

	if description.PageRequested && description.Skip >= count {
		return nil, 0, query.ErrPageOutOfRange
	}

	start := description.Skip
	if start > count {
		start = count
	}
	end := start + description.Limit
	if end > count {
		end = count
	}

	users := []User{}
	for _, u := range m.Users[start:end] {
		users = append(users, *u)
	}
	return users, int(count), nil
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	for _, u := range m.Users {
		if u.ID.Hex() == id {
			user := *u
			return &user, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.Users {
		if u.Email == strings.ToLower(email) {
			user := *u
			return &user, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// Update replaces a stored user after re-running the validators
func (m *MockUserRepository) Update(_ context.Context, user *User) error {
	user.LastModifiedAt = time.Now()
	user.Email = strings.ToLower(user.Email)

	if err := user.ValidateStored(); err != nil {
		return err
	}

	for i, u := range m.Users {
		if u.ID == user.ID {
			updated := *user
			m.Users[i] = &updated
			return nil
		}
	}
	return ErrNotFound
}

// Remove deletes a user
func (m *MockUserRepository) Remove(_ context.Context, id string) error {
	for i, u := range m.Users {
		if u.ID.Hex() == id {
			m.Users = append(m.Users[:i], m.Users[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
