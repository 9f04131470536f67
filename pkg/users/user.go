package users

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor for stored passwords
const passwordCost = 12

// minPasswordLength is the shortest password the API accepts
const minPasswordLength = 8

var validate = validator.New()

// User is the model for an account. The password only ever leaves this
// package as a hash and never appears in JSON output; the confirmation is
// never persisted at all.
type User struct {
	ID              primitive.ObjectID `json:"id" bson:"_id"`
	Name            string             `json:"name" bson:"name" validate:"required"`
	Email           string             `json:"email" bson:"email" validate:"required,email"`
	Photo           string             `json:"photo,omitempty" bson:"photo,omitempty"`
	Password        string             `json:"-" bson:"password" validate:"required,min=8"`
	PasswordConfirm string             `json:"-" bson:"-" validate:"required,eqfield=Password"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt  time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
}

// Restrict renders the user as a document holding only the requested fields
// plus the identifier, so a field limited listing never re-emits projected out
// fields as zero values. Credentials carry no JSON name and can never be
// requested back in.
func (u User) Restrict(fields []string) (map[string]interface{}, error) {
	binary, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}

	full := map[string]interface{}{}
	if err := json.Unmarshal(binary, &full); err != nil {
		return nil, err
	}

	allowed := map[string]bool{"id": true}
	for _, field := range fields {
		allowed[field] = true
	}

	view := map[string]interface{}{}
	for key, value := range full {
		if allowed[key] {
			view[key] = value
		}
	}
	return view, nil
}

// UserLogin is the credentials payload for authentication
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the full candidate document before its first persistence,
// while the confirmation still has to equal the plaintext password
func (u *User) Validate() error {
	return validate.Struct(u)
}

// ValidateStored checks a document that has already been persisted, where no
// confirmation exists anymore
func (u *User) ValidateStored() error {
	return validate.StructExcept(u, "PasswordConfirm")
}

// SetPassword hashes and stores a new password. This is the only way a
// password changes after creation.
func (u *User) SetPassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return err
	}

	u.Password = string(hashed)
	u.PasswordConfirm = ""
	return nil
}

// CheckPassword compares a plaintext password against the stored hash
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// hashPassword replaces the plaintext password with its hash and discards
// the confirmation. Called by repositories right before persistence.
func (u *User) hashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), passwordCost)
	if err != nil {
		return err
	}

	u.Password = string(hashed)
	u.PasswordConfirm = ""
	return nil
}
