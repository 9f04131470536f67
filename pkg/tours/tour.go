package tours

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// defaultRating is assumed until a tour collects real ratings
const defaultRating = 4.5

var validate = validator.New()

// Tour is the model for a bookable trip
type Tour struct {
	ID              primitive.ObjectID `json:"id" bson:"_id"`
	Name            string             `json:"name" bson:"name" validate:"required,min=5,max=40"`
	Slug            string             `json:"slug" bson:"slug"`
	Duration        float64            `json:"duration" bson:"duration" validate:"required"`
	MaxGroupSize    int                `json:"maxGroupSize" bson:"maxGroupSize" validate:"required"`
	Difficulty      string             `json:"difficulty" bson:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64            `json:"ratingsAverage" bson:"ratingsAverage" validate:"min=1,max=5"`
	RatingsQuantity int                `json:"ratingsQuantity" bson:"ratingsQuantity"`
	Price           float64            `json:"price" bson:"price" validate:"required"`
	PriceDiscount   float64            `json:"priceDiscount,omitempty" bson:"priceDiscount,omitempty" validate:"omitempty,ltfield=Price"`
	Summary         string             `json:"summary" bson:"summary"`
	Description     string             `json:"description" bson:"description"`
	ImageCover      string             `json:"imageCover" bson:"imageCover" validate:"required"`
	Images          []string           `json:"images" bson:"images"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	StartDates      []time.Time        `json:"startDates" bson:"startDates"`
	SecretTour      bool               `json:"secretTour" bson:"secretTour"`
}

// TourUpdate is the view of a tour for an update. The slug is derived from
// the name and never taken from the request body.
type TourUpdate struct {
	ID              primitive.ObjectID `json:"-" bson:"_id"`
	Name            string             `json:"name" bson:"name" validate:"required,min=5,max=40"`
	Slug            string             `json:"-" bson:"slug"`
	Duration        float64            `json:"duration" bson:"duration" validate:"required"`
	MaxGroupSize    int                `json:"maxGroupSize" bson:"maxGroupSize" validate:"required"`
	Difficulty      string             `json:"difficulty" bson:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64            `json:"ratingsAverage" bson:"ratingsAverage" validate:"min=1,max=5"`
	RatingsQuantity int                `json:"ratingsQuantity" bson:"ratingsQuantity"`
	Price           float64            `json:"price" bson:"price" validate:"required"`
	PriceDiscount   float64            `json:"priceDiscount,omitempty" bson:"priceDiscount,omitempty" validate:"omitempty,ltfield=Price"`
	Summary         string             `json:"summary" bson:"summary"`
	Description     string             `json:"description" bson:"description"`
	ImageCover      string             `json:"imageCover" bson:"imageCover" validate:"required"`
	Images          []string           `json:"images" bson:"images"`
	CreatedAt       time.Time          `json:"-" bson:"createdAt"`
	StartDates      []time.Time        `json:"startDates" bson:"startDates"`
	SecretTour      bool               `json:"secretTour" bson:"secretTour"`
}

// Validate checks the full candidate document against its invariants,
// including the sibling field rule that a discount stays below the price.
// Repositories run it before every persistence.
func (t *Tour) Validate() error {
	return validate.Struct(t)
}

// Restrict renders the tour as a document holding only the requested fields
// plus the identifier. A database projection alone is not enough: decoding a
// projected document into the struct would fill every missing field with its
// zero value and the response would leak them all back out.
func (t Tour) Restrict(fields []string) (map[string]interface{}, error) {
	binary, err := json.Marshal(t)
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

// MarshalJSON adds the derived durationWeeks field and drops a projected out
// createdAt instead of rendering the zero time.
func (t Tour) MarshalJSON() ([]byte, error) {
	type alias Tour
	view := struct {
		alias
		DurationWeeks float64 `json:"durationWeeks"`
		CreatedAt     string  `json:"createdAt,omitempty"`
	}{
		alias:         alias(t),
		DurationWeeks: t.Duration / 7,
	}

	if !t.CreatedAt.IsZero() {
		view.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}

	return json.Marshal(view)
}
