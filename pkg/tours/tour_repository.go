package tours

import (
	"context"
	"time"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/trailgo-app/trailgo-backend/pkg/logger"
	"github.com/trailgo-app/trailgo-backend/pkg/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no tour matches the given identifier
var ErrNotFound = errors.New("tour not found")

// TourRepositoryInterface is the interface for a *MongoDBTourRepository
type TourRepositoryInterface interface {
	Add(ctx context.Context, tour *Tour) error
	FindAll(ctx context.Context, description query.Description) ([]Tour, int, error)
	FindByID(ctx context.Context, id string) (*Tour, error)
	FindByName(ctx context.Context, name string) (*Tour, error)
	FindUpdatableByID(ctx context.Context, id string) (*TourUpdate, error)
	Update(ctx context.Context, tour *TourUpdate) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error)
}

// TourStats is one difficulty group of the statistics report
type TourStats struct {
	Difficulty string  `json:"difficulty" bson:"_id"`
	NumTours   int     `json:"numTours" bson:"numTours"`
	NumRatings int     `json:"numRatings" bson:"numRatings"`
	AvgRating  float64 `json:"avgRating" bson:"avgRating"`
	AvgPrice   float64 `json:"avgPrice" bson:"avgPrice"`
	MinPrice   float64 `json:"minPrice" bson:"minPrice"`
	MaxPrice   float64 `json:"maxPrice" bson:"maxPrice"`
}

// MonthlyPlanEntry is one calendar month of the monthly plan report
type MonthlyPlanEntry struct {
	Month         int      `json:"month" bson:"month"`
	NumTourStarts int      `json:"numTourStarts" bson:"numTourStarts"`
	Tours         []string `json:"tours" bson:"tours"`
}

// MongoDBTourRepository does everything related to storing and finding tours
type MongoDBTourRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// visibleOnly prepends the secret tour exclusion to a filter. Every find,
// count and aggregation in this repository builds its filter through here.
// The sanctioned exceptions are direct id lookups, so a shared link to a
// secret tour still resolves, and the name uniqueness lookup, since the name
// must stay unique across secret tours too.
func visibleOnly(filter bson.D) bson.D {
	excluded := bson.D{{Key: "secretTour", Value: bson.M{"$ne": true}}}
	return append(excluded, filter...)
}

// Add derives the slug, fills defaults, validates and persists a new tour
func (s *MongoDBTourRepository) Add(ctx context.Context, tour *Tour) error {
	tour.ID = primitive.NewObjectID()
	tour.CreatedAt = time.Now()
	tour.Slug = slug.Make(tour.Name)

	if tour.RatingsAverage == 0 {
		tour.RatingsAverage = defaultRating
	}

	if err := tour.Validate(); err != nil {
		return err
	}

	_, err := s.DB.InsertOne(ctx, tour)
	return err
}

// FindAll executes a query description against the collection and returns
// the page of tours plus the total number of matching documents
func (s *MongoDBTourRepository) FindAll(ctx context.Context, description query.Description) ([]Tour, int, error) {
	tours := []Tour{}

	filter := visibleOnly(description.Filter)

	count, err := s.DB.CountDocuments(ctx, filter)
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

	cursor, err := s.DB.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &tours)
	if err != nil {
		return nil, 0, err
	}

	return tours, int(count), nil
}

// FindByID finds a tour by ID
func (s *MongoDBTourRepository) FindByID(ctx context.Context, id string) (*Tour, error) {
	var t = Tour{}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	findOptions := options.FindOne()
	findOptions.SetProjection(bson.D{{Key: "__v", Value: 0}, {Key: "createdAt", Value: 0}})

	result := s.DB.FindOne(ctx, bson.M{"_id": objectID}, findOptions)
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByName finds a tour by its exact name, secret ones included
func (s *MongoDBTourRepository) FindByName(ctx context.Context, name string) (*Tour, error) {
	var t = Tour{}

	result := s.DB.FindOne(ctx, bson.M{"name": name})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err := result.Decode(&t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindUpdatableByID loads the full document so an update can merge onto it
func (s *MongoDBTourRepository) FindUpdatableByID(ctx context.Context, id string) (*TourUpdate, error) {
	var t = TourUpdate{}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	result := s.DB.FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update re-derives the slug, re-runs the validators and persists the merged
// document
func (s *MongoDBTourRepository) Update(ctx context.Context, tour *TourUpdate) error {
	tour.Slug = slug.Make(tour.Name)

	if err := (*Tour)(tour).Validate(); err != nil {
		return err
	}

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": tour.ID}, bson.M{"$set": tour})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a tour. A malformed id can never match a document, so it
// reports the same not found condition as a missing one.
func (s *MongoDBTourRepository) Delete(ctx context.Context, id string) error {
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

// Stats runs the statistics by difficulty report
func (s *MongoDBTourRepository) Stats(ctx context.Context) ([]TourStats, error) {
	stats := []TourStats{}

	cursor, err := s.DB.Aggregate(ctx, statsPipeline())
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &stats)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// MonthlyPlan runs the monthly trip start report for one year
func (s *MongoDBTourRepository) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error) {
	plan := []MonthlyPlanEntry{}

	cursor, err := s.DB.Aggregate(ctx, monthlyPlanPipeline(year))
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &plan)
	if err != nil {
		return nil, err
	}

	return plan, nil
}

// statsPipeline groups the well rated tours by difficulty. Documents below
// the rating threshold are dropped before grouping, not after.
func statsPipeline() mongo.Pipeline {
	matchStage := bson.D{{Key: "$match", Value: visibleOnly(bson.D{
		{Key: "ratingsAverage", Value: bson.M{"$gte": defaultRating}},
	})}}
	groupStage := bson.D{{Key: "$group", Value: bson.M{
		"_id":        "$difficulty",
		"numTours":   bson.M{"$sum": 1},
		"numRatings": bson.M{"$sum": "$ratingsQuantity"},
		"avgRating":  bson.M{"$avg": "$ratingsAverage"},
		"avgPrice":   bson.M{"$avg": "$price"},
		"minPrice":   bson.M{"$min": "$price"},
		"maxPrice":   bson.M{"$max": "$price"},
	}}}
	sortStage := bson.D{{Key: "$sort", Value: bson.M{"avgPrice": 1}}}

	return mongo.Pipeline{matchStage, groupStage, sortStage}
}

// monthlyPlanPipeline unwinds every trip start into its own row, keeps the
// requested year and groups the rows per calendar month
func monthlyPlanPipeline(year int) mongo.Pipeline {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	matchVisibleStage := bson.D{{Key: "$match", Value: visibleOnly(nil)}}
	unwindStage := bson.D{{Key: "$unwind", Value: "$startDates"}}
	matchYearStage := bson.D{{Key: "$match", Value: bson.M{
		"startDates": bson.M{"$gte": from, "$lte": to},
	}}}
	groupStage := bson.D{{Key: "$group", Value: bson.M{
		"_id":           bson.M{"$month": "$startDates"},
		"numTourStarts": bson.M{"$sum": 1},
		"tours":         bson.M{"$push": "$name"},
	}}}
	addFieldsStage := bson.D{{Key: "$addFields", Value: bson.M{"month": "$_id"}}}
	projectStage := bson.D{{Key: "$project", Value: bson.M{"_id": 0}}}
	sortStage := bson.D{{Key: "$sort", Value: bson.M{"numTourStarts": -1}}}
	limitStage := bson.D{{Key: "$limit", Value: 12}}

	return mongo.Pipeline{matchVisibleStage, unwindStage, matchYearStage, groupStage, addFieldsStage, projectStage, sortStage, limitStage}
}
