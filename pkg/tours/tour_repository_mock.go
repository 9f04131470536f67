package tours

import (
	"context"
	"sort"
	"time"

	"github.com/gosimple/slug"
	"github.com/trailgo-app/trailgo-backend/pkg/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MockTourRepository is a tour repository for testing. It mirrors the side
// effects of the mongo repository in memory, including the secret tour
// exclusion on every list style read.
type MockTourRepository struct {
	Tours []*Tour
}

// Add adds a tour
func (m *MockTourRepository) Add(_ context.Context, tour *Tour) error {
	tour.ID = primitive.NewObjectID()
	tour.CreatedAt = time.Now()
	tour.Slug = slug.Make(tour.Name)

	if tour.RatingsAverage == 0 {
		tour.RatingsAverage = defaultRating
	}

	if err := tour.Validate(); err != nil {
		return err
	}

	m.Tours = append(m.Tours, tour)
	return nil
}

func (m *MockTourRepository) visible() []*Tour {
	tours := []*Tour{}
	for _, t := range m.Tours {
		if t.SecretTour {
			continue
		}
		tours = append(tours, t)
	}
	return tours
}

// FindAll returns the requested page of non secret tours in insertion order
func (m *MockTourRepository) FindAll(_ context.Context, description query.Description) ([]Tour, int, error) {
	visible := m.visible()
	count := int64(len(visible))

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

	tours := []Tour{}
	for _, t := range visible[start:end] {
		tours = append(tours, *t)
	}
	return tours, int(count), nil
}

// FindByID finds a tour by ID, secret ones included
func (m *MockTourRepository) FindByID(_ context.Context, id string) (*Tour, error) {
	for _, t := range m.Tours {
		if t.ID.Hex() == id {
			tour := *t
			return &tour, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// FindByName finds a tour by its exact name, secret ones included
func (m *MockTourRepository) FindByName(_ context.Context, name string) (*Tour, error) {
	for _, t := range m.Tours {
		if t.Name == name {
			tour := *t
			return &tour, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// FindUpdatableByID loads the full document as an update view
func (m *MockTourRepository) FindUpdatableByID(_ context.Context, id string) (*TourUpdate, error) {
	for _, t := range m.Tours {
		if t.ID.Hex() == id {
			tour := TourUpdate(*t)
			return &tour, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// Update replaces a stored tour after re-deriving the slug and validating
func (m *MockTourRepository) Update(_ context.Context, tour *TourUpdate) error {
	tour.Slug = slug.Make(tour.Name)

	if err := (*Tour)(tour).Validate(); err != nil {
		return err
	}

	for i, t := range m.Tours {
		if t.ID == tour.ID {
			updated := Tour(*tour)
			m.Tours[i] = &updated
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes a tour
func (m *MockTourRepository) Delete(_ context.Context, id string) error {
	for i, t := range m.Tours {
		if t.ID.Hex() == id {
			m.Tours = append(m.Tours[:i], m.Tours[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Stats computes the statistics by difficulty report in memory
func (m *MockTourRepository) Stats(_ context.Context) ([]TourStats, error) {
	groups := map[string]*TourStats{}
	ratingSums := map[string]float64{}
	priceSums := map[string]float64{}

	for _, t := range m.visible() {
		if t.RatingsAverage < defaultRating {
			continue
		}

		group, ok := groups[t.Difficulty]
		if !ok {
			group = &TourStats{Difficulty: t.Difficulty, MinPrice: t.Price, MaxPrice: t.Price}
			groups[t.Difficulty] = group
		}

		group.NumTours++
		group.NumRatings += t.RatingsQuantity
		ratingSums[t.Difficulty] += t.RatingsAverage
		priceSums[t.Difficulty] += t.Price
		if t.Price < group.MinPrice {
			group.MinPrice = t.Price
		}
		if t.Price > group.MaxPrice {
			group.MaxPrice = t.Price
		}
	}

	stats := []TourStats{}
	for difficulty, group := range groups {
		group.AvgRating = ratingSums[difficulty] / float64(group.NumTours)
		group.AvgPrice = priceSums[difficulty] / float64(group.NumTours)
		stats = append(stats, *group)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].AvgPrice < stats[j].AvgPrice })
	return stats, nil
}

// MonthlyPlan computes the monthly trip start report in memory
func (m *MockTourRepository) MonthlyPlan(_ context.Context, year int) ([]MonthlyPlanEntry, error) {
	byMonth := map[int]*MonthlyPlanEntry{}

	for _, t := range m.visible() {
		for _, start := range t.StartDates {
			if start.Year() != year {
				continue
			}

			month := int(start.Month())
			entry, ok := byMonth[month]
			if !ok {
				entry = &MonthlyPlanEntry{Month: month}
				byMonth[month] = entry
			}

			entry.NumTourStarts++
			entry.Tours = append(entry.Tours, t.Name)
		}
	}

	plan := []MonthlyPlanEntry{}
	for _, entry := range byMonth {
		plan = append(plan, *entry)
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].NumTourStarts > plan[j].NumTourStarts })
	if len(plan) > 12 {
		plan = plan[:12]
	}
	return plan, nil
}
