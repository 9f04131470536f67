package tours

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/trailgo-app/trailgo-backend/pkg/communication"
	"github.com/trailgo-app/trailgo-backend/pkg/logger"
	"github.com/trailgo-app/trailgo-backend/pkg/query"
	"go.mongodb.org/mongo-driver/mongo"
)

// Handler handles all tour related API calls
type Handler struct {
	TourRepository  TourRepositoryInterface
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

// GetAllTours is the route for listing tours with filter, sort, field and
// pagination parameters
func (handler *Handler) GetAllTours(writer http.ResponseWriter, request *http.Request) {
	handler.respondWithList(writer, request, request.URL.Query())
}

// GetTopTours pre-seeds the query parameters for the five best rated cheap
// tours and delegates to the standard list path
func (handler *Handler) GetTopTours(writer http.ResponseWriter, request *http.Request) {
	params := request.URL.Query()
	params.Set("limit", "5")
	params.Set("sort", "-ratingsAverage,price")
	params.Set("fields", "name,price,ratingsAverage,summary")

	handler.respondWithList(writer, request, params)
}

func (handler *Handler) respondWithList(writer http.ResponseWriter, request *http.Request, params url.Values) {
	description, err := query.Parse(params, "createdAt")
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Bad query parameters", err)
		return
	}

	tours, _, err := handler.TourRepository.FindAll(request.Context(), description)
	if errors.Is(err, query.ErrPageOutOfRange) {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"Requested page exceeds available results", err)
		return
	}
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem in query", err)
		return
	}

	if len(description.Fields) > 0 {
		views := make([]map[string]interface{}, 0, len(tours))
		for _, tour := range tours {
			view, err := tour.Restrict(description.Fields)
			if err != nil {
				handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
					"Problem while marshalling response into json", err)
				return
			}
			views = append(views, view)
		}

		handler.ResponseManager.RespondWithResults(writer, len(views), map[string]interface{}{"tours": views})
		return
	}

	handler.ResponseManager.RespondWithResults(writer, len(tours), map[string]interface{}{"tours": tours})
}

// GetTourStats is the route for the statistics by difficulty report
func (handler *Handler) GetTourStats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.TourRepository.Stats(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem running the statistics report", err)
		return
	}

	handler.ResponseManager.RespondWithResults(writer, len(stats), map[string]interface{}{"stats": stats})
}

// GetMonthlyPlan is the route for the monthly trip start report
func (handler *Handler) GetMonthlyPlan(writer http.ResponseWriter, request *http.Request) {
	year, err := strconv.Atoi(mux.Vars(request)["year"])
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Bad year parameter", err)
		return
	}

	plan, err := handler.TourRepository.MonthlyPlan(request.Context(), year)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem running the monthly plan report", err)
		return
	}

	handler.ResponseManager.RespondWithResults(writer, len(plan), map[string]interface{}{"plan": plan})
}

// TourAdd is the route for creating a tour
func (handler *Handler) TourAdd(writer http.ResponseWriter, request *http.Request) {
	tour := Tour{}

	err := json.NewDecoder(request.Body).Decode(&tour)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	presentTour, err := handler.TourRepository.FindByName(request.Context(), tour.Name)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem in query", err)
		return
	}
	if presentTour != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
			"Tour with name "+presentTour.Name+" already exists", nil)
		return
	}

	err = handler.TourRepository.Add(request.Context(), &tour)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
				return
			}
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Persisting tour in database did not work", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{"tour": &tour}, http.StatusCreated)
}

// TourGet retrieves a single tour
func (handler *Handler) TourGet(writer http.ResponseWriter, request *http.Request) {
	tourID := mux.Vars(request)["id"]

	tour, err := handler.TourRepository.FindByID(request.Context(), tourID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find tour", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"tour": tour})
}

// TourUpdate is the route for partially updating a tour
func (handler *Handler) TourUpdate(writer http.ResponseWriter, request *http.Request) {
	tourID := mux.Vars(request)["id"]

	tour, err := handler.TourRepository.FindUpdatableByID(request.Context(), tourID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find tour", err)
		return
	}

	err = json.NewDecoder(request.Body).Decode(&tour)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	err = handler.TourRepository.Update(request.Context(), tour)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
				return
			}
		}
		if errors.Is(err, ErrNotFound) {
			handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find tour", err)
			return
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not persist tour", err)
		return
	}

	returnTour := Tour(*tour)
	handler.ResponseManager.Respond(writer, map[string]interface{}{"tour": &returnTour})
}

// TourDelete removes a tour
func (handler *Handler) TourDelete(writer http.ResponseWriter, request *http.Request) {
	tourID := mux.Vars(request)["id"]

	err := handler.TourRepository.Delete(request.Context(), tourID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, mongo.ErrNoDocuments) {
			handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find tour", err)
			return
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not delete tour", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}
