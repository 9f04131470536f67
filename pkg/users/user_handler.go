package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/trailgo-app/trailgo-backend/pkg/auth"
	"github.com/trailgo-app/trailgo-backend/pkg/communication"
	"github.com/trailgo-app/trailgo-backend/pkg/email"
	"github.com/trailgo-app/trailgo-backend/pkg/logger"
	"github.com/trailgo-app/trailgo-backend/pkg/query"
	"go.mongodb.org/mongo-driver/mongo"
)

// Handler is the handler for user API calls
type Handler struct {
	UserRepository  UserRepositoryInterface
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
	Secret          string
	EmailService    email.Mailer
}

// UserRegister is the route for registering a user and issuing their token
func (handler *Handler) UserRegister(writer http.ResponseWriter, request *http.Request) {
	user, err := decodeUserBody(request)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	presentUser, err := handler.UserRepository.FindByEmail(request.Context(), user.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem in query", err)
		return
	}
	if presentUser != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
			"User with email "+presentUser.Email+" already exists", nil)
		return
	}

	err = handler.UserRepository.Add(request.Context(), user)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
				return
			}
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"User couldn't be persisted in the database", err)
		return
	}

	token, err := auth.IssueToken(user.ID.Hex(), handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem signing token", err)
		return
	}

	if handler.EmailService != nil {
		err = handler.EmailService.SendEmail(request.Context(), &email.Email{
			ReceiverName:    user.Name,
			ReceiverAddress: user.Email,
			Template:        email.WelcomeTemplate,
			Parameters: map[string]interface{}{
				"name": user.Name,
			},
		})
		if err != nil {
			handler.Logger.Warning("Could not send welcome mail", err)
		}
	}

	handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{
		"token": token,
		"user":  user,
	}, http.StatusCreated)
}

// UserLogin is the route for user authentication
func (handler *Handler) UserLogin(writer http.ResponseWriter, request *http.Request) {
	userLogin := UserLogin{}
	err := json.NewDecoder(request.Body).Decode(&userLogin)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	err = validate.Struct(userLogin)
	if err != nil {
		for _, e := range err.(validator.ValidationErrors) {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
			return
		}
	}

	user, err := handler.UserRepository.FindByEmail(request.Context(), userLogin.Email)
	if err != nil || user == nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", nil)
		return
	}

	err = user.CheckPassword(userLogin.Password)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Wrong credentials", nil)
		return
	}

	token, err := auth.IssueToken(user.ID.Hex(), handler.Secret)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem signing token", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// UserMe retrieves the authenticated user
func (handler *Handler) UserMe(writer http.ResponseWriter, request *http.Request) {
	userID := request.Context().Value(auth.KeyUserID).(string)

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"user": user})
}

// GetAllUsers is the route for listing users
func (handler *Handler) GetAllUsers(writer http.ResponseWriter, request *http.Request) {
	description, err := query.Parse(request.URL.Query(), "password")
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"Bad query parameters", err)
		return
	}

	users, _, err := handler.UserRepository.FindAll(request.Context(), description)
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
		views := make([]map[string]interface{}, 0, len(users))
		for _, user := range users {
			view, err := user.Restrict(description.Fields)
			if err != nil {
				handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
					"Problem while marshalling response into json", err)
				return
			}
			views = append(views, view)
		}

		handler.ResponseManager.RespondWithResults(writer, len(views), map[string]interface{}{"users": views})
		return
	}

	handler.ResponseManager.RespondWithResults(writer, len(users), map[string]interface{}{"users": users})
}

// UserAdd is the route for creating a user without issuing a token
func (handler *Handler) UserAdd(writer http.ResponseWriter, request *http.Request) {
	user, err := decodeUserBody(request)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	presentUser, err := handler.UserRepository.FindByEmail(request.Context(), user.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem in query", err)
		return
	}
	if presentUser != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
			"User with email "+presentUser.Email+" already exists", nil)
		return
	}

	err = handler.UserRepository.Add(request.Context(), user)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
				return
			}
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"User couldn't be persisted in the database", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{"user": user}, http.StatusCreated)
}

// UserGet retrieves a single user
func (handler *Handler) UserGet(writer http.ResponseWriter, request *http.Request) {
	userID := mux.Vars(request)["id"]

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"user": user})
}

// UserUpdate is the route for partially updating a user
func (handler *Handler) UserUpdate(writer http.ResponseWriter, request *http.Request) {
	userID := mux.Vars(request)["id"]

	user, err := handler.UserRepository.FindByID(request.Context(), userID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
			"User wasn't found", err)
		return
	}

	body := map[string]interface{}{}
	err = json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	if name := stringField(body, "name"); name != "" {
		user.Name = name
	}
	if emailAddress := stringField(body, "email"); emailAddress != "" {
		user.Email = emailAddress
	}
	if photo := stringField(body, "photo"); photo != "" {
		user.Photo = photo
	}
	if password := stringField(body, "password"); password != "" {
		if confirm := stringField(body, "passwordConfirm"); confirm != "" && confirm != password {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Password confirmation does not match", nil)
			return
		}

		err = user.SetPassword(password)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Password not acceptable", err)
			return
		}
	}

	err = handler.UserRepository.Update(request.Context(), user)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, e.Error(), e)
				return
			}
		}
		if errors.Is(err, ErrNotFound) {
			handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
				"User wasn't found", err)
			return
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not update user", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{"user": user})
}

// UserDelete removes a user
func (handler *Handler) UserDelete(writer http.ResponseWriter, request *http.Request) {
	userID := mux.Vars(request)["id"]

	err := handler.UserRepository.Remove(request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			handler.ResponseManager.RespondWithError(writer, http.StatusNotFound,
				"User wasn't found", err)
			return
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not delete user", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

func decodeUserBody(request *http.Request) (*User, error) {
	body := map[string]interface{}{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		return nil, err
	}

	return &User{
		Name:            stringField(body, "name"),
		Email:           stringField(body, "email"),
		Photo:           stringField(body, "photo"),
		Password:        stringField(body, "password"),
		PasswordConfirm: stringField(body, "passwordConfirm"),
	}, nil
}

func stringField(body map[string]interface{}, field string) string {
	value, _ := body[field].(string)
	return value
}
