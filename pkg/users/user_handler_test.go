package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/trailgo-app/trailgo-backend/pkg/auth"
	"github.com/trailgo-app/trailgo-backend/pkg/communication"
	"github.com/trailgo-app/trailgo-backend/pkg/email"
	"github.com/trailgo-app/trailgo-backend/pkg/logger"
)

type MockMailer struct {
	Sent []*email.Email
}

func (m *MockMailer) SendEmail(_ context.Context, mail *email.Email) error {
	m.Sent = append(m.Sent, mail)
	return nil
}

func newUserHandler(repository *MockUserRepository, mailer email.Mailer) *Handler {
	logging := logger.Logger{}
	return &Handler{
		UserRepository:  repository,
		Logger:          logging,
		ResponseManager: &communication.ResponseManager{Logger: logging},
		Secret:          "secret",
		EmailService:    mailer,
	}
}

func userRouter(handler *Handler) *mux.Router {
	authMiddleware := auth.AuthenticationMiddleware{ResponseManager: handler.ResponseManager, Secret: handler.Secret}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/users/signup", handler.UserRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/login", handler.UserLogin).Methods(http.MethodPost)
	r.Handle("/api/v1/users/me", authMiddleware.Middleware(http.HandlerFunc(handler.UserMe))).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users", handler.GetAllUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users", handler.UserAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{id}", handler.UserGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{id}", handler.UserUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/api/v1/users/{id}", handler.UserDelete).Methods(http.MethodDelete)
	return r
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	envelope := map[string]interface{}{}
	err := json.Unmarshal(recorder.Body.Bytes(), &envelope)
	if err != nil {
		t.Fatal(err)
	}
	return envelope
}

const signupBody = `{"name":"Jonas Schmedtmann","email":"jonas@example.com","password":"pass1234","passwordConfirm":"pass1234"}`

func TestHandler_UserRegister(t *testing.T) {
	repository := &MockUserRepository{}
	mailer := &MockMailer{}
	router := userRouter(newUserHandler(repository, mailer))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	envelope := decodeEnvelope(t, recorder)
	data := envelope["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	if len(strings.Split(token, ".")) != 3 {
		t.Errorf("expected a signed JWT, got %q", token)
	}

	userID, err := auth.VerifyToken(token, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if userID != repository.Users[0].ID.Hex() {
		t.Error("token subject should be the new user's id")
	}

	view := data["user"].(map[string]interface{})
	if _, present := view["password"]; present {
		t.Error("password must not appear in the signup response")
	}

	if len(mailer.Sent) != 1 || mailer.Sent[0].ReceiverAddress != "jonas@example.com" {
		t.Error("expected a welcome mail to the new user")
	}
}

func TestHandler_UserRegisterDuplicateEmail(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusConflict {
		t.Errorf("expected 409 for a duplicate email, got %d", recorder.Code)
	}
}

func TestHandler_UserRegisterMismatchedConfirmation(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	body := `{"name":"Jonas Schmedtmann","email":"jonas@example.com","password":"pass1234","passwordConfirm":"other1234"}`
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(body)))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

func TestHandler_UserLogin(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	loginBody := `{"email":"jonas@example.com","password":"pass1234"}`
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(loginBody)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	envelope := decodeEnvelope(t, recorder)
	data := envelope["data"].(map[string]interface{})
	if data["token"] == "" {
		t.Error("expected a token after login")
	}
}

func TestHandler_UserLoginWrongCredentials(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}

	var loginTests = []string{
		`{"email":"jonas@example.com","password":"wrongpass"}`,
		`{"email":"nobody@example.com","password":"pass1234"}`,
	}
	for _, body := range loginTests {
		recorder = httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(body)))

		if recorder.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", body, recorder.Code)
		}

		envelope := decodeEnvelope(t, recorder)
		if envelope["message"] != "Wrong credentials" {
			t.Errorf("unexpected message: %v", envelope["message"])
		}
	}
}

func TestHandler_UserMe(t *testing.T) {
	repository := &MockUserRepository{}
	handler := newUserHandler(repository, nil)
	router := userRouter(handler)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}

	envelope := decodeEnvelope(t, recorder)
	token := envelope["data"].(map[string]interface{})["token"].(string)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	envelope = decodeEnvelope(t, recorder)
	view := envelope["data"].(map[string]interface{})["user"].(map[string]interface{})
	if view["email"] != "jonas@example.com" {
		t.Errorf("unexpected user: %v", view["email"])
	}
}

func TestHandler_UserMeWithoutToken(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", recorder.Code)
	}
}

func TestHandler_GetAllUsers(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	envelope := decodeEnvelope(t, recorder)
	if envelope["results"] != 1.0 {
		t.Errorf("expected 1 result, got %v", envelope["results"])
	}
}

func TestHandler_GetAllUsersLimitsFields(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/users?fields=name", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	envelope := decodeEnvelope(t, recorder)
	users := envelope["data"].(map[string]interface{})["users"].([]interface{})
	for _, entry := range users {
		view := entry.(map[string]interface{})
		if len(view) != 2 {
			t.Fatalf("expected exactly id and name per user, got %v", view)
		}
		if _, present := view["email"]; present {
			t.Error("email must not appear in a limited view")
		}
	}
}

type failingUserRepository struct {
	MockUserRepository
}

func (f *failingUserRepository) FindByEmail(_ context.Context, _ string) (*User, error) {
	return nil, errors.New("connection reset")
}

func TestHandler_UserRegisterLookupFailure(t *testing.T) {
	repository := &failingUserRepository{}
	handler := newUserHandler(&repository.MockUserRepository, nil)
	handler.UserRepository = repository
	router := userRouter(handler)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when the duplicate lookup fails, got %d", recorder.Code)
	}
	if len(repository.Users) != 0 {
		t.Error("nothing must be inserted when the duplicate lookup fails")
	}

	envelope := decodeEnvelope(t, recorder)
	if envelope["status"] != "error" {
		t.Errorf("expected error status, got %v", envelope["status"])
	}
}

func TestHandler_UserUpdatePassword(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}
	userID := repository.Users[0].ID.Hex()

	body := `{"password":"newpass1234","passwordConfirm":"newpass1234"}`
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+userID, strings.NewReader(body)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if err := repository.Users[0].CheckPassword("newpass1234"); err != nil {
		t.Error("new password should verify after the update")
	}

	body = `{"password":"newpass1234","passwordConfirm":"mismatch1234"}`
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPatch, "/api/v1/users/"+userID, strings.NewReader(body)))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a mismatched confirmation, got %d", recorder.Code)
	}
}

func TestHandler_UserDelete(t *testing.T) {
	repository := &MockUserRepository{}
	router := userRouter(newUserHandler(repository, nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(signupBody)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", recorder.Code)
	}
	userID := repository.Users[0].ID.Hex()

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+userID, nil))
	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+userID, nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a second delete, got %d", recorder.Code)
	}
}
