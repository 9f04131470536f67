package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/trailgo-app/trailgo-backend/pkg/auth"
	"github.com/trailgo-app/trailgo-backend/pkg/communication"
	"github.com/trailgo-app/trailgo-backend/pkg/email"
	"github.com/trailgo-app/trailgo-backend/pkg/environment"
	"github.com/trailgo-app/trailgo-backend/pkg/logger"
	"github.com/trailgo-app/trailgo-backend/pkg/tours"
	"github.com/trailgo-app/trailgo-backend/pkg/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	var logging logger.Interface = logger.Logger{}
	fmt.Println("Server is starting up...")

	environment.Initialize()

	client, err := mongo.NewClient(options.Client().ApplyURI(environment.Global.DatabaseURL))
	if err != nil {
		log.Fatal(err)
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		log.Panic(err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Panic(err)
	}

	defer func() {
		err := client.Disconnect(ctx)
		if err != nil {
			logging.Fatal(err)
		}
	}()

	fmt.Println("Database connected")

	db := client.Database(environment.Global.Database)

	tourCollection := db.Collection("Tours")
	userCollection := db.Collection("Users")

	responseManager := communication.ResponseManager{Logger: logging}

	var mailer email.Mailer
	if environment.Global.Sendinblue != "" {
		mailer = email.NewSendInBlueService(environment.Global.Sendinblue)
	}

	var tourRepository tours.TourRepositoryInterface = &tours.MongoDBTourRepository{DB: tourCollection, Logger: logging}
	tourHandler := tours.Handler{TourRepository: tourRepository, Logger: logging, ResponseManager: &responseManager}

	var userRepository users.UserRepositoryInterface = &users.UserRepository{DB: userCollection, Logger: logging}
	userHandler := users.Handler{
		UserRepository:  userRepository,
		Logger:          logging,
		ResponseManager: &responseManager,
		Secret:          environment.Global.Secret,
		EmailService:    mailer,
	}

	authMiddleware := auth.AuthenticationMiddleware{ResponseManager: &responseManager, Secret: environment.Global.Secret}

	r := mux.NewRouter()

	// Aliased routes have to come before the {id} matchers
	r.HandleFunc("/api/v1/tours/top-5-cheap", tourHandler.GetTopTours).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tours/tour-routes", tourHandler.GetTourStats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tours/monthly-plan/{year}", tourHandler.GetMonthlyPlan).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tours", tourHandler.GetAllTours).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tours", tourHandler.TourAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/tours/{id}", tourHandler.TourGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tours/{id}", tourHandler.TourUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/api/v1/tours/{id}", tourHandler.TourDelete).Methods(http.MethodDelete)

	r.HandleFunc("/api/v1/users/signup", userHandler.UserRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/login", userHandler.UserLogin).Methods(http.MethodPost)
	r.Handle("/api/v1/users/me", authMiddleware.Middleware(http.HandlerFunc(userHandler.UserMe))).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users", userHandler.GetAllUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users", userHandler.UserAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{id}", userHandler.UserGet).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{id}", userHandler.UserUpdate).Methods(http.MethodPatch)
	r.HandleFunc("/api/v1/users/{id}", userHandler.UserDelete).Methods(http.MethodDelete)

	// NotFoundHandler skips the middleware chain, so it sets its headers itself
	r.NotFoundHandler = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Add("Content-Type", "application/json")
		responseManager.RespondWithError(writer, http.StatusNotFound,
			"Can't find "+request.URL.Path+" on this server", nil)
	})

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Content-Type", "application/json")
			w.Header().Add("X-Request-ID", uuid.NewString())
			next.ServeHTTP(w, r)
		})
	})

	http.Handle("/", r)
	log.Panic(http.ListenAndServe(":"+environment.Global.Port, r))
}
