package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/caiomachado-24/ReservAI/internal/api"
	"github.com/caiomachado-24/ReservAI/internal/auth"
	"github.com/caiomachado-24/ReservAI/internal/repository"
	"github.com/caiomachado-24/ReservAI/internal/service"
)

func main() {
	godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	tzName := os.Getenv("SHOP_TIMEZONE")
	if tzName == "" {
		tzName = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("Invalid SHOP_TIMEZONE %q: %v", tzName, err)
	}

	locale := os.Getenv("CLASSIFIER_LOCALE")
	if locale == "" {
		locale = "pt-BR"
	}
	classifierURL := os.Getenv("CLASSIFIER_URL")
	if classifierURL == "" {
		log.Fatal("CLASSIFIER_URL not set")
	}
	classifier := service.NewHTTPClassifier(classifierURL, os.Getenv("CLASSIFIER_API_KEY"))

	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	clientRepo := repository.NewClientRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	adminAuthRepo := repository.NewAdminAuthRepository(db)
	jobRepo := repository.NewJobRepository(db)

	sessions := service.NewMemorySessionStore()
	resolver := service.NewSlotResolver(loc)
	sender := service.NewSenderService()

	conversationSvc := service.NewConversationService(
		classifier, sessions, resolver,
		slotRepo, bookingRepo, clientRepo, catalogRepo,
		sender, locale, loc,
	)
	adminSvc := service.NewAdminService(slotRepo, catalogRepo, bookingRepo, loc)
	adminAuthSvc := service.NewAdminAuthService(adminAuthRepo)
	jobSvc := service.NewJobService(jobRepo, sessions, sender, loc)

	webhookHandler := api.NewWebhookHandler(conversationSvc, adminSvc)
	adminHandler := api.NewAdminHandler(adminSvc)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/messages", webhookHandler.ReceiveMessage).Methods("POST")
	r.HandleFunc("/api/services", webhookHandler.ListServices).Methods("GET")
	r.HandleFunc("/admin/login", adminAuthHandler.Login).Methods("POST")
	r.HandleFunc("/admin/register", adminAuthHandler.CreateUserAdmin).Methods("POST")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware)
	admin.HandleFunc("/appointments", adminHandler.ListAppointments).Methods("GET")
	admin.HandleFunc("/slots", adminHandler.CreateSlot).Methods("POST")
	admin.HandleFunc("/slots", adminHandler.ListSlots).Methods("GET")
	admin.HandleFunc("/slots/{id}", adminHandler.DeleteSlot).Methods("DELETE")
	admin.HandleFunc("/services", adminHandler.CreateService).Methods("POST")
	admin.HandleFunc("/staff", adminHandler.ListStaff).Methods("GET")

	sessionTTL := 30 * time.Minute
	if raw := os.Getenv("SESSION_IDLE_TTL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			sessionTTL = time.Duration(minutes) * time.Minute
		}
	}

	c := cron.New()
	c.AddFunc("@every 10m", func() {
		jobSvc.EvictIdleSessions(sessionTTL)
	})
	c.AddFunc("@every 30m", func() {
		if err := jobSvc.SendUpcomingReminders(); err != nil {
			log.Printf("Reminder job failed: %v", err)
		}
	})
	c.Start()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, corsHandler(r))))
}
