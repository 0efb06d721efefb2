package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"

	"taskboard/database"
	"taskboard/handlers"
	"taskboard/services"
)

func main() {
	// Load environment variables from .env file
	if err := services.LoadEnv(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize database
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./taskboard.db"
	}
	db, err := database.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize services
	smtpConfig := services.SMTPConfigFromEnv()
	if !smtpConfig.Configured() {
		log.Println("SMTP not configured, magic links will be returned in the login response")
	}
	authService := services.NewAuthService(smtpConfig.Sender())
	store := database.NewStore(db)

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	tasksHandler := handlers.NewTasksHandler(store, hub)
	columnsHandler := handlers.NewColumnsHandler(store)
	notificationsHandler := handlers.NewNotificationsHandler(store, notifyEnabled(), lookaheadDays())
	wsHandler := handlers.NewWSHandler(hub)

	// Setup router
	r := mux.NewRouter()

	// Auth routes
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/verify", authHandler.VerifyToken).Methods("GET")
	r.HandleFunc("/api/auth/magic-link", authHandler.HandleMagicLink).Methods("GET")

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(handlers.NewAuthMiddleware(authService).Auth)

	protected.HandleFunc("/tasks", tasksHandler.GetTasks).Methods("GET")
	protected.HandleFunc("/tasks", tasksHandler.CreateTask).Methods("POST")
	protected.HandleFunc("/tasks/bulk", tasksHandler.BulkUpdate).Methods("PATCH")
	protected.HandleFunc("/tasks/{id:[0-9]+}", tasksHandler.UpdateTask).Methods("PATCH")
	protected.HandleFunc("/tasks/{id:[0-9]+}", tasksHandler.DeleteTask).Methods("DELETE")

	protected.HandleFunc("/columns", columnsHandler.GetColumns).Methods("GET")
	protected.HandleFunc("/columns", columnsHandler.CreateColumn).Methods("POST")
	protected.HandleFunc("/columns/{key}", columnsHandler.UpdateColumn).Methods("PATCH")
	protected.HandleFunc("/columns/{key}", columnsHandler.DeleteColumn).Methods("DELETE")

	protected.HandleFunc("/notifications/tasks", notificationsHandler.GetTaskNotifications).Methods("GET")

	// WebSocket route for real-time updates
	protected.HandleFunc("/ws", wsHandler.HandleWebSocket)

	// Static file server for frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./")))

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, change to your domain
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(server.ListenAndServe())
}

func lookaheadDays() int {
	raw := os.Getenv("NOTIFY_LOOKAHEAD_DAYS")
	if raw == "" {
		return 7
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 7
	}
	return days
}

func notifyEnabled() bool {
	return os.Getenv("NOTIFY_ENABLED") != "false"
}
