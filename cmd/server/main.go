package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/config"
	"waste_tracker/internal/controllers"
	"waste_tracker/internal/fleet"
	"waste_tracker/internal/logger"
	"waste_tracker/internal/middleware"
	"waste_tracker/internal/models"
	"waste_tracker/internal/routes"
	"waste_tracker/internal/store"
	"waste_tracker/internal/tracking"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	db := store.NewGorm(config.GetDB())
	manager := fleet.NewManager(db)

	staleAfter, err := time.ParseDuration(config.StaleAfter())
	if err != nil {
		log.Fatalf("invalid TRACKER_STALE_AFTER: %v", err)
	}
	tracker := tracking.New(db, tracking.WithStaleAfter(staleAfter))

	controllers.Wire(db, manager, tracker)
	seedAdmin(db)

	r := routes.SetupRouter()

	// Wrap with CORS for the dashboard and mobile apps
	handler := middleware.EnableCORS(r)

	log.Println("🚀 Server running at :8080")
	log.Fatal(http.ListenAndServe("0.0.0.0:8080", handler))
}

// seedAdmin creates the bootstrap platform admin from the environment if
// one does not exist yet.
func seedAdmin(db store.Store) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}

	ctx := context.Background()
	if _, err := db.GetAdminByUsername(ctx, username); err == nil {
		return
	} else if !apperr.Is(err, apperr.KindNotFound) {
		logrus.WithError(err).Warn("Could not check for existing admin, skipping seed")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash seed admin password")
		return
	}
	admin := models.Admin{
		Name:     "Platform Admin",
		Email:    os.Getenv("ADMIN_EMAIL"),
		Username: username,
		Password: string(hashed),
	}
	if err := db.CreateAdmin(ctx, &admin); err != nil {
		logrus.WithError(err).Error("Failed to seed admin account")
		return
	}
	logrus.WithField("username", username).Info("Seeded platform admin account")
}
