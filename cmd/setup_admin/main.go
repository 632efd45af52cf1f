package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm/logger"

	"digital_legacy_echo/internal/config"
	authMiddleware "digital_legacy_echo/internal/middleware"
	"digital_legacy_echo/internal/models"
	"digital_legacy_echo/internal/services"
)

func main() {
	email := flag.String("email", "", "Email of the account to promote (mandatory)")
	name := flag.String("name", "", "Display name used when the profile does not exist yet")
	role := flag.String("role", string(models.RoleSuperAdmin), "Role to grant")
	issueToken := flag.Bool("token", false, "Also print an API bearer token for the account")
	flag.Parse()

	if *email == "" {
		fmt.Println("Usage: setup_admin -email <email> [-name <name>] [-role admin|super_admin] [-token]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	users := services.NewUserService(db, echo.New().Logger, nil)
	user, err := users.Promote(context.Background(), *email, *name, models.Role(*role))
	if err != nil {
		log.Fatalf("Failed to promote %s: %v", *email, err)
	}
	fmt.Printf("User %s (ID %d) now has role %s\n", user.Email, user.ID, user.Role)

	if !*issueToken {
		return
	}
	subject := user.Email
	if user.FirebaseUID != nil {
		subject = *user.FirebaseUID
	}
	token, err := authMiddleware.IssueToken(cfg.JWTSecret, subject, user.Email, cfg.APITokenTTL)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Printf("Bearer token (valid %s):\n%s\n", cfg.APITokenTTL, token)
}
