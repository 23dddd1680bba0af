package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/database"
	"github.com/testlane/testlane-backend/internal/logger"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
	"github.com/testlane/testlane-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, userRepo, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Teacher Account ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	teacher, err := authService.Register(ctx, &model.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(model.RoleTeacher),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}

	code := ""
	if teacher.TeacherCode != nil {
		code = *teacher.TeacherCode
	}
	fmt.Printf("\nSuccess! Teacher '%s' (%s) created with ID %d, enrollment code %s\n",
		teacher.Name, teacher.Email, teacher.ID, code)
}
