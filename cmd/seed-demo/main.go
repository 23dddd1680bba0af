package main

import (
	"context"
	"fmt"
	"time"

	"github.com/testlane/testlane-backend/internal/config"
	"github.com/testlane/testlane-backend/internal/database"
	"github.com/testlane/testlane-backend/internal/logger"
	"github.com/testlane/testlane-backend/internal/model"
	"github.com/testlane/testlane-backend/internal/repository"
	"github.com/testlane/testlane-backend/internal/service"
)

// Seeds a demo teacher with one ready-to-activate test plus a class of
// enrolled students. Intended for local development only.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	authService := service.NewAuthService(cfg, userRepo, log)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, userRepo, log)
	testService := service.NewTestService(testRepo, questionRepo, enrollmentRepo, nil, log)
	questionService := service.NewQuestionService(questionRepo, testRepo, log)

	fmt.Println("=== Seeding Demo Data ===")

	teacher, err := authService.Register(ctx, &model.RegisterRequest{
		Name:     "Demo Teacher",
		Email:    "teacher@testlane.dev",
		Password: "demopass",
		Role:     string(model.RoleTeacher),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo teacher")
	}
	fmt.Printf("Created teacher %s with code %s\n", teacher.Email, *teacher.TeacherCode)

	test, err := testService.Create(ctx, teacher.ID, &model.CreateTestRequest{
		Title:           "Algebra Basics",
		Description:     "Demo test seeded for local development",
		DurationMinutes: 30,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo test")
	}

	questions := []model.AddQuestionRequest{
		{
			QuestionText: "What is 2 + 2?",
			QuestionType: string(model.QuestionTypeMultipleChoice),
			Options: []model.Option{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
				{Text: "5"},
			},
			Marks:         2,
			NegativeMarks: 0.5,
			Position:      1,
		},
		{
			QuestionText: "Solve for x: 3x = 12",
			QuestionType: string(model.QuestionTypeMultipleChoice),
			Options: []model.Option{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
				{Text: "6"},
				{Text: "9"},
			},
			Marks:         3,
			NegativeMarks: 1,
			Position:      2,
		},
		{
			QuestionText:  "The value of x in x + 5 = 9 is ____",
			QuestionType:  string(model.QuestionTypeFillInBlank),
			CorrectAnswer: "4",
			Marks:         5,
			Position:      3,
		},
	}
	for _, q := range questions {
		if _, err := questionService.Add(ctx, test.ID, teacher.ID, &q); err != nil {
			log.Fatal().Err(err).Msg("Failed to add demo question")
		}
	}
	fmt.Printf("Created test %q with %d questions\n", test.Title, len(questions))

	successCount := 0
	for i := 1; i <= 10; i++ {
		student, err := authService.Register(ctx, &model.RegisterRequest{
			Name:     fmt.Sprintf("Demo Student %02d", i),
			Email:    fmt.Sprintf("student%02d@testlane.dev", i),
			Password: "demopass",
			Role:     string(model.RoleStudent),
		})
		if err != nil {
			fmt.Printf("Error creating student %d: %v\n", i, err)
			continue
		}
		if _, err := enrollmentService.Enroll(ctx, student.ID, &model.EnrollRequest{TeacherCode: *teacher.TeacherCode}); err != nil {
			fmt.Printf("Error enrolling student %d: %v\n", i, err)
			continue
		}
		successCount++
	}

	fmt.Printf("\nSeed completed! Teacher, test and %d/10 enrolled students created.\n", successCount)
	fmt.Println("Activate the test with: PATCH /api/v1/teacher/tests/{id}/active")
}
