// Seeds a demo teacher, a student and a published sample assessment.
//
// Intended for a first deployment or a local environment; running it twice
// creates duplicate questions, so wipe the database first.
//
// Usage: go run scripts/seed.go

package main

import (
	"assessly_backend/internal/config"
	"assessly_backend/internal/model"
	"assessly_backend/pkg/database"
	"assessly_backend/pkg/logger"
	"encoding/json"
	"log"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, true)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
	teacher := &model.User{Name: "Demo Teacher", Email: "teacher@example.com", Password: string(hash), Role: model.RoleTeacher}
	student := &model.User{Name: "Demo Student", Email: "student@example.com", Password: string(hash), Role: model.RoleStudent}
	if err := db.Create(teacher).Error; err != nil {
		log.Fatalf("seed teacher: %v", err)
	}
	if err := db.Create(student).Error; err != nil {
		log.Fatalf("seed student: %v", err)
	}

	assessment := &model.Assessment{
		Title:       "Sample Quiz",
		Description: "A short mixed-type quiz",
		TimeLimit:   30,
		MaxAttempts: 2,
		IsPublished: true,
		CreatorID:   teacher.ID,
	}
	if err := db.Create(assessment).Error; err != nil {
		log.Fatalf("seed assessment: %v", err)
	}

	questions := []model.Question{
		{
			QuestionType:  model.QuestionSingleChoice,
			Title:         "Capital of France",
			Content:       "Which city is the capital of France?",
			Options:       json.RawMessage(`["London","Paris","Berlin","Madrid"]`),
			CorrectAnswer: json.RawMessage(`"Paris"`),
			Points:        5,
			Required:      true,
			CreatorID:     teacher.ID,
		},
		{
			QuestionType:  model.QuestionMultipleChoice,
			Title:         "Prime numbers",
			Content:       "Select all prime numbers.",
			Options:       json.RawMessage(`["2","3","4","5"]`),
			CorrectAnswer: json.RawMessage(`["2","3","5"]`),
			Points:        5,
			CreatorID:     teacher.ID,
		},
		{
			QuestionType: model.QuestionEssay,
			Title:        "Short essay",
			Content:      "Describe your favourite algorithm.",
			Points:       10,
			CreatorID:    teacher.ID,
		},
	}
	for i := range questions {
		if err := db.Create(&questions[i]).Error; err != nil {
			log.Fatalf("seed question: %v", err)
		}
		link := &model.AssessmentQuestion{
			AssessmentID: assessment.ID,
			QuestionID:   questions[i].ID,
			Position:     i,
		}
		if err := db.Create(link).Error; err != nil {
			log.Fatalf("seed link: %v", err)
		}
	}

	assessment.TotalPoints = 20
	if err := db.Save(assessment).Error; err != nil {
		log.Fatalf("seed total: %v", err)
	}

	log.Println("Seed data created")
}
