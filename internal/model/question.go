package model

import (
	"encoding/json"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
	QuestionFillBlanks     QuestionType = "fill_blanks"
	QuestionCoding         QuestionType = "coding"
	QuestionMatching       QuestionType = "matching"
	QuestionOrdering       QuestionType = "ordering"
	QuestionHotspot        QuestionType = "hotspot"
	QuestionFileUpload     QuestionType = "file_upload"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSingleChoice, QuestionTrueFalse,
		QuestionShortAnswer, QuestionEssay, QuestionFillBlanks,
		QuestionCoding, QuestionMatching, QuestionOrdering,
		QuestionHotspot, QuestionFileUpload:
		return true
	}
	return false
}

// RequiresManualGrading reports whether answers of this type are never
// auto-scored. Unrecognized types fall into the manual bucket as well so a
// new question type is never silently dropped from grading.
func (t QuestionType) RequiresManualGrading() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSingleChoice, QuestionTrueFalse,
		QuestionShortAnswer, QuestionFillBlanks, QuestionCoding,
		QuestionMatching, QuestionOrdering, QuestionHotspot:
		return t == QuestionShortAnswer
	case QuestionEssay, QuestionFileUpload:
		return true
	default:
		return true
	}
}

// swagger:model Question
type Question struct {
	BaseModel
	QuestionType  QuestionType    `gorm:"size:50;not null" json:"questionType"`
	Title         string          `gorm:"size:255" json:"title"`
	Content       string          `gorm:"type:text;not null" json:"content"` // Stem
	Options       json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer json.RawMessage `gorm:"type:json" json:"-"` // Shape depends on QuestionType, never serialized to students
	Points        float64         `gorm:"default:0" json:"points"`
	Required      bool            `gorm:"default:false" json:"required"`
	Explanation   string          `gorm:"type:text" json:"explanation,omitempty"`
	CreatorID     uint            `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Question) TableName() string {
	return "questions"
}

// AssessmentQuestion attaches a bank question to an assessment, optionally
// overriding its point value for that assessment.
type AssessmentQuestion struct {
	BaseModel
	AssessmentID   uint     `gorm:"index;uniqueIndex:idx_assessment_question;type:bigint unsigned" json:"assessmentId"`
	QuestionID     uint     `gorm:"uniqueIndex:idx_assessment_question;type:bigint unsigned" json:"questionId"`
	PointsOverride *float64 `json:"pointsOverride,omitempty"`
	Position       int      `gorm:"default:0" json:"position"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}
