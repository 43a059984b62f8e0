package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"encoding/json"
	"math"
	"testing"
)

func question(t model.QuestionType, correct string) *model.Question {
	q := &model.Question{QuestionType: t}
	if correct != "" {
		q.CorrectAnswer = json.RawMessage(correct)
	}
	return q
}

func TestScoreAnswerSingleChoice(t *testing.T) {
	q := question(model.QuestionSingleChoice, `"Paris"`)

	tests := []struct {
		name    string
		answer  NormalizedAnswer
		correct bool
		points  float64
	}{
		{"exact match", NormalizedAnswer{Text: "Paris"}, true, 5},
		{"case insensitive", NormalizedAnswer{Text: "  PARIS "}, true, 5},
		{"wrong answer", NormalizedAnswer{Text: "London"}, false, 0},
		{"selected option form", NormalizedAnswer{Selected: []string{"Paris"}}, true, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreAnswer(q, 5, &tt.answer)
			if got.IsCorrect == nil || *got.IsCorrect != tt.correct {
				t.Fatalf("IsCorrect = %v, want %v", got.IsCorrect, tt.correct)
			}
			if got.PointsEarned != tt.points {
				t.Fatalf("PointsEarned = %v, want %v", got.PointsEarned, tt.points)
			}
		})
	}
}

func TestScoreAnswerTrueFalse(t *testing.T) {
	q := question(model.QuestionTrueFalse, `"true"`)
	got := ScoreAnswer(q, 2, &NormalizedAnswer{Text: "True"})
	if got.IsCorrect == nil || !*got.IsCorrect || got.PointsEarned != 2 {
		t.Fatalf("got %+v, want correct with 2 points", got)
	}
}

func TestScoreAnswerMultipleChoice(t *testing.T) {
	q := question(model.QuestionMultipleChoice, `["2","3","5"]`)

	tests := []struct {
		name     string
		selected []string
		correct  bool
		points   float64
	}{
		{"exact set", []string{"2", "3", "5"}, true, 6},
		{"different order", []string{"5", "2", "3"}, true, 6},
		{"missing one", []string{"2", "3"}, false, 0},
		{"extra wrong option", []string{"2", "3", "5", "4"}, false, 0},
		{"empty selection", nil, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreAnswer(q, 6, &NormalizedAnswer{Selected: tt.selected})
			if got.IsCorrect == nil || *got.IsCorrect != tt.correct {
				t.Fatalf("IsCorrect = %v, want %v", got.IsCorrect, tt.correct)
			}
			if got.PointsEarned != tt.points {
				t.Fatalf("PointsEarned = %v, want %v", got.PointsEarned, tt.points)
			}
		})
	}
}

func TestScoreAnswerFillBlanks(t *testing.T) {
	q := question(model.QuestionFillBlanks, `["alpha","beta"]`)

	tests := []struct {
		name    string
		blanks  []string
		correct bool
	}{
		{"all blanks right", []string{"Alpha", "BETA"}, true},
		{"one blank wrong", []string{"alpha", "gamma"}, false},
		{"wrong count", []string{"alpha"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreAnswer(q, 4, &NormalizedAnswer{Selected: tt.blanks})
			if got.IsCorrect == nil || *got.IsCorrect != tt.correct {
				t.Fatalf("IsCorrect = %v, want %v", got.IsCorrect, tt.correct)
			}
		})
	}
}

func TestScoreAnswerCodingPartialCredit(t *testing.T) {
	q := question(model.QuestionCoding, "")

	tests := []struct {
		name    string
		results []TestCaseResult
		correct bool
		points  float64
	}{
		{"all pass", []TestCaseResult{{Passed: true}, {Passed: true}}, true, 10},
		{"half pass", []TestCaseResult{{Passed: true}, {Passed: false}}, false, 5},
		{"three of four", []TestCaseResult{{Passed: true}, {Passed: true}, {Passed: true}, {Passed: false}}, false, 7.5},
		{"none pass", []TestCaseResult{{Passed: false}}, false, 0},
		{"no cases at all", nil, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreAnswer(q, 10, &NormalizedAnswer{Text: "code", TestResults: tt.results})
			if got.IsCorrect == nil || *got.IsCorrect != tt.correct {
				t.Fatalf("IsCorrect = %v, want %v", got.IsCorrect, tt.correct)
			}
			if got.PointsEarned != tt.points {
				t.Fatalf("PointsEarned = %v, want %v", got.PointsEarned, tt.points)
			}
		})
	}
}

func TestScoreAnswerMatching(t *testing.T) {
	q := question(model.QuestionMatching, `{"pairs":{"cat":"meow","dog":"bark"}}`)

	got := ScoreAnswer(q, 8, &NormalizedAnswer{Matches: map[string]string{"cat": "meow", "dog": "woof"}})
	if got.IsCorrect == nil || *got.IsCorrect {
		t.Fatalf("IsCorrect = %v, want false", got.IsCorrect)
	}
	if got.PointsEarned != 4 {
		t.Fatalf("PointsEarned = %v, want 4 for one of two pairs", got.PointsEarned)
	}

	got = ScoreAnswer(q, 8, &NormalizedAnswer{Matches: map[string]string{"cat": "MEOW", "dog": "bark"}})
	if got.IsCorrect == nil || !*got.IsCorrect || got.PointsEarned != 8 {
		t.Fatalf("got %+v, want full credit", got)
	}
}

func TestScoreAnswerOrdering(t *testing.T) {
	q := question(model.QuestionOrdering, `{"sequence":["a","b","c","d"]}`)

	tests := []struct {
		name    string
		seq     []string
		correct bool
		points  float64
	}{
		{"perfect order", []string{"a", "b", "c", "d"}, true, 4},
		{"two in place", []string{"a", "c", "b", "d"}, false, 2},
		{"fully reversed", []string{"d", "c", "b", "a"}, false, 0},
		{"short answer", []string{"a"}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreAnswer(q, 4, &NormalizedAnswer{Sequence: tt.seq})
			if got.IsCorrect == nil || *got.IsCorrect != tt.correct {
				t.Fatalf("IsCorrect = %v, want %v", got.IsCorrect, tt.correct)
			}
			if got.PointsEarned != tt.points {
				t.Fatalf("PointsEarned = %v, want %v", got.PointsEarned, tt.points)
			}
		})
	}
}

func TestScoreAnswerHotspot(t *testing.T) {
	q := question(model.QuestionHotspot, `{"region":{"x":10,"y":10,"width":20,"height":20}}`)

	inside := ScoreAnswer(q, 3, &NormalizedAnswer{Coordinate: &Point{X: 15, Y: 25}})
	if inside.IsCorrect == nil || !*inside.IsCorrect || inside.PointsEarned != 3 {
		t.Fatalf("got %+v, want hit", inside)
	}

	outside := ScoreAnswer(q, 3, &NormalizedAnswer{Coordinate: &Point{X: 5, Y: 5}})
	if outside.IsCorrect == nil || *outside.IsCorrect || outside.PointsEarned != 0 {
		t.Fatalf("got %+v, want miss", outside)
	}

	noRegion := ScoreAnswer(question(model.QuestionHotspot, `{}`), 3, &NormalizedAnswer{Coordinate: &Point{X: 1, Y: 1}})
	if noRegion.IsCorrect != nil {
		t.Fatalf("question without region should go to manual grading, got %+v", noRegion)
	}
}

func TestScoreAnswerManualTypes(t *testing.T) {
	for _, typ := range []model.QuestionType{model.QuestionEssay, model.QuestionShortAnswer, model.QuestionFileUpload, "future_type"} {
		got := ScoreAnswer(question(typ, ""), 10, &NormalizedAnswer{Text: "anything"})
		if got.IsCorrect != nil {
			t.Fatalf("%s: IsCorrect = %v, want nil (manual)", typ, got.IsCorrect)
		}
		if got.PointsEarned != 0 {
			t.Fatalf("%s: PointsEarned = %v, want 0 before grading", typ, got.PointsEarned)
		}
	}
}

func TestScoreAnswerClampsNegativePoints(t *testing.T) {
	q := question(model.QuestionSingleChoice, `"yes"`)
	got := ScoreAnswer(q, -5, &NormalizedAnswer{Text: "yes"})
	if got.PointsEarned != 0 {
		t.Fatalf("PointsEarned = %v, want 0 for negative point value", got.PointsEarned)
	}
}

func resolved(points ...float64) []repository.ResolvedQuestion {
	out := make([]repository.ResolvedQuestion, len(points))
	for i, p := range points {
		out[i] = repository.ResolvedQuestion{Points: p}
	}
	return out
}

func TestAggregateScores(t *testing.T) {
	tests := []struct {
		name       string
		questions  []repository.ResolvedQuestion
		responses  []model.Response
		declared   float64
		percentage float64
		grade      string
	}{
		{
			name:       "half credit on two small questions",
			questions:  resolved(5, 5),
			responses:  []model.Response{{PointsEarned: 5}, {PointsEarned: 0}},
			percentage: 50,
			grade:      "F",
		},
		{
			name:       "full marks",
			questions:  resolved(10, 10),
			responses:  []model.Response{{PointsEarned: 10}, {PointsEarned: 10}},
			percentage: 100,
			grade:      "A",
		},
		{
			name:       "ungraded essay still in denominator",
			questions:  resolved(10, 10),
			responses:  []model.Response{{PointsEarned: 10}, {PointsEarned: 0}},
			percentage: 50,
			grade:      "F",
		},
		{
			name:       "no questions falls back to declared total",
			questions:  nil,
			responses:  []model.Response{{PointsEarned: 45}},
			declared:   50,
			percentage: 90,
			grade:      "A",
		},
		{
			name:       "no denominator anywhere falls back to default",
			questions:  nil,
			responses:  []model.Response{{PointsEarned: 80}},
			percentage: 80,
			grade:      "B",
		},
		{
			name:       "NaN earned points ignored",
			questions:  resolved(10),
			responses:  []model.Response{{PointsEarned: math.NaN()}, {PointsEarned: 7}},
			percentage: 70,
			grade:      "C",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := AggregateScores(tt.questions, tt.responses, tt.declared, 100)
			if math.IsNaN(agg.Percentage) {
				t.Fatal("percentage is NaN")
			}
			if agg.Percentage != tt.percentage {
				t.Fatalf("Percentage = %v, want %v", agg.Percentage, tt.percentage)
			}
			if agg.Grade != tt.grade {
				t.Fatalf("Grade = %q, want %q", agg.Grade, tt.grade)
			}
		})
	}
}

func TestLetterGradeBoundaries(t *testing.T) {
	tests := []struct {
		percentage float64
		grade      string
	}{
		{100, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"},
		{79.5, "C"}, {70, "C"}, {69, "D"}, {60, "D"},
		{59.99, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		if got := LetterGrade(tt.percentage); got != tt.grade {
			t.Errorf("LetterGrade(%v) = %q, want %q", tt.percentage, got, tt.grade)
		}
	}
}
