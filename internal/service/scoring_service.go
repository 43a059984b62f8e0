package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/repository"
	"encoding/json"
	"math"
	"strings"
)

// ScoreResult is the outcome of scoring one answer. A nil IsCorrect means the
// answer requires manual grading; PointsEarned is then 0 until a grader
// overrides it.
type ScoreResult struct {
	IsCorrect    *bool
	PointsEarned float64
}

func manualScore() ScoreResult {
	return ScoreResult{IsCorrect: nil, PointsEarned: 0}
}

func boolPtr(b bool) *bool { return &b }

// clampPoints keeps earned points inside [0, max] even after floating point
// rounding.
func clampPoints(p, max float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > max {
		return max
	}
	return p
}

// ScoreAnswer grades one normalized answer against its question. points is
// the resolved point value for this assessment (override applied). The result
// always satisfies 0 <= PointsEarned <= points. Unrecognized question types
// are routed to manual grading, never silently dropped.
func ScoreAnswer(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	if points < 0 {
		points = 0
	}

	switch q.QuestionType {
	case model.QuestionSingleChoice, model.QuestionTrueFalse:
		return scoreExactChoice(q, points, ans)
	case model.QuestionMultipleChoice:
		return scoreMultipleChoice(q, points, ans)
	case model.QuestionFillBlanks:
		return scoreFillBlanks(q, points, ans)
	case model.QuestionCoding:
		return scoreCoding(points, ans)
	case model.QuestionMatching:
		return scoreMatching(q, points, ans)
	case model.QuestionOrdering:
		return scoreOrdering(q, points, ans)
	case model.QuestionHotspot:
		return scoreHotspot(q, points, ans)
	case model.QuestionEssay, model.QuestionShortAnswer, model.QuestionFileUpload:
		return manualScore()
	default:
		return manualScore()
	}
}

// correctAnswerKey is the union of correct_answer shapes stored per type.
type correctAnswerKey struct {
	Options  []string          `json:"options"`
	Pairs    map[string]string `json:"pairs"`
	Sequence []string          `json:"sequence"`
	Region   *hotspotRegion    `json:"region"`
}

type hotspotRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func parseKey(raw json.RawMessage) (string, *correctAnswerKey) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return "", &correctAnswerKey{Options: list}
	}
	var key correctAnswerKey
	if err := json.Unmarshal(raw, &key); err == nil {
		return "", &key
	}
	return "", nil
}

func answerText(ans *NormalizedAnswer) string {
	if ans.Text != "" {
		return ans.Text
	}
	if len(ans.Selected) == 1 {
		return ans.Selected[0]
	}
	return ""
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// scoreExactChoice handles single_choice and true_false: one canonical value,
// full or zero credit, case-insensitive trimmed comparison.
func scoreExactChoice(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	expected, key := parseKey(q.CorrectAnswer)
	if expected == "" && key != nil && len(key.Options) > 0 {
		expected = key.Options[0]
	}
	if expected == "" {
		return manualScore()
	}
	if equalFoldTrim(answerText(ans), expected) {
		return ScoreResult{IsCorrect: boolPtr(true), PointsEarned: clampPoints(points, points)}
	}
	return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
}

// scoreMultipleChoice requires the selected set to match the canonical set
// exactly; order does not matter, credit is all or nothing.
func scoreMultipleChoice(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	expected, key := parseKey(q.CorrectAnswer)
	var correct []string
	if key != nil && len(key.Options) > 0 {
		correct = key.Options
	} else if expected != "" {
		correct = []string{expected}
	}
	if len(correct) == 0 {
		return manualScore()
	}

	selected := ans.Selected
	if len(selected) == 0 && ans.Text != "" {
		selected = []string{ans.Text}
	}
	if equalStringSets(selected, correct) {
		return ScoreResult{IsCorrect: boolPtr(true), PointsEarned: clampPoints(points, points)}
	}
	return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
}

// scoreFillBlanks compares each blank case-insensitively; every blank must
// match for credit.
func scoreFillBlanks(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	expected, key := parseKey(q.CorrectAnswer)
	if key != nil && len(key.Options) > 0 {
		blanks := ans.Selected
		if len(blanks) == 0 && ans.Text != "" {
			blanks = strings.Split(ans.Text, "\n")
		}
		if len(blanks) != len(key.Options) {
			return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
		}
		for i, want := range key.Options {
			if !equalFoldTrim(blanks[i], want) {
				return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
			}
		}
		return ScoreResult{IsCorrect: boolPtr(true), PointsEarned: clampPoints(points, points)}
	}
	if expected == "" {
		return manualScore()
	}
	if equalFoldTrim(answerText(ans), expected) {
		return ScoreResult{IsCorrect: boolPtr(true), PointsEarned: clampPoints(points, points)}
	}
	return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
}

// scoreCoding trusts the pre-computed judge verdicts carried in the answer:
// partial credit proportional to passed cases, correct only when every case
// passed and at least one case exists.
func scoreCoding(points float64, ans *NormalizedAnswer) ScoreResult {
	total := len(ans.TestResults)
	if total == 0 {
		return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
	}
	passed := 0
	for _, tr := range ans.TestResults {
		if tr.Passed {
			passed++
		}
	}
	earned := clampPoints(float64(passed)/float64(total)*points, points)
	return ScoreResult{IsCorrect: boolPtr(passed == total), PointsEarned: earned}
}

// scoreMatching awards partial credit per correctly matched pair.
func scoreMatching(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	_, key := parseKey(q.CorrectAnswer)
	if key == nil || len(key.Pairs) == 0 {
		return manualScore()
	}
	matched := 0
	for left, right := range key.Pairs {
		if got, ok := ans.Matches[left]; ok && equalFoldTrim(got, right) {
			matched++
		}
	}
	earned := clampPoints(float64(matched)/float64(len(key.Pairs))*points, points)
	return ScoreResult{IsCorrect: boolPtr(matched == len(key.Pairs)), PointsEarned: earned}
}

// scoreOrdering awards partial credit per item in its correct absolute
// position.
func scoreOrdering(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	_, key := parseKey(q.CorrectAnswer)
	if key == nil || len(key.Sequence) == 0 {
		return manualScore()
	}
	inPlace := 0
	for i, want := range key.Sequence {
		if i < len(ans.Sequence) && equalFoldTrim(ans.Sequence[i], want) {
			inPlace++
		}
	}
	earned := clampPoints(float64(inPlace)/float64(len(key.Sequence))*points, points)
	return ScoreResult{IsCorrect: boolPtr(inPlace == len(key.Sequence)), PointsEarned: earned}
}

// scoreHotspot grants full credit iff the click falls inside the correct
// region. A question without a defined region cannot be auto-scored.
func scoreHotspot(q *model.Question, points float64, ans *NormalizedAnswer) ScoreResult {
	_, key := parseKey(q.CorrectAnswer)
	if key == nil || key.Region == nil {
		return manualScore()
	}
	if ans.Coordinate == nil {
		return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
	}
	r := key.Region
	inside := ans.Coordinate.X >= r.X && ans.Coordinate.X <= r.X+r.Width &&
		ans.Coordinate.Y >= r.Y && ans.Coordinate.Y <= r.Y+r.Height
	if inside {
		return ScoreResult{IsCorrect: boolPtr(true), PointsEarned: clampPoints(points, points)}
	}
	return ScoreResult{IsCorrect: boolPtr(false), PointsEarned: 0}
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[strings.ToLower(strings.TrimSpace(v))]++
	}
	for _, v := range b {
		k := strings.ToLower(strings.TrimSpace(v))
		seen[k]--
		if seen[k] < 0 {
			return false
		}
	}
	return true
}

// Aggregate is the submit-time rollup over all responses of a submission.
type Aggregate struct {
	TotalScore  float64
	TotalPoints float64
	Percentage  float64
	Grade       string
}

// AggregateScores sums earned points and computes the percentage against the
// current resolved per-question point values. When the live question set
// resolves to no usable total it falls back to the assessment's declared
// total, and past that to defaultTotal — the denominator is always a positive
// finite number, so the percentage can never be NaN.
func AggregateScores(questions []repository.ResolvedQuestion, responses []model.Response, declaredTotal, defaultTotal float64) Aggregate {
	var totalScore float64
	for _, resp := range responses {
		if !math.IsNaN(resp.PointsEarned) && resp.PointsEarned > 0 {
			totalScore += resp.PointsEarned
		}
	}

	var totalPoints float64
	for _, rq := range questions {
		if !math.IsNaN(rq.Points) && rq.Points > 0 {
			totalPoints += rq.Points
		}
	}
	if totalPoints <= 0 && declaredTotal > 0 && !math.IsNaN(declaredTotal) {
		totalPoints = declaredTotal
	}
	if totalPoints <= 0 || math.IsNaN(totalPoints) || math.IsInf(totalPoints, 0) {
		totalPoints = defaultTotal
	}
	if totalPoints <= 0 {
		totalPoints = 100
	}

	percentage := totalScore / totalPoints * 100
	if math.IsNaN(percentage) || percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	percentage = math.Round(percentage*100) / 100

	return Aggregate{
		TotalScore:  totalScore,
		TotalPoints: totalPoints,
		Percentage:  percentage,
		Grade:       LetterGrade(percentage),
	}
}

// LetterGrade maps a percentage to the A-F scale.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
