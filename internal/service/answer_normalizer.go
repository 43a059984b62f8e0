package service

import (
	"assessly_backend/internal/model"
	"assessly_backend/internal/util"
	"encoding/json"
	"strings"
)

// NormalizedAnswer is the canonical form of a raw answer payload. Exactly the
// fields relevant to the question type are populated; Text and Selected cover
// the common shapes, the rest carry type-specific structures.
type NormalizedAnswer struct {
	Text        string
	Selected    []string
	TestResults []TestCaseResult
	Matches     map[string]string
	Sequence    []string
	Coordinate  *Point
	FileKey     string
	Language    string
}

type TestCaseResult struct {
	Name   string `json:"name,omitempty"`
	Passed bool   `json:"passed"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnswerLimits bounds raw payload sizes per question type. Coding answers are
// allowed the most room, essays less, everything else the least.
type AnswerLimits struct {
	MaxAnswerBytes int
	MaxEssayBytes  int
	MaxCodeBytes   int
}

func (l AnswerLimits) forType(t model.QuestionType) int {
	switch t {
	case model.QuestionCoding:
		return l.MaxCodeBytes
	case model.QuestionEssay:
		return l.MaxEssayBytes
	default:
		return l.MaxAnswerBytes
	}
}

// rawAnswer covers every payload object shape clients send. A bare JSON
// string is also accepted and treated as student_answer.
type rawAnswer struct {
	StudentAnswer   *string           `json:"student_answer"`
	Value           json.RawMessage   `json:"value"`
	SelectedOptions []string          `json:"selected_options"`
	Code            string            `json:"code"`
	Language        string            `json:"language"`
	TestResults     []TestCaseResult  `json:"testResults"`
	Matches         map[string]string `json:"matches"`
	Sequence        []string          `json:"sequence"`
	Coordinates     *Point            `json:"coordinates"`
	FileKey         string            `json:"file_key"`
}

// NormalizeAnswer classifies and sanitizes a raw answer payload for the given
// question. It enforces the per-type size cap, rejects empty payloads for
// required questions and strips control characters while preserving the
// whitespace that code and essay content depend on.
func NormalizeAnswer(q *model.Question, raw json.RawMessage, limits AnswerLimits) (*NormalizedAnswer, error) {
	if len(raw) > limits.forType(q.QuestionType) {
		return nil, util.ErrAnswerTooLarge
	}

	ans := &NormalizedAnswer{}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		if q.Required {
			return nil, util.ErrAnswerEmpty
		}
		return ans, nil
	}

	// Plain string payload.
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		ans.Text = stripControl(text)
	} else {
		var obj rawAnswer
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, util.ErrAnswerEmpty
		}
		applyObject(ans, &obj)
	}

	if q.Required && ans.Empty() {
		return nil, util.ErrAnswerEmpty
	}
	return ans, nil
}

func applyObject(ans *NormalizedAnswer, obj *rawAnswer) {
	if obj.StudentAnswer != nil {
		ans.Text = stripControl(*obj.StudentAnswer)
	}
	if len(obj.Value) > 0 && ans.Text == "" {
		// value may be a string or an array of strings
		var s string
		if err := json.Unmarshal(obj.Value, &s); err == nil {
			ans.Text = stripControl(s)
		} else {
			var list []string
			if err := json.Unmarshal(obj.Value, &list); err == nil {
				ans.Selected = cleanList(list)
			}
		}
	}
	if len(obj.SelectedOptions) > 0 {
		ans.Selected = cleanList(obj.SelectedOptions)
	}
	if obj.Code != "" {
		ans.Text = stripControl(obj.Code)
		ans.Language = strings.TrimSpace(obj.Language)
		ans.TestResults = obj.TestResults
	} else if len(obj.TestResults) > 0 {
		ans.TestResults = obj.TestResults
	}
	if len(obj.Matches) > 0 {
		matches := make(map[string]string, len(obj.Matches))
		for k, v := range obj.Matches {
			matches[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		ans.Matches = matches
	}
	if len(obj.Sequence) > 0 {
		ans.Sequence = cleanList(obj.Sequence)
	}
	if obj.Coordinates != nil {
		ans.Coordinate = obj.Coordinates
	}
	if obj.FileKey != "" {
		ans.FileKey = strings.TrimSpace(obj.FileKey)
	}
}

// Empty reports whether the normalized answer carries no content at all.
func (a *NormalizedAnswer) Empty() bool {
	return strings.TrimSpace(a.Text) == "" &&
		len(a.Selected) == 0 &&
		len(a.TestResults) == 0 &&
		len(a.Matches) == 0 &&
		len(a.Sequence) == 0 &&
		a.Coordinate == nil &&
		a.FileKey == ""
}

// stripControl removes control characters but keeps \n, \r and \t, which are
// significant in code and essay answers.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func cleanList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		v = strings.TrimSpace(stripControl(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
