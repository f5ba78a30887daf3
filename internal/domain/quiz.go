package domain

import (
	"fmt"
	"strings"
)

// Quiz question types supported by the bot.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionIdentification = "identification"
	QuestionTrueFalse      = "true_false"
	QuestionFillInBlank    = "fill_in_blank"
	QuestionShortAnswer    = "short_answer"
	QuestionMixed          = "mixed"
)

var (
	ValidQuestionCounts = []int{5, 10, 15, 20}
	ValidQuestionTypes  = []string{QuestionMultipleChoice, QuestionIdentification, QuestionTrueFalse, QuestionMixed}
)

const DefaultQuestionCount = 5

type QuizQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Type     string `json:"type"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ValidateQuizConfig checks a quiz configuration against the allowed values.
func ValidateQuizConfig(count int, questionType string) error {
	if !IsValidQuestionCount(count) {
		return fmt.Errorf("invalid question count: %d, must be one of %v", count, ValidQuestionCounts)
	}
	if !IsValidQuestionType(questionType) {
		return fmt.Errorf("invalid question type: %q, must be one of %v", questionType, ValidQuestionTypes)
	}
	return nil
}

func IsValidQuestionCount(count int) bool {
	for _, c := range ValidQuestionCounts {
		if c == count {
			return true
		}
	}
	return false
}

func IsValidQuestionType(questionType string) bool {
	for _, t := range ValidQuestionTypes {
		if t == questionType {
			return true
		}
	}
	return false
}

// NormalizeQuizConfig maps out-of-range values to the defaults instead of
// rejecting them, matching how quiz requests from older clients are handled.
func NormalizeQuizConfig(count int, questionType string) (int, string) {
	if !IsValidQuestionCount(count) {
		count = DefaultQuestionCount
	}
	if !IsValidQuestionType(questionType) {
		questionType = QuestionMixed
	}
	return count, questionType
}

// DetectQuestionType classifies a generated question by its surface form.
func DetectQuestionType(question string) string {
	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "(a)") && strings.Contains(lower, "(b)"):
		return QuestionMultipleChoice
	case strings.HasPrefix(lower, "true or false"):
		return QuestionTrueFalse
	case strings.HasPrefix(lower, "identify:") || strings.HasPrefix(lower, "identify "):
		return QuestionIdentification
	case strings.Contains(question, "____"):
		return QuestionFillInBlank
	default:
		return QuestionShortAnswer
	}
}
