package bot

import (
	"regexp"
	"strings"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

var (
	questionLinePattern = regexp.MustCompile(`(?i)^Q(\d+)[:.]\s*(.+)$`)
	answerLinePattern   = regexp.MustCompile(`(?i)^A(\d+)[:.]\s*(.+)$`)
	cardFrontPattern    = regexp.MustCompile(`(?i)^CARD_(\d+)_FRONT[:.]\s*(.+)$`)
	cardBackPattern     = regexp.MustCompile(`(?i)^CARD_(\d+)_BACK[:.]\s*(.+)$`)
)

// ParseQuiz extracts Q/A pairs from a model response. Lines outside the
// QUIZ_START/QUIZ_END markers are tolerated; only matching pairs count.
func ParseQuiz(response string) []domain.QuizQuestion {
	section := response
	if _, after, found := strings.Cut(section, "QUIZ_START"); found {
		section = after
	}
	if before, _, found := strings.Cut(section, "QUIZ_END"); found {
		section = before
	}

	questions := map[string]string{}
	answers := map[string]string{}
	var order []string

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if m := questionLinePattern.FindStringSubmatch(line); m != nil {
			if _, seen := questions[m[1]]; !seen {
				order = append(order, m[1])
			}
			questions[m[1]] = strings.TrimSpace(m[2])
		} else if m := answerLinePattern.FindStringSubmatch(line); m != nil {
			answers[m[1]] = strings.TrimSpace(m[2])
		}
	}

	var quiz []domain.QuizQuestion
	for _, n := range order {
		answer, ok := answers[n]
		if !ok {
			continue
		}
		q := questions[n]
		quiz = append(quiz, domain.QuizQuestion{
			Question: q,
			Answer:   answer,
			Type:     domain.DetectQuestionType(q),
		})
	}
	return quiz
}

// ParseFlashcards extracts CARD_n_FRONT/CARD_n_BACK pairs from a response.
func ParseFlashcards(response string) []domain.Flashcard {
	fronts := map[string]string{}
	backs := map[string]string{}
	var order []string

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if m := cardFrontPattern.FindStringSubmatch(line); m != nil {
			if _, seen := fronts[m[1]]; !seen {
				order = append(order, m[1])
			}
			fronts[m[1]] = strings.TrimSpace(m[2])
		} else if m := cardBackPattern.FindStringSubmatch(line); m != nil {
			backs[m[1]] = strings.TrimSpace(m[2])
		}
	}

	var cards []domain.Flashcard
	for _, n := range order {
		back, ok := backs[n]
		if !ok {
			continue
		}
		cards = append(cards, domain.Flashcard{Front: fronts[n], Back: back})
	}
	return cards
}

// ParseFeedback reads the verdict tag from an answer evaluation and strips it
// from the displayed message. A partial answer counts as correct so streaks
// aren't punished for near misses.
func ParseFeedback(response string) (correct bool, message string) {
	lower := strings.ToLower(response)
	switch {
	case strings.Contains(lower, "[correct]") && !strings.Contains(lower, "[incorrect]"):
		correct = true
	case strings.Contains(lower, "[partial]"):
		correct = true
	}

	message = response
	for _, tag := range []string{"[CORRECT]", "[INCORRECT]", "[PARTIAL]", "[correct]", "[incorrect]", "[partial]"} {
		message = strings.ReplaceAll(message, tag, "")
	}
	return correct, strings.TrimSpace(message)
}
