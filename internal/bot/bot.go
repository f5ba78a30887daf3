package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const systemPrompt = `You are a friendly, supportive study buddy named Buddy. You help students learn from their study materials.

Your personality:
- Casual and friendly, like a college friend helping out
- Use emojis occasionally but don't overdo it
- Be encouraging and supportive
- Keep responses concise but helpful
- Use phrases like "Ayy", "Let's go!", "You got this!", "Nailed it!"
- When they get something wrong, be supportive not critical

You have access to the student's study notes. Use them to:
- Answer questions about the material
- Generate quiz questions (MCQ, fill-in-blank, short answer)
- Explain concepts in simple terms
- Help them understand difficult topics

IMPORTANT: When you create quizzes or ask questions, remember them! When the student answers, evaluate their response based on the questions you asked.`

const (
	// contentPreviewLimit caps the study notes sent per request.
	contentPreviewLimit = 4000
	// historyWindow is how many recent turns travel with each request, enough
	// to keep a generated quiz in scope when the answers come in.
	historyWindow = 10

	defaultFlashcardCount = 8
	minQuizContentLength  = 100
)

var focusHints = []string{
	"Focus on key concepts and definitions.",
	"Ask about details that are often overlooked.",
	"Test understanding, not just memorization.",
	"Focus on practical applications.",
	"Ask about relationships between concepts.",
	"Cover different sections of the material.",
}

var quizKeywords = []string{
	"create quiz", "make quiz", "give me quiz", "mcq", "multiple choice",
	"generate quiz", "test me", "quiz me", "give me questions",
}

// ChatTurn is one remembered exchange half in the bot's working memory.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the polymorphic bot response rendered to the study page. Type is
// one of quiz, flashcards, open_question, answer, feedback, message, error.
type Result struct {
	Type           string                `json:"type"`
	Greeting       string                `json:"greeting,omitempty"`
	Questions      []domain.QuizQuestion `json:"questions,omitempty"`
	Cards          []domain.Flashcard    `json:"cards,omitempty"`
	Total          int                   `json:"total,omitempty"`
	RequestedCount int                   `json:"requested_count,omitempty"`
	QuestionType   string                `json:"question_type,omitempty"`
	Question       string                `json:"question,omitempty"`
	Response       string                `json:"response,omitempty"`
	Message        string                `json:"message,omitempty"`
	Correct        bool                  `json:"correct"`
	GIF            any                   `json:"gif,omitempty"`
}

// StudyBot answers questions about one study file. It is cheap to construct
// per request; the conversation memory is loaded and saved by the caller.
type StudyBot struct {
	client  ChatClient
	content string
	history []ChatTurn
}

func NewStudyBot(client ChatClient, content string, history []ChatTurn) *StudyBot {
	return &StudyBot{client: client, content: content, history: history}
}

// History returns the conversation memory including turns added by this bot.
func (b *StudyBot) History() []ChatTurn {
	return b.history
}

func (b *StudyBot) chat(ctx context.Context, userMessage, taskContext string) (string, error) {
	preview := b.content
	if len(preview) > contentPreviewLimit {
		preview = preview[:contentPreviewLimit]
	}

	messages := []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "system", Content: "Study notes:\n" + preview},
	}
	if taskContext != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: taskContext})
	}

	history := b.history
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userMessage})

	response, err := b.client.ChatCompletion(ctx, messages)
	if err != nil {
		return "", err
	}

	b.history = append(b.history,
		ChatTurn{Role: "user", Content: userMessage},
		ChatTurn{Role: "assistant", Content: response},
	)
	return response, nil
}

// GenerateQuiz creates a quiz from the file content. Invalid configurations
// fall back to the defaults rather than failing.
func (b *StudyBot) GenerateQuiz(ctx context.Context, numQuestions int, questionType string) (*Result, error) {
	numQuestions, questionType = domain.NormalizeQuizConfig(numQuestions, questionType)

	if len(strings.TrimSpace(b.content)) < minQuizContentLength {
		return &Result{
			Type:    "error",
			Message: "Not enough content to generate a quiz. Please upload more study material.",
		}, nil
	}

	prompt := fmt.Sprintf(`Create exactly %d NEW and UNIQUE questions based on the study notes. (Seed: %d)

%s

%s

REQUIRED FORMAT:
QUIZ_START
Q1: [question]
A1: [short answer - 1-3 words max]
Q2: [question]
A2: [short answer]
(continue for all %d questions)
QUIZ_END

IMPORTANT:
- Keep ALL answers SHORT (1-3 words max, or just a letter for MCQ)
- For MCQ, put all options on ONE line with (A) (B) (C) (D) format
- Generate DIFFERENT questions than any previous quiz!`,
		numQuestions, rand.Intn(9000)+1000, focusHints[rand.Intn(len(focusHints))],
		questionTypeInstructions(questionType), numQuestions)

	response, err := b.chat(ctx, prompt, "")
	if err != nil {
		return nil, err
	}

	questions := ParseQuiz(response)
	if len(questions) == 0 {
		return &Result{Type: "message", Response: response}, nil
	}

	greeting := "Alright, quiz time! Let's see what you've learned 💪"
	if len(questions) < numQuestions {
		greeting = fmt.Sprintf("I could only generate %d questions from the available content. Let's see what you've learned! 💪", len(questions))
	}

	return &Result{
		Type:           "quiz",
		Greeting:       greeting,
		Questions:      questions,
		Total:          len(questions),
		RequestedCount: numQuestions,
		QuestionType:   questionType,
	}, nil
}

// GenerateFlashcards creates flashcards from the file content.
func (b *StudyBot) GenerateFlashcards(ctx context.Context) (*Result, error) {
	prompt := fmt.Sprintf(`Create exactly %d flashcards from the study notes. (Seed: %d)

Each flashcard should have:
- FRONT: A term, concept, question, or prompt (keep it short!)
- BACK: The definition, answer, or explanation (concise but complete)

Mix different types:
- Term → Definition
- Question → Answer
- Concept → Explanation
- "What is..." → Answer

FORMAT (follow exactly):
FLASHCARDS_START
CARD_1_FRONT: [front text]
CARD_1_BACK: [back text]
CARD_2_FRONT: [front text]
CARD_2_BACK: [back text]
(continue for all %d cards)
FLASHCARDS_END

Keep fronts SHORT (1-10 words). Backs can be longer but still concise.`,
		defaultFlashcardCount, rand.Intn(9000)+1000, defaultFlashcardCount)

	response, err := b.chat(ctx, prompt, "")
	if err != nil {
		return nil, err
	}

	cards := ParseFlashcards(response)
	if len(cards) == 0 {
		return &Result{Type: "message", Response: "Had trouble creating flashcards. Try again! 😅"}, nil
	}

	return &Result{Type: "flashcards", Cards: cards, Total: len(cards)}, nil
}

// AskQuestion has the bot quiz the student with a single open question.
func (b *StudyBot) AskQuestion(ctx context.Context) (*Result, error) {
	prompt := `Ask the student ONE thought-provoking question about their study material.
Make it conversational, like you're quizzing a friend.
Remember this question because you'll need to evaluate their answer!
Don't give the answer - just ask the question and wait for their response.`

	response, err := b.chat(ctx, prompt, "")
	if err != nil {
		return nil, err
	}
	return &Result{Type: "open_question", Question: response}, nil
}

// AnswerQuestion answers a free-form question about the material. Requests
// for quizzes are deflected to the quiz button so quiz state stays structured.
func (b *StudyBot) AnswerQuestion(ctx context.Context, userQuestion string) (*Result, error) {
	if WantsQuiz(userQuestion) {
		return &Result{
			Type:     "answer",
			Response: "For quizzes, click the **Generate Quiz** button above! 👆 It'll create a proper quiz with answer checking. In chat, I'm better at explaining concepts and answering your questions about the material! 📚",
		}, nil
	}

	taskContext := `Answer the student's question based on the study notes.
DO NOT create quizzes or MCQs in chat - just answer their question directly.
If they ask for a quiz, tell them to use the Generate Quiz button.`

	response, err := b.chat(ctx, userQuestion, taskContext)
	if err != nil {
		return nil, err
	}
	return &Result{Type: "answer", Response: response}, nil
}

// CheckAnswer evaluates a student's answer against the conversation so far.
func (b *StudyBot) CheckAnswer(ctx context.Context, userAnswer string) (*Result, error) {
	prompt := fmt.Sprintf(`The student's answer: %s

Based on our conversation and the study notes, evaluate their answer.

IMPORTANT: Start your response with either [CORRECT] or [INCORRECT] or [PARTIAL] on the first line, then give your feedback.

- If fully correct: Start with [CORRECT] then celebrate!
- If partially correct: Start with [PARTIAL] then acknowledge what they got right and what needs work
- If wrong: Start with [INCORRECT] then be supportive and explain the right answer`, userAnswer)

	response, err := b.chat(ctx, prompt, "")
	if err != nil {
		return nil, err
	}

	correct, clean := ParseFeedback(response)
	return &Result{Type: "feedback", Correct: correct, Message: clean}, nil
}

// WantsQuiz reports whether a chat message is really a quiz request.
func WantsQuiz(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, kw := range quizKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func questionTypeInstructions(questionType string) string {
	switch questionType {
	case domain.QuestionMultipleChoice:
		return `QUESTION TYPE: Multiple Choice ONLY

Create ALL questions as Multiple Choice:
Q: What does [concept] do? (A) first option (B) second option (C) third option (D) fourth option
A: B

- Put all options on ONE line with (A) (B) (C) (D) format
- Answer should be just the letter`
	case domain.QuestionIdentification:
		return `QUESTION TYPE: Identification ONLY

Create ALL questions as Identification:
Q: Identify: [description of a term, person, concept, or thing]
A: [the term/name being identified]

- Ask students to identify terms, concepts, people, or things based on descriptions
- Keep answers to 1-3 words`
	case domain.QuestionTrueFalse:
		return `QUESTION TYPE: True/False ONLY

Create ALL questions as True/False:
Q: True or False: [statement about the material]
A: True (or False)

- Make statements that are clearly true or false based on the material
- Answer should be just "True" or "False"`
	default:
		return `QUESTION TYPES TO USE (mix these types):

1. Fill-in-the-blank:
Q1: The _____ is responsible for [function].
A1: [correct word]

2. Short Answer:
Q2: What is [concept]?
A2: [brief 1-3 word answer]

3. True/False:
Q3: True or False: [statement]
A3: True (or False)

4. Identification:
Q4: Identify: [description of a term, person, concept, or thing]
A4: [the term/name being identified]

5. Multiple Choice (format the answer as just the letter):
Q5: What does [concept] do? (A) first option (B) second option (C) third option (D) fourth option
A5: B

Mix different question types for variety!`
	}
}
