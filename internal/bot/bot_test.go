package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

type fakeChatClient struct {
	response string
	err      error
	received []ChatMessage
}

func (f *fakeChatClient) ChatCompletion(_ context.Context, messages []ChatMessage) (string, error) {
	f.received = messages
	return f.response, f.err
}

const sampleContent = `Photosynthesis is the process by which plants convert light energy into
chemical energy. It takes place in the chloroplasts and produces glucose and oxygen
from carbon dioxide and water.`

func TestGenerateQuizParsesResponse(t *testing.T) {
	client := &fakeChatClient{response: `QUIZ_START
Q1: Where does photosynthesis take place?
A1: Chloroplasts
Q2: True or False: Photosynthesis produces oxygen.
A2: True
QUIZ_END`}

	b := NewStudyBot(client, sampleContent, nil)
	result, err := b.GenerateQuiz(context.Background(), 5, domain.QuestionMixed)
	require.NoError(t, err)

	assert.Equal(t, "quiz", result.Type)
	require.Len(t, result.Questions, 2)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 5, result.RequestedCount)
	assert.Contains(t, result.Greeting, "only generate 2 questions")
}

func TestGenerateQuizNormalizesInvalidConfig(t *testing.T) {
	client := &fakeChatClient{response: `Q1: A question?
A1: Answer`}

	b := NewStudyBot(client, sampleContent, nil)
	result, err := b.GenerateQuiz(context.Background(), 42, "essay")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultQuestionCount, result.RequestedCount)
	assert.Equal(t, domain.QuestionMixed, result.QuestionType)
}

func TestGenerateQuizRejectsThinContent(t *testing.T) {
	client := &fakeChatClient{}
	b := NewStudyBot(client, "too short", nil)

	result, err := b.GenerateQuiz(context.Background(), 5, domain.QuestionMixed)
	require.NoError(t, err)

	assert.Equal(t, "error", result.Type)
	assert.Nil(t, client.received, "no model call for empty content")
}

func TestGenerateQuizFallsBackToRawResponse(t *testing.T) {
	client := &fakeChatClient{response: "I'd love to, but the notes look like a grocery list."}
	b := NewStudyBot(client, sampleContent, nil)

	result, err := b.GenerateQuiz(context.Background(), 5, domain.QuestionMixed)
	require.NoError(t, err)

	assert.Equal(t, "message", result.Type)
	assert.Equal(t, client.response, result.Response)
}

func TestGenerateFlashcards(t *testing.T) {
	client := &fakeChatClient{response: `FLASHCARDS_START
CARD_1_FRONT: Chloroplast
CARD_1_BACK: Organelle where photosynthesis happens
FLASHCARDS_END`}

	b := NewStudyBot(client, sampleContent, nil)
	result, err := b.GenerateFlashcards(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "flashcards", result.Type)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, "Chloroplast", result.Cards[0].Front)
}

func TestAnswerQuestionDeflectsQuizRequests(t *testing.T) {
	client := &fakeChatClient{}
	b := NewStudyBot(client, sampleContent, nil)

	result, err := b.AnswerQuestion(context.Background(), "please quiz me on this")
	require.NoError(t, err)

	assert.Equal(t, "answer", result.Type)
	assert.Contains(t, result.Response, "Generate Quiz")
	assert.Nil(t, client.received, "quiz requests never reach the model")
}

func TestAnswerQuestionAppendsHistory(t *testing.T) {
	client := &fakeChatClient{response: "It happens in the chloroplasts."}
	b := NewStudyBot(client, sampleContent, []ChatTurn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Ayy, ready to study?"},
	})

	_, err := b.AnswerQuestion(context.Background(), "Where does it happen?")
	require.NoError(t, err)

	history := b.History()
	require.Len(t, history, 4)
	assert.Equal(t, "Where does it happen?", history[2].Content)
	assert.Equal(t, "It happens in the chloroplasts.", history[3].Content)
}

func TestChatTruncatesContentAndHistory(t *testing.T) {
	client := &fakeChatClient{response: "ok"}

	longContent := strings.Repeat("x", contentPreviewLimit+500)
	var longHistory []ChatTurn
	for i := 0; i < 30; i++ {
		longHistory = append(longHistory, ChatTurn{Role: "user", Content: "turn"})
	}

	b := NewStudyBot(client, longContent, longHistory)
	_, err := b.AnswerQuestion(context.Background(), "Where does it happen?")
	require.NoError(t, err)

	// system prompt + notes + task context + capped history + user message
	require.Len(t, client.received, 3+historyWindow+1)
	notes := client.received[1].Content
	assert.Len(t, notes, len("Study notes:\n")+contentPreviewLimit)
}

func TestCheckAnswer(t *testing.T) {
	client := &fakeChatClient{response: "[PARTIAL] Close! You forgot the oxygen."}
	b := NewStudyBot(client, sampleContent, nil)

	result, err := b.CheckAnswer(context.Background(), "it makes glucose")
	require.NoError(t, err)

	assert.Equal(t, "feedback", result.Type)
	assert.True(t, result.Correct)
	assert.Equal(t, "Close! You forgot the oxygen.", result.Message)
}

func TestChatPropagatesClientError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("boom")}
	b := NewStudyBot(client, sampleContent, nil)

	_, err := b.AskQuestion(context.Background())
	require.Error(t, err)
	assert.Empty(t, b.History(), "failed calls leave no trace in memory")
}

func TestInMemoryStoreExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewInMemoryStore(clock)
	ctx := context.Background()

	history := []ChatTurn{{Role: "user", Content: "hello"}}
	require.NoError(t, store.Save(ctx, 1, 2, history))

	got, err := store.Load(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, history, got)

	clock.Advance(memoryTTL + time.Minute)

	got, err = store.Load(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryStoreClear(t *testing.T) {
	store := NewInMemoryStore(clockwork.NewRealClock())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, 2, []ChatTurn{{Role: "user", Content: "hi"}}))
	require.NoError(t, store.Clear(ctx, 1, 2))

	got, err := store.Load(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, got)
}
