package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ct-rrya/study-buddy/internal/bot"
)

const conversationTTL = time.Hour

// ConversationStore keeps bot conversation memory in Redis so it survives
// restarts and is shared across instances.
type ConversationStore struct {
	client *goredis.Client
}

func NewConversationStore(client *Client) *ConversationStore {
	return &ConversationStore{client: client.Underlying()}
}

func conversationKey(userID, fileID int64) string {
	return fmt.Sprintf("botmem:%d:%d", userID, fileID)
}

func (s *ConversationStore) Load(ctx context.Context, userID, fileID int64) ([]bot.ChatTurn, error) {
	raw, err := s.client.Get(ctx, conversationKey(userID, fileID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	var history []bot.ChatTurn
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}
	return history, nil
}

func (s *ConversationStore) Save(ctx context.Context, userID, fileID int64, history []bot.ChatTurn) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding conversation: %w", err)
	}
	if err := s.client.Set(ctx, conversationKey(userID, fileID), raw, conversationTTL).Err(); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

func (s *ConversationStore) Clear(ctx context.Context, userID, fileID int64) error {
	if err := s.client.Del(ctx, conversationKey(userID, fileID)).Err(); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}
	return nil
}
