package domain

import (
	"context"
	"time"
)

// Friend request lifecycle states.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

type FriendRequest struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Status     string
	CreatedAt  time.Time
}

// RequestStatus describes the friendship state between two users from the
// perspective of the asking user.
type RequestStatus struct {
	Status   string `json:"status"`
	IsSender bool   `json:"is_sender"`
}

type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	SentAt     time.Time
	Read       bool
}

type FriendRepository interface {
	// CreateRequest inserts a pending request; returns ErrRequestExists if a
	// request already exists in either direction for the pair.
	CreateRequest(ctx context.Context, senderID, receiverID int64) (*FriendRequest, error)
	GetRequest(ctx context.Context, requestID int64) (*FriendRequest, error)
	// GetRequestBetween returns the request for the unordered pair, regardless
	// of direction or status.
	GetRequestBetween(ctx context.Context, userID, otherID int64) (*FriendRequest, error)
	UpdateStatus(ctx context.Context, requestID int64, status string) error
	DeleteRequest(ctx context.Context, requestID int64) error
	DeleteBetween(ctx context.Context, userID, otherID int64) error
	// Friends returns users with an accepted request in either direction.
	Friends(ctx context.Context, userID int64) ([]*User, error)
	PendingReceived(ctx context.Context, userID int64) ([]*FriendRequest, error)
	PendingSent(ctx context.Context, userID int64) ([]*FriendRequest, error)
	AreFriends(ctx context.Context, userID, otherID int64) (bool, error)
	PendingReceivedCount(ctx context.Context, userID int64) (int, error)
	GetChatTheme(ctx context.Context, userID, friendID int64) (string, error)
	SetChatTheme(ctx context.Context, userID, friendID int64, theme string) error
}

type MessageRepository interface {
	Create(ctx context.Context, senderID, receiverID int64, content string) (*Message, error)
	// Between returns the full conversation between two users, oldest first.
	Between(ctx context.Context, userID, friendID int64) ([]*Message, error)
	// BetweenSince returns messages with ID greater than sinceID, oldest first.
	BetweenSince(ctx context.Context, userID, friendID, sinceID int64) ([]*Message, error)
	MarkRead(ctx context.Context, senderID, receiverID int64) error
	UnreadCount(ctx context.Context, receiverID int64) (int, error)
	UnreadCountFrom(ctx context.Context, senderID, receiverID int64) (int, error)
	LastBetween(ctx context.Context, userID, friendID int64) (*Message, error)
}
