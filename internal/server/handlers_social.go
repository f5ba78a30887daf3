package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ct-rrya/study-buddy/internal/domain"
	apperrors "github.com/ct-rrya/study-buddy/internal/errors"
	"github.com/ct-rrya/study-buddy/internal/websocket"
)

const (
	searchResultLimit    = 10
	messagePreviewLength = 50
)

func (s *Server) handleFriendsPage(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	friends, err := s.deps.Friends.Friends(ctx, userID)
	if err != nil {
		slog.Error("failed to load friends", "user_id", userID, "error", err)
		return c.String(500, "Failed to load friends")
	}

	pending, err := s.deps.Friends.PendingReceived(ctx, userID)
	if err != nil {
		slog.Error("failed to load pending requests", "user_id", userID, "error", err)
		return c.String(500, "Failed to load friends")
	}

	sent, err := s.deps.Friends.PendingSent(ctx, userID)
	if err != nil {
		slog.Error("failed to load sent requests", "user_id", userID, "error", err)
		return c.String(500, "Failed to load friends")
	}

	type friendEntry struct {
		ID          int64
		Username    string
		AvatarURL   string
		UnreadCount int
		LastMessage string
		LastSentAt  time.Time
	}

	entries := make([]friendEntry, 0, len(friends))
	for _, friend := range friends {
		entry := friendEntry{
			ID:        friend.ID,
			Username:  friend.Username,
			AvatarURL: friend.AvatarURL(),
		}
		if count, err := s.deps.Messages.UnreadCountFrom(ctx, friend.ID, userID); err == nil {
			entry.UnreadCount = count
		}
		if last, err := s.deps.Messages.LastBetween(ctx, userID, friend.ID); err == nil && last != nil {
			entry.LastMessage = last.Content
			entry.LastSentAt = last.SentAt
		}
		entries = append(entries, entry)
	}

	return s.render(c, "friends", map[string]any{
		"Friends":         entries,
		"PendingRequests": s.requestEntries(c, pending, true),
		"SentRequests":    s.requestEntries(c, sent, false),
	})
}

// requestEntries resolves the counterpart user of each friend request for
// display. received selects the sender side, otherwise the receiver side.
func (s *Server) requestEntries(c echo.Context, requests []*domain.FriendRequest, received bool) []map[string]any {
	ctx := c.Request().Context()

	entries := make([]map[string]any, 0, len(requests))
	for _, req := range requests {
		otherID := req.SenderID
		if !received {
			otherID = req.ReceiverID
		}
		other, err := s.deps.Users.GetByID(ctx, otherID)
		if err != nil {
			continue
		}
		entries = append(entries, map[string]any{
			"RequestID": req.ID,
			"UserID":    other.ID,
			"Username":  other.Username,
			"AvatarURL": other.AvatarURL(),
		})
	}
	return entries
}

func (s *Server) handleSearchUsers(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		Query string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	users, err := s.deps.Users.SearchByUsername(ctx, req.Query, userID, searchResultLimit)
	if err != nil {
		return apperrors.InternalError("search failed", err)
	}

	results := make([]map[string]any, 0, len(users))
	for _, u := range users {
		entry := map[string]any{
			"id":        u.ID,
			"username":  u.Username,
			"is_friend": false,
		}
		if request, err := s.deps.Friends.GetRequestBetween(ctx, userID, u.ID); err == nil {
			entry["is_friend"] = request.Status == domain.RequestAccepted
			entry["request_status"] = domain.RequestStatus{
				Status:   request.Status,
				IsSender: request.SenderID == userID,
			}
		}
		results = append(results, entry)
	}
	return c.JSON(200, results)
}

func (s *Server) handleSendRequest(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || targetID == userID {
		return apperrors.NotFoundError("User not found")
	}

	target, err := s.deps.Users.GetByID(ctx, targetID)
	if err != nil {
		return apperrors.NotFoundError("User not found")
	}

	if _, err := s.deps.Friends.CreateRequest(ctx, userID, target.ID); err != nil {
		if errors.Is(err, domain.ErrRequestExists) {
			return apperrors.ValidationError("Request already exists")
		}
		return apperrors.InternalError("failed to send request", err)
	}

	sender, err := s.deps.Users.GetByID(ctx, userID)
	if err == nil {
		s.deps.Hub.NotifyUser(target.ID, "friend_request", map[string]any{
			"sender_id":       sender.ID,
			"sender_username": sender.Username,
			"sender_avatar":   sender.AvatarURL(),
		})
	}

	return c.JSON(200, map[string]any{"success": true, "message": "Friend request sent!"})
}

func (s *Server) handleAcceptRequest(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	requestID, err := strconv.ParseInt(c.Param("request_id"), 10, 64)
	if err != nil {
		return apperrors.NotFoundError("Request not found")
	}

	request, err := s.deps.Friends.GetRequest(ctx, requestID)
	if err != nil || request.ReceiverID != userID {
		return apperrors.NotFoundError("Request not found")
	}

	if err := s.deps.Friends.UpdateStatus(ctx, requestID, domain.RequestAccepted); err != nil {
		return apperrors.InternalError("failed to accept request", err).WithContext("request_id", requestID)
	}

	accepter, err := s.deps.Users.GetByID(ctx, userID)
	if err == nil {
		s.deps.Hub.NotifyUser(request.SenderID, "request_accepted", map[string]any{
			"friend_id":       accepter.ID,
			"friend_username": accepter.Username,
			"friend_avatar":   accepter.AvatarURL(),
		})
	}

	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleDeclineRequest(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	requestID, err := strconv.ParseInt(c.Param("request_id"), 10, 64)
	if err != nil {
		return apperrors.NotFoundError("Request not found")
	}

	request, err := s.deps.Friends.GetRequest(ctx, requestID)
	if err != nil || request.ReceiverID != userID {
		return apperrors.NotFoundError("Request not found")
	}

	if err := s.deps.Friends.UpdateStatus(ctx, requestID, domain.RequestDeclined); err != nil {
		return apperrors.InternalError("failed to decline request", err).WithContext("request_id", requestID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleCancelRequest(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	requestID, err := strconv.ParseInt(c.Param("request_id"), 10, 64)
	if err != nil {
		return apperrors.NotFoundError("Request not found")
	}

	request, err := s.deps.Friends.GetRequest(ctx, requestID)
	if err != nil || request.SenderID != userID {
		return apperrors.NotFoundError("Request not found")
	}

	if err := s.deps.Friends.DeleteRequest(ctx, requestID); err != nil {
		return apperrors.InternalError("failed to cancel request", err).WithContext("request_id", requestID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleRemoveFriend(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	friendID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return apperrors.NotFoundError("Friendship not found")
	}

	if _, err := s.deps.Friends.GetRequestBetween(ctx, userID, friendID); err != nil {
		return apperrors.NotFoundError("Friendship not found")
	}

	if err := s.deps.Friends.DeleteBetween(ctx, userID, friendID); err != nil {
		return apperrors.InternalError("failed to remove friend", err).WithContext("friend_id", friendID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

// --- Chat ---

func (s *Server) handleChatPage(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	friendID, err := strconv.ParseInt(c.Param("friend_id"), 10, 64)
	if err != nil {
		return c.Redirect(302, "/friends")
	}

	friend, err := s.deps.Users.GetByID(ctx, friendID)
	if err != nil {
		return c.Redirect(302, "/friends")
	}
	if ok, err := s.deps.Friends.AreFriends(ctx, userID, friendID); err != nil || !ok {
		return c.Redirect(302, "/friends")
	}

	messages, err := s.deps.Messages.Between(ctx, userID, friendID)
	if err != nil {
		slog.Error("failed to load messages", "user_id", userID, "friend_id", friendID, "error", err)
		return c.String(500, "Failed to load chat")
	}

	if err := s.deps.Messages.MarkRead(ctx, friendID, userID); err != nil {
		slog.Warn("failed to mark messages read", "user_id", userID, "friend_id", friendID, "error", err)
	}

	theme, err := s.deps.Friends.GetChatTheme(ctx, userID, friendID)
	if err != nil {
		theme = domain.DefaultChatTheme
	}

	return s.render(c, "chat", map[string]any{
		"FriendID":       friend.ID,
		"FriendUsername": friend.Username,
		"FriendAvatar":   friend.AvatarURL(),
		"Messages":       messages,
		"ChatTheme":      theme,
		"UserID":         userID,
	})
}

func (s *Server) handleSendMessage(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	message, err := s.deliverMessage(ctx, userID, req.ReceiverID, req.Content)
	switch {
	case errors.Is(err, errEmptyMessage):
		return apperrors.ValidationError("Message cannot be empty")
	case errors.Is(err, errNotFriends):
		return apperrors.ForbiddenError("You can only message friends")
	case err != nil:
		return apperrors.InternalError("failed to send message", err)
	}

	return c.JSON(200, map[string]any{
		"success": true,
		"message": map[string]any{
			"id":      message.ID,
			"content": message.Content,
			"sent_at": message.SentAt.Format(time.RFC3339),
		},
	})
}

var (
	errEmptyMessage = errors.New("empty message")
	errNotFriends   = errors.New("not friends")
)

// deliverMessage validates friendship, persists the message, and fans out the
// realtime events. Shared by the HTTP endpoint and the websocket read pump.
func (s *Server) deliverMessage(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errEmptyMessage
	}

	if ok, err := s.deps.Friends.AreFriends(ctx, senderID, receiverID); err != nil || !ok {
		return nil, errNotFriends
	}

	message, err := s.deps.Messages.Create(ctx, senderID, receiverID, content)
	if err != nil {
		slog.Error("failed to save message", "sender_id", senderID, "error", err)
		return nil, err
	}

	sender, err := s.deps.Users.GetByID(ctx, senderID)
	if err != nil {
		return message, nil
	}

	s.deps.Hub.Broadcast(websocket.ChatRoom(senderID, receiverID), "new_message", map[string]any{
		"id":                message.ID,
		"content":           message.Content,
		"sender_id":         senderID,
		"sender_username":   sender.Username,
		"sent_at":           message.SentAt.Format(time.RFC3339),
		"sent_at_formatted": message.SentAt.Format("15:04"),
	})
	s.deps.Hub.NotifyUser(receiverID, "message_notification", map[string]any{
		"from_user": sender.Username,
		"from_id":   senderID,
		"preview":   preview(content),
	})

	return message, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= messagePreviewLength {
		return content
	}
	return string(runes[:messagePreviewLength]) + "..."
}

func (s *Server) handleGetMessages(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	friendID, err := strconv.ParseInt(c.Param("friend_id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("Invalid friend id")
	}

	lastID, _ := strconv.ParseInt(c.QueryParam("last_id"), 10, 64)

	messages, err := s.deps.Messages.BetweenSince(ctx, userID, friendID, lastID)
	if err != nil {
		return apperrors.InternalError("failed to load messages", err).WithContext("friend_id", friendID)
	}

	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		out = append(out, map[string]any{
			"id":        m.ID,
			"content":   m.Content,
			"sender_id": m.SenderID,
			"sent_at":   m.SentAt.Format(time.RFC3339),
		})
	}
	return c.JSON(200, out)
}

func (s *Server) handleSetChatTheme(c echo.Context) error {
	userID := currentUserID(c)

	friendID, err := strconv.ParseInt(c.Param("friend_id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("Invalid friend id")
	}

	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}
	if req.Theme == "" {
		req.Theme = domain.DefaultChatTheme
	}
	if !domain.IsValidChatTheme(req.Theme) {
		return apperrors.ValidationError("Invalid theme")
	}

	if err := s.deps.Friends.SetChatTheme(c.Request().Context(), userID, friendID, req.Theme); err != nil {
		return apperrors.InternalError("failed to set theme", err).WithContext("friend_id", friendID)
	}
	return c.JSON(200, map[string]any{"success": true})
}
