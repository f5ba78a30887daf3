package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	apperrors "github.com/ct-rrya/study-buddy/internal/errors"
	"github.com/ct-rrya/study-buddy/internal/logging"
	"github.com/ct-rrya/study-buddy/internal/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers send the page origin; same-host deployments have no separate
	// frontend origin to check against.
	CheckOrigin: func(*http.Request) bool { return true },
}

// clientEvent is the envelope clients send over the websocket.
type clientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) handleWebSocket(c echo.Context) error {
	userID := currentUserID(c)

	user, err := s.deps.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return apperrors.UnauthorizedError("unknown user")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	if err := s.deps.Hub.Register(conn, userID); err != nil {
		conn.Close()
		return nil
	}
	defer s.deps.Hub.Unregister(conn)

	logging.WithUser(userID).Debug("websocket connected")
	s.readPump(c, conn, userID, user.Username)
	logging.WithUser(userID).Debug("websocket disconnected")
	return nil
}

// readPump consumes client events until the connection drops. Malformed
// frames are skipped rather than terminating the connection.
func (s *Server) readPump(c echo.Context, conn *gorillaws.Conn, userID int64, username string) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				logging.WithError(err).Warn("websocket read failed", "user_id", userID)
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			slog.Debug("skipping malformed websocket frame", "user_id", userID, "error", err)
			continue
		}

		switch event.Event {
		case "join_chat":
			s.wsJoinChat(c, conn, userID, event.Data)
		case "leave_chat":
			s.wsLeaveChat(conn, userID, event.Data)
		case "typing":
			s.wsTyping(conn, userID, username, event.Data, "user_typing")
		case "stop_typing":
			s.wsTyping(conn, userID, username, event.Data, "user_stop_typing")
		case "send_message":
			s.wsSendMessage(c, conn, userID, event.Data)
		default:
			slog.Debug("unknown websocket event", "user_id", userID, "event", event.Event)
		}
	}
}

type friendRef struct {
	FriendID int64 `json:"friend_id"`
}

func (s *Server) wsJoinChat(c echo.Context, conn *gorillaws.Conn, userID int64, data json.RawMessage) {
	var ref friendRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return
	}
	ok, err := s.deps.Friends.AreFriends(c.Request().Context(), userID, ref.FriendID)
	if err != nil || !ok {
		return
	}
	s.deps.Hub.Join(websocket.ChatRoom(userID, ref.FriendID), conn)
}

func (s *Server) wsLeaveChat(conn *gorillaws.Conn, userID int64, data json.RawMessage) {
	var ref friendRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return
	}
	s.deps.Hub.Leave(websocket.ChatRoom(userID, ref.FriendID), conn)
}

func (s *Server) wsTyping(conn *gorillaws.Conn, userID int64, username string, data json.RawMessage, event string) {
	var ref friendRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return
	}
	s.deps.Hub.BroadcastExcept(websocket.ChatRoom(userID, ref.FriendID), event, map[string]any{
		"user_id":  userID,
		"username": username,
	}, conn)
}

func (s *Server) wsSendMessage(c echo.Context, conn *gorillaws.Conn, userID int64, data json.RawMessage) {
	var req struct {
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	_, err := s.deliverMessage(c.Request().Context(), userID, req.ReceiverID, req.Content)
	if err == nil {
		return
	}

	reason := "Failed to send message"
	switch {
	case errors.Is(err, errEmptyMessage):
		reason = "Message cannot be empty"
	case errors.Is(err, errNotFriends):
		reason = "You can only message friends"
	}
	s.deps.Hub.NotifyUser(userID, "error", map[string]any{"message": reason})
}
