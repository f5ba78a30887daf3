package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

func TestSendMessageRequiresFriendship(t *testing.T) {
	friends := &mockFriendRepo{
		areFriendsFn: func(_ context.Context, _, _ int64) (bool, error) { return false, nil },
	}
	messages := &mockMessageRepo{}
	srv := newTestServer(t, Deps{Friends: friends, Messages: messages})

	body := `{"receiver_id": 2, "content": "hey"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleSendMessage, c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, messages.created)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	friends := &mockFriendRepo{
		areFriendsFn: func(_ context.Context, _, _ int64) (bool, error) { return true, nil },
	}
	srv := newTestServer(t, Deps{Friends: friends})

	body := `{"receiver_id": 2, "content": "   "}`
	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleSendMessage, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessagePersists(t *testing.T) {
	friends := &mockFriendRepo{
		areFriendsFn: func(_ context.Context, _, _ int64) (bool, error) { return true, nil },
	}
	messages := &mockMessageRepo{}
	srv := newTestServer(t, Deps{Friends: friends, Messages: messages})

	body := `{"receiver_id": 2, "content": "see you at the library"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleSendMessage, c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, messages.created, 1)
	assert.Equal(t, "see you at the library", messages.created[0].Content)
	assert.Equal(t, int64(1), messages.created[0].SenderID)
	assert.Equal(t, int64(2), messages.created[0].ReceiverID)
}

func TestSendRequestDuplicate(t *testing.T) {
	friends := &mockFriendRepo{
		createRequestFn: func(_ context.Context, _, _ int64) (*domain.FriendRequest, error) {
			return nil, domain.ErrRequestExists
		},
	}
	srv := newTestServer(t, Deps{Friends: friends})

	req := httptest.NewRequest(http.MethodPost, "/friends/request/2", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)
	c.SetParamNames("user_id")
	c.SetParamValues("2")

	require.NoError(t, callHandler(srv.handleSendRequest, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestSendRequestToSelf(t *testing.T) {
	srv := newTestServer(t, Deps{})

	req := httptest.NewRequest(http.MethodPost, "/friends/request/1", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)
	c.SetParamNames("user_id")
	c.SetParamValues("1")

	require.NoError(t, callHandler(srv.handleSendRequest, c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptRequestReceiverOnly(t *testing.T) {
	friends := &mockFriendRepo{
		getRequestFn: func(_ context.Context, requestID int64) (*domain.FriendRequest, error) {
			return &domain.FriendRequest{ID: requestID, SenderID: 1, ReceiverID: 2, Status: domain.RequestPending}, nil
		},
	}
	srv := newTestServer(t, Deps{Friends: friends})

	// User 1 is the sender; they cannot accept their own request.
	req := httptest.NewRequest(http.MethodPost, "/friends/accept/5", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)
	c.SetParamNames("request_id")
	c.SetParamValues("5")

	require.NoError(t, callHandler(srv.handleAcceptRequest, c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, friends.updatedStatus)
}

func TestAcceptRequest(t *testing.T) {
	friends := &mockFriendRepo{
		getRequestFn: func(_ context.Context, requestID int64) (*domain.FriendRequest, error) {
			return &domain.FriendRequest{ID: requestID, SenderID: 1, ReceiverID: 2, Status: domain.RequestPending}, nil
		},
	}
	srv := newTestServer(t, Deps{Friends: friends})

	req := httptest.NewRequest(http.MethodPost, "/friends/accept/5", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 2)
	c.SetParamNames("request_id")
	c.SetParamValues("5")

	require.NoError(t, callHandler(srv.handleAcceptRequest, c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RequestAccepted, friends.updatedStatus)
}

func TestCancelRequestSenderOnly(t *testing.T) {
	friends := &mockFriendRepo{
		getRequestFn: func(_ context.Context, requestID int64) (*domain.FriendRequest, error) {
			return &domain.FriendRequest{ID: requestID, SenderID: 1, ReceiverID: 2, Status: domain.RequestPending}, nil
		},
	}
	srv := newTestServer(t, Deps{Friends: friends})

	// User 2 is the receiver; only the sender can cancel.
	req := httptest.NewRequest(http.MethodPost, "/friends/cancel/5", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 2)
	c.SetParamNames("request_id")
	c.SetParamValues("5")

	require.NoError(t, callHandler(srv.handleCancelRequest, c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, friends.deletedRequest)
}

func TestSearchUsersIncludesRequestStatus(t *testing.T) {
	users := &mockUserRepo{
		searchFn: func(_ context.Context, query string, excludeUserID int64, limit int) ([]*domain.User, error) {
			assert.Equal(t, int64(1), excludeUserID)
			assert.Equal(t, searchResultLimit, limit)
			return []*domain.User{{ID: 2, Username: "bob"}, {ID: 3, Username: "carol"}}, nil
		},
	}
	friends := &mockFriendRepo{
		getRequestBetweenFn: func(_ context.Context, _, otherID int64) (*domain.FriendRequest, error) {
			if otherID == 2 {
				return &domain.FriendRequest{ID: 9, SenderID: 1, ReceiverID: 2, Status: domain.RequestPending}, nil
			}
			return nil, domain.ErrRequestNotFound
		},
	}
	srv := newTestServer(t, Deps{Users: users, Friends: friends})

	body := `{"query": "b"}`
	req := httptest.NewRequest(http.MethodPost, "/friends/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleSearchUsers(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"bob"`)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	assert.Contains(t, rec.Body.String(), `"is_sender":true`)
	assert.Contains(t, rec.Body.String(), `"username":"carol"`)
}

func TestSetChatThemeRejectsUnknownTheme(t *testing.T) {
	srv := newTestServer(t, Deps{})

	body := `{"theme": "plaid"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/theme/2", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)
	c.SetParamNames("friend_id")
	c.SetParamValues("2")

	require.NoError(t, callHandler(srv.handleSetChatTheme, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
