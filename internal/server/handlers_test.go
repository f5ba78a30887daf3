package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ct-rrya/study-buddy/internal/bot"
	"github.com/ct-rrya/study-buddy/internal/config"
	"github.com/ct-rrya/study-buddy/internal/domain"
	apperrors "github.com/ct-rrya/study-buddy/internal/errors"
	"github.com/ct-rrya/study-buddy/internal/mail"
	"github.com/ct-rrya/study-buddy/internal/websocket"
)

// --- Mock implementations ---

type mockUserRepo struct {
	createFn        func(ctx context.Context, username, email, passwordHash, verificationToken string, emailVerified bool) (*domain.User, error)
	getByIDFn       func(ctx context.Context, userID int64) (*domain.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*domain.User, error)
	searchFn        func(ctx context.Context, query string, excludeUserID int64, limit int) ([]*domain.User, error)
	markVerifiedFn  func(ctx context.Context, userID int64) error

	verificationUser *domain.User
	resetUser        *domain.User
	updatedPassword  string
}

func (m *mockUserRepo) Create(ctx context.Context, username, email, passwordHash, verificationToken string, emailVerified bool) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, email, passwordHash, verificationToken, emailVerified)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, userID)
	}
	return &domain.User{ID: userID, Username: fmt.Sprintf("user%d", userID), EmailVerified: true}, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	if m.verificationUser != nil && m.verificationUser.VerificationToken == token {
		return m.verificationUser, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	if m.resetUser != nil && m.resetUser.ResetToken == token {
		return m.resetUser, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, userID int64) error {
	if m.markVerifiedFn != nil {
		return m.markVerifiedFn(ctx, userID)
	}
	return nil
}

func (m *mockUserRepo) SetVerificationToken(ctx context.Context, userID int64, token string) error {
	return nil
}

func (m *mockUserRepo) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	m.updatedPassword = passwordHash
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, userID int64, username, bio string) error {
	return nil
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, userID int64, avatarType, avatarStyle, avatarSeed string) error {
	return nil
}

func (m *mockUserRepo) UpdateChatTheme(ctx context.Context, userID int64, theme string) error {
	return nil
}

func (m *mockUserRepo) SearchByUsername(ctx context.Context, query string, excludeUserID int64, limit int) ([]*domain.User, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, excludeUserID, limit)
	}
	return nil, nil
}

type mockFriendRepo struct {
	createRequestFn     func(ctx context.Context, senderID, receiverID int64) (*domain.FriendRequest, error)
	getRequestFn        func(ctx context.Context, requestID int64) (*domain.FriendRequest, error)
	getRequestBetweenFn func(ctx context.Context, userID, otherID int64) (*domain.FriendRequest, error)
	areFriendsFn        func(ctx context.Context, userID, otherID int64) (bool, error)
	friendsFn           func(ctx context.Context, userID int64) ([]*domain.User, error)
	pendingCountFn      func(ctx context.Context, userID int64) (int, error)

	updatedStatus  string
	deletedRequest int64
}

func (m *mockFriendRepo) CreateRequest(ctx context.Context, senderID, receiverID int64) (*domain.FriendRequest, error) {
	if m.createRequestFn != nil {
		return m.createRequestFn(ctx, senderID, receiverID)
	}
	return &domain.FriendRequest{ID: 1, SenderID: senderID, ReceiverID: receiverID, Status: domain.RequestPending}, nil
}

func (m *mockFriendRepo) GetRequest(ctx context.Context, requestID int64) (*domain.FriendRequest, error) {
	if m.getRequestFn != nil {
		return m.getRequestFn(ctx, requestID)
	}
	return nil, domain.ErrRequestNotFound
}

func (m *mockFriendRepo) GetRequestBetween(ctx context.Context, userID, otherID int64) (*domain.FriendRequest, error) {
	if m.getRequestBetweenFn != nil {
		return m.getRequestBetweenFn(ctx, userID, otherID)
	}
	return nil, domain.ErrRequestNotFound
}

func (m *mockFriendRepo) UpdateStatus(ctx context.Context, requestID int64, status string) error {
	m.updatedStatus = status
	return nil
}

func (m *mockFriendRepo) DeleteRequest(ctx context.Context, requestID int64) error {
	m.deletedRequest = requestID
	return nil
}

func (m *mockFriendRepo) DeleteBetween(ctx context.Context, userID, otherID int64) error {
	return nil
}

func (m *mockFriendRepo) Friends(ctx context.Context, userID int64) ([]*domain.User, error) {
	if m.friendsFn != nil {
		return m.friendsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockFriendRepo) PendingReceived(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	return nil, nil
}

func (m *mockFriendRepo) PendingSent(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	return nil, nil
}

func (m *mockFriendRepo) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	if m.areFriendsFn != nil {
		return m.areFriendsFn(ctx, userID, otherID)
	}
	return false, nil
}

func (m *mockFriendRepo) PendingReceivedCount(ctx context.Context, userID int64) (int, error) {
	if m.pendingCountFn != nil {
		return m.pendingCountFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockFriendRepo) GetChatTheme(ctx context.Context, userID, friendID int64) (string, error) {
	return domain.DefaultChatTheme, nil
}

func (m *mockFriendRepo) SetChatTheme(ctx context.Context, userID, friendID int64, theme string) error {
	return nil
}

type mockMessageRepo struct {
	createFn func(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error)

	created []*domain.Message
}

func (m *mockMessageRepo) Create(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	if m.createFn != nil {
		return m.createFn(ctx, senderID, receiverID, content)
	}
	msg := &domain.Message{ID: int64(len(m.created) + 1), SenderID: senderID, ReceiverID: receiverID, Content: content, SentAt: time.Now()}
	m.created = append(m.created, msg)
	return msg, nil
}

func (m *mockMessageRepo) Between(ctx context.Context, userID, friendID int64) ([]*domain.Message, error) {
	return nil, nil
}

func (m *mockMessageRepo) BetweenSince(ctx context.Context, userID, friendID, sinceID int64) ([]*domain.Message, error) {
	return nil, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, senderID, receiverID int64) error {
	return nil
}

func (m *mockMessageRepo) UnreadCount(ctx context.Context, receiverID int64) (int, error) {
	return 0, nil
}

func (m *mockMessageRepo) UnreadCountFrom(ctx context.Context, senderID, receiverID int64) (int, error) {
	return 0, nil
}

func (m *mockMessageRepo) LastBetween(ctx context.Context, userID, friendID int64) (*domain.Message, error) {
	return nil, nil
}

type mockStudyRepo struct {
	getFileFn      func(ctx context.Context, fileID int64) (*domain.StudyFile, error)
	createFileFn   func(ctx context.Context, userID int64, filename, originalName, content string) (*domain.StudyFile, error)
	filesByUserFn  func(ctx context.Context, userID int64) ([]*domain.StudyFile, error)
	startSessionFn func(ctx context.Context, userID int64, topic string) (*domain.StudySession, error)
	getSessionFn   func(ctx context.Context, sessionID int64) (*domain.StudySession, error)

	recordedQuizTopic string
	endedSession      int64
}

func (m *mockStudyRepo) CreateFile(ctx context.Context, userID int64, filename, originalName, content string) (*domain.StudyFile, error) {
	if m.createFileFn != nil {
		return m.createFileFn(ctx, userID, filename, originalName, content)
	}
	return &domain.StudyFile{ID: 1, UserID: userID, Filename: filename, OriginalName: originalName, Content: content}, nil
}

func (m *mockStudyRepo) GetFile(ctx context.Context, fileID int64) (*domain.StudyFile, error) {
	if m.getFileFn != nil {
		return m.getFileFn(ctx, fileID)
	}
	return nil, domain.ErrFileNotFound
}

func (m *mockStudyRepo) FilesByUser(ctx context.Context, userID int64) ([]*domain.StudyFile, error) {
	if m.filesByUserFn != nil {
		return m.filesByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStudyRepo) AssignSubject(ctx context.Context, fileID, subjectID int64) error {
	return nil
}

func (m *mockStudyRepo) DeleteFile(ctx context.Context, fileID int64) error {
	return nil
}

func (m *mockStudyRepo) StartSession(ctx context.Context, userID int64, topic string) (*domain.StudySession, error) {
	if m.startSessionFn != nil {
		return m.startSessionFn(ctx, userID, topic)
	}
	return &domain.StudySession{ID: 1, UserID: userID, Topic: topic, StartedAt: time.Now()}, nil
}

func (m *mockStudyRepo) GetSession(ctx context.Context, sessionID int64) (*domain.StudySession, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockStudyRepo) EndSession(ctx context.Context, sessionID int64, duration, questions, correct int, endedAt time.Time) error {
	m.endedSession = sessionID
	return nil
}

func (m *mockStudyRepo) RecordQuiz(ctx context.Context, userID int64, topic string, total, correct int, endedAt time.Time) error {
	m.recordedQuizTopic = topic
	return nil
}

func (m *mockStudyRepo) SessionsByUser(ctx context.Context, userID int64, limit int) ([]*domain.StudySession, error) {
	return nil, nil
}

func (m *mockStudyRepo) SessionCount(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}

func (m *mockStudyRepo) SessionDays(ctx context.Context, userID int64) ([]time.Time, error) {
	return nil, nil
}

func (m *mockStudyRepo) Totals(ctx context.Context, userID int64) (int, int, int, error) {
	return 0, 0, 0, nil
}

type mockConversationRepo struct {
	appended []string
	cleared  bool
}

func (m *mockConversationRepo) Append(ctx context.Context, userID, fileID int64, role, content string) error {
	m.appended = append(m.appended, role+": "+content)
	return nil
}

func (m *mockConversationRepo) History(ctx context.Context, userID, fileID int64) ([]*domain.BotMessage, error) {
	return nil, nil
}

func (m *mockConversationRepo) Clear(ctx context.Context, userID, fileID int64) error {
	m.cleared = true
	return nil
}

type mockSubjectRepo struct {
	getFn    func(ctx context.Context, subjectID int64) (*domain.Subject, error)
	byUserFn func(ctx context.Context, userID int64) ([]*domain.Subject, error)
}

func (m *mockSubjectRepo) Create(ctx context.Context, userID int64, name, color, icon string) (*domain.Subject, error) {
	return &domain.Subject{ID: 1, UserID: userID, Name: name, Color: color, Icon: icon}, nil
}

func (m *mockSubjectRepo) Get(ctx context.Context, subjectID int64) (*domain.Subject, error) {
	if m.getFn != nil {
		return m.getFn(ctx, subjectID)
	}
	return nil, domain.ErrSubjectNotFound
}

func (m *mockSubjectRepo) ByUser(ctx context.Context, userID int64) ([]*domain.Subject, error) {
	if m.byUserFn != nil {
		return m.byUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, subjectID int64) error {
	return nil
}

func (m *mockSubjectRepo) EnsureDefaults(ctx context.Context, userID int64) error {
	return nil
}

type mockChatClient struct {
	response string
	err      error
}

func (m *mockChatClient) ChatCompletion(ctx context.Context, messages []bot.ChatMessage) (string, error) {
	return m.response, m.err
}

// --- Test helpers ---

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()

	if deps.Users == nil {
		deps.Users = &mockUserRepo{}
	}
	if deps.Friends == nil {
		deps.Friends = &mockFriendRepo{}
	}
	if deps.Messages == nil {
		deps.Messages = &mockMessageRepo{}
	}
	if deps.Study == nil {
		deps.Study = &mockStudyRepo{}
	}
	if deps.Conversations == nil {
		deps.Conversations = &mockConversationRepo{}
	}
	if deps.Subjects == nil {
		deps.Subjects = &mockSubjectRepo{}
	}
	if deps.Memory == nil {
		deps.Memory = bot.NewInMemoryStore(clockwork.NewRealClock())
	}
	if deps.Mailer == nil {
		deps.Mailer = mail.NoopMailer{}
	}
	if deps.Hub == nil {
		hub := websocket.NewHub()
		t.Cleanup(hub.Stop)
		deps.Hub = hub
	}

	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		templates[name] = template.Must(template.New(name + ".html").Parse(name + " page"))
	}

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{Path: "/", MaxAge: 3600}

	e := echo.New()
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:         e,
		config:       &config.Config{AppEnv: "test", BaseURL: "http://localhost:8080", SecretKey: "test"},
		deps:         deps,
		sessionStore: store,
		templates:    templates,
		startTime:    time.Now(),
	}
	srv.registerRoutes()
	return srv
}

// callHandler runs a handler through the error middleware so structured
// errors are converted to HTTP responses, as they are in production.
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(handler)(c)
}

// newAuthedContext builds an echo context with the authenticated user already
// resolved, bypassing the session middleware.
func newAuthedContext(srv *Server, req *http.Request, rec *httptest.ResponseRecorder, userID int64) echo.Context {
	c := srv.echo.NewContext(req, rec)
	c.Set("userID", userID)
	return c
}

func setSessionUserID(t *testing.T, srv *Server, req *http.Request, rec *httptest.ResponseRecorder, userID int64) {
	t.Helper()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID
	require.NoError(t, session.Save(req, rec))
}
