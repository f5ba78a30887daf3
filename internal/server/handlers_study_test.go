package server

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const studyContent = "Photosynthesis is the process by which green plants convert " +
	"light energy into chemical energy stored in glucose. It takes place in the " +
	"chloroplasts and requires carbon dioxide, water, and sunlight."

func TestUploadTextFile(t *testing.T) {
	study := &mockStudyRepo{}
	srv := newTestServer(t, Deps{Study: study})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(studyContent))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleUpload(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), "notes.txt")
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "evil.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleUpload, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "File type not allowed")
}

func TestStudyPageFiltersBySubject(t *testing.T) {
	study := &mockStudyRepo{}
	study.filesByUserFn = func(_ context.Context, userID int64) ([]*domain.StudyFile, error) {
		return []*domain.StudyFile{
			{ID: 1, UserID: userID, SubjectID: 3, OriginalName: "algebra.txt"},
			{ID: 2, UserID: userID, SubjectID: 4, OriginalName: "cells.txt"},
			{ID: 3, UserID: userID, OriginalName: "misc.txt"},
		}, nil
	}
	srv := newTestServer(t, Deps{Study: study})
	srv.templates["study"] = template.Must(
		template.New("study.html").Parse(`{{range .Files}}[{{.OriginalName}}]{{end}}`))

	req := httptest.NewRequest(http.MethodGet, "/study?subject=3", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleStudyPage(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[algebra.txt]")
	assert.NotContains(t, rec.Body.String(), "[cells.txt]")
	assert.NotContains(t, rec.Body.String(), "[misc.txt]")
}

func TestStudyPageShowsAllWithoutFilter(t *testing.T) {
	study := &mockStudyRepo{}
	study.filesByUserFn = func(_ context.Context, userID int64) ([]*domain.StudyFile, error) {
		return []*domain.StudyFile{
			{ID: 1, UserID: userID, SubjectID: 3, OriginalName: "algebra.txt"},
			{ID: 2, UserID: userID, OriginalName: "misc.txt"},
		}, nil
	}
	srv := newTestServer(t, Deps{Study: study})
	srv.templates["study"] = template.Must(
		template.New("study.html").Parse(`{{range .Files}}[{{.OriginalName}}]{{end}}`))

	req := httptest.NewRequest(http.MethodGet, "/study", nil)
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleStudyPage(c))

	assert.Contains(t, rec.Body.String(), "[algebra.txt]")
	assert.Contains(t, rec.Body.String(), "[misc.txt]")
}

func TestBotActionRejectsForeignFile(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 99, Content: studyContent}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study, ChatClient: &mockChatClient{response: "hi"}})

	body := `{"file_id": 1, "action": "ask", "input": "what is this about?"}`
	req := httptest.NewRequest(http.MethodPost, "/bot/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleBotAction, c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBotActionAsk(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 1, Content: studyContent}, nil
		},
	}
	client := &mockChatClient{response: "It covers photosynthesis."}
	srv := newTestServer(t, Deps{Study: study, ChatClient: client})

	body := `{"file_id": 1, "action": "ask", "input": "what is this about?"}`
	req := httptest.NewRequest(http.MethodPost, "/bot/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleBotAction(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "answer", result["type"])
	assert.Equal(t, "It covers photosynthesis.", result["response"])
}

func TestBotActionQuiz(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 1, Content: studyContent}, nil
		},
	}
	client := &mockChatClient{response: "QUIZ_START\nQ1: What organelle hosts photosynthesis?\nA1: The chloroplast\nQUIZ_END"}
	srv := newTestServer(t, Deps{Study: study, ChatClient: client})

	body := `{"file_id": 1, "action": "quiz", "num_questions": 5, "question_type": "mixed"}`
	req := httptest.NewRequest(http.MethodPost, "/bot/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleBotAction(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Type      string `json:"type"`
		Questions []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "quiz", result.Type)
	require.Len(t, result.Questions, 1)
	assert.Equal(t, "What organelle hosts photosynthesis?", result.Questions[0].Question)
}

func TestBotActionInvalidAction(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 1, Content: studyContent}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study, ChatClient: &mockChatClient{}})

	body := `{"file_id": 1, "action": "dance"}`
	req := httptest.NewRequest(http.MethodPost, "/bot/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleBotAction, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBotActionQuizRejectsInvalidCount(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 1, Content: studyContent}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study, ChatClient: &mockChatClient{}})

	body := `{"file_id": 1, "action": "quiz", "num_questions": 7, "question_type": "mixed"}`
	req := httptest.NewRequest(http.MethodPost, "/bot/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleBotAction, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid question count")
	assert.Contains(t, rec.Body.String(), `"type":"validation"`)
}

func TestBotActionQuizRejectsInvalidType(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 1, Content: studyContent}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study, ChatClient: &mockChatClient{}})

	body := `{"file_id": 1, "action": "quiz", "num_questions": 5, "question_type": "essay"}`
	req := httptest.NewRequest(http.MethodPost, "/bot/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleBotAction, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid question type")
}

func TestTrackQuizUsesFileTopic(t *testing.T) {
	study := &mockStudyRepo{
		getFileFn: func(_ context.Context, fileID int64) (*domain.StudyFile, error) {
			return &domain.StudyFile{ID: fileID, UserID: 1, OriginalName: "biology.docx"}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study})

	body := `{"file_id": 1, "total": 5, "correct": 4}`
	req := httptest.NewRequest(http.MethodPost, "/track/quiz", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleTrackQuiz(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "biology.docx", study.recordedQuizTopic)
}

func TestEndSessionRejectsForeignSession(t *testing.T) {
	study := &mockStudyRepo{
		getSessionFn: func(_ context.Context, sessionID int64) (*domain.StudySession, error) {
			return &domain.StudySession{ID: sessionID, UserID: 99}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study})

	body := `{"session_id": 12, "duration": 10, "questions": 5, "correct": 3}`
	req := httptest.NewRequest(http.MethodPost, "/session/end", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, callHandler(srv.handleEndSession, c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, study.endedSession)
}

func TestStartSessionDefaultsTopic(t *testing.T) {
	var gotTopic string
	study := &mockStudyRepo{
		startSessionFn: func(_ context.Context, userID int64, topic string) (*domain.StudySession, error) {
			gotTopic = topic
			return &domain.StudySession{ID: 8, UserID: userID, Topic: topic}, nil
		},
	}
	srv := newTestServer(t, Deps{Study: study})

	body := `{"topic": ""}`
	req := httptest.NewRequest(http.MethodPost, "/session/start", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := newAuthedContext(srv, req, rec, 1)

	require.NoError(t, srv.handleStartSession(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "General Study", gotTopic)
	assert.Contains(t, rec.Body.String(), `"session_id":8`)
}
