package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsvc "hotel-concierge/internal/app"
	"hotel-concierge/internal/bootstrap"
	"hotel-concierge/internal/config"
	"hotel-concierge/internal/model"
	"hotel-concierge/internal/workflow"
)

type fakeWorkflow struct {
	mu          sync.Mutex
	chatReply   string
	chatStatus  int
	chats       []workflow.ChatRequest
	escalations []workflow.EscalationRequest
}

func (f *fakeWorkflow) setChat(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatStatus = status
	f.chatReply = body
}

func (f *fakeWorkflow) lastChat() workflow.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats[len(f.chats)-1]
}

func (f *fakeWorkflow) escalationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.escalations)
}

func (f *fakeWorkflow) escalation(i int) workflow.EscalationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.escalations[i]
}

func (f *fakeWorkflow) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		var req workflow.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.chats = append(f.chats, req)
		status, body := f.chatStatus, f.chatReply
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/escalate", func(w http.ResponseWriter, r *http.Request) {
		var req workflow.EscalationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.escalations = append(f.escalations, req)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract([]byte) (string, error) {
	return f.text, f.err
}

type testEnv struct {
	app      *bootstrap.App
	router   *gin.Engine
	workflow *fakeWorkflow
}

func setupTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	fw := &fakeWorkflow{chatStatus: http.StatusOK, chatReply: `[{"answer":"Check-in is at 3 PM.","topic":"Check-in","canAnswer":true}]`}
	srv := httptest.NewServer(fw.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.App.GinMode = gin.TestMode
	cfg.Workflow.ChatURL = srv.URL + "/chat"
	cfg.Workflow.EscalateURL = srv.URL + "/escalate"
	cfg.Workflow.TimeoutSeconds = 2
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.MaxSizeMB = 1
	if mutate != nil {
		mutate(cfg)
	}

	a, err := bootstrap.NewWithConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	a.Extractor = fakeExtractor{text: "Breakfast is served 7-10 AM."}

	return &testEnv{app: a, router: NewRouter(a), workflow: fw}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, field, filename string, data []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSendMessage_NewSession(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "What time is check-in?"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[appsvc.SendMessageResult](t, rec)
	assert.Equal(t, "Check-in is at 3 PM.", got.Reply)
	assert.Equal(t, got.Reply, got.Answer)
	assert.Equal(t, "Check-in", got.Topic)
	assert.True(t, got.CanAnswer)
	assert.NotEmpty(t, got.SessionID)

	sent := env.workflow.lastChat()
	assert.Equal(t, got.SessionID, sent.SessionID)
	assert.Equal(t, "What time is check-in?", sent.Message)
	assert.Equal(t, "", sent.HotelInfo)

	rec = env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"sessionId": got.SessionID, "message": "And check-out?"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, got.SessionID, decode[appsvc.SendMessageResult](t, rec).SessionID)

	session, ok := env.app.Ledger.Session(got.SessionID)
	require.True(t, ok)
	assert.Equal(t, 2, session.QuestionCount)
}

func TestSendMessage_MissingMessage(t *testing.T) {
	env := setupTestEnv(t, nil)

	for _, body := range []string{`{}`, `{"message":"   "}`, `{"message":42}`, `not json`} {
		rec := env.do(t, http.MethodPost, "/api/chat/message", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Missing message", decode[map[string]string](t, rec)["error"], body)
	}
	assert.Equal(t, 0, env.app.Ledger.Totals().Sessions)
}

func TestSendMessage_NonStringSessionIDStartsNewSession(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/chat/message", `{"sessionId":17,"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[appsvc.SendMessageResult](t, rec)
	assert.NotEqual(t, "17", got.SessionID)
	assert.NotEmpty(t, got.SessionID)
}

func TestSendMessage_WorkflowFailureFallsBack(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.workflow.setChat(http.StatusBadGateway, "upstream down")

	rec := env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "Do you allow pets?"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[appsvc.SendMessageResult](t, rec)
	assert.Equal(t, appsvc.FallbackReply, got.Reply)
	assert.Equal(t, "Uncategorized", got.Topic)
	assert.False(t, got.CanAnswer)

	stats := decode[model.StatsSnapshot](t, env.do(t, http.MethodGet, "/api/admin/stats", nil, nil))
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.UnansweredQuestions)
	assert.Empty(t, stats.Topics)
	require.Len(t, stats.RecentSessions, 1)
	assert.Equal(t, model.StatusNeedsReview, stats.RecentSessions[0].Status)
}

func TestSendMessage_MalformedReplyFallsBack(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.workflow.setChat(http.StatusOK, "<html>oops</html>")

	got := decode[appsvc.SendMessageResult](t, env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "hi"}, nil))
	assert.Equal(t, appsvc.FallbackReply, got.Reply)
	assert.False(t, got.CanAnswer)
}

func TestGetHistory(t *testing.T) {
	env := setupTestEnv(t, nil)

	for _, path := range []string{"/api/chat/history", "/api/chat/history?sessionId=unknown"} {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	}

	sent := decode[appsvc.SendMessageResult](t, env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "What time is check-in?"}, nil))
	history := decode[[]model.Message](t, env.do(t, http.MethodGet, "/api/chat/history?sessionId="+sent.SessionID, nil, nil))
	require.Len(t, history, 2)
	assert.Equal(t, model.SenderGuest, history[0].Sender)
	assert.Equal(t, "What time is check-in?", history[0].Text)
	assert.Equal(t, model.SenderAssistant, history[1].Sender)
	assert.Equal(t, "Check-in is at 3 PM.", history[1].Text)
}

func TestEscalate(t *testing.T) {
	env := setupTestEnv(t, nil)
	sent := decode[appsvc.SendMessageResult](t, env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "Can I bring my horse?"}, nil))

	rec := env.do(t, http.MethodPost, "/api/chat/escalate", map[string]interface{}{
		"sessionId":    sent.SessionID,
		"name":         "Ada",
		"email":        "ada@example.com",
		"question":     "Can I bring my horse?",
		"conversation": []map[string]string{{"sender": "user", "text": "Can I bring my horse?"}},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	require.Equal(t, 1, env.workflow.escalationCount())
	forwarded := env.workflow.escalation(0)
	assert.Equal(t, sent.SessionID, forwarded.SessionID)
	assert.Equal(t, "ada@example.com", forwarded.Email)
	assert.JSONEq(t, `[{"sender":"user","text":"Can I bring my horse?"}]`, string(forwarded.Transcript))

	session, _ := env.app.Ledger.Session(sent.SessionID)
	assert.Equal(t, model.StatusNeedsReview, session.Status)

	// same escalation again inside the dedupe window is not re-forwarded
	rec = env.do(t, http.MethodPost, "/api/chat/escalate", map[string]interface{}{
		"sessionId": sent.SessionID,
		"name":      "Ada",
		"email":     "ada@example.com",
		"question":  "Can I bring my horse?",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.workflow.escalationCount())
}

func TestEscalate_RequiresContact(t *testing.T) {
	env := setupTestEnv(t, nil)
	sent := decode[appsvc.SendMessageResult](t, env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "hi"}, nil))

	for _, body := range []map[string]string{
		{"sessionId": sent.SessionID, "email": "ada@example.com"},
		{"sessionId": sent.SessionID, "name": "Ada"},
		{"sessionId": sent.SessionID, "name": "Ada", "email": "not-an-email"},
	} {
		rec := env.do(t, http.MethodPost, "/api/chat/escalate", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
	}

	session, _ := env.app.Ledger.Session(sent.SessionID)
	assert.Equal(t, model.StatusResolved, session.Status)
	assert.Equal(t, 0, env.workflow.escalationCount())
}

func TestEscalate_UnknownSessionStillOK(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/chat/escalate", map[string]string{"name": "Ada", "email": "ada@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, 0, env.app.Ledger.Totals().Sessions)
}

func TestUploadPDF(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.upload(t, "/api/admin/pdf", "file", "handbook.pdf", []byte("%PDF-1.4 fake"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[appsvc.UploadResult](t, rec)
	assert.True(t, got.OK)
	assert.Equal(t, "handbook.pdf", got.Filename)
	assert.Equal(t, len("Breakfast is served 7-10 AM."), got.TextLength)
	assert.FileExists(t, got.Path)

	env.do(t, http.MethodPost, "/api/chat/message", map[string]string{"message": "When is breakfast?"}, nil)
	assert.Equal(t, "Breakfast is served 7-10 AM.", env.workflow.lastChat().HotelInfo)

	stats := decode[model.StatsSnapshot](t, env.do(t, http.MethodGet, "/api/admin/stats", nil, nil))
	require.NotNil(t, stats.CurrentPDF)
	assert.Equal(t, "handbook.pdf", stats.CurrentPDF.Filename)
}

func TestUploadPDF_AliasRouteAndField(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.upload(t, "/api/admin/upload", "pdf", "Rules.PDF", []byte("%PDF"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Rules.PDF", decode[appsvc.UploadResult](t, rec).Filename)
}

func TestUploadPDF_Rejections(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.upload(t, "/api/admin/pdf", "", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file", decode[map[string]string](t, rec)["error"])

	rec = env.upload(t, "/api/admin/pdf", "file", "notes.txt", []byte("plain"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload(t, "/api/admin/pdf", "file", "huge.pdf", bytes.Repeat([]byte("a"), 2<<20), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, loaded := env.app.Knowledge.Current()
	assert.False(t, loaded)
}

func TestUploadPDF_ExtractionFailureKeepsPrevious(t *testing.T) {
	env := setupTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.upload(t, "/api/admin/pdf", "file", "v1.pdf", []byte("%PDF"), nil).Code)

	env.app.Extractor = fakeExtractor{err: errors.New("xref table broken")}
	env.router = NewRouter(env.app)

	rec := env.upload(t, "/api/admin/pdf", "file", "v2.pdf", []byte("%PDF"), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Failed to parse PDF", body["error"])
	assert.Contains(t, body["details"], "xref table broken")

	src, ok := env.app.Knowledge.Current()
	require.True(t, ok)
	assert.Equal(t, "v1.pdf", src.Filename)
}

func TestStats_Empty(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/admin/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	raw := decode[map[string]interface{}](t, rec)
	assert.EqualValues(t, 0, raw["totalSessions"])
	assert.EqualValues(t, 0, raw["unansweredQuestions"])
	assert.Nil(t, raw["currentPdf"])
	assert.Equal(t, []interface{}{}, raw["topics"])
	assert.Equal(t, []interface{}{}, raw["recentSessions"])
	assert.NotEmpty(t, raw["lastUpdate"])
}

func TestAdminAuth(t *testing.T) {
	hash, err := appsvc.HashPassword("front-desk")
	require.NoError(t, err)
	env := setupTestEnv(t, func(cfg *config.Config) {
		cfg.Auth.AdminPasswordHash = hash
		cfg.Auth.JWTSecret = "test-secret"
	})

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/admin/stats", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/admin/stats", nil, map[string]string{"Authorization": "Bearer nope"}).Code)
	assert.Equal(t, http.StatusUnauthorized, env.upload(t, "/api/admin/pdf", "file", "a.pdf", []byte("%PDF"), nil).Code)

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"password": "front-desk"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[appsvc.AuthResult](t, rec)
	require.NotEmpty(t, login.Token)

	auth := map[string]string{"Authorization": "Bearer " + login.Token}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/stats", nil, auth).Code)
	assert.Equal(t, http.StatusOK, env.upload(t, "/api/admin/pdf", "file", "a.pdf", []byte("%PDF"), auth).Code)

	// guest routes stay open
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/chat/history", nil, nil).Code)
}

func TestAdminLogin_DisabledWithoutPassword(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"password": "anything"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "webhook", body["workflow_mode"])
	assert.Equal(t, false, body["knowledge_loaded"])
	assert.Equal(t, map[string]interface{}{}, body["dependencies"])
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(t, http.MethodOptions, "/api/chat/message", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
