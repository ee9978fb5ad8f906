package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/qalite/config"
	"github.com/cppla/qalite/controllers"
	"github.com/cppla/qalite/models"
	"github.com/cppla/qalite/store"
	"github.com/cppla/qalite/utils"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		App: config.AppSection{Port: "0", AllowedOrigins: []string{"*"}},
		Gin: config.GinSection{Mode: "test"},
	}
}

func newGateway(st *store.Store) http.Handler {
	return SetupRouter(testConfig(), Services{
		Questions: controllers.NewQuestionController(st),
		Answers:   controllers.NewAnswerController(st),
		Users:     controllers.NewUserController(st),
		Browse:    controllers.NewBrowseController(st),
	}, zap.NewNop())
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newGateway(store.NewMemory()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestBoardFlow(t *testing.T) {
	h := newGateway(store.NewMemory())

	w := do(h, http.MethodPost, "/users", `{"username":"alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))

	w = do(h, http.MethodPost, "/questions", `{"userId":"`+user.UserID+`","title":"Channels?","body":"buffered or not","tags":["go"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var q models.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))

	w = do(h, http.MethodPost, "/questions/"+q.QuestionID+"/answers", `{"userId":"`+user.UserID+`","body":"depends"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var a models.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))

	w = do(h, http.MethodGet, "/questions/"+q.QuestionID+"/answers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var answers []models.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answers))
	require.Len(t, answers, 1)
	assert.Equal(t, a.AnswerID, answers[0].AnswerID)

	w = do(h, http.MethodPost, "/answers/"+a.AnswerID+"/vote", `{"delta":-1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"voteCount":-1`)

	w = do(h, http.MethodPost, "/questions/"+q.QuestionID+"/vote", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, http.MethodGet, "/browse/top", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"voteCount":1`)

	w = do(h, http.MethodGet, "/browse/search?q=CHANNELS", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), q.QuestionID)

	w = do(h, http.MethodGet, "/questions?tag=go", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), q.QuestionID)
}

func TestDispatchByPrefix(t *testing.T) {
	h := newGateway(store.NewMemory())

	tests := []struct {
		method, path string
		status       int
		message      string
	}{
		{http.MethodGet, "/questions/x/answers/extra", http.StatusNotFound, "Not found in question service"},
		{http.MethodDelete, "/answers/a1", http.StatusNotFound, "Not found in answer service"},
		{http.MethodGet, "/users", http.StatusNotFound, "Not found in user service"},
		{http.MethodGet, "/browse", http.StatusNotFound, "Not found in browse service"},
		{http.MethodGet, "/", http.StatusNotFound, "Not found"},
		{http.MethodGet, "/tags", http.StatusNotFound, "Not found"},
		{http.MethodGet, "/questionsx", http.StatusNotFound, "Not found"},
		{http.MethodGet, "/users/missing", http.StatusNotFound, "User not found"},
		{http.MethodGet, "/browse/search", http.StatusBadRequest, "q parameter required"},
	}
	for _, tt := range tests {
		w := do(h, tt.method, tt.path, "")
		assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.message, body["message"], "%s %s", tt.method, tt.path)
	}
}

func TestServiceForAnswersUnderQuestions(t *testing.T) {
	svc := Services{
		Questions: controllers.NewQuestionController(store.NewMemory()),
		Answers:   controllers.NewAnswerController(store.NewMemory()),
	}
	assert.Same(t, svc.Answers, serviceFor(svc, "/questions/q1/answers"))
	assert.Same(t, svc.Questions, serviceFor(svc, "/questions/q1"))
	assert.Same(t, svc.Questions, serviceFor(svc, "/questions/q1/vote"))
	assert.Nil(t, serviceFor(svc, "/"))
}

type failingService struct{}

func (failingService) Handle(context.Context, *utils.Request) (*utils.Response, error) {
	return nil, errors.New("storage unavailable: scan questions")
}

func TestServiceErrorIsInternalServerError(t *testing.T) {
	h := SetupRouter(testConfig(), Services{Questions: failingService{}}, zap.NewNop())
	w := do(h, http.MethodGet, "/questions", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "scan")
}

func TestCORSPreflight(t *testing.T) {
	h := newGateway(store.NewMemory())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/questions", nil)
	req.Header.Set("Origin", "https://board.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.App.AllowedOrigins = []string{"https://board.example"}
	h := SetupRouter(cfg, Services{Users: controllers.NewUserController(store.NewMemory())}, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Origin", "https://board.example")
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"https://board.example"}, w.Header().Values("Access-Control-Allow-Origin"))

	// no Origin header: the middleware adds nothing and neither does the envelope
	w = do(h, http.MethodPost, "/users", `{"username":"bob"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"eve"}`))
	req.Header.Set("Origin", "https://evil.example")
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSAllowAllKeepsSingleHeader(t *testing.T) {
	h := newGateway(store.NewMemory())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/questions", nil)
	req.Header.Set("Origin", "https://board.example")
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"*"}, w.Header().Values("Access-Control-Allow-Origin"))
}
