package controllers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qalite/controllers"
	"github.com/cppla/qalite/events"
	"github.com/cppla/qalite/models"
	"github.com/cppla/qalite/utils"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// steppingClock returns epoch+1s, epoch+2s, ... on successive calls.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return epoch.Add(time.Duration(n) * time.Second)
	}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testOptions(prefix string, extra ...controllers.Option) []controllers.Option {
	return append([]controllers.Option{
		controllers.WithClock(steppingClock()),
		controllers.WithIDs(sequentialIDs(prefix)),
	}, extra...)
}

func call(t *testing.T, svc controllers.Service, method, path, body string, query map[string]string) *utils.Response {
	t.Helper()
	resp, err := svc.Handle(context.Background(), &utils.Request{Method: method, Path: path, Body: body, Query: query})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	return resp
}

func decode[T any](t *testing.T, resp *utils.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	return out
}

func message(t *testing.T, resp *utils.Response) string {
	t.Helper()
	return decode[map[string]string](t, resp)["message"]
}

func createQuestion(t *testing.T, svc controllers.Service, userID, title, body string, tags ...string) models.Question {
	t.Helper()
	payload := map[string]interface{}{"userId": userID, "title": title, "body": body}
	if tags != nil {
		payload["tags"] = tags
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	resp := call(t, svc, http.MethodPost, "/questions", string(raw), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	return decode[models.Question](t, resp)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// mockTable is a store.Table whose behaviour is scripted with testify/mock.
type mockTable[T any] struct {
	mock.Mock
}

func (m *mockTable[T]) Put(_ context.Context, rec *T) error {
	return m.Called(rec).Error(0)
}

func (m *mockTable[T]) Get(_ context.Context, key string) (*T, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *mockTable[T]) Scan(_ context.Context) ([]T, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *mockTable[T]) Query(_ context.Context, index, value string) ([]T, error) {
	args := m.Called(index, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *mockTable[T]) Increment(_ context.Context, key string, delta int64) error {
	return m.Called(key, delta).Error(0)
}

func bg() context.Context { return context.Background() }

func get(path string) *utils.Request {
	return &utils.Request{Method: http.MethodGet, Path: path}
}
