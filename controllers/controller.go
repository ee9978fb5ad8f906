package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/qalite/events"
	"github.com/cppla/qalite/router"
	"github.com/cppla/qalite/store"
	"github.com/cppla/qalite/utils"
)

// TimeLayout is the createdAt format. It is fixed width, so createdAt values
// sort lexicographically in chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// BrowseCachePrefix namespaces cached browse results.
const BrowseCachePrefix = "cache:browse:"

// Service handles one request routed to it by the gateway. A non-nil error
// means storage failed outside a vote; every client error is a Response.
type Service interface {
	Handle(ctx context.Context, req *utils.Request) (*utils.Response, error)
}

// Option customizes a controller.
type Option func(*base)

// WithClock overrides the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithIDs overrides record id generation.
func WithIDs(newID func() string) Option {
	return func(b *base) { b.newID = newID }
}

// WithEvents sets the publisher notified after writes.
func WithEvents(p events.Publisher) Option {
	return func(b *base) {
		if p != nil {
			b.events = p
		}
	}
}

// WithCache enables the browse cache (nil disables it).
func WithCache(c *utils.Cache) Option {
	return func(b *base) { b.cache = c }
}

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l.Sugar()
		}
	}
}

// base carries what every service shares: its route table and injected
// collaborators.
type base struct {
	name     string
	routes   *router.Router
	store    *store.Store
	events   events.Publisher
	cache    *utils.Cache
	log      *zap.SugaredLogger
	now      func() time.Time
	newID    func() string
	validate *validator.Validate
}

func newBase(name string, st *store.Store, opts []Option) base {
	b := base{
		name:     name,
		store:    st,
		events:   events.Nop{},
		log:      zap.NewNop().Sugar(),
		now:      time.Now,
		newID:    uuid.NewString,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.log = b.log.With("service", name)
	return b
}

// Handle routes req to the matching operation.
func (b *base) Handle(ctx context.Context, req *utils.Request) (*utils.Response, error) {
	handler, params, err := b.routes.Match(req.Method, req.Path)
	if errors.Is(err, router.ErrNoRoute) {
		return utils.Message(http.StatusNotFound, fmt.Sprintf("Not found in %s service", b.name)), nil
	}
	if err != nil {
		return nil, err
	}
	return handler(ctx, req, params)
}

func (b *base) timestamp() string {
	return b.now().UTC().Format(TimeLayout)
}

// decodeBody parses a JSON request body into dst; an empty body reads as {}.
// It returns the 400 response to send, or nil on success.
func (b *base) decodeBody(body string, dst interface{}, requiredMsg string) *utils.Response {
	if body == "" {
		body = "{}"
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return utils.Message(http.StatusBadRequest, "Invalid JSON")
	}
	if err := b.validate.Struct(dst); err != nil {
		return utils.Message(http.StatusBadRequest, requiredMsg)
	}
	return nil
}

// publish sends an event and only logs a failure.
func (b *base) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := b.events.Publish(ctx, events.New(eventType, payload)); err != nil {
		b.log.Warnw("publish event failed", "type", eventType, "error", err)
	}
}

// voteEvent is the payload of question.voted and answer.voted.
type voteEvent struct {
	ID        string `json:"id"`
	Delta     int64  `json:"delta"`
	VoteCount int64  `json:"voteCount"`
}

// newestFirst sorts rows by createdAt descending.
func newestFirst[T any](rows []T, createdAt func(*T) string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return createdAt(&rows[i]) > createdAt(&rows[j])
	})
}
