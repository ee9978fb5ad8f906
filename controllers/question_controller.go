package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/cppla/qalite/events"
	"github.com/cppla/qalite/models"
	"github.com/cppla/qalite/router"
	"github.com/cppla/qalite/store"
	"github.com/cppla/qalite/utils"
	"github.com/cppla/qalite/votes"
)

// QuestionController serves /questions.
type QuestionController struct {
	base
}

type createQuestionRequest struct {
	UserID string   `json:"userId" validate:"required"`
	Title  string   `json:"title" validate:"required"`
	Body   string   `json:"body" validate:"required"`
	Tags   []string `json:"tags"`
}

// NewQuestionController creates a QuestionController over st.
func NewQuestionController(st *store.Store, opts ...Option) *QuestionController {
	c := &QuestionController{base: newBase("question", st, opts)}
	c.routes = router.New(
		router.Route{Method: http.MethodPost, Pattern: "/questions", Handler: c.CreateQuestion},
		router.Route{Method: http.MethodGet, Pattern: "/questions", Handler: c.ListQuestions},
		router.Route{Method: http.MethodGet, Pattern: "/questions/{id}", Handler: c.GetQuestion},
		router.Route{Method: http.MethodPost, Pattern: "/questions/{id}/vote", Handler: c.VoteQuestion},
	)
	return c
}

// CreateQuestion stores a new question with a zero vote count.
func (c *QuestionController) CreateQuestion(ctx context.Context, req *utils.Request, _ router.Params) (*utils.Response, error) {
	var payload createQuestionRequest
	if resp := c.decodeBody(req.Body, &payload, "userId, title, body are required"); resp != nil {
		return resp, nil
	}

	question := models.Question{
		QuestionID: c.newID(),
		UserID:     payload.UserID,
		Title:      payload.Title,
		Body:       payload.Body,
		Tags:       payload.Tags,
		CreatedAt:  c.timestamp(),
		VoteCount:  0,
	}
	question.Normalize()
	if err := c.store.Questions.Put(ctx, &question); err != nil {
		return nil, err
	}

	c.cache.InvalidateByPrefix(ctx, BrowseCachePrefix)
	c.publish(ctx, events.QuestionCreated, question)
	return utils.Respond(http.StatusCreated, question), nil
}

// ListQuestions returns every question, newest first, optionally only those
// carrying ?tag= exactly.
func (c *QuestionController) ListQuestions(ctx context.Context, req *utils.Request, _ router.Params) (*utils.Response, error) {
	rows, err := c.store.Questions.Scan(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Question, 0, len(rows))
	tag := req.QueryParam("tag")
	for i := range rows {
		if tag != "" && !rows[i].HasTag(tag) {
			continue
		}
		rows[i].Normalize()
		items = append(items, rows[i])
	}
	newestFirst(items, func(q *models.Question) string { return q.CreatedAt })
	return utils.Respond(http.StatusOK, items), nil
}

// GetQuestion returns one question.
func (c *QuestionController) GetQuestion(ctx context.Context, _ *utils.Request, params router.Params) (*utils.Response, error) {
	question, err := c.store.Questions.Get(ctx, params.Get("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Message(http.StatusNotFound, "Question not found"), nil
		}
		return nil, err
	}
	question.Normalize()
	return utils.Respond(http.StatusOK, question), nil
}

// VoteQuestion adds the request's delta to the question's vote count.
func (c *QuestionController) VoteQuestion(ctx context.Context, req *utils.Request, params router.Params) (*utils.Response, error) {
	id := params.Get("id")
	delta := votes.ParseDelta(req.Body)
	question, err := votes.Apply(ctx, c.store.Questions, id, delta)
	if errors.Is(err, store.ErrNotFound) {
		return utils.Message(http.StatusNotFound, "Question not found"), nil
	}
	if err != nil {
		c.log.Errorw("vote failed", "questionId", id, "delta", delta, "error", err)
		return utils.Error(http.StatusInternalServerError, "Failed to vote", err), nil
	}
	question.Normalize()

	c.cache.InvalidateByPrefix(ctx, BrowseCachePrefix)
	c.publish(ctx, events.QuestionVoted, voteEvent{ID: id, Delta: delta, VoteCount: question.VoteCount})
	return utils.Respond(http.StatusOK, question), nil
}
