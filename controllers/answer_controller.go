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

// AnswerController serves answers, both under /questions/{id}/answers and
// /answers.
type AnswerController struct {
	base
}

type createAnswerRequest struct {
	UserID string `json:"userId" validate:"required"`
	Body   string `json:"body" validate:"required"`
}

// NewAnswerController creates an AnswerController over st.
func NewAnswerController(st *store.Store, opts ...Option) *AnswerController {
	c := &AnswerController{base: newBase("answer", st, opts)}
	c.routes = router.New(
		router.Route{Method: http.MethodPost, Pattern: "/questions/{id}/answers", Handler: c.CreateAnswer},
		router.Route{Method: http.MethodGet, Pattern: "/questions/{id}/answers", Handler: c.ListAnswers},
		router.Route{Method: http.MethodPost, Pattern: "/answers/{id}/vote", Handler: c.VoteAnswer},
	)
	return c
}

// CreateAnswer stores an answer to the question in the path. The question
// is not required to exist.
func (c *AnswerController) CreateAnswer(ctx context.Context, req *utils.Request, params router.Params) (*utils.Response, error) {
	var payload createAnswerRequest
	if resp := c.decodeBody(req.Body, &payload, "userId and body are required"); resp != nil {
		return resp, nil
	}

	answer := models.Answer{
		AnswerID:   c.newID(),
		QuestionID: params.Get("id"),
		UserID:     payload.UserID,
		Body:       payload.Body,
		CreatedAt:  c.timestamp(),
		VoteCount:  0,
	}
	if err := c.store.Answers.Put(ctx, &answer); err != nil {
		return nil, err
	}

	c.publish(ctx, events.AnswerCreated, answer)
	return utils.Respond(http.StatusCreated, answer), nil
}

// ListAnswers returns the question's answers through the questionId index,
// newest first.
func (c *AnswerController) ListAnswers(ctx context.Context, _ *utils.Request, params router.Params) (*utils.Response, error) {
	rows, err := c.store.Answers.Query(ctx, store.IndexQuestionID, params.Get("id"))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Answer{}
	}
	newestFirst(rows, func(a *models.Answer) string { return a.CreatedAt })
	return utils.Respond(http.StatusOK, rows), nil
}

// VoteAnswer adds the request's delta to the answer's vote count.
func (c *AnswerController) VoteAnswer(ctx context.Context, req *utils.Request, params router.Params) (*utils.Response, error) {
	id := params.Get("id")
	delta := votes.ParseDelta(req.Body)
	answer, err := votes.Apply(ctx, c.store.Answers, id, delta)
	if errors.Is(err, store.ErrNotFound) {
		return utils.Message(http.StatusNotFound, "Answer not found"), nil
	}
	if err != nil {
		c.log.Errorw("vote failed", "answerId", id, "delta", delta, "error", err)
		return utils.Error(http.StatusInternalServerError, "Failed to vote", err), nil
	}

	c.publish(ctx, events.AnswerVoted, voteEvent{ID: id, Delta: delta, VoteCount: answer.VoteCount})
	return utils.Respond(http.StatusOK, answer), nil
}
