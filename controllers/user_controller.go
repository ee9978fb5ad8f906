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
)

// UserController serves /users.
type UserController struct {
	base
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"`
}

// NewUserController creates a UserController over st.
func NewUserController(st *store.Store, opts ...Option) *UserController {
	c := &UserController{base: newBase("user", st, opts)}
	c.routes = router.New(
		router.Route{Method: http.MethodPost, Pattern: "/users", Handler: c.CreateUser},
		router.Route{Method: http.MethodGet, Pattern: "/users/{id}", Handler: c.GetUser},
	)
	return c
}

// CreateUser registers a profile. Usernames and emails are not unique.
func (c *UserController) CreateUser(ctx context.Context, req *utils.Request, _ router.Params) (*utils.Response, error) {
	var payload createUserRequest
	if resp := c.decodeBody(req.Body, &payload, "username is required"); resp != nil {
		return resp, nil
	}

	user := models.User{
		UserID:    c.newID(),
		Username:  payload.Username,
		Email:     payload.Email,
		CreatedAt: c.timestamp(),
	}
	if err := c.store.Users.Put(ctx, &user); err != nil {
		return nil, err
	}

	c.publish(ctx, events.UserCreated, user)
	return utils.Respond(http.StatusCreated, user), nil
}

// GetUser returns one user.
func (c *UserController) GetUser(ctx context.Context, _ *utils.Request, params router.Params) (*utils.Response, error) {
	user, err := c.store.Users.Get(ctx, params.Get("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Message(http.StatusNotFound, "User not found"), nil
		}
		return nil, err
	}
	return utils.Respond(http.StatusOK, user), nil
}
