package controllers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/cppla/qalite/models"
	"github.com/cppla/qalite/router"
	"github.com/cppla/qalite/store"
	"github.com/cppla/qalite/utils"
)

// Result caps.
const (
	LatestLimit = 20
	TopLimit    = 20
	SearchLimit = 50
)

// BrowseController serves the read-only discovery endpoints under /browse.
type BrowseController struct {
	base
}

// NewBrowseController creates a BrowseController over st.
func NewBrowseController(st *store.Store, opts ...Option) *BrowseController {
	c := &BrowseController{base: newBase("browse", st, opts)}
	c.routes = router.New(
		router.Route{Method: http.MethodGet, Pattern: "/browse/latest", Handler: c.Latest},
		router.Route{Method: http.MethodGet, Pattern: "/browse/top", Handler: c.Top},
		router.Route{Method: http.MethodGet, Pattern: "/browse/search", Handler: c.Search},
	)
	return c
}

// Latest returns the newest questions.
func (c *BrowseController) Latest(ctx context.Context, _ *utils.Request, _ router.Params) (*utils.Response, error) {
	return c.cached(ctx, "latest", func(items []models.Question) []models.Question {
		newestFirst(items, func(q *models.Question) string { return q.CreatedAt })
		return limit(items, LatestLimit)
	})
}

// Top returns the most voted questions. Ties keep scan order.
func (c *BrowseController) Top(ctx context.Context, _ *utils.Request, _ router.Params) (*utils.Response, error) {
	return c.cached(ctx, "top", func(items []models.Question) []models.Question {
		sort.SliceStable(items, func(i, j int) bool { return items[i].VoteCount > items[j].VoteCount })
		return limit(items, TopLimit)
	})
}

// Search returns questions whose title or body contains ?q=, case
// insensitively, in scan order.
func (c *BrowseController) Search(ctx context.Context, req *utils.Request, _ router.Params) (*utils.Response, error) {
	keyword := strings.ToLower(strings.TrimSpace(req.QueryParam("q")))
	if keyword == "" {
		return utils.Message(http.StatusBadRequest, "q parameter required"), nil
	}

	items, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	hits := make([]models.Question, 0)
	for _, q := range items {
		if strings.Contains(strings.ToLower(q.Title), keyword) || strings.Contains(strings.ToLower(q.Body), keyword) {
			hits = append(hits, q)
			if len(hits) == SearchLimit {
				break
			}
		}
	}
	return utils.Respond(http.StatusOK, hits), nil
}

// cached serves a ranking from the browse cache, computing and storing it on
// a miss.
func (c *BrowseController) cached(ctx context.Context, name string, rank func([]models.Question) []models.Question) (*utils.Response, error) {
	key := BrowseCachePrefix + name
	if b, ok := c.cache.GetBytes(ctx, key); ok {
		return &utils.Response{StatusCode: http.StatusOK, Headers: utils.DefaultHeaders(), Body: string(b)}, nil
	}

	items, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := utils.Respond(http.StatusOK, rank(items))
	if resp.StatusCode == http.StatusOK {
		c.cache.SetBytes(ctx, key, []byte(resp.Body))
	}
	return resp, nil
}

func (c *BrowseController) loadAll(ctx context.Context) ([]models.Question, error) {
	items, err := c.store.Questions.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Question{}
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
