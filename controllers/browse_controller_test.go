package controllers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/qalite/controllers"
	"github.com/cppla/qalite/models"
	"github.com/cppla/qalite/store"
	"github.com/cppla/qalite/utils"
)

func seedQuestions(t *testing.T, st *store.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		q := models.Question{
			QuestionID: fmt.Sprintf("q%02d", i),
			UserID:     "u1",
			Title:      fmt.Sprintf("question %d", i),
			Body:       "body",
			Tags:       []string{},
			CreatedAt:  epoch.Add(time.Duration(i) * time.Minute).Format(controllers.TimeLayout),
		}
		require.NoError(t, st.Questions.Put(context.Background(), &q))
	}
}

func TestBrowseLatest(t *testing.T) {
	st := store.NewMemory()
	seedQuestions(t, st, 25)
	svc := controllers.NewBrowseController(st, testOptions("b")...)

	resp := call(t, svc, http.MethodGet, "/browse/latest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]models.Question](t, resp)
	require.Len(t, got, controllers.LatestLimit)
	assert.Equal(t, "q24", got[0].QuestionID)
	assert.Equal(t, "q05", got[len(got)-1].QuestionID)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].CreatedAt, got[i].CreatedAt)
	}
}

func TestBrowseEmpty(t *testing.T) {
	svc := controllers.NewBrowseController(store.NewMemory(), testOptions("b")...)
	for _, path := range []string{"/browse/latest", "/browse/top"} {
		resp := call(t, svc, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "[]", resp.Body)
	}
}

func TestBrowseTop(t *testing.T) {
	st := store.NewMemory()
	seedQuestions(t, st, 25)
	ctx := context.Background()
	require.NoError(t, st.Questions.Increment(ctx, "q03", 10))
	require.NoError(t, st.Questions.Increment(ctx, "q07", 2))
	require.NoError(t, st.Questions.Increment(ctx, "q01", 2))
	require.NoError(t, st.Questions.Increment(ctx, "q00", -4))
	svc := controllers.NewBrowseController(st, testOptions("b")...)

	got := decode[[]models.Question](t, call(t, svc, http.MethodGet, "/browse/top", "", nil))
	require.Len(t, got, controllers.TopLimit)
	assert.Equal(t, "q03", got[0].QuestionID)
	assert.Equal(t, int64(10), got[0].VoteCount)
	assert.ElementsMatch(t, []string{"q01", "q07"}, questionIDs(got[1:3]))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].VoteCount, got[i].VoteCount)
	}
	assert.NotContains(t, questionIDs(got), "q00")
}

func TestBrowseSearch(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	for _, q := range []models.Question{
		{QuestionID: "q1", Title: "Goroutine leaks", Body: "how to find them", CreatedAt: "2024-01-01T00:00:03.000000Z"},
		{QuestionID: "q2", Title: "SQL indexes", Body: "When is a GOROUTINE pool useful?", CreatedAt: "2024-01-01T00:00:01.000000Z"},
		{QuestionID: "q3", Title: "Redis", Body: "pipelines", CreatedAt: "2024-01-01T00:00:02.000000Z"},
	} {
		q := q
		require.NoError(t, st.Questions.Put(ctx, &q))
	}
	svc := controllers.NewBrowseController(st, testOptions("b")...)

	resp := call(t, svc, http.MethodGet, "/browse/search", "", map[string]string{"q": "  GoRoutine "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]models.Question](t, resp)
	// scan order, not recency
	assert.Equal(t, []string{"q1", "q2"}, questionIDs(got))
	assert.Equal(t, []string{}, got[0].Tags)

	miss := call(t, svc, http.MethodGet, "/browse/search", "", map[string]string{"q": "kafka"})
	assert.Equal(t, "[]", miss.Body)
}

func TestBrowseSearchRequiresQuery(t *testing.T) {
	svc := controllers.NewBrowseController(store.NewMemory(), testOptions("b")...)
	for _, query := range []map[string]string{nil, {"q": ""}, {"q": "   "}} {
		resp := call(t, svc, http.MethodGet, "/browse/search", "", query)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "q parameter required", message(t, resp))
	}
}

func TestBrowseSearchCap(t *testing.T) {
	st := store.NewMemory()
	seedQuestions(t, st, 60)
	svc := controllers.NewBrowseController(st, testOptions("b")...)

	got := decode[[]models.Question](t, call(t, svc, http.MethodGet, "/browse/search", "", map[string]string{"q": "question"}))
	assert.Len(t, got, controllers.SearchLimit)
	assert.Equal(t, "q00", got[0].QuestionID)
}

func TestBrowseServiceNotFound(t *testing.T) {
	svc := controllers.NewBrowseController(store.NewMemory(), testOptions("b")...)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/browse"},
		{http.MethodPost, "/browse/latest"},
		{http.MethodGet, "/browse/oldest"},
	} {
		resp := call(t, svc, r.method, r.path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not found in browse service", message(t, resp))
	}
}

func TestBrowseCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := utils.NewCache(rdb, time.Minute, zap.NewNop())

	st := store.NewMemory()
	seedQuestions(t, st, 2)
	browse := controllers.NewBrowseController(st, testOptions("b", controllers.WithCache(cache))...)
	questions := controllers.NewQuestionController(st, testOptions("q", controllers.WithCache(cache))...)

	first := call(t, browse, http.MethodGet, "/browse/latest", "", nil)
	assert.True(t, mr.Exists(controllers.BrowseCachePrefix+"latest"))

	// a write that bypasses the services is not seen until the entry expires
	seedQuestions(t, st, 3)
	cached := call(t, browse, http.MethodGet, "/browse/latest", "", nil)
	assert.Equal(t, first.Body, cached.Body)

	call(t, browse, http.MethodGet, "/browse/top", "", nil)
	assert.True(t, mr.Exists(controllers.BrowseCachePrefix+"top"))

	createQuestion(t, questions, "u1", "fresh", "body")
	assert.False(t, mr.Exists(controllers.BrowseCachePrefix+"latest"))
	assert.False(t, mr.Exists(controllers.BrowseCachePrefix+"top"))

	fresh := decode[[]models.Question](t, call(t, browse, http.MethodGet, "/browse/latest", "", nil))
	assert.Len(t, fresh, 4)
}

func TestBrowseTopOrdersByVotes(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	for id, votes := range map[string]int64{"a": 5, "b": 1, "c": 9} {
		q := models.Question{QuestionID: id, Tags: []string{}, VoteCount: votes}
		require.NoError(t, st.Questions.Put(ctx, &q))
	}
	svc := controllers.NewBrowseController(st, testOptions("b")...)

	got := decode[[]models.Question](t, call(t, svc, http.MethodGet, "/browse/top", "", nil))
	counts := []int64{}
	for _, q := range got {
		counts = append(counts, q.VoteCount)
	}
	assert.Equal(t, []int64{9, 5, 1}, counts)
}

func TestBrowseSearchIsCaseInsensitive(t *testing.T) {
	st := store.NewMemory()
	questions := controllers.NewQuestionController(st, testOptions("q")...)
	rust := createQuestion(t, questions, "u1", "Learning rust basics", "ownership")
	createQuestion(t, questions, "u1", "Learning Go", "goroutines")
	svc := controllers.NewBrowseController(st, testOptions("b")...)

	got := decode[[]models.Question](t, call(t, svc, http.MethodGet, "/browse/search", "", map[string]string{"q": "Rust"}))
	assert.Equal(t, []string{rust.QuestionID}, questionIDs(got))
}
