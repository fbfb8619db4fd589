package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livewave/api/middleware"
	"livewave/api/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for AuthRequired.
func asUser(id int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Next()
	}
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []models.SearchEvent
}

func (f *fakeRecorder) InsertSearchEvents(_ context.Context, events []models.SearchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeRecorder) recorded() []models.SearchEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SearchEvent(nil), f.events...)
}

func TestCurrentUserIDWithoutUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if _, ok := currentUserID(c); ok {
			c.Status(http.StatusOK)
		}
	})
	rec := do(t, r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
