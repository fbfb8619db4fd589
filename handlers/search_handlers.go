package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"livewave/api/aggregator"
	"livewave/api/filters"
	"livewave/api/models"
	"livewave/api/search"
)

const (
	minSuggestLength = 2
	suggestTimeout   = 10 * time.Second
	recordTimeout    = 15 * time.Second
)

type SearchHandlers struct {
	Aggregator search.Aggregator
	Sessions   *search.Manager
	Suggester  Suggester
	Recorder   SearchRecorder

	suggest singleflight.Group
	now     func() time.Time
}

func NewSearchHandlers(agg search.Aggregator, sessions *search.Manager, suggester Suggester, recorder SearchRecorder) *SearchHandlers {
	return &SearchHandlers{
		Aggregator: agg,
		Sessions:   sessions,
		Suggester:  suggester,
		Recorder:   recorder,
		now:        time.Now,
	}
}

// Suggest returns artists matching the keyword prefix. Identical lookups in
// flight are answered by a single upstream call.
func (h *SearchHandlers) Suggest(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if len([]rune(keyword)) < minSuggestLength {
		c.JSON(http.StatusOK, []models.Artist{})
		return
	}

	key := strings.ToLower(keyword)
	// The shared call must outlive any single caller's request.
	ctx := context.WithoutCancel(c.Request.Context())
	v, err, _ := h.suggest.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, suggestTimeout)
		defer cancel()
		return h.Suggester.Suggest(ctx, keyword)
	})
	if err != nil {
		log.Printf("ERROR: artist suggestions for %q: %v", keyword, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch artist suggestions", "details": err.Error()})
		return
	}

	artists, _ := v.([]models.Artist)
	if artists == nil {
		artists = []models.Artist{}
	}
	c.JSON(http.StatusOK, artists)
}

// Events aggregates and filters in one request without touching the user's
// search session.
func (h *SearchHandlers) Events(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword query parameter is required"})
		return
	}

	state := filters.NewState()
	state.SelectCountry(c.DefaultQuery("country", filters.All))
	state.SelectCity(c.DefaultQuery("city", filters.All))

	started := h.now()
	res := h.Aggregator.Aggregate(c.Request.Context(), keyword)
	h.record(c.Request.Context(), userID, keyword, res, h.now().Sub(started))

	c.JSON(http.StatusOK, gin.H{
		"artist":     keyword,
		"incomplete": res.Incomplete,
		"reason":     res.Reason,
		"total":      len(res.Events),
		"countries":  filters.Countries(res.Events),
		"cities":     filters.Cities(res.Events, state.Country),
		"events":     filters.Filter(res.Events, state.Country, state.City),
		"filter":     state,
	})
}

func (h *SearchHandlers) StartSearch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	artist := strings.TrimSpace(req.Artist)
	if artist == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "artist is required"})
		return
	}

	started := h.now()
	view, res, err := h.Sessions.Run(c.Request.Context(), sessionKey(userID), artist, h.Aggregator)
	h.record(c.Request.Context(), userID, artist, res, h.now().Sub(started))
	if errors.Is(err, search.ErrSuperseded) {
		log.Printf("Search for %q by user %d superseded", artist, userID)
		c.JSON(http.StatusConflict, gin.H{"error": "Search superseded by a newer request"})
		return
	}
	if err != nil {
		log.Printf("ERROR: search for %q by user %d: %v", artist, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search events"})
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *SearchHandlers) GetSearch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	view, ok := h.Sessions.View(sessionKey(userID))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active search"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateFilter applies the country change first, so a request carrying both
// fields selects a city within the new country.
func (h *SearchHandlers) UpdateFilter(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Country == nil && req.City == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "country or city is required"})
		return
	}

	key := sessionKey(userID)
	var (
		view   search.View
		loaded = true
	)
	if req.Country != nil {
		view, loaded = h.Sessions.SelectCountry(key, *req.Country)
	}
	if loaded && req.City != nil {
		view, loaded = h.Sessions.SelectCity(key, *req.City)
	}
	if !loaded {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active search"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SearchHandlers) ClearSearch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	h.Sessions.Abandon(sessionKey(userID))
	c.Status(http.StatusNoContent)
}

// record stores one analytics row per aggregation. Failures are logged and
// never reach the client.
func (h *SearchHandlers) record(ctx context.Context, userID int, artist string, res aggregator.Result, elapsed time.Duration) {
	if h.Recorder == nil {
		return
	}
	ev := models.SearchEvent{
		EventID:    uuid.New().String(),
		UserID:     strconv.Itoa(userID),
		Artist:     artist,
		Timestamp:  h.now().UTC(),
		Requests:   uint32(res.Requests),
		Pages:      uint32(res.Pages),
		RawCount:   uint32(res.RawCount),
		EventCount: uint32(len(res.Events)),
		Incomplete: res.Incomplete,
		Reason:     res.Reason,
		DurationMs: elapsed.Milliseconds(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := h.Recorder.InsertSearchEvents(ctx, []models.SearchEvent{ev}); err != nil {
		log.Printf("ERROR: recording search for %q: %v", artist, err)
	}
}

func sessionKey(userID int) string {
	return strconv.Itoa(userID)
}
