package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultStatsWindow = 7 * 24 * time.Hour
	statsTimeout       = 10 * time.Second
)

type StatsHandlers struct {
	Stats StatsReader
	now   func() time.Time
}

func NewStatsHandlers(stats StatsReader) *StatsHandlers {
	return &StatsHandlers{Stats: stats, now: time.Now}
}

// timeRange reads start and end as RFC3339, defaulting to the last seven
// days. It writes a 400 and returns false on bad input.
func (h *StatsHandlers) timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	end := h.now().UTC()
	start := end.Add(-defaultStatsWindow)

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &start}, {"end", &end}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid '" + p.name + "' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return time.Time{}, time.Time{}, false
		}
		*p.dst = t
	}

	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'end' must not be before 'start'"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *StatsHandlers) GetSearchCounts(c *gin.Context) {
	interval := c.DefaultQuery("interval", "Day")
	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	results, err := h.Stats.GetSearchCountsOverTime(ctx, interval, start, end)
	if err != nil {
		log.Printf("Error getting search counts over time: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve search statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetTopArtists(c *gin.Context) {
	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	results, err := h.Stats.GetTopArtists(ctx, start, end, limit)
	if err != nil {
		log.Printf("Error getting top artists: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top artists"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetIncompleteRate(c *gin.Context) {
	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()

	rate, err := h.Stats.GetIncompleteRate(ctx, start, end)
	if err != nil {
		log.Printf("Error getting incomplete search rate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incomplete search rate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"startDate":      start.Format(time.RFC3339),
		"endDate":        end.Format(time.RFC3339),
		"incompleteRate": rate,
	})
}
