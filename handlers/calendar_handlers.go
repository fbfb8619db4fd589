package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"livewave/api/calendar"
	"livewave/api/models"
	"livewave/api/store"
)

type CalendarHandlers struct {
	Calendar CalendarRepository
}

func NewCalendarHandlers(repo CalendarRepository) *CalendarHandlers {
	return &CalendarHandlers{Calendar: repo}
}

// SaveEvent marks an event on the user's calendar, storing the artist and
// event on first sight.
func (h *CalendarHandlers) SaveEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.SaveEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Event.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event.id is required"})
		return
	}

	eventID, err := h.Calendar.SaveEventForUser(c.Request.Context(), userID, req.Artist, req.Event)
	if errors.Is(err, store.ErrInvalidEvent) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event", "details": err.Error()})
		return
	}
	if err != nil {
		log.Printf("ERROR: Failed to save event %s for user %d: %v", req.Event.ID, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save event"})
		return
	}

	log.Printf("Event saved: user=%d event=%d (%s)", userID, eventID, req.Event.ID)
	c.JSON(http.StatusCreated, gin.H{"eventId": eventID})
}

func (h *CalendarHandlers) ListCalendar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.Calendar.ListUserEvents(c.Request.Context(), userID)
	if err != nil {
		log.Printf("ERROR: Failed to list calendar for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load calendar"})
		return
	}

	loc := calendar.MatchLocale(c.Query("locale"), c.GetHeader("Accept-Language"))
	c.JSON(http.StatusOK, calendar.BuildAgenda(entries, loc))
}

func (h *CalendarHandlers) RemoveEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	eventID, err := strconv.ParseInt(c.Param("eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	removed, err := h.Calendar.RemoveUserEvent(c.Request.Context(), userID, eventID)
	if err != nil {
		log.Printf("ERROR: Failed to remove event %d for user %d: %v", eventID, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove event"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not in calendar"})
		return
	}
	c.Status(http.StatusNoContent)
}
