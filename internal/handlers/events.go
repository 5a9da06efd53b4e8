package handlers

import (
	"net/http"
	"strings"
	"time"

	"enclosure-monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeOrder  = "'from' must be <= 'to'"
	errListEvents  = "failed to load events"

	layoutDate = "2006-01-02"
)

// Accepted query time layouts, most specific first.
var queryTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", layoutDate}

// @Summary      List journal events
// @Description  Filter events by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         events
// @Produce      json
// @Param        from  query   string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"  example(2026-08-01)
// @Param        to    query   string  false  "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day."  example(2026-08-31)
// @Param        type  query   string  false  "Event type"  Enums(TRANSITION,COMMAND,SENSOR_ERROR,BUS)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/events [get]
func (h *Handler) getEvents(c *gin.Context) {
	from, ok := h.queryTime(c, "from", errFromInvalid, false)
	if !ok {
		return
	}
	to, ok := h.queryTime(c, "to", errToInvalid, true)
	if !ok {
		return
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRangeOrder})
		return
	}
	eventType := strings.ToUpper(strings.TrimSpace(c.Query("type")))

	events, err := h.services.EventLog.List(c.Request.Context(), service.LogFilter{
		From: from,
		To:   to,
		Type: eventType,
	})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListEvents, "events_list_failed",
			err, "from", from, "to", to, "type", eventType)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// queryTime parses the optional time parameter name. A date-only value used
// as an upper bound covers its whole day. On a malformed value the 400 is
// written here and ok is false.
func (h *Handler) queryTime(c *gin.Context, name, invalidMsg string, endOfDay bool) (t time.Time, ok bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	for _, layout := range queryTimeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if endOfDay && layout == layoutDate {
			parsed = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		return parsed.UTC(), true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": invalidMsg})
	return time.Time{}, false
}
