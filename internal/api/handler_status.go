package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/supportline/internal/unread"
)

// handleUnread always answers 200. Bad parameters and query failures come
// back with success false and zero counts carrying the error field.
func (s *Server) handleUnread(c *gin.Context) {
	actor, err := unread.ParseActor(c.Query("userId"), c.Query("guestId"), c.Query("operatorId"))
	if err != nil {
		respondUnread(c, unread.Counts{Error: err.Error()})
		return
	}
	respondUnread(c, s.unread.Count(c.Request.Context(), actor))
}

func respondUnread(c *gin.Context, counts unread.Counts) {
	if counts.Error != "" {
		c.JSON(http.StatusOK, envelope{Success: false, Message: counts.Error, Data: counts})
		return
	}
	respond(c, http.StatusOK, "ok", counts)
}

// handleHealth pings the database.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Message: err.Error(), Data: gin.H{"status": "unhealthy", "rooms": s.hub.Rooms()}})
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"status": "healthy", "rooms": s.hub.Rooms()})
}
