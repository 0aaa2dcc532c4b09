package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/supportline/internal/chat"
	"github.com/zulandar/supportline/internal/message"
	"github.com/zulandar/supportline/internal/models"
)

func (s *Server) handleChatMessages(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.requireChat(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	s.respondViews(c)(message.ListByChat(c.Request.Context(), s.db, id))
}

// handleChatUnread counts one chat's unread messages from a sender type.
func (s *Server) handleChatUnread(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.requireChat(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	senderType := models.SenderType(c.Query("senderType"))
	n, err := message.CountUnread(c.Request.Context(), s.db, id, senderType)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", gin.H{"chatId": id, "senderType": senderType, "unread": n})
}

func (s *Server) handleMessagesBySender(c *gin.Context) {
	t, err := models.ParseSenderType(c.Query("type"))
	if err != nil {
		fail(c, err)
		return
	}
	raw := strings.TrimSpace(c.Query("id"))
	var sender models.Sender
	switch t {
	case models.SenderGuest:
		sender, err = models.NewSender(t, nil, raw)
	case models.SenderSystem:
		sender = models.SystemSender{}
	default:
		var id *uint
		if id, err = queryID("id", raw); err == nil {
			sender, err = models.NewSender(t, id, "")
		}
	}
	if err != nil {
		fail(c, err)
		return
	}
	s.respondViews(c)(message.ListBySender(c.Request.Context(), s.db, sender))
}

func (s *Server) handleMessagesByCounterparty(c *gin.Context) {
	kind, err := models.ParseChatKind(c.Query("kind"))
	if err != nil {
		fail(c, err)
		return
	}
	raw := strings.TrimSpace(c.Query("id"))
	var cp models.Counterparty
	switch kind {
	case models.KindGuest:
		cp, err = models.NewCounterparty(nil, nil, raw)
	default:
		var id *uint
		if id, err = queryID("id", raw); err == nil {
			if kind == models.KindUser {
				cp, err = models.NewCounterparty(id, nil, "")
			} else {
				cp, err = models.NewCounterparty(nil, id, "")
			}
		}
	}
	if err != nil {
		fail(c, err)
		return
	}
	s.respondViews(c)(message.ListByCounterparty(c.Request.Context(), s.db, cp))
}

func (s *Server) respondViews(c *gin.Context) func([]message.View, error) {
	return func(views []message.View, err error) {
		if err != nil {
			fail(c, err)
			return
		}
		if views == nil {
			views = []message.View{}
		}
		respond(c, http.StatusOK, "ok", views)
	}
}

func (s *Server) requireChat(ctx context.Context, id uint) error {
	ok, err := chat.Exists(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}

func queryID(field, raw string) (*uint, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, models.NewValidationError(field, "positive integer required")
	}
	id := uint(n)
	return &id, nil
}
