package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/supportline/internal/chat"
	"github.com/zulandar/supportline/internal/models"
	"github.com/zulandar/supportline/internal/orchestrator"
)

// senderFields is the sender triple shared by create and send requests.
type senderFields struct {
	SenderType    string `json:"senderType"`
	SenderID      *uint  `json:"senderId"`
	GuestSenderID string `json:"guestSenderId"`
}

func (f senderFields) sender() (models.Sender, error) {
	return models.NewSender(models.SenderType(f.SenderType), f.SenderID, strings.TrimSpace(f.GuestSenderID))
}

type createChatRequest struct {
	UserID      *uint  `json:"userId"`
	AffiliateID *uint  `json:"affiliateId"`
	GuestID     string `json:"guestId"`
	OperatorID  *uint  `json:"operatorId"`
	senderFields
	Content       string `json:"content"`
	AttachmentURL string `json:"attachmentUrl"`
	Reuse         bool   `json:"reuse"`
}

type sendMessageRequest struct {
	senderFields
	Content       string `json:"content"`
	AttachmentURL string `json:"attachmentUrl"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type assignOperatorRequest struct {
	OperatorID uint `json:"operatorId"`
}

type markReadRequest struct {
	SenderType string `json:"senderType"`
}

func (s *Server) handleCreateChat(c *gin.Context) {
	var req createChatRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	cp, err := models.NewCounterparty(req.UserID, req.AffiliateID, strings.TrimSpace(req.GuestID))
	if err != nil {
		fail(c, err)
		return
	}
	in := orchestrator.CreateChatInput{
		Counterparty:  cp,
		OperatorID:    req.OperatorID,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
		Reuse:         req.Reuse,
	}
	if req.SenderType != "" {
		if in.Sender, err = req.sender(); err != nil {
			fail(c, err)
			return
		}
	}

	created, err := s.orch.CreateChat(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "chat created", created)
}

func (s *Server) handleListChats(c *gin.Context) {
	var class models.ChatKind
	if raw := c.Query("class"); raw != "" {
		k, err := models.ParseChatKind(raw)
		if err != nil {
			fail(c, err)
			return
		}
		class = k
	}
	summaries, err := s.orch.ListChats(c.Request.Context(), class, strings.TrimSpace(c.Query("search")))
	if err != nil {
		fail(c, err)
		return
	}
	if summaries == nil {
		summaries = []chat.Summary{}
	}
	respond(c, http.StatusOK, "ok", summaries)
}

func (s *Server) handleGetChat(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	d, err := s.orch.GetChat(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", d)
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.orch.DeleteChat(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "chat deleted", nil)
}

func (s *Server) handleSendMessage(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req sendMessageRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	sender, err := req.sender()
	if err != nil {
		fail(c, err)
		return
	}
	m, err := s.orch.SendMessage(c.Request.Context(), orchestrator.SendMessageInput{
		ChatID:        id,
		Sender:        sender,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "message sent", m)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req updateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	status, err := models.ParseChatStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	updated, err := s.orch.UpdateChatStatus(c.Request.Context(), id, status)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "status updated", updated)
}

func (s *Server) handleAssignOperator(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req assignOperatorRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	updated, err := s.orch.AssignOperator(c.Request.Context(), id, req.OperatorID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "operator assigned", updated)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req markReadRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	n, err := s.orch.MarkRead(c.Request.Context(), id, models.SenderType(req.SenderType))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "messages marked read", gin.H{"updated": n})
}

func (s *Server) handleUserChats(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	s.respondChats(c)(chat.ListByUser(c.Request.Context(), s.db, id))
}

func (s *Server) handleAffiliateChats(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	s.respondChats(c)(chat.ListByAffiliate(c.Request.Context(), s.db, id))
}

func (s *Server) handleGuestChats(c *gin.Context) {
	s.respondChats(c)(chat.ListByGuest(c.Request.Context(), s.db, c.Param("id")))
}

func (s *Server) handleOperatorChats(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	s.respondChats(c)(chat.ListByOperator(c.Request.Context(), s.db, id))
}

func (s *Server) respondChats(c *gin.Context) func([]models.Chat, error) {
	return func(chats []models.Chat, err error) {
		if err != nil {
			fail(c, err)
			return
		}
		if chats == nil {
			chats = []models.Chat{}
		}
		respond(c, http.StatusOK, "ok", chats)
	}
}
