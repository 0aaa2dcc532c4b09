package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/supportline/internal/autoreply"
	"github.com/zulandar/supportline/internal/models"
)

type createAutoReplyRequest struct {
	Keyword      string `json:"keyword"`
	ReplyMessage string `json:"replyMessage"`
	IsActive     *bool  `json:"isActive"`
}

type updateAutoReplyRequest struct {
	ReplyMessage *string `json:"replyMessage"`
	IsActive     *bool   `json:"isActive"`
}

func (s *Server) handleListAutoReplies(c *gin.Context) {
	rows, err := autoreply.List(c.Request.Context(), s.db)
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []models.AutoReply{}
	}
	respond(c, http.StatusOK, "ok", rows)
}

func (s *Server) handleGetAutoReply(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ar, err := autoreply.Get(c.Request.Context(), s.db, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", ar)
}

func (s *Server) handleCreateAutoReply(c *gin.Context) {
	var req createAutoReplyRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	active := req.IsActive == nil || *req.IsActive
	ar, err := autoreply.Create(c.Request.Context(), s.db, req.Keyword, req.ReplyMessage, active)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "auto-reply created", ar)
}

func (s *Server) handleUpdateAutoReply(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req updateAutoReplyRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ar, err := autoreply.Apply(c.Request.Context(), s.db, id, autoreply.Update{
		ReplyMessage: req.ReplyMessage,
		IsActive:     req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "auto-reply updated", ar)
}

func (s *Server) handleDeleteAutoReply(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := autoreply.Delete(c.Request.Context(), s.db, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "auto-reply deleted", nil)
}
