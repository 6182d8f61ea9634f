package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/auth"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/presence"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/service"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/response"
)

// HTTPHandler exposes the REST surface the realtime subsystem
// collaborates with: conversations, messages, notifications, and a
// presence snapshot.
type HTTPHandler struct {
	chat          service.ChatService
	notifications service.NotificationService
	registry      *presence.Registry
	verifier      *auth.Verifier
}

// NewHTTPHandler creates the REST handler.
func NewHTTPHandler(chat service.ChatService, notifications service.NotificationService, registry *presence.Registry, verifier *auth.Verifier) *HTTPHandler {
	return &HTTPHandler{
		chat:          chat,
		notifications: notifications,
		registry:      registry,
		verifier:      verifier,
	}
}

// RegisterRoutes attaches all REST routes to the engine.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine, wsHandler http.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.GET("/ws", gin.WrapF(wsHandler))

	api := r.Group("/api", RequireAuth(h.verifier))
	{
		api.GET("/conversations", h.listPartners)
		api.GET("/messages/:peer", h.listMessages)
		api.POST("/messages/:peer", h.sendMessage)
		api.GET("/notifications", h.listNotifications)
		api.GET("/notifications/unread-count", h.unreadCount)
		api.POST("/notifications/:id/read", h.markRead)
		api.POST("/notifications/read-all", h.markAllRead)
		api.GET("/presence", h.listOnline)
	}
}

func (h *HTTPHandler) listPartners(c *gin.Context) {
	partners, err := h.chat.ListPartners(c.Request.Context(), currentUser(c))
	if err != nil {
		response.InternalError(c, "failed to list conversations")
		return
	}
	response.Success(c, gin.H{"partners": partners})
}

func (h *HTTPHandler) listMessages(c *gin.Context) {
	limit, before, ok := pageParams(c)
	if !ok {
		return
	}

	messages, err := h.chat.ListConversation(c.Request.Context(), currentUser(c), c.Param("peer"), limit, before)
	if err != nil {
		response.InternalError(c, "failed to list messages")
		return
	}
	response.Success(c, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	Text     string `json:"text"`
	ImageRef string `json:"image_ref"`
}

func (h *HTTPHandler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), currentUser(c), c.Param("peer"), req.Text, req.ImageRef)
	switch {
	case errors.Is(err, domain.ErrInvalidRecipient), errors.Is(err, domain.ErrEmptyMessage):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, "failed to send message")
	default:
		response.Created(c, msg)
	}
}

func (h *HTTPHandler) listNotifications(c *gin.Context) {
	limit, before, ok := pageParams(c)
	if !ok {
		return
	}

	notifications, err := h.notifications.List(c.Request.Context(), currentUser(c), limit, before)
	if err != nil {
		response.InternalError(c, "failed to list notifications")
		return
	}
	response.Success(c, gin.H{"notifications": notifications})
}

func (h *HTTPHandler) unreadCount(c *gin.Context) {
	count, err := h.notifications.CountUnread(c.Request.Context(), currentUser(c))
	if err != nil {
		response.InternalError(c, "failed to count unread notifications")
		return
	}
	response.Success(c, gin.H{"unread": count})
}

func (h *HTTPHandler) markRead(c *gin.Context) {
	err := h.notifications.MarkRead(c.Request.Context(), currentUser(c), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, "notification not found")
	case err != nil:
		response.InternalError(c, "failed to mark notification read")
	default:
		response.Success(c, nil)
	}
}

func (h *HTTPHandler) markAllRead(c *gin.Context) {
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		response.InternalError(c, "failed to mark notifications read")
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

func (h *HTTPHandler) listOnline(c *gin.Context) {
	response.Success(c, gin.H{"online": h.registry.Identities()})
}

// pageParams parses optional `limit` and `before` query parameters.
func pageParams(c *gin.Context) (int64, time.Time, bool) {
	var (
		limit  int64
		before time.Time
	)

	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			response.BadRequest(c, "invalid limit")
			return 0, time.Time{}, false
		}
		limit = v
	}

	if raw := c.Query("before"); raw != "" {
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(c, "invalid before timestamp")
			return 0, time.Time{}, false
		}
		before = v
	}

	return limit, before, true
}
