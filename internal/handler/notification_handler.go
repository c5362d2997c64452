package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"comparte/internal/domain"
	"comparte/internal/middleware"
	"comparte/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifSvc *service.NotificationService
	chatSvc  *service.ChatService
}

func NewNotificationHandler(notifSvc *service.NotificationService, chatSvc *service.ChatService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc, chatSvc: chatSvc}
}

// ListMine returns the authenticated user's notifications, newest first.
func (h *NotificationHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	h.list(c, userID)
}

// ListForUser is the legacy polling endpoint keyed by path user id. The id in
// the path must match the token; clients with stale auth state send literal
// "undefined"/"null" here, which is a 400, not an empty list.
func (h *NotificationHandler) ListForUser(c *gin.Context) {
	userID, err := service.ParseUserID(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if userID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot read another user's notifications"})
		return
	}
	h.list(c, userID)
}

func (h *NotificationHandler) list(c *gin.Context, userID uint) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := h.notifSvc.ListForUser(userID, limit, offset)
	if err != nil {
		log.Printf("[notification] list failed: user=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkRead flips the read flag; repeat calls are no-ops.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, notifErr := parseNotificationID(c)
	if notifErr != nil {
		return
	}
	if err := h.notifSvc.MarkRead(id); err != nil {
		respondNotifError(c, err, "mark read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type AcceptRequestBody struct {
	Response string `json:"response" binding:"required,max=1000"`
}

// Accept accepts a contact request: provisions the conversation with its two
// seed messages and returns the chat id. Safe to retry.
func (h *NotificationHandler) Accept(c *gin.Context) {
	donorID := middleware.GetUserID(c)
	id, notifErr := parseNotificationID(c)
	if notifErr != nil {
		return
	}
	var body AcceptRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.chatSvc.AcceptRequest(donorID, id, body.Response)
	if err != nil {
		respondNotifError(c, err, "accept")
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": conv.ChatID})
}

// Reject declines a contact request; the notification is marked read and
// nothing else happens.
func (h *NotificationHandler) Reject(c *gin.Context) {
	donorID := middleware.GetUserID(c)
	id, notifErr := parseNotificationID(c)
	if notifErr != nil {
		return
	}
	if err := h.chatSvc.RejectRequest(donorID, id); err != nil {
		respondNotifError(c, err, "reject")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func parseNotificationID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func respondNotifError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("[notification] %s failed: err=%v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
