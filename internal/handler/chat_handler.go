package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"comparte/config"
	"comparte/internal/domain"
	"comparte/internal/middleware"
	"comparte/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	cfg *config.Config
	svc *service.ChatService
}

func NewChatHandler(cfg *config.Config, svc *service.ChatService) *ChatHandler {
	return &ChatHandler{cfg: cfg, svc: svc}
}

// ListMine returns the user's conversations sorted by last activity. Expired
// donations' threads are gone from the result (and from storage).
func (h *ChatHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	list, err := h.svc.ListConversationsForUser(userID)
	if err != nil {
		log.Printf("[chat] list failed: user=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	unread, _ := h.svc.HasUnread(userID)
	c.JSON(http.StatusOK, gin.H{"chats": list, "has_unread": unread})
}

// Config tells clients how to follow the conversation without a socket.
func (h *ChatHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"poll_interval_ms": int(h.cfg.Chat.PollInterval.Milliseconds()),
		"page_size":        h.cfg.Chat.HistoryPageSize,
	})
}

// GetMessages returns chat history in non-decreasing timestamp order.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID := c.Param("chat_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.Chat.HistoryPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = h.cfg.Chat.HistoryPageSize
	}
	list, err := h.svc.ListMessages(chatID, userID, limit, offset)
	if err != nil {
		respondChatError(c, err, "messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// Send appends a message over REST; live subscribers get the echo through
// the room broadcast.
func (h *ChatHandler) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID := c.Param("chat_id")
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.SendMessage(chatID, userID, req.Content)
	if err != nil {
		respondChatError(c, err, "send")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}

// Seen clears the caller's unread flag for the conversation. Clients call it
// when the thread is actually on screen.
func (h *ChatHandler) Seen(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID := c.Param("chat_id")
	if err := h.svc.MarkSeen(chatID, userID); err != nil {
		respondChatError(c, err, "seen")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func respondChatError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("[chat] %s failed: err=%v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
