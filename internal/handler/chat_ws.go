package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"comparte/config"
	"comparte/internal/auth"
	"comparte/internal/domain"
	"comparte/internal/service"
	"comparte/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	chatWriteWait  = 10 * time.Second
	chatPongWait   = 60 * time.Second
	chatPingPeriod = (chatPongWait * 9) / 10
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UpgradeChatWS upgrades to WebSocket for chat; query: token, chat_id. The
// user must be the donor or the requester of that conversation. Inbound
// frames of type "message" go through the same send path as the REST
// endpoint, so the echo (server id and timestamp included) arrives via the
// room broadcast rather than being written back here.
func UpgradeChatWS(cfg *config.JWTConfig, chatHub *ws.ChatHub, chatSvc *service.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		chatID := c.Query("chat_id")
		if token == "" || chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and chat_id required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conv, err := chatSvc.GetConversation(chatID, claims.UserID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			case errors.Is(err, domain.ErrValidation):
				c.JSON(http.StatusForbidden, gin.H{"error": "not part of this conversation"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			}
			return
		}
		conn, err := chatUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		client := &ws.Client{
			UserID: claims.UserID,
			Send:   make(chan []byte, 256),
		}
		room := chatHub.GetOrCreateRoom(conv.ChatID, conv.DonorID, conv.RequesterID)
		room.Join(client)
		defer func() {
			room.Leave(client)
			client.Close()
		}()
		conn.SetReadDeadline(time.Now().Add(chatPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(chatPongWait))
			return nil
		})
		go func() {
			ticker := time.NewTicker(chatPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg struct {
				Type    string `json:"type"`
				Content string `json:"content"`
			}
			if json.Unmarshal(raw, &msg) != nil || msg.Type != "message" {
				continue
			}
			if _, err := chatSvc.SendMessage(conv.ChatID, claims.UserID, msg.Content); err != nil {
				continue
			}
		}
	}
}
