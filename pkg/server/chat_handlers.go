package server

import (
	"net/http"

	"github.com/example/storefront/pkg/chat"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// openChatRoom returns the order's chat room, creating it on first use.
func (s *Server) openChatRoom(c *gin.Context) {
	id, _ := currentIdentity(c)

	room, created, err := s.chats.OpenRoomForOrder(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, room)
}

func (s *Server) listChatRooms(c *gin.Context) {
	id, _ := currentIdentity(c)

	var assigned *bool
	switch c.Query("assigned") {
	case "true":
		v := true
		assigned = &v
	case "false":
		v := false
		assigned = &v
	}

	filter := repository.ChatRoomFilter{
		OrderStatus: models.OrderStatus(c.Query("status")),
		Assigned:    assigned,
		Search:      c.Query("search"),
	}

	rooms, err := s.chats.ListRooms(c.Request.Context(), id.UserID, id.Role, filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (s *Server) adminCloseChatRoom(c *gin.Context) {
	id, _ := currentIdentity(c)

	if err := s.chats.CloseRoom(c.Request.Context(), c.Param("id"), id.Role); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// chatSocket authorizes the caller against the room, upgrades the connection
// and hands it to the hub. Browsers cannot set headers on websocket requests,
// so the token is also accepted as a query parameter.
func (s *Server) chatSocket(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		id = identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
	}

	roomID := c.Param("roomID")
	if _, err := s.chats.Authorize(c.Request.Context(), roomID, id.UserID, id.Role); err != nil {
		s.respondError(c, err)
		return
	}

	history, err := s.chats.History(c.Request.Context(), roomID, s.config.Chat.HistoryLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := chat.NewClient(s.hub, s.persist, conn, s.logger,
		roomID, id.UserID, id.Email, id.Role, s.config.Chat.SendQueueSize)
	client.Run(chat.HistoryFromModels(history))
}
