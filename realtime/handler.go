package realtime

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/engine"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

// Authenticator resolves a connection token (the ?token= query parameter)
// into an Actor.
type Authenticator func(token string) (policy.Actor, error)

// ChatNotifier is the async side channel for persisted chat messages.
type ChatNotifier interface {
	NewChatMessage(taskID, messageID uint)
}

type Handler struct {
	db           *gorm.DB
	hub          *Hub
	notifier     ChatNotifier
	authenticate Authenticator
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

func NewHandler(db *gorm.DB, hub *Hub, notifier ChatNotifier, auth Authenticator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:           db,
		hub:          hub,
		notifier:     notifier,
		authenticate: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	File    *struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"file"`
	IsTyping bool `json:"is_typing"`
}

// ServeTask joins an authorized actor to the task:<id> room. Authorization
// happens before the upgrade completes membership: a refused handshake never
// enters the room, and the client only sees the close.
func (h *Handler) ServeTask(c *gin.Context) {
	taskID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	taskID := uint(taskID64)

	actor, err := h.authenticate(c.Query("token"))
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var task models.Task
	if err := h.db.First(&task, taskID).Error; err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if !policy.CanJoinTaskRoom(&task, actor) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := newConn(ws, actor)
	h.hub.Join(engine.TaskRoom(taskID), conn)
	go conn.writePump()
	h.readTaskFrames(conn, taskID)
}

func (h *Handler) readTaskFrames(conn *Conn, taskID uint) {
	defer func() {
		h.hub.Remove(conn)
		conn.Close()
	}()

	conn.ws.SetReadLimit(64 << 10)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame inboundFrame
		if err := conn.ws.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "chat_message":
			if !h.handleChatMessage(conn, taskID, frame) {
				return
			}
		case "typing":
			h.hub.Publish(engine.TaskRoom(taskID), map[string]any{
				"type":      "user_typing",
				"user_id":   conn.actor.ID,
				"username":  conn.actor.Username,
				"is_typing": frame.IsTyping,
			})
		}
	}
}

// handleChatMessage re-validates room access on every inbound frame, then
// persists and rebroadcasts. The membership predicate is never cached beyond
// a single frame. Nothing is persisted for a frame that fails the check.
func (h *Handler) handleChatMessage(conn *Conn, taskID uint, frame inboundFrame) bool {
	var task models.Task
	if err := h.db.First(&task, taskID).Error; err != nil {
		return false
	}
	if !policy.CanJoinTaskRoom(&task, conn.actor) {
		h.logger.Warn("chat frame from actor without task access",
			"task", taskID, "actor", conn.actor.ID)
		return false
	}

	msg := models.ChatMessage{
		TaskID:   taskID,
		SenderID: conn.actor.ID,
		Message:  frame.Message,
	}
	if frame.File != nil {
		msg.FileURL = frame.File.URL
		msg.FileName = frame.File.Name
	}
	if err := h.db.Create(&msg).Error; err != nil {
		h.logger.Error("persist chat message", "task", taskID, "err", err)
		return true
	}

	h.hub.Publish(engine.TaskRoom(taskID), map[string]any{
		"type": "chat_message",
		"message": map[string]any{
			"id":          msg.ID,
			"sender":      conn.actor.Username,
			"sender_role": conn.actor.Role,
			"message":     msg.Message,
			"file_url":    msg.FileURL,
			"file_name":   msg.FileName,
			"created_at":  msg.CreatedAt,
			"is_read":     false,
		},
	})
	h.notifier.NewChatMessage(taskID, msg.ID)
	return true
}

// ServeDashboard joins admins to the operator dashboard room and clients to
// their own client:<id> room. The dashboard accepts no inbound frames.
func (h *Handler) ServeDashboard(c *gin.Context) {
	actor, err := h.authenticate(c.Query("token"))
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := newConn(ws, actor)
	if actor.IsAdmin() {
		h.hub.Join(engine.DashboardRoom, conn)
	} else {
		h.hub.Join(engine.ClientRoom(actor.ID), conn)
	}
	go conn.writePump()

	defer func() {
		h.hub.Remove(conn)
		conn.Close()
	}()
	conn.ws.SetReadLimit(4 << 10)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
	}
}
