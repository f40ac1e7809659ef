package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/engine"
	"github.com/skyloft-tech/AcademiQa/middleware"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
	"github.com/skyloft-tech/AcademiQa/realtime"
)

type ChatController struct {
	DB       *gorm.DB
	Hub      engine.Publisher
	Notifier realtime.ChatNotifier
}

func (cc *ChatController) loadTask(c *gin.Context, actor policy.Actor) (*models.Task, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var task models.Task
	if err := cc.DB.First(&task, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}
	if !policy.CanJoinTaskRoom(&task, actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this task"})
		return nil, false
	}
	return &task, true
}

func (cc *ChatController) ListMessages(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	task, ok := cc.loadTask(c, actor)
	if !ok {
		return
	}

	var messages []models.ChatMessage
	if err := cc.DB.Preload("Sender").
		Where("task_id = ?", task.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// CreateMessage is the REST variant of the websocket chat frame: same guard,
// same persistence, same broadcast.
func (cc *ChatController) CreateMessage(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	task, ok := cc.loadTask(c, actor)
	if !ok {
		return
	}

	var input struct {
		Message  string `json:"message"`
		FileURL  string `json:"file_url"`
		FileName string `json:"file_name"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Message == "" && input.FileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	msg := models.ChatMessage{
		TaskID:   task.ID,
		SenderID: actor.ID,
		Message:  input.Message,
		FileURL:  input.FileURL,
		FileName: input.FileName,
	}
	if err := cc.DB.Create(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	cc.Hub.Publish(engine.TaskRoom(task.ID), map[string]any{
		"type": "chat_message",
		"message": map[string]any{
			"id":          msg.ID,
			"sender":      actor.Username,
			"sender_role": actor.Role,
			"message":     msg.Message,
			"file_url":    msg.FileURL,
			"file_name":   msg.FileName,
			"created_at":  msg.CreatedAt,
			"is_read":     false,
		},
	})
	cc.Notifier.NewChatMessage(task.ID, msg.ID)

	c.JSON(http.StatusOK, msg)
}

// MarkMessageRead flips the one-way read flag; a second call is a no-op and
// the original read_at stands.
func (cc *ChatController) MarkMessageRead(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	task, ok := cc.loadTask(c, actor)
	if !ok {
		return
	}

	msgID, ok := paramID(c, "msgID")
	if !ok {
		return
	}

	var msg models.ChatMessage
	if err := cc.DB.Where("task_id = ?", task.ID).First(&msg, msgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	if !msg.IsRead {
		now := time.Now()
		msg.IsRead = true
		msg.ReadAt = &now
		if err := cc.DB.Model(&msg).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}
	c.JSON(http.StatusOK, msg)
}
