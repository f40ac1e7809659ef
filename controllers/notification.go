package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/middleware"
	"github.com/skyloft-tech/AcademiQa/models"
)

type NotificationController struct {
	DB *gorm.DB
}

func (nc *NotificationController) List(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var notifications []models.Notification
	if err := nc.DB.
		Where("user_id = ?", actor.ID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var notification models.Notification
	if err := nc.DB.Where("user_id = ?", actor.ID).First(&notification, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	if !notification.IsRead {
		now := time.Now()
		if err := nc.DB.Model(&notification).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Notification marked as read"})
}
