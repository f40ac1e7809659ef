package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/middleware"
	"github.com/skyloft-tech/AcademiQa/models"
)

type StatsController struct {
	DB *gorm.DB
}

func (sc *StatsController) AdminStats(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	count := func(q *gorm.DB) int64 {
		var n int64
		q.Count(&n)
		return n
	}
	tasks := func() *gorm.DB { return sc.DB.Model(&models.Task{}) }

	weekAgo := time.Now().AddDate(0, 0, -7)

	var earnings *float64
	sc.DB.Model(&models.Task{}).
		Where("assigned_admin_id = ? AND status = ?", actor.ID, constants.TaskStatusCompleted).
		Select("SUM(budget)").Scan(&earnings)
	totalEarnings := 0.0
	if earnings != nil {
		totalEarnings = *earnings
	}

	c.JSON(http.StatusOK, gin.H{
		"task_stats": gin.H{
			"total":        count(tasks()),
			"new_requests": count(tasks().Where("status = ?", constants.TaskStatusSubmitted)),
			"active":       count(tasks().Where("status = ?", constants.TaskStatusInProgress)),
			"under_review": count(tasks().Where("status = ?", constants.TaskStatusAwaitingReview)),
			"completed":    count(tasks().Where("status = ?", constants.TaskStatusCompleted)),
			"recent":       count(tasks().Where("created_at >= ?", weekAgo)),
		},
		"admin_stats": gin.H{
			"assigned_tasks":  count(tasks().Where("assigned_admin_id = ?", actor.ID)),
			"completed_tasks": count(tasks().Where("assigned_admin_id = ? AND status = ?", actor.ID, constants.TaskStatusCompleted)),
			"total_earnings":  totalEarnings,
		},
	})
}
