package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/engine"
	"github.com/skyloft-tech/AcademiQa/middleware"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

type TaskController struct {
	DB        *gorm.DB
	Engine    *engine.Engine
	UploadDir string
}

func (tc *TaskController) scopedQuery(actor policy.Actor) *gorm.DB {
	q := tc.DB.
		Preload("Client").
		Preload("AssignedAdmin").
		Preload("Category").
		Preload("Files").
		Preload("Revisions")
	if actor.IsAdmin() {
		return q
	}
	return q.Where("client_id = ?", actor.ID)
}

func (tc *TaskController) ListTasks(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var tasks []models.Task
	if err := tc.scopedQuery(actor).Order("created_at DESC").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (tc *TaskController) GetTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var task models.Task
	if err := tc.scopedQuery(actor).First(&task, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) CreateTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var input engine.CreateTaskInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := tc.Engine.CreateTask(actor, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type amountInput struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

type reasonInput struct {
	Reason string `json:"reason"`
}

// Client actions.

func (tc *TaskController) ClientAcceptBudget(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.ClientAcceptBudget(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) ClientCounterBudget(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input amountInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := tc.Engine.ClientCounterBudget(actor, id, input.Amount, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) ClientRejectBudget(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.ClientRejectBudget(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) ClientWithdraw(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input reasonInput
	_ = c.BindJSON(&input)
	task, err := tc.Engine.ClientWithdraw(actor, id, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) ClientApprove(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.ClientApprove(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) ClientRequestRevision(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Feedback string `json:"feedback"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, revision, err := tc.Engine.ClientRequestRevision(actor, id, input.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "revision": revision})
}

// Admin actions.

func (tc *TaskController) AdminAcceptTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.AcceptTask(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AdminProposeBudget(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input amountInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, proposal, err := tc.Engine.ProposeBudget(actor, id, input.Amount, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"detail":   "Budget proposal sent successfully",
		"task":     task,
		"proposal": proposal,
	})
}

func (tc *TaskController) AdminAcceptBudget(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.AcceptBudget(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AdminUpdateProgress(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Progress *int   `json:"progress"`
		Message  string `json:"message"`
	}
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := tc.Engine.UpdateProgress(actor, id, input.Progress, input.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AdminSubmitForReview(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.SubmitForReview(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AdminMarkComplete(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	task, err := tc.Engine.MarkComplete(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AdminRejectTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input reasonInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := tc.Engine.RejectTask(actor, id, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) AdminUploadSolution(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("solution")
	if err != nil {
		file, err = c.FormFile("file")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	dst := filepath.Join(tc.UploadDir, fmt.Sprintf("task-%d", id), filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}

	task, err := tc.Engine.UploadSolution(actor, id, engine.SolutionFile{
		Name:     file.Filename,
		FileType: fileTypeOf(file.Filename),
		Size:     fmt.Sprintf("%.2f MB", float64(file.Size)/1024/1024),
		Path:     dst,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"detail": "Solution uploaded and awaiting client approval",
		"task":   task,
	})
}

func fileTypeOf(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return "pdf"
	case "doc", "docx":
		return "word"
	case "xls", "xlsx", "csv":
		return "excel"
	case "ppt", "pptx":
		return "powerpoint"
	case "jpg", "jpeg", "png", "gif":
		return "image"
	case "py":
		return "python"
	default:
		return "other"
	}
}
