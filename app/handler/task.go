package handler

import (
	"errors"
	"media-forge/app/model"
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TaskHandler 生成任务处理器
type TaskHandler struct {
	generation *service.GenerationService
}

// NewTaskHandler 创建生成任务处理器
func NewTaskHandler(generation *service.GenerationService) *TaskHandler {
	return &TaskHandler{generation: generation}
}

// 创建成功响应
func (h *TaskHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func (h *TaskHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// handleServiceError 把服务层错误映射到 HTTP 状态码
func (h *TaskHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrProjectNotFound):
		h.error(c, http.StatusNotFound, 404, err.Error())
	case errors.Is(err, service.ErrActionNotAllowed):
		h.error(c, http.StatusConflict, 409, err.Error())
	default:
		h.error(c, http.StatusInternalServerError, 500, err.Error())
	}
}

// taskView 任务详情，带计算好的进度百分比
type taskView struct {
	*model.GenerationTask
	Progress   int  `json:"progress"`
	IsTerminal bool `json:"is_terminal"`
	CanPause   bool `json:"can_pause"`
	CanResume  bool `json:"can_resume"`
	CanCancel  bool `json:"can_cancel"`
}

func newTaskView(task *model.GenerationTask) taskView {
	return taskView{
		GenerationTask: task,
		Progress:       model.CalculateTaskProgress(task),
		IsTerminal:     model.IsTaskTerminal(task.Status),
		CanPause:       model.CanPauseTask(task.Status),
		CanResume:      model.CanResumeTask(task.Status),
		CanCancel:      model.CanCancelTask(task.Status),
	}
}

// GetTask 获取单个任务状态
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.generation.GetTask(c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, newTaskView(task), "获取任务成功")
}

// GetProjectTasks 获取项目的任务列表
func (h *TaskHandler) GetProjectTasks(c *gin.Context) {
	tasks, err := h.generation.ListProjectTasks(c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, newTaskView(&tasks[i]))
	}

	h.success(c, views, "获取任务列表成功")
}

// actionResult 任务控制操作的响应
type actionResult struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PauseTask 暂停任务
func (h *TaskHandler) PauseTask(c *gin.Context) {
	task, err := h.generation.PauseTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, actionResult{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Message: "任务已暂停",
	}, "暂停任务成功")
}

// ResumeTask 恢复任务
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	task, err := h.generation.ResumeTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, actionResult{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Message: "任务已恢复",
	}, "恢复任务成功")
}

// CancelTask 取消任务
func (h *TaskHandler) CancelTask(c *gin.Context) {
	task, err := h.generation.CancelTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, actionResult{
		TaskID:  task.ID,
		Status:  string(task.Status),
		Message: "任务已取消",
	}, "取消任务成功")
}

// BatchGenerateRequest 批量生成请求
type BatchGenerateRequest struct {
	Indices []int `json:"indices"` // 为空表示全部分镜
}

// GenerateImages 为项目的分镜启动图片生成
func (h *TaskHandler) GenerateImages(c *gin.Context) {
	var req BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	task, err := h.generation.StartImageGeneration(c.Request.Context(), c.Param("id"), req.Indices)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, newTaskView(task), "图片生成任务已启动")
}

// GenerateVideos 为项目的分镜启动视频生成
func (h *TaskHandler) GenerateVideos(c *gin.Context) {
	var req BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	task, err := h.generation.StartVideoGeneration(c.Request.Context(), c.Param("id"), req.Indices)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, newTaskView(task), "视频生成任务已启动")
}

// StartDownload 启动源视频下载任务
func (h *TaskHandler) StartDownload(c *gin.Context) {
	task, err := h.generation.StartDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, newTaskView(task), "下载任务已启动")
}
