package handler

import (
	"errors"
	"media-forge/app/model"
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PromptHandler 提示词版本处理器
type PromptHandler struct {
	versions *service.PromptVersionService
}

// NewPromptHandler 创建提示词版本处理器
func NewPromptHandler(versions *service.PromptVersionService) *PromptHandler {
	return &PromptHandler{versions: versions}
}

// 创建成功响应
func (h *PromptHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func (h *PromptHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// handleServiceError 把服务层错误映射到 HTTP 状态码
func (h *PromptHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConflict):
		h.error(c, http.StatusConflict, 409, err.Error())
	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrVersionNotFound):
		h.error(c, http.StatusNotFound, 404, err.Error())
	case errors.Is(err, service.ErrNoVersions):
		h.error(c, http.StatusBadRequest, 400, err.Error())
	default:
		h.error(c, http.StatusInternalServerError, 500, err.Error())
	}
}

// versionView 版本历史条目
type versionView struct {
	Version       string `json:"version"`
	Instruction   string `json:"instruction"`
	ParentVersion string `json:"parent_version,omitempty"`
	Storyboards   int    `json:"storyboard_count"`
	IsCurrent     bool   `json:"is_current"`
	CreatedAt     string `json:"created_at"`
}

// GetHistory 获取项目的完整版本历史
func (h *PromptHandler) GetHistory(c *gin.Context) {
	projectID := c.Param("id")

	versions, err := h.versions.ListVersions(projectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	current := c.Query("current")
	views := make([]versionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, versionView{
			Version:       v.Version,
			Instruction:   v.Instruction,
			ParentVersion: v.ParentVersion,
			Storyboards:   v.StoryboardCount(),
			IsCurrent:     current != "" && v.Version == current,
			CreatedAt:     v.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	h.success(c, gin.H{
		"versions":  views,
		"is_latest": model.IsCurrentLatest(current, versions),
	}, "获取版本历史成功")
}

// GenerateRequest 首次生成/继续生成请求
type GenerateRequest struct {
	Instruction string `json:"instruction"`
	BaseVersion string `json:"base_version"` // 调用方所见的当前版本，用于并发修改检查
}

// GeneratePrompts 首次生成提示词，创建根版本 v1
func (h *PromptHandler) GeneratePrompts(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	version, err := h.versions.GeneratePrompts(c.Request.Context(), c.Param("id"), req.Instruction)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, version, "提示词生成成功")
}

// ContinuePrompts 基于当前版本继续生成新版本
func (h *PromptHandler) ContinuePrompts(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	version, err := h.versions.ContinueFrom(c.Request.Context(), c.Param("id"), req.Instruction, req.BaseVersion)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, version, "继续生成成功")
}

// RegenerateRequest 重新生成请求
type RegenerateRequest struct {
	FromVersion string `json:"from_version" binding:"required"`
	Instruction string `json:"instruction"`
	BaseVersion string `json:"base_version"`
}

// RegeneratePrompts 从指定版本重新生成，删除其后的所有版本
func (h *PromptHandler) RegeneratePrompts(c *gin.Context) {
	var req RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	version, deleted, err := h.versions.RegenerateFromVersion(
		c.Request.Context(), c.Param("id"), req.FromVersion, req.Instruction, req.BaseVersion)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, gin.H{
		"version":          version,
		"deleted_versions": deleted,
	}, "重新生成成功")
}

// SwitchVersionRequest 切换版本请求
type SwitchVersionRequest struct {
	Version string `json:"version" binding:"required"`
}

// SwitchVersion 把项目当前版本切到历史版本
func (h *PromptHandler) SwitchVersion(c *gin.Context) {
	var req SwitchVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	if err := h.versions.SwitchVersion(c.Param("id"), req.Version); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.success(c, gin.H{"current_version": req.Version}, "切换版本成功")
}
