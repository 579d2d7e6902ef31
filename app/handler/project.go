package handler

import (
	"fmt"
	"media-forge/app/database"
	"media-forge/app/model"
	"media-forge/app/utils/namehelper"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectHandler 视频项目处理器
type ProjectHandler struct{}

// NewProjectHandler 创建视频项目处理器
func NewProjectHandler() *ProjectHandler {
	return &ProjectHandler{}
}

// 创建成功响应
func (h *ProjectHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func (h *ProjectHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name       string `json:"name" binding:"required"`
	YoutubeURL string `json:"youtube_url" binding:"required"`
}

// CreateProject 创建视频再创作项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	project := model.VideoProject{
		ID:         uuid.NewString(),
		Name:       req.Name,
		YoutubeURL: req.YoutubeURL,
		Status:     model.ProjectStatusCreated,
	}

	if err := database.DB.Create(&project).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建项目失败")
		return
	}

	h.success(c, project, "创建项目成功")
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	query := database.DB.Model(&model.VideoProject{})

	// 分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	offset := (page - 1) * pageSize

	// 状态过滤
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var projects []model.VideoProject
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取项目列表失败")
		return
	}

	h.success(c, gin.H{
		"list":     projects,
		"total":    total,
		"current":  page,
		"pageSize": pageSize,
	}, "获取项目列表成功")
}

// projectDetail 项目详情，按需附带完整版本历史
type projectDetail struct {
	model.VideoProject
	Storyboards    []model.StoryboardSnapshot `json:"storyboards"`
	PromptVersions []model.PromptVersion      `json:"prompt_versions,omitempty"`
	IsLatest       bool                       `json:"is_latest_version"`
}

// GetProject 获取单个项目详情
// 带 full_history=1 时返回完整的提示词版本历史
func (h *ProjectHandler) GetProject(c *gin.Context) {
	var project model.VideoProject
	if err := database.DB.First(&project, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "项目不存在")
		return
	}

	detail := projectDetail{
		VideoProject: project,
		Storyboards:  project.Storyboards(),
	}

	var versions []model.PromptVersion
	if err := database.DB.Where("project_id = ?", project.ID).
		Order("suffix ASC").Find(&versions).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "查询版本历史失败")
		return
	}
	detail.IsLatest = model.IsCurrentLatest(project.CurrentPromptVersion, versions)

	if c.Query("full_history") == "1" {
		detail.PromptVersions = versions
	}

	h.success(c, detail, "获取项目成功")
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        string                     `json:"name"`
	Storyboards []model.StoryboardSnapshot `json:"storyboards"`
}

// UpdateProject 更新项目名称或手工编辑的分镜提示词
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var project model.VideoProject
	if err := database.DB.First(&project, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "项目不存在")
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Storyboards != nil {
		// 手工编辑过的分镜标记保留
		for i := range req.Storyboards {
			req.Storyboards[i].IsEdited = true
		}
		if err := project.SetStoryboards(req.Storyboards); err != nil {
			h.error(c, http.StatusBadRequest, 400, "分镜数据无效")
			return
		}
	}

	if err := database.DB.Save(&project).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "更新项目失败")
		return
	}

	h.success(c, project, "更新项目成功")
}

// DeleteProject 删除项目及其版本历史和任务记录
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")

	var project model.VideoProject
	if err := database.DB.First(&project, "id = ?", id).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "项目不存在")
		return
	}

	if err := database.DB.Where("project_id = ?", id).Delete(&model.PromptVersion{}).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除版本历史失败")
		return
	}
	if err := database.DB.Where("project_id = ?", id).Delete(&model.GenerationTask{}).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除任务记录失败")
		return
	}
	if err := database.DB.Delete(&project).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除项目失败")
		return
	}

	h.success(c, nil, "删除项目成功")
}

// exportEntry 导出文件中的单个分镜条目
type exportEntry struct {
	Index         int      `json:"index"`
	TextToImage   string   `json:"text_to_image"`
	ImageToVideo  string   `json:"image_to_video"`
	CharacterRefs []string `json:"character_refs,omitempty"`
	IsEdited      bool     `json:"is_edited"`
}

// ExportPrompts 导出当前版本的全部分镜提示词
// 以附件形式返回结构化 JSON，文件名取自净化后的项目名
func (h *ProjectHandler) ExportPrompts(c *gin.Context) {
	var project model.VideoProject
	if err := database.DB.First(&project, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "项目不存在")
		return
	}

	boards := project.Storyboards()
	if len(boards) == 0 {
		h.error(c, http.StatusBadRequest, 400, "项目还没有分镜提示词")
		return
	}

	entries := make([]exportEntry, 0, len(boards))
	for _, b := range boards {
		entries = append(entries, exportEntry{
			Index:         b.Index,
			TextToImage:   b.TextToImage,
			ImageToVideo:  b.ImageToVideo,
			CharacterRefs: b.CharacterRefs,
			IsEdited:      b.IsEdited,
		})
	}

	filename := fmt.Sprintf("%s_prompts_%s.json",
		namehelper.Sanitize(project.Name), project.CurrentPromptVersion)

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.JSON(http.StatusOK, gin.H{
		"project_name": project.Name,
		"version":      project.CurrentPromptVersion,
		"exported_at":  time.Now().Format(time.RFC3339),
		"storyboards":  entries,
	})
}
