package handler

import (
	"media-forge/app/database"
	"media-forge/app/model"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ViralHandler 爆款库处理器
type ViralHandler struct{}

// NewViralHandler 创建爆款库处理器
func NewViralHandler() *ViralHandler {
	return &ViralHandler{}
}

// 创建成功响应
func (h *ViralHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func (h *ViralHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// viralVideoView 带展开标签和分镜文本的条目
type viralVideoView struct {
	model.ViralVideo
	Tags            []string `json:"tags"`
	StoryboardDescs []string `json:"storyboard_descriptions,omitempty"`
}

func newViralVideoView(v model.ViralVideo) viralVideoView {
	return viralVideoView{
		ViralVideo:      v,
		Tags:            v.Tags(),
		StoryboardDescs: v.StoryboardDescriptions(),
	}
}

// GetViralVideos 获取爆款视频列表
// 支持关键词、标签、入库日期区间筛选
func (h *ViralHandler) GetViralVideos(c *gin.Context) {
	query := database.DB.Model(&model.ViralVideo{})

	// 分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	offset := (page - 1) * pageSize

	// 关键词匹配名称和分析文本
	if keyword := c.Query("keyword"); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR analysis_text LIKE ?", like, like)
	}

	// 标签筛选，逗号分隔，要求全部命中
	if tags := c.Query("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				query = query.Where("tags_json LIKE ?", `%"`+tag+`"%`)
			}
		}
	}

	// 入库日期区间
	if start := c.Query("start_date"); start != "" {
		if day, err := time.Parse("2006-01-02", start); err == nil {
			query = query.Where("created_at >= ?", day)
		}
	}
	if end := c.Query("end_date"); end != "" {
		if day, err := time.Parse("2006-01-02", end); err == nil {
			query = query.Where("created_at < ?", day.AddDate(0, 0, 1))
		}
	}

	var total int64
	query.Count(&total)

	var videos []model.ViralVideo
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&videos).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取爆款视频列表失败")
		return
	}

	views := make([]viralVideoView, 0, len(videos))
	for _, v := range videos {
		views = append(views, newViralVideoView(v))
	}

	h.success(c, gin.H{
		"list":     views,
		"total":    total,
		"current":  page,
		"pageSize": pageSize,
	}, "获取爆款视频列表成功")
}

// GetViralVideo 获取单个爆款视频
func (h *ViralHandler) GetViralVideo(c *gin.Context) {
	var video model.ViralVideo
	if err := database.DB.First(&video, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "爆款视频不存在")
		return
	}

	h.success(c, newViralVideoView(video), "获取爆款视频成功")
}

// ViralVideoRequest 创建/更新爆款视频请求
type ViralVideoRequest struct {
	Name            string   `json:"name"`
	YoutubeURL      string   `json:"youtube_url"`
	ViewCount       int64    `json:"view_count"`
	Tags            []string `json:"tags"`
	AnalysisText    string   `json:"analysis_text"`
	StoryboardDescs []string `json:"storyboard_descriptions"`
}

// CreateViralVideo 收录爆款视频
func (h *ViralHandler) CreateViralVideo(c *gin.Context) {
	var req ViralVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}
	if req.Name == "" || req.YoutubeURL == "" {
		h.error(c, http.StatusBadRequest, 400, "名称和视频地址不能为空")
		return
	}

	video := model.ViralVideo{
		ID:           uuid.NewString(),
		Name:         req.Name,
		YoutubeURL:   req.YoutubeURL,
		ViewCount:    req.ViewCount,
		AnalysisText: req.AnalysisText,
	}
	if err := video.SetTags(req.Tags); err != nil {
		h.error(c, http.StatusBadRequest, 400, "标签数据无效")
		return
	}
	if err := video.SetStoryboardDescriptions(req.StoryboardDescs); err != nil {
		h.error(c, http.StatusBadRequest, 400, "分镜拆解数据无效")
		return
	}

	if err := database.DB.Create(&video).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "收录爆款视频失败")
		return
	}

	h.success(c, newViralVideoView(video), "收录爆款视频成功")
}

// UpdateViralVideo 更新爆款视频的标签和分析内容
func (h *ViralHandler) UpdateViralVideo(c *gin.Context) {
	var video model.ViralVideo
	if err := database.DB.First(&video, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "爆款视频不存在")
		return
	}

	var req ViralVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	if req.Name != "" {
		video.Name = req.Name
	}
	if req.ViewCount > 0 {
		video.ViewCount = req.ViewCount
	}
	if req.AnalysisText != "" {
		video.AnalysisText = req.AnalysisText
	}
	if req.Tags != nil {
		if err := video.SetTags(req.Tags); err != nil {
			h.error(c, http.StatusBadRequest, 400, "标签数据无效")
			return
		}
	}
	if req.StoryboardDescs != nil {
		if err := video.SetStoryboardDescriptions(req.StoryboardDescs); err != nil {
			h.error(c, http.StatusBadRequest, 400, "分镜拆解数据无效")
			return
		}
	}

	if err := database.DB.Save(&video).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "更新爆款视频失败")
		return
	}

	h.success(c, newViralVideoView(video), "更新爆款视频成功")
}

// DeleteViralVideo 删除爆款视频
func (h *ViralHandler) DeleteViralVideo(c *gin.Context) {
	var video model.ViralVideo
	if err := database.DB.First(&video, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "爆款视频不存在")
		return
	}

	if err := database.DB.Delete(&video).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除爆款视频失败")
		return
	}

	h.success(c, nil, "删除爆款视频成功")
}

// CreateProjectFromViralRequest 从爆款库创建项目请求
type CreateProjectFromViralRequest struct {
	Instruction string `json:"instruction"`
}

// CreateProjectFromViral 以爆款视频为底稿创建再创作项目
func (h *ViralHandler) CreateProjectFromViral(c *gin.Context) {
	var video model.ViralVideo
	if err := database.DB.First(&video, "id = ?", c.Param("id")).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "爆款视频不存在")
		return
	}

	var req CreateProjectFromViralRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	project := model.VideoProject{
		ID:           uuid.NewString(),
		Name:         video.Name,
		YoutubeURL:   video.YoutubeURL,
		ThumbnailURL: video.CoverURL,
		Status:       model.ProjectStatusCreated,
	}
	if err := database.DB.Create(&project).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建项目失败")
		return
	}

	h.success(c, gin.H{
		"project_id": project.ID,
		// 再创作指令随后由提示词生成接口使用
		"instruction": req.Instruction,
	}, "从爆款库创建项目成功")
}

// GetViralTags 获取标签列表
func (h *ViralHandler) GetViralTags(c *gin.Context) {
	var tags []model.ViralTag
	if err := database.DB.Order("name ASC").Find(&tags).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取标签列表失败")
		return
	}

	h.success(c, gin.H{
		"tags":  tags,
		"total": len(tags),
	}, "获取标签列表成功")
}

// ViralTagRequest 创建/更新标签请求
type ViralTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateViralTag 创建标签
func (h *ViralHandler) CreateViralTag(c *gin.Context) {
	var req ViralTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}
	if req.Name == "" {
		h.error(c, http.StatusBadRequest, 400, "标签名不能为空")
		return
	}

	tag := model.ViralTag{Name: req.Name, Color: req.Color}
	if err := database.DB.Create(&tag).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建标签失败")
		return
	}

	h.success(c, tag, "创建标签成功")
}

// UpdateViralTag 更新标签
func (h *ViralHandler) UpdateViralTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.error(c, http.StatusBadRequest, 400, "无效的ID")
		return
	}

	var tag model.ViralTag
	if err := database.DB.First(&tag, uint(id)).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "标签不存在")
		return
	}

	var req ViralTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	if req.Name != "" {
		tag.Name = req.Name
	}
	if req.Color != "" {
		tag.Color = req.Color
	}

	if err := database.DB.Save(&tag).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "更新标签失败")
		return
	}

	h.success(c, tag, "更新标签成功")
}

// DeleteViralTag 删除标签
func (h *ViralHandler) DeleteViralTag(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.error(c, http.StatusBadRequest, 400, "无效的ID")
		return
	}

	if err := database.DB.Delete(&model.ViralTag{}, uint(id)).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除标签失败")
		return
	}

	h.success(c, nil, "删除标签成功")
}
