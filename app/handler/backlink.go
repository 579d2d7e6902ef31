package handler

import (
	"media-forge/app/database"
	"media-forge/app/model"
	"media-forge/app/service"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// BacklinkHandler 外链管理处理器
type BacklinkHandler struct {
	backlinks *service.BacklinkService
}

// NewBacklinkHandler 创建外链管理处理器
func NewBacklinkHandler(backlinks *service.BacklinkService) *BacklinkHandler {
	return &BacklinkHandler{backlinks: backlinks}
}

// 创建成功响应
func (h *BacklinkHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func (h *BacklinkHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// GetBacklinks 获取外链列表
func (h *BacklinkHandler) GetBacklinks(c *gin.Context) {
	query := database.DB.Model(&model.Backlink{})

	// 分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	offset := (page - 1) * pageSize

	// 状态过滤
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	// 目标页面过滤
	if target := c.Query("target_url"); target != "" {
		query = query.Where("target_url = ?", target)
	}

	// 最低域名权重过滤
	if minDR := c.Query("min_dr"); minDR != "" {
		if dr, err := strconv.Atoi(minDR); err == nil {
			query = query.Where("domain_rating >= ?", dr)
		}
	}

	var total int64
	query.Count(&total)

	var links []model.Backlink
	if err := query.Order("domain_rating DESC, last_checked DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&links).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取外链列表失败")
		return
	}

	h.success(c, gin.H{
		"list":     links,
		"total":    total,
		"current":  page,
		"pageSize": pageSize,
	}, "获取外链列表成功")
}

// FetchBacklinksRequest 抓取外链请求
type FetchBacklinksRequest struct {
	Domain string `json:"domain" binding:"required"`
}

// FetchBacklinks 立即从数据提供方抓取指定域名的外链
func (h *BacklinkHandler) FetchBacklinks(c *gin.Context) {
	var req FetchBacklinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	links, err := h.backlinks.FetchBacklinks(req.Domain)
	if err != nil {
		h.error(c, http.StatusBadGateway, 502, err.Error())
		return
	}

	h.success(c, gin.H{
		"domain": req.Domain,
		"count":  len(links),
		"list":   links,
	}, "抓取外链成功")
}

// GetOutreachTasks 获取外联任务列表
func (h *BacklinkHandler) GetOutreachTasks(c *gin.Context) {
	query := database.DB.Model(&model.OutreachTask{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var tasks []model.OutreachTask
	if err := query.Order("scheduled_at ASC").Find(&tasks).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取外联任务失败")
		return
	}

	h.success(c, tasks, "获取外联任务成功")
}

// CreateOutreachRequest 创建外联任务请求
type CreateOutreachRequest struct {
	TargetSite  string    `json:"target_site" binding:"required"`
	ContactMail string    `json:"contact_mail"`
	Notes       string    `json:"notes"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// CreateOutreachTask 创建外联排期任务
func (h *BacklinkHandler) CreateOutreachTask(c *gin.Context) {
	var req CreateOutreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	task := model.OutreachTask{
		TargetSite:  req.TargetSite,
		ContactMail: req.ContactMail,
		Notes:       req.Notes,
		Status:      model.OutreachStatusScheduled,
		ScheduledAt: req.ScheduledAt,
	}

	if err := database.DB.Create(&task).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建外联任务失败")
		return
	}

	h.success(c, task, "创建外联任务成功")
}

// UpdateOutreachRequest 更新外联任务请求
type UpdateOutreachRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateOutreachTask 更新外联任务状态（回复/关闭）
func (h *BacklinkHandler) UpdateOutreachTask(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.error(c, http.StatusBadRequest, 400, "无效的ID")
		return
	}

	var task model.OutreachTask
	if err := database.DB.First(&task, uint(id)).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "外联任务不存在")
		return
	}

	var req UpdateOutreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	switch req.Status {
	case model.OutreachStatusScheduled, model.OutreachStatusSent,
		model.OutreachStatusReplied, model.OutreachStatusClosed:
		task.Status = req.Status
	default:
		h.error(c, http.StatusBadRequest, 400, "无效的任务状态")
		return
	}
	if req.Notes != "" {
		task.Notes = req.Notes
	}

	if err := database.DB.Save(&task).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "更新外联任务失败")
		return
	}

	h.success(c, task, "更新外联任务成功")
}

// GetConfigs 获取外链自动化配置列表
func (h *BacklinkHandler) GetConfigs(c *gin.Context) {
	var configs []model.BacklinkConfig
	if err := database.DB.Order("domain ASC").Find(&configs).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取外链配置失败")
		return
	}

	h.success(c, configs, "获取外链配置成功")
}

// SaveConfig 新增或更新域名的外链自动化配置
func (h *BacklinkHandler) SaveConfig(c *gin.Context) {
	var req model.BacklinkConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}
	if req.Domain == "" {
		h.error(c, http.StatusBadRequest, 400, "域名不能为空")
		return
	}

	var existing model.BacklinkConfig
	err := database.DB.Where("domain = ?", req.Domain).First(&existing).Error
	if err == nil {
		existing.AutoFetch = req.AutoFetch
		existing.AutoRecheck = req.AutoRecheck
		existing.MinDomainRate = req.MinDomainRate
		if err := database.DB.Save(&existing).Error; err != nil {
			h.error(c, http.StatusInternalServerError, 500, "更新外链配置失败")
			return
		}
		h.success(c, existing, "更新外链配置成功")
		return
	}

	if err := database.DB.Create(&req).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "保存外链配置失败")
		return
	}

	h.success(c, req, "保存外链配置成功")
}
