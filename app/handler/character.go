package handler

import (
	"media-forge/app/database"
	"media-forge/app/model"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CharacterHandler 角色参考映射处理器
type CharacterHandler struct{}

// NewCharacterHandler 创建角色参考映射处理器
func NewCharacterHandler() *CharacterHandler {
	return &CharacterHandler{}
}

// 创建成功响应
func (h *CharacterHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// 创建错误响应
func (h *CharacterHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// GetCharacters 获取角色映射
// 带 project_id 时返回项目级映射，否则返回全局角色库
func (h *CharacterHandler) GetCharacters(c *gin.Context) {
	projectID := c.Query("project_id")

	var mappings []model.CharacterMapping
	if err := database.DB.Where("project_id = ?", projectID).
		Order("identifier ASC").Find(&mappings).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取角色映射失败")
		return
	}

	h.success(c, gin.H{
		"identifiers": model.DefaultCharacterIdentifiers,
		"mappings":    mappings,
	}, "获取角色映射成功")
}

// SaveCharacterRequest 保存角色映射请求
type SaveCharacterRequest struct {
	ProjectID         string `json:"project_id"` // 为空表示全局角色库
	Identifier        string `json:"identifier" binding:"required"`
	Name              string `json:"name"`
	ReferenceImageURL string `json:"reference_image_url"`
}

// SaveCharacter 新增或更新角色映射
func (h *CharacterHandler) SaveCharacter(c *gin.Context) {
	var req SaveCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	valid := false
	for _, id := range model.DefaultCharacterIdentifiers {
		if req.Identifier == id {
			valid = true
			break
		}
	}
	if !valid {
		h.error(c, http.StatusBadRequest, 400, "无效的角色标识")
		return
	}

	var mapping model.CharacterMapping
	err := database.DB.Where("project_id = ? AND identifier = ?",
		req.ProjectID, req.Identifier).First(&mapping).Error
	if err == nil {
		mapping.Name = req.Name
		mapping.ReferenceImageURL = req.ReferenceImageURL
		if err := database.DB.Save(&mapping).Error; err != nil {
			h.error(c, http.StatusInternalServerError, 500, "更新角色映射失败")
			return
		}
		h.success(c, mapping, "更新角色映射成功")
		return
	}

	mapping = model.CharacterMapping{
		ProjectID:         req.ProjectID,
		Identifier:        req.Identifier,
		Name:              req.Name,
		ReferenceImageURL: req.ReferenceImageURL,
	}
	if err := database.DB.Create(&mapping).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "保存角色映射失败")
		return
	}

	h.success(c, mapping, "保存角色映射成功")
}

// DeleteCharacter 删除角色映射
func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.error(c, http.StatusBadRequest, 400, "无效的ID")
		return
	}

	if err := database.DB.Delete(&model.CharacterMapping{}, uint(id)).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除角色映射失败")
		return
	}

	h.success(c, nil, "删除角色映射成功")
}
