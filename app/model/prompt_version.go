package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StoryboardSnapshot 单个分镜的提示词快照
type StoryboardSnapshot struct {
	Index         int      `json:"index"`
	TextToImage   string   `json:"text_to_image"`  // 文生图提示词
	ImageToVideo  string   `json:"image_to_video"` // 图生视频提示词
	CharacterRefs []string `json:"character_refs,omitempty"`
	IsEdited      bool     `json:"is_edited"`
	ImageURL      string   `json:"image_url,omitempty"`
	VideoURL      string   `json:"video_url,omitempty"`
	ThumbnailPath string   `json:"thumbnail_path,omitempty"`
}

// PromptVersion 提示词版本节点
// 同一项目内版本号按数字后缀严格递增（v1、v2、…），parent_version 构成分支树
type PromptVersion struct {
	ID            uint      `json:"-" gorm:"primaryKey"`
	ProjectID     string    `json:"-" gorm:"not null;index:idx_project_version,unique;type:varchar(64)"`
	Version       string    `json:"version" gorm:"not null;index:idx_project_version,unique;size:20"`
	Suffix        int       `json:"-" gorm:"not null;index;comment:版本号数字后缀"`
	Instruction   string    `json:"instruction" gorm:"type:text"`
	ParentVersion string    `json:"parent_version,omitempty" gorm:"size:20;comment:父版本，根版本为空"`
	SnapshotJSON  string    `json:"-" gorm:"type:text;comment:该版本的分镜快照"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (PromptVersion) TableName() string {
	return "prompt_versions"
}

// Storyboards 反序列化该版本的分镜快照
func (v *PromptVersion) Storyboards() []StoryboardSnapshot {
	if v.SnapshotJSON == "" {
		return nil
	}

	var boards []StoryboardSnapshot
	if err := json.Unmarshal([]byte(v.SnapshotJSON), &boards); err != nil {
		return nil
	}
	return boards
}

// SetStoryboards 序列化并保存分镜快照
func (v *PromptVersion) SetStoryboards(boards []StoryboardSnapshot) error {
	data, err := json.Marshal(boards)
	if err != nil {
		return err
	}
	v.SnapshotJSON = string(data)
	return nil
}

// StoryboardCount 该版本包含的分镜数量
func (v *PromptVersion) StoryboardCount() int {
	return len(v.Storyboards())
}

// FormatVersion 按数字后缀拼出版本号
func FormatVersion(suffix int) string {
	return fmt.Sprintf("v%d", suffix)
}

// ParseVersionSuffix 解析版本号的数字后缀，例如 "v3" -> 3
func ParseVersionSuffix(version string) (int, error) {
	if !strings.HasPrefix(version, "v") {
		return 0, fmt.Errorf("非法版本号: %s", version)
	}

	suffix, err := strconv.Atoi(version[1:])
	if err != nil || suffix <= 0 {
		return 0, fmt.Errorf("非法版本号: %s", version)
	}
	return suffix, nil
}

// DetermineLatestVersion 返回数字后缀最大的版本，空集合返回 nil
func DetermineLatestVersion(versions []PromptVersion) *PromptVersion {
	var latest *PromptVersion
	for i := range versions {
		if latest == nil || versions[i].Suffix > latest.Suffix {
			latest = &versions[i]
		}
	}
	return latest
}

// IsCurrentLatest 判断当前版本是否就是最新版本
func IsCurrentLatest(currentVersion string, versions []PromptVersion) bool {
	latest := DetermineLatestVersion(versions)
	return latest != nil && latest.Version == currentVersion
}
