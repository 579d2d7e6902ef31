package model

import (
	"encoding/json"
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusCreated          ProjectStatus = "created"           // 刚创建
	ProjectStatusDownloading      ProjectStatus = "downloading"       // 源视频下载中
	ProjectStatusDownloaded       ProjectStatus = "downloaded"        // 下载完成
	ProjectStatusParsing          ProjectStatus = "parsing"           // 解析分镜中
	ProjectStatusParsed           ProjectStatus = "parsed"            // 分镜解析完成
	ProjectStatusGeneratingPrompt ProjectStatus = "generating_prompts" // 生成提示词中
	ProjectStatusPromptsReady     ProjectStatus = "prompts_ready"     // 提示词就绪
	ProjectStatusGeneratingImages ProjectStatus = "generating_images" // 生成图片中
	ProjectStatusImagesReady      ProjectStatus = "images_ready"      // 图片就绪
	ProjectStatusGeneratingVideos ProjectStatus = "generating_videos" // 生成视频中
	ProjectStatusCompleted        ProjectStatus = "completed"         // 全部完成
	ProjectStatusFailed           ProjectStatus = "failed"            // 失败
)

// VideoProject 视频再创作项目
type VideoProject struct {
	ID                   string        `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name                 string        `json:"name" gorm:"not null;size:200"`
	YoutubeURL           string        `json:"youtube_url" gorm:"not null;size:500"`
	Status               ProjectStatus `json:"status" gorm:"size:30;default:'created';index"`
	VideoPath            string        `json:"video_path,omitempty" gorm:"size:500"`
	ThumbnailURL         string        `json:"thumbnail_url,omitempty" gorm:"size:500"`
	Duration             int           `json:"duration,omitempty"` // 秒
	CurrentPromptVersion string        `json:"current_prompt_version,omitempty" gorm:"size:20;comment:当前生效的提示词版本"`
	StoryboardsJSON      string        `json:"-" gorm:"type:text;comment:当前版本的分镜快照"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// TableName 指定表名
func (VideoProject) TableName() string {
	return "video_projects"
}

// Storyboards 反序列化当前版本的分镜快照
func (p *VideoProject) Storyboards() []StoryboardSnapshot {
	if p.StoryboardsJSON == "" {
		return nil
	}

	var boards []StoryboardSnapshot
	if err := json.Unmarshal([]byte(p.StoryboardsJSON), &boards); err != nil {
		return nil
	}
	return boards
}

// SetStoryboards 序列化并保存分镜快照
func (p *VideoProject) SetStoryboards(boards []StoryboardSnapshot) error {
	data, err := json.Marshal(boards)
	if err != nil {
		return err
	}
	p.StoryboardsJSON = string(data)
	return nil
}
