package model

import (
	"encoding/json"
	"time"
)

// ViralVideo 爆款参考视频
// 再创作选题的素材库条目，带标签、观看数据和分镜拆解文本
type ViralVideo struct {
	ID                  string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name                string    `json:"name" gorm:"not null;size:200"`
	YoutubeURL          string    `json:"youtube_url" gorm:"not null;size:500"`
	VideoURL            string    `json:"video_url,omitempty" gorm:"size:500;comment:转存后的视频地址"`
	CoverURL            string    `json:"cover_url,omitempty" gorm:"size:500;comment:转存后的封面地址"`
	ViewCount           int64     `json:"view_count,omitempty" gorm:"default:0"`
	TagsJSON            string    `json:"-" gorm:"type:text"`
	AnalysisText        string    `json:"analysis_text,omitempty" gorm:"type:text"`
	StoryboardDescsJSON string    `json:"-" gorm:"type:text;comment:分镜拆解文本"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ViralVideo) TableName() string {
	return "viral_videos"
}

// Tags 反序列化标签列表
func (v *ViralVideo) Tags() []string {
	if v.TagsJSON == "" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(v.TagsJSON), &tags); err != nil {
		return nil
	}
	return tags
}

// SetTags 序列化并保存标签列表
func (v *ViralVideo) SetTags(tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	v.TagsJSON = string(data)
	return nil
}

// HasTag 检查视频是否带有指定标签
func (v *ViralVideo) HasTag(tag string) bool {
	for _, t := range v.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// StoryboardDescriptions 反序列化分镜拆解文本
func (v *ViralVideo) StoryboardDescriptions() []string {
	if v.StoryboardDescsJSON == "" {
		return nil
	}

	var descs []string
	if err := json.Unmarshal([]byte(v.StoryboardDescsJSON), &descs); err != nil {
		return nil
	}
	return descs
}

// SetStoryboardDescriptions 序列化并保存分镜拆解文本
func (v *ViralVideo) SetStoryboardDescriptions(descs []string) error {
	data, err := json.Marshal(descs)
	if err != nil {
		return err
	}
	v.StoryboardDescsJSON = string(data)
	return nil
}

// ViralTag 爆款库标签
type ViralTag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex;size:50"`
	Color     string    `json:"color,omitempty" gorm:"size:20"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (ViralTag) TableName() string {
	return "viral_tags"
}
