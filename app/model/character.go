package model

import (
	"time"
)

// CharacterMapping 角色参考映射
// 落库存放以便多端共享，项目级映射覆盖全局角色库
type CharacterMapping struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ProjectID         string    `json:"project_id" gorm:"index:idx_project_identifier,unique;type:varchar(64);comment:为空表示全局角色库"`
	Identifier        string    `json:"identifier" gorm:"not null;index:idx_project_identifier,unique;size:10"` // A、B、C、D
	Name              string    `json:"name,omitempty" gorm:"size:100"`
	ReferenceImageURL string    `json:"reference_image_url,omitempty" gorm:"size:500"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CharacterMapping) TableName() string {
	return "character_mappings"
}

// DefaultCharacterIdentifiers 默认的角色标识
var DefaultCharacterIdentifiers = []string{"A", "B", "C", "D"}
