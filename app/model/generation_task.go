package model

import (
	"math"
	"time"
)

// TaskStatus 生成任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskType 生成任务类型
type TaskType string

const (
	TaskTypeImage    TaskType = "image"    // 批量文生图/图文生图
	TaskTypeVideo    TaskType = "video"    // 批量图生视频
	TaskTypeDownload TaskType = "download" // 源视频下载
	TaskTypePrompt   TaskType = "prompt"   // 提示词生成
)

// GenerationTask 生成任务模型，记录引擎侧批量任务的权威状态快照
type GenerationTask struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	ProjectID      string     `json:"project_id" gorm:"not null;index;type:varchar(64)"`
	EngineTaskID   string     `json:"engine_task_id" gorm:"index;comment:引擎侧任务ID"`
	TaskType       TaskType   `json:"task_type" gorm:"size:20;not null"`
	Status         TaskStatus `json:"status" gorm:"size:20;default:'pending';index"`
	Progress       int        `json:"progress" gorm:"default:0"` // 0-100，以引擎上报为准
	TotalItems     int        `json:"total_items" gorm:"default:0"`
	CompletedItems int        `json:"completed_items" gorm:"default:0"`
	FailedItems    int        `json:"failed_items" gorm:"default:0"`
	ErrorMessage   string     `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (GenerationTask) TableName() string {
	return "generation_tasks"
}

// IsTaskTerminal 检查任务是否处于终止状态
func IsTaskTerminal(status TaskStatus) bool {
	return status == TaskStatusCompleted || status == TaskStatusFailed || status == TaskStatusCancelled
}

// CanPauseTask 检查任务是否可以暂停
func CanPauseTask(status TaskStatus) bool {
	return status == TaskStatusPending || status == TaskStatusRunning
}

// CanResumeTask 检查任务是否可以恢复
func CanResumeTask(status TaskStatus) bool {
	return status == TaskStatusPaused
}

// CanCancelTask 检查任务是否可以取消
func CanCancelTask(status TaskStatus) bool {
	return status == TaskStatusPending || status == TaskStatusRunning || status == TaskStatusPaused
}

// CalculateTaskProgress 计算任务进度百分比
// 以 completed_items/total_items 计算并夹在 [0, 100]，total 为 0 时返回 0
func CalculateTaskProgress(task *GenerationTask) int {
	if task == nil || task.TotalItems == 0 {
		return 0
	}

	progress := int(math.Round(float64(task.CompletedItems) / float64(task.TotalItems) * 100))
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
