package model

import (
	"time"
)

// BacklinkStatus 外链状态
const (
	BacklinkStatusActive = "active" // 正常
	BacklinkStatusLost   = "lost"   // 已丢失
	BacklinkStatusBroken = "broken" // 链接失效
)

// Backlink 外链记录
type Backlink struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SourceURL    string    `json:"source_url" gorm:"not null;uniqueIndex;size:500"` // 外链所在页面
	TargetURL    string    `json:"target_url" gorm:"not null;index;size:500"`       // 指向的目标页面
	AnchorText   string    `json:"anchor_text" gorm:"size:200"`
	DomainRating int       `json:"domain_rating" gorm:"default:0"`
	Status       string    `json:"status" gorm:"size:20;default:active;index"`
	FirstSeen    time.Time `json:"first_seen"`
	LastChecked  time.Time `json:"last_checked" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Backlink) TableName() string {
	return "backlinks"
}

// NeedsRecheck 检查外链是否超过巡检周期
func (b *Backlink) NeedsRecheck(maxAge time.Duration) bool {
	return time.Since(b.LastChecked) > maxAge
}

// OutreachTaskStatus 外联任务状态
const (
	OutreachStatusScheduled = "scheduled" // 已排期
	OutreachStatusSent      = "sent"      // 已发送
	OutreachStatusReplied   = "replied"   // 已回复
	OutreachStatusClosed    = "closed"    // 已关闭
)

// OutreachTask 外联排期任务
type OutreachTask struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	TargetSite  string     `json:"target_site" gorm:"not null;size:200"`
	ContactMail string     `json:"contact_mail" gorm:"size:200"`
	Notes       string     `json:"notes" gorm:"type:text"`
	Status      string     `json:"status" gorm:"size:20;default:scheduled;index"`
	ScheduledAt time.Time  `json:"scheduled_at" gorm:"index"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (OutreachTask) TableName() string {
	return "outreach_tasks"
}

// IsDue 检查外联任务是否到期待发送
func (t *OutreachTask) IsDue(now time.Time) bool {
	return t.Status == OutreachStatusScheduled && !t.ScheduledAt.After(now)
}

// BacklinkConfig 外链自动化配置
type BacklinkConfig struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Domain        string    `json:"domain" gorm:"not null;uniqueIndex;size:200"` // 受管目标域名
	AutoFetch     bool      `json:"auto_fetch" gorm:"default:true"`              // 是否参与定时抓取
	AutoRecheck   bool      `json:"auto_recheck" gorm:"default:true"`            // 是否参与定时巡检
	MinDomainRate int       `json:"min_domain_rate" gorm:"default:0"`            // 低于该权重的外链直接忽略
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 指定表名
func (BacklinkConfig) TableName() string {
	return "backlink_configs"
}
