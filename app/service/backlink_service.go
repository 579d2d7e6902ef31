package service

import (
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"resty.dev/v3"
)

// providerBacklink 外链数据提供方返回的单条记录
type providerBacklink struct {
	SourceURL    string `json:"source_url"`
	TargetURL    string `json:"target_url"`
	AnchorText   string `json:"anchor_text"`
	DomainRating int    `json:"domain_rating"`
	Status       string `json:"status"`
}

type providerResponse struct {
	Backlinks []providerBacklink `json:"backlinks"`
}

// BacklinkService 外链服务
// 从数据提供方抓取外链、定时巡检陈旧记录、派发到期的外联任务
type BacklinkService struct {
	db     *gorm.DB
	cfg    *config.BacklinksConfig
	log    *logger.Logger
	client *resty.Client
	cache  *gocache.Cache
	cron   *cron.Cron
}

// NewBacklinkService 创建外链服务
func NewBacklinkService(db *gorm.DB, cfg *config.BacklinksConfig, log *logger.Logger) *BacklinkService {
	client := resty.New()
	client.SetBaseURL(cfg.ProviderAPI)
	client.SetTimeout(30 * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	cacheTTL := time.Duration(cfg.CacheMinutes) * time.Minute
	return &BacklinkService{
		db:     db,
		cfg:    cfg,
		log:    log,
		client: client,
		cache:  gocache.New(cacheTTL, 10*time.Minute),
		cron:   cron.New(),
	}
}

// Start 注册定时巡检和外联派发任务
func (s *BacklinkService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.MaintenanceCron, s.runMaintenance); err != nil {
		return fmt.Errorf("注册外链巡检任务失败: %w", err)
	}
	// 外联任务每分钟检查一次到期项
	if _, err := s.cron.AddFunc("* * * * *", s.dispatchDueOutreach); err != nil {
		return fmt.Errorf("注册外联派发任务失败: %w", err)
	}

	s.cron.Start()
	s.log.Info("外链定时任务已启动")
	return nil
}

// Stop 停止定时任务
func (s *BacklinkService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("外链定时任务已停止")
}

// FetchBacklinks 从提供方抓取指定域名的外链并入库
// 短时间内的重复抓取直接命中缓存，避免消耗提供方配额
func (s *BacklinkService) FetchBacklinks(domain string) ([]model.Backlink, error) {
	if s.cfg.ProviderAPI == "" {
		return nil, fmt.Errorf("外链数据提供方未配置")
	}

	var result providerResponse
	if cached, found := s.cache.Get(domain); found {
		result = cached.(providerResponse)
		s.log.Debugf("外链抓取命中缓存: %s", domain)
	} else {
		resp, err := s.client.R().
			SetQueryParam("domain", domain).
			SetResult(&result).
			Get("/v1/backlinks")
		if err != nil {
			return nil, fmt.Errorf("请求外链数据失败: %w", err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("抓取外链失败，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
		}
		s.cache.Set(domain, result, gocache.DefaultExpiration)
	}

	minRating := s.minDomainRate(domain)
	now := time.Now()
	saved := make([]model.Backlink, 0, len(result.Backlinks))

	for _, raw := range result.Backlinks {
		if raw.DomainRating < minRating {
			continue
		}

		link := model.Backlink{
			SourceURL:    raw.SourceURL,
			TargetURL:    raw.TargetURL,
			AnchorText:   raw.AnchorText,
			DomainRating: raw.DomainRating,
			Status:       normalizeStatus(raw.Status),
			FirstSeen:    now,
			LastChecked:  now,
		}

		// 已存在的记录只刷新状态和检查时间
		var existing model.Backlink
		err := s.db.Where("source_url = ?", raw.SourceURL).First(&existing).Error
		if err == nil {
			existing.Status = link.Status
			existing.DomainRating = link.DomainRating
			existing.LastChecked = now
			if err := s.db.Save(&existing).Error; err != nil {
				s.log.Errorf("更新外链失败: %v", err)
				continue
			}
			saved = append(saved, existing)
			continue
		}

		if err := s.db.Create(&link).Error; err != nil {
			s.log.Errorf("保存外链失败: %v", err)
			continue
		}
		saved = append(saved, link)
	}

	s.log.Infof("抓取外链完成: 域名=%s, 入库 %d 条", domain, len(saved))
	return saved, nil
}

// runMaintenance 巡检超期未检查的外链
func (s *BacklinkService) runMaintenance() {
	var configs []model.BacklinkConfig
	if err := s.db.Where("auto_recheck = ?", true).Find(&configs).Error; err != nil {
		s.log.Errorf("查询外链配置失败: %v", err)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RecheckAfterDays)
	var stale int64
	if err := s.db.Model(&model.Backlink{}).
		Where("last_checked < ?", cutoff).Count(&stale).Error; err != nil {
		s.log.Errorf("统计陈旧外链失败: %v", err)
		return
	}

	if stale == 0 {
		s.log.Debug("没有需要巡检的外链")
		return
	}

	s.log.Infof("外链巡检: %d 条记录超过 %d 天未检查，重新抓取 %d 个域名",
		stale, s.cfg.RecheckAfterDays, len(configs))

	for _, cfg := range configs {
		if _, err := s.FetchBacklinks(cfg.Domain); err != nil {
			s.log.Warnf("巡检域名 %s 失败: %v", cfg.Domain, err)
		}
	}
}

// dispatchDueOutreach 把到期的外联任务标记为已发送
func (s *BacklinkService) dispatchDueOutreach() {
	var due []model.OutreachTask
	if err := s.db.Where("status = ? AND scheduled_at <= ?",
		model.OutreachStatusScheduled, time.Now()).Find(&due).Error; err != nil {
		s.log.Errorf("查询到期外联任务失败: %v", err)
		return
	}

	for i := range due {
		now := time.Now()
		due[i].Status = model.OutreachStatusSent
		due[i].SentAt = &now
		if err := s.db.Save(&due[i]).Error; err != nil {
			s.log.Errorf("更新外联任务失败: %v", err)
			continue
		}
		s.log.Infof("外联任务已派发: ID=%d, 目标站点=%s", due[i].ID, due[i].TargetSite)
	}
}

func (s *BacklinkService) minDomainRate(domain string) int {
	var cfg model.BacklinkConfig
	if err := s.db.Where("domain = ?", domain).First(&cfg).Error; err != nil {
		return 0
	}
	return cfg.MinDomainRate
}

func normalizeStatus(status string) string {
	switch status {
	case model.BacklinkStatusLost, model.BacklinkStatusBroken:
		return status
	default:
		return model.BacklinkStatusActive
	}
}
