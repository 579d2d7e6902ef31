package service

import (
	"context"
	"errors"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/engine"
	"media-forge/app/logger"
	"media-forge/app/model"
	"media-forge/app/utils/imagehelper"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenerationEngine 生成编排服务依赖的引擎接口
type GenerationEngine interface {
	TaskClient
	GenerateImages(ctx context.Context, req *engine.BatchGenerateRequest) (string, error)
	GenerateVideos(ctx context.Context, req *engine.BatchGenerateRequest) (string, error)
	StartDownload(ctx context.Context, projectID, youtubeURL string) (string, error)
	FetchFile(ctx context.Context, url, destPath string) error
}

// GenerationService 生成任务编排服务
// 负责创建本地任务记录、把批量生成派发给引擎、用轮询控制器跟踪引擎侧状态，
// 并在任务结束时回写项目状态和产物
type GenerationService struct {
	db  *gorm.DB
	eng GenerationEngine
	cfg *config.Config
	log *logger.Logger

	mu      sync.Mutex
	pollers map[string]*TaskPoller // 本地任务ID -> 活跃的轮询控制器
}

// NewGenerationService 创建生成任务编排服务
func NewGenerationService(db *gorm.DB, eng GenerationEngine, cfg *config.Config, log *logger.Logger) *GenerationService {
	return &GenerationService{
		db:      db,
		eng:     eng,
		cfg:     cfg,
		log:     log,
		pollers: make(map[string]*TaskPoller),
	}
}

// pollInterval 引擎任务的轮询间隔
func (s *GenerationService) pollInterval() time.Duration {
	return time.Duration(s.cfg.Engine.PollIntervalMs) * time.Millisecond
}

// GetTask 查询本地任务记录
func (s *GenerationService) GetTask(taskID string) (*model.GenerationTask, error) {
	var task model.GenerationTask
	if err := s.db.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return &task, nil
}

// ListProjectTasks 查询项目的任务记录
func (s *GenerationService) ListProjectTasks(projectID string) ([]model.GenerationTask, error) {
	var tasks []model.GenerationTask
	if err := s.db.Where("project_id = ?", projectID).
		Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("查询项目任务失败: %w", err)
	}
	return tasks, nil
}

// StartImageGeneration 发起批量图片生成
func (s *GenerationService) StartImageGeneration(ctx context.Context, projectID string, indices []int) (*model.GenerationTask, error) {
	project, boards, err := s.loadProjectWithBoards(projectID)
	if err != nil {
		return nil, err
	}

	characterImages, err := s.characterImages(projectID)
	if err != nil {
		return nil, err
	}

	total := len(indices)
	if total == 0 {
		total = len(boards)
	}

	engineTaskID, err := s.eng.GenerateImages(ctx, &engine.BatchGenerateRequest{
		ProjectID:         projectID,
		Storyboards:       boards,
		StoryboardIndices: indices,
		CharacterImages:   characterImages,
	})
	if err != nil {
		return nil, err
	}

	return s.createAndTrack(project, model.TaskTypeImage, engineTaskID, total, model.ProjectStatusGeneratingImages)
}

// StartVideoGeneration 发起批量视频生成
func (s *GenerationService) StartVideoGeneration(ctx context.Context, projectID string, indices []int) (*model.GenerationTask, error) {
	project, boards, err := s.loadProjectWithBoards(projectID)
	if err != nil {
		return nil, err
	}

	total := len(indices)
	if total == 0 {
		total = len(boards)
	}

	engineTaskID, err := s.eng.GenerateVideos(ctx, &engine.BatchGenerateRequest{
		ProjectID:         projectID,
		Storyboards:       boards,
		StoryboardIndices: indices,
	})
	if err != nil {
		return nil, err
	}

	return s.createAndTrack(project, model.TaskTypeVideo, engineTaskID, total, model.ProjectStatusGeneratingVideos)
}

// StartDownload 发起源视频下载
func (s *GenerationService) StartDownload(ctx context.Context, projectID string) (*model.GenerationTask, error) {
	var project model.VideoProject
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("查询项目失败: %w", err)
	}

	engineTaskID, err := s.eng.StartDownload(ctx, projectID, project.YoutubeURL)
	if err != nil {
		return nil, err
	}

	return s.createAndTrack(&project, model.TaskTypeDownload, engineTaskID, 1, model.ProjectStatusDownloading)
}

// PauseTask 暂停任务；前置校验不通过时不会触碰引擎
func (s *GenerationService) PauseTask(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	return s.taskAction(ctx, taskID, model.CanPauseTask,
		func(p *TaskPoller) error { return p.Pause(ctx) },
		s.eng.PauseTask, model.TaskStatusPaused)
}

// ResumeTask 恢复任务
func (s *GenerationService) ResumeTask(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	return s.taskAction(ctx, taskID, model.CanResumeTask,
		func(p *TaskPoller) error { return p.Resume(ctx) },
		s.eng.ResumeTask, model.TaskStatusRunning)
}

// CancelTask 取消任务
// 确认交互由前端负责，这里保持独立入口
func (s *GenerationService) CancelTask(ctx context.Context, taskID string) (*model.GenerationTask, error) {
	return s.taskAction(ctx, taskID, model.CanCancelTask,
		func(p *TaskPoller) error { return p.Cancel(ctx) },
		s.eng.CancelTask, model.TaskStatusCancelled)
}

func (s *GenerationService) taskAction(
	ctx context.Context,
	taskID string,
	allowed func(model.TaskStatus) bool,
	viaPoller func(*TaskPoller) error,
	direct func(ctx context.Context, engineTaskID string) (*engine.TaskActionResponse, error),
	optimistic model.TaskStatus,
) (*model.GenerationTask, error) {
	task, err := s.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if !allowed(task.Status) {
		return nil, ErrActionNotAllowed
	}

	s.mu.Lock()
	poller := s.pollers[taskID]
	s.mu.Unlock()

	if poller != nil {
		if err := viaPoller(poller); err != nil {
			return nil, err
		}
	} else {
		// 没有活跃轮询器（例如服务重启后），直接操作引擎
		if _, err := direct(ctx, task.EngineTaskID); err != nil {
			return nil, err
		}
	}

	// 乐观更新本地记录，等下一次权威轮询覆盖；已是终态则不动
	if !model.IsTaskTerminal(task.Status) {
		task.Status = optimistic
		if err := s.db.Model(&model.GenerationTask{}).
			Where("id = ?", taskID).Update("status", optimistic).Error; err != nil {
			s.log.Errorf("更新任务状态失败: %v", err)
		}
	}

	return task, nil
}

// ResumeActivePolling 启动时恢复非终态任务的轮询
func (s *GenerationService) ResumeActivePolling() {
	var tasks []model.GenerationTask
	if err := s.db.Where("status IN ?", []model.TaskStatus{
		model.TaskStatusPending, model.TaskStatusRunning, model.TaskStatusPaused,
	}).Find(&tasks).Error; err != nil {
		s.log.Errorf("查询未完成任务失败: %v", err)
		return
	}

	for i := range tasks {
		task := tasks[i]
		s.log.Infof("恢复任务轮询: TaskID=%s, 类型=%s", task.ID, task.TaskType)
		s.track(&task)
	}
}

// Shutdown 关闭全部活跃的轮询控制器
func (s *GenerationService) Shutdown() {
	s.mu.Lock()
	pollers := make([]*TaskPoller, 0, len(s.pollers))
	for _, p := range s.pollers {
		pollers = append(pollers, p)
	}
	s.pollers = make(map[string]*TaskPoller)
	s.mu.Unlock()

	for _, p := range pollers {
		p.Close()
	}
}

// createAndTrack 落库本地任务记录并启动轮询
func (s *GenerationService) createAndTrack(project *model.VideoProject, taskType model.TaskType, engineTaskID string, total int, projectStatus model.ProjectStatus) (*model.GenerationTask, error) {
	task := &model.GenerationTask{
		ID:           uuid.NewString(),
		ProjectID:    project.ID,
		EngineTaskID: engineTaskID,
		TaskType:     taskType,
		Status:       model.TaskStatusPending,
		TotalItems:   total,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("创建任务记录失败: %w", err)
		}
		return tx.Model(&model.VideoProject{}).
			Where("id = ?", project.ID).Update("status", projectStatus).Error
	})
	if err != nil {
		return nil, err
	}

	s.track(task)
	s.log.Infof("任务已创建: TaskID=%s, 类型=%s, 引擎任务=%s, 共 %d 项", task.ID, taskType, engineTaskID, total)
	return task, nil
}

// track 为任务启动一个轮询控制器
func (s *GenerationService) track(task *model.GenerationTask) {
	localID := task.ID
	projectID := task.ProjectID
	taskType := task.TaskType

	opts := DefaultPollerOptions()
	opts.Interval = s.pollInterval()
	opts.OnStatusChange = func(polled *model.GenerationTask, prev model.TaskStatus) {
		s.log.Infof("任务状态变化: TaskID=%s, %s -> %s, 进度 %d/%d",
			localID, prev, polled.Status, polled.CompletedItems, polled.TotalItems)
		s.persistPoll(localID, polled)
	}
	opts.OnError = func(err error) {
		s.log.Warnf("任务轮询失败: TaskID=%s, 错误: %v", localID, err)
	}

	var poller *TaskPoller
	opts.OnComplete = func(polled *model.GenerationTask) {
		s.handleCompleted(localID, projectID, taskType, poller)
		s.untrack(localID)
	}
	opts.OnFailed = func(polled *model.GenerationTask) {
		s.log.Errorf("任务失败: TaskID=%s, 错误: %s", localID, polled.ErrorMessage)
		s.setProjectStatus(projectID, model.ProjectStatusFailed)
		s.untrack(localID)
	}

	poller = NewTaskPoller(s.eng, NewTimerScheduler(), opts)

	s.mu.Lock()
	s.pollers[localID] = poller
	s.mu.Unlock()

	poller.Start(task.EngineTaskID)
}

func (s *GenerationService) untrack(localID string) {
	s.mu.Lock()
	delete(s.pollers, localID)
	s.mu.Unlock()
}

// persistPoll 把权威轮询结果回写到本地任务记录
func (s *GenerationService) persistPoll(localID string, polled *model.GenerationTask) {
	updates := map[string]any{
		"status":          polled.Status,
		"progress":        polled.Progress,
		"total_items":     polled.TotalItems,
		"completed_items": polled.CompletedItems,
		"failed_items":    polled.FailedItems,
		"error_message":   polled.ErrorMessage,
	}
	if err := s.db.Model(&model.GenerationTask{}).
		Where("id = ?", localID).Updates(updates).Error; err != nil {
		s.log.Errorf("回写任务状态失败: TaskID=%s, 错误: %v", localID, err)
	}
}

// handleCompleted 任务完成后的收尾：下载产物、更新分镜快照和项目状态
func (s *GenerationService) handleCompleted(localID, projectID string, taskType model.TaskType, poller *TaskPoller) {
	s.log.Infof("任务完成: TaskID=%s, 类型=%s", localID, taskType)

	switch taskType {
	case model.TaskTypeImage:
		s.collectResults(projectID, poller, true)
		s.setProjectStatus(projectID, model.ProjectStatusImagesReady)
	case model.TaskTypeVideo:
		s.collectResults(projectID, poller, false)
		s.setProjectStatus(projectID, model.ProjectStatusCompleted)
	case model.TaskTypeDownload:
		s.setProjectStatus(projectID, model.ProjectStatusDownloaded)
	default:
		s.setProjectStatus(projectID, model.ProjectStatusPromptsReady)
	}
}

// collectResults 把引擎产出的 URL 写回分镜快照，下载图片并生成缩略图
func (s *GenerationService) collectResults(projectID string, poller *TaskPoller, isImage bool) {
	if poller == nil {
		return
	}
	info := poller.Info()
	if info == nil || len(info.Items) == 0 {
		return
	}

	var project model.VideoProject
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		s.log.Errorf("查询项目失败: %v", err)
		return
	}

	boards := project.Storyboards()
	byIndex := make(map[int]int, len(boards))
	for i, b := range boards {
		byIndex[b.Index] = i
	}

	mediaDir := filepath.Join(s.cfg.Server.MediaDir, projectID)
	for _, item := range info.Items {
		i, ok := byIndex[item.Index]
		if !ok {
			continue
		}

		if item.Error != "" {
			// 失败项放一张占位卡片，方便前端展示
			if isImage {
				placeholder := filepath.Join(mediaDir, "thumbs", fmt.Sprintf("sb_%d_failed.png", item.Index))
				if err := imagehelper.PlaceholderCard(placeholder, item.Index, item.Error); err != nil {
					s.log.Warnf("生成占位卡片失败: %v", err)
				} else {
					boards[i].ThumbnailPath = placeholder
				}
			}
			continue
		}

		if isImage {
			boards[i].ImageURL = item.URL
			dest := filepath.Join(mediaDir, "images", fmt.Sprintf("sb_%d.png", item.Index))
			thumb := filepath.Join(mediaDir, "thumbs", fmt.Sprintf("sb_%d.jpg", item.Index))
			if err := s.eng.FetchFile(context.Background(), item.URL, dest); err != nil {
				s.log.Warnf("下载图片失败: 分镜 %d, 错误: %v", item.Index, err)
				continue
			}
			if err := imagehelper.MakeThumbnail(dest, thumb, 320); err != nil {
				s.log.Warnf("生成缩略图失败: 分镜 %d, 错误: %v", item.Index, err)
			} else {
				boards[i].ThumbnailPath = thumb
			}
		} else {
			boards[i].VideoURL = item.URL
		}
	}

	if err := project.SetStoryboards(boards); err != nil {
		s.log.Errorf("序列化分镜快照失败: %v", err)
		return
	}
	if err := s.db.Model(&model.VideoProject{}).Where("id = ?", projectID).
		Update("storyboards_json", project.StoryboardsJSON).Error; err != nil {
		s.log.Errorf("回写分镜快照失败: %v", err)
	}

	// 当前版本的快照同步更新
	if project.CurrentPromptVersion != "" {
		if err := s.db.Model(&model.PromptVersion{}).
			Where("project_id = ? AND version = ?", projectID, project.CurrentPromptVersion).
			Update("snapshot_json", project.StoryboardsJSON).Error; err != nil {
			s.log.Errorf("回写版本快照失败: %v", err)
		}
	}
}

func (s *GenerationService) setProjectStatus(projectID string, status model.ProjectStatus) {
	if err := s.db.Model(&model.VideoProject{}).
		Where("id = ?", projectID).Update("status", status).Error; err != nil {
		s.log.Errorf("更新项目状态失败: %v", err)
	}
}

func (s *GenerationService) loadProjectWithBoards(projectID string) (*model.VideoProject, []model.StoryboardSnapshot, error) {
	var project model.VideoProject
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("查询项目失败: %w", err)
	}

	boards := project.Storyboards()
	if len(boards) == 0 {
		return nil, nil, fmt.Errorf("项目还没有可用的分镜提示词")
	}
	return &project, boards, nil
}

// characterImages 汇总项目可用的角色参考图（项目级覆盖全局库）
func (s *GenerationService) characterImages(projectID string) (map[string]string, error) {
	var mappings []model.CharacterMapping
	if err := s.db.Where("project_id = ? OR project_id = ''", projectID).
		Order("project_id ASC").Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("查询角色映射失败: %w", err)
	}

	images := make(map[string]string)
	for _, m := range mappings {
		if m.ReferenceImageURL != "" {
			images[m.Identifier] = m.ReferenceImageURL
		}
	}
	return images, nil
}
