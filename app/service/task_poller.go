package service

import (
	"context"
	"media-forge/app/engine"
	"media-forge/app/model"
	"sync"
	"time"
)

// DefaultPollInterval 默认轮询间隔
const DefaultPollInterval = 3 * time.Second

// TaskClient 轮询控制器依赖的引擎任务接口
type TaskClient interface {
	GetTask(ctx context.Context, taskID string) (*engine.TaskInfo, error)
	PauseTask(ctx context.Context, taskID string) (*engine.TaskActionResponse, error)
	ResumeTask(ctx context.Context, taskID string) (*engine.TaskActionResponse, error)
	CancelTask(ctx context.Context, taskID string) (*engine.TaskActionResponse, error)
}

// PollerOptions 轮询控制器选项
type PollerOptions struct {
	Interval  time.Duration // 轮询间隔，默认 3 秒
	AutoStart bool          // Start 后是否立即开始轮询

	OnComplete     func(task *model.GenerationTask)
	OnFailed       func(task *model.GenerationTask)
	OnStatusChange func(task *model.GenerationTask, prevStatus model.TaskStatus) // 首次观察时 prevStatus 为空
	OnError        func(err error)                                               // 拉取或远端操作失败
}

// DefaultPollerOptions 返回默认选项
func DefaultPollerOptions() PollerOptions {
	return PollerOptions{
		Interval:  DefaultPollInterval,
		AutoStart: true,
	}
}

// TaskPoller 任务轮询控制器
//
// 周期性拉取引擎侧任务的权威状态，保证：
//   - 同一任务的拉取严格串行，过期代数的结果直接丢弃
//   - 状态变化回调每次转移只触发一次，终态回调恰好一次
//   - 终态具有粘滞性，之后不再调度拉取
//   - Close 后不再触发任何回调
type TaskPoller struct {
	client TaskClient
	sched  Scheduler
	opts   PollerOptions

	mu          sync.Mutex
	cbMu        sync.Mutex // 回调屏障，Close 借助它等待在途回调结束
	taskID      string
	task        *model.GenerationTask
	info        *engine.TaskInfo
	prevStatus  model.TaskStatus // 空表示尚未观察到任何状态
	polling     bool
	paused      bool
	fetching    bool
	gen         uint64 // 代数，Start 时递增，用于丢弃过期的在途结果
	cancelTimer func()
	closed      bool
	lastErr     error
}

// NewTaskPoller 创建任务轮询控制器
func NewTaskPoller(client TaskClient, sched Scheduler, opts PollerOptions) *TaskPoller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if sched == nil {
		sched = NewTimerScheduler()
	}

	return &TaskPoller{
		client: client,
		sched:  sched,
		opts:   opts,
	}
}

// Start 开始轮询指定任务；taskID 为空时不产生任何网络活动
func (p *TaskPoller) Start(taskID string) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.stopTimerLocked()
	p.taskID = taskID
	p.task = nil
	p.info = nil
	p.prevStatus = ""
	p.lastErr = nil
	p.paused = !p.opts.AutoStart
	p.polling = false
	// 在途的旧代拉取不能阻塞新代的首次拉取，其结果会按代数丢弃
	p.fetching = false

	if taskID == "" || p.closed || p.paused {
		p.mu.Unlock()
		return
	}

	p.polling = true
	p.mu.Unlock()

	// 立即执行首次拉取
	go p.pollOnce(gen)
}

// Close 停止轮询并保证之后不再触发任何回调
func (p *TaskPoller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.polling = false
	p.stopTimerLocked()
	p.mu.Unlock()

	// 等待在途回调结束
	p.cbMu.Lock()
	p.cbMu.Unlock() //nolint:staticcheck // 仅作为屏障
}

// PausePolling 挂起定时器，保留最后一次拉取到的任务
func (p *TaskPoller) PausePolling() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paused = true
	p.polling = false
	p.stopTimerLocked()
}

// ResumePolling 恢复定时器并立即触发一次拉取
func (p *TaskPoller) ResumePolling() {
	p.mu.Lock()
	if p.closed || p.taskID == "" {
		p.mu.Unlock()
		return
	}

	p.paused = false
	if p.task != nil && model.IsTaskTerminal(p.task.Status) {
		// 终态粘滞，不再重启轮询
		p.mu.Unlock()
		return
	}

	p.polling = true
	gen := p.gen
	p.mu.Unlock()

	go p.pollOnce(gen)
}

// Task 返回最后一次观察到的任务快照
func (p *TaskPoller) Task() *model.GenerationTask {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.task == nil {
		return nil
	}
	task := *p.task
	return &task
}

// Info 返回最后一次拉取的引擎侧完整响应（含单项产出）
func (p *TaskPoller) Info() *engine.TaskInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// IsPolling 定时器是否处于活跃状态
func (p *TaskPoller) IsPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polling
}

// LastError 最近一次拉取失败的错误，成功拉取后清空
func (p *TaskPoller) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Pause 暂停远端任务
// 先检查本地已知状态，不允许时不发起远端调用；成功后乐观地置为 paused
func (p *TaskPoller) Pause(ctx context.Context) error {
	return p.action(ctx, model.CanPauseTask, p.client.PauseTask, model.TaskStatusPaused)
}

// Resume 恢复远端任务
func (p *TaskPoller) Resume(ctx context.Context) error {
	return p.action(ctx, model.CanResumeTask, p.client.ResumeTask, model.TaskStatusRunning)
}

// Cancel 取消远端任务
// 确认对话框由上层负责，这里保持可独立调用以便单测
func (p *TaskPoller) Cancel(ctx context.Context) error {
	return p.action(ctx, model.CanCancelTask, p.client.CancelTask, model.TaskStatusCancelled)
}

func (p *TaskPoller) action(
	ctx context.Context,
	allowed func(model.TaskStatus) bool,
	call func(ctx context.Context, taskID string) (*engine.TaskActionResponse, error),
	optimistic model.TaskStatus,
) error {
	p.mu.Lock()
	if p.closed || p.task == nil || !allowed(p.task.Status) {
		p.mu.Unlock()
		return ErrActionNotAllowed
	}
	taskID := p.taskID
	p.mu.Unlock()

	if _, err := call(ctx, taskID); err != nil {
		// 远端失败时本地状态保持不变，仅向上报告
		p.invoke(func() {
			if p.opts.OnError != nil {
				p.opts.OnError(err)
			}
		})
		return err
	}

	p.applyOptimistic(optimistic)
	return nil
}

// applyOptimistic 在下一次权威拉取之前先行更新本地状态
// 已观察到的终态绝不会被乐观更新覆盖
func (p *TaskPoller) applyOptimistic(status model.TaskStatus) {
	p.mu.Lock()
	if p.closed || p.task == nil || model.IsTaskTerminal(p.task.Status) {
		p.mu.Unlock()
		return
	}

	task := *p.task
	task.Status = status
	prev := p.prevStatus
	changed := status != prev

	p.task = &task
	if changed {
		p.prevStatus = status
	}
	onChange := p.opts.OnStatusChange
	p.mu.Unlock()

	if changed && onChange != nil {
		p.invoke(func() { onChange(&task, prev) })
	}
}

// pollOnce 执行一次拉取，结果通过 apply 串行落地
func (p *TaskPoller) pollOnce(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.gen || p.fetching || p.paused || !p.polling {
		p.mu.Unlock()
		return
	}
	p.fetching = true
	taskID := p.taskID
	p.mu.Unlock()

	info, err := p.client.GetTask(context.Background(), taskID)
	p.apply(gen, info, err)
}

func (p *TaskPoller) apply(gen uint64, info *engine.TaskInfo, err error) {
	p.mu.Lock()
	// 过期代数的在途结果直接丢弃，也不触碰新代的拉取标记
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.fetching = false

	if err != nil {
		// 拉取失败不终止轮询，下一个周期继续尝试
		p.lastErr = err
		if !p.paused {
			p.scheduleNextLocked(gen)
		}
		onError := p.opts.OnError
		p.mu.Unlock()

		if onError != nil {
			p.invoke(func() { onError(err) })
		}
		return
	}

	p.lastErr = nil
	task := taskFromInfo(info)
	prev := p.prevStatus
	changed := task.Status != prev

	p.task = task
	p.info = info
	if changed {
		p.prevStatus = task.Status
	}

	if model.IsTaskTerminal(task.Status) {
		// 终态：停止定时器，此后不再拉取
		p.polling = false
		p.stopTimerLocked()
	} else if !p.paused {
		p.scheduleNextLocked(gen)
	}

	onChange := p.opts.OnStatusChange
	onComplete := p.opts.OnComplete
	onFailed := p.opts.OnFailed
	p.mu.Unlock()

	if !changed {
		return
	}

	p.invoke(func() {
		if onChange != nil {
			onChange(task, prev)
		}
		switch task.Status {
		case model.TaskStatusCompleted:
			if onComplete != nil {
				onComplete(task)
			}
		case model.TaskStatusFailed:
			if onFailed != nil {
				onFailed(task)
			}
		}
	})
}

// invoke 在回调屏障内触发回调，Close 之后一律不再触发
func (p *TaskPoller) invoke(fn func()) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	fn()
}

func (p *TaskPoller) scheduleNextLocked(gen uint64) {
	p.stopTimerLocked()
	p.polling = true
	p.cancelTimer = p.sched.Schedule(p.opts.Interval, func() { p.pollOnce(gen) })
}

func (p *TaskPoller) stopTimerLocked() {
	if p.cancelTimer != nil {
		p.cancelTimer()
		p.cancelTimer = nil
	}
}

// taskFromInfo 把引擎侧任务资源转成本地任务快照
func taskFromInfo(info *engine.TaskInfo) *model.GenerationTask {
	return &model.GenerationTask{
		ID:             info.ID,
		EngineTaskID:   info.ID,
		TaskType:       info.TaskType,
		Status:         info.Status,
		Progress:       info.Progress,
		TotalItems:     info.TotalItems,
		CompletedItems: info.CompletedItems,
		FailedItems:    info.FailedItems,
		ErrorMessage:   info.ErrorMessage,
		CreatedAt:      info.CreatedAt,
		UpdatedAt:      info.UpdatedAt,
	}
}
