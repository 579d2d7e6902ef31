package service

import "time"

// Scheduler 可取消的一次性延时调度接口
// 轮询控制器只通过它安排下一次拉取，测试时可以注入假时钟
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

// NewTimerScheduler 创建基于 time.AfterFunc 的调度器
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}
