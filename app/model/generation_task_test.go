package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTaskProgress(t *testing.T) {
	tests := []struct {
		name string
		task *GenerationTask
		want int
	}{
		{
			name: "nil任务返回0",
			task: nil,
			want: 0,
		},
		{
			name: "总数为0返回0",
			task: &GenerationTask{TotalItems: 0, CompletedItems: 5},
			want: 0,
		},
		{
			name: "未开始",
			task: &GenerationTask{TotalItems: 10, CompletedItems: 0},
			want: 0,
		},
		{
			name: "一半完成",
			task: &GenerationTask{TotalItems: 10, CompletedItems: 5},
			want: 50,
		},
		{
			name: "四舍五入向上",
			task: &GenerationTask{TotalItems: 3, CompletedItems: 2},
			want: 67,
		},
		{
			name: "四舍五入向下",
			task: &GenerationTask{TotalItems: 3, CompletedItems: 1},
			want: 33,
		},
		{
			name: "全部完成",
			task: &GenerationTask{TotalItems: 8, CompletedItems: 8},
			want: 100,
		},
		{
			name: "完成数超过总数时夹在100",
			task: &GenerationTask{TotalItems: 4, CompletedItems: 9},
			want: 100,
		},
		{
			name: "负的完成数夹在0",
			task: &GenerationTask{TotalItems: 4, CompletedItems: -3},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateTaskProgress(tt.task))
		})
	}
}

func TestTaskStatusPredicates(t *testing.T) {
	tests := []struct {
		status     TaskStatus
		isTerminal bool
		canPause   bool
		canResume  bool
		canCancel  bool
	}{
		{TaskStatusPending, false, true, false, true},
		{TaskStatusRunning, false, true, false, true},
		{TaskStatusPaused, false, false, true, true},
		{TaskStatusCompleted, true, false, false, false},
		{TaskStatusFailed, true, false, false, false},
		{TaskStatusCancelled, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isTerminal, IsTaskTerminal(tt.status), "IsTaskTerminal")
			assert.Equal(t, tt.canPause, CanPauseTask(tt.status), "CanPauseTask")
			assert.Equal(t, tt.canResume, CanResumeTask(tt.status), "CanResumeTask")
			assert.Equal(t, tt.canCancel, CanCancelTask(tt.status), "CanCancelTask")
		})
	}
}
