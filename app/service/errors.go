package service

import "errors"

var (
	// ErrActionNotAllowed 当前任务状态不允许该操作
	ErrActionNotAllowed = errors.New("当前任务状态不允许该操作")
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("任务不存在")
	// ErrProjectNotFound 项目不存在
	ErrProjectNotFound = errors.New("项目不存在")
	// ErrVersionNotFound 提示词版本不存在
	ErrVersionNotFound = errors.New("提示词版本不存在")
	// ErrNoVersions 项目还没有任何提示词版本
	ErrNoVersions = errors.New("项目还没有任何提示词版本")
	// ErrConflict 资源已被并发修改，调用方需要刷新权威状态后重试
	ErrConflict = errors.New("资源已被并发修改")
)
