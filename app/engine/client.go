package engine

import (
	"context"
	"fmt"
	"media-forge/app/config"
	"media-forge/app/model"
	"os"
	"path/filepath"
	"time"

	"resty.dev/v3"
)

// TaskInfo 引擎侧任务资源
type TaskInfo struct {
	ID             string           `json:"id"`
	TaskType       model.TaskType   `json:"task_type"`
	Status         model.TaskStatus `json:"status"`
	Progress       int              `json:"progress"`
	TotalItems     int              `json:"total_items"`
	CompletedItems int              `json:"completed_items"`
	FailedItems    int              `json:"failed_items"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	Items          []TaskItem       `json:"items,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TaskItem 批量任务中单个分镜的产出
type TaskItem struct {
	Index int    `json:"index"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// TaskActionResponse 暂停/恢复/取消的响应
type TaskActionResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GeneratePromptsRequest 提示词生成请求
type GeneratePromptsRequest struct {
	ProjectID   string                     `json:"project_id"`
	Instruction string                     `json:"instruction,omitempty"`
	Storyboards []model.StoryboardSnapshot `json:"storyboards,omitempty"` // 作为生成基础的当前版本快照
}

// PromptResult 提示词生成结果
type PromptResult struct {
	Storyboards []model.StoryboardSnapshot `json:"storyboards"`
}

// BatchGenerateRequest 批量图片/视频生成请求
type BatchGenerateRequest struct {
	ProjectID         string                     `json:"project_id"`
	Storyboards       []model.StoryboardSnapshot `json:"storyboards"`
	StoryboardIndices []int                      `json:"storyboard_indices,omitempty"` // 为空表示全部
	CharacterImages   map[string]string          `json:"character_images,omitempty"`   // 角色标识 -> 参考图
}

// batchTaskResponse 批量生成接口的响应
type batchTaskResponse struct {
	TaskID string `json:"task_id"`
}

// Client 生成引擎客户端
type Client struct {
	cfg    *config.EngineConfig
	client *resty.Client
}

// New 创建生成引擎客户端
func New(cfg *config.EngineConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &Client{
		cfg:    cfg,
		client: client,
	}
}

// GetTask 获取任务的权威状态
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskInfo, error) {
	var task TaskInfo

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&task).
		Get(fmt.Sprintf("/v1/tasks/%s", taskID))

	if err != nil {
		return nil, fmt.Errorf("请求任务状态失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("获取任务状态失败，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}

	return &task, nil
}

// PauseTask 暂停任务
func (c *Client) PauseTask(ctx context.Context, taskID string) (*TaskActionResponse, error) {
	return c.taskAction(ctx, taskID, "pause")
}

// ResumeTask 恢复任务
func (c *Client) ResumeTask(ctx context.Context, taskID string) (*TaskActionResponse, error) {
	return c.taskAction(ctx, taskID, "resume")
}

// CancelTask 取消任务
func (c *Client) CancelTask(ctx context.Context, taskID string) (*TaskActionResponse, error) {
	return c.taskAction(ctx, taskID, "cancel")
}

func (c *Client) taskAction(ctx context.Context, taskID, action string) (*TaskActionResponse, error) {
	var result TaskActionResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Post(fmt.Sprintf("/v1/tasks/%s/%s", taskID, action))

	if err != nil {
		return nil, fmt.Errorf("任务操作 %s 请求失败: %w", action, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("任务操作 %s 失败，状态码: %d, 响应: %s", action, resp.StatusCode(), resp.String())
	}

	return &result, nil
}

// GeneratePrompts 生成分镜提示词（同步接口）
func (c *Client) GeneratePrompts(ctx context.Context, req *GeneratePromptsRequest) (*PromptResult, error) {
	var result PromptResult

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/v1/prompts/generate")

	if err != nil {
		return nil, fmt.Errorf("提示词生成请求失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("提示词生成失败，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}

	return &result, nil
}

// GenerateImages 发起批量图片生成，返回引擎侧任务ID
func (c *Client) GenerateImages(ctx context.Context, req *BatchGenerateRequest) (string, error) {
	return c.startBatch(ctx, "/v1/images/batch", req)
}

// GenerateVideos 发起批量视频生成，返回引擎侧任务ID
func (c *Client) GenerateVideos(ctx context.Context, req *BatchGenerateRequest) (string, error) {
	return c.startBatch(ctx, "/v1/videos/batch", req)
}

func (c *Client) startBatch(ctx context.Context, path string, req *BatchGenerateRequest) (string, error) {
	var result batchTaskResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(path)

	if err != nil {
		return "", fmt.Errorf("批量生成请求失败: %w", err)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 202 {
		return "", fmt.Errorf("批量生成失败，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}
	if result.TaskID == "" {
		return "", fmt.Errorf("批量生成接口未返回任务ID")
	}

	return result.TaskID, nil
}

// StartDownload 发起源视频下载，返回引擎侧任务ID
func (c *Client) StartDownload(ctx context.Context, projectID, youtubeURL string) (string, error) {
	var result batchTaskResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"project_id": projectID, "youtube_url": youtubeURL}).
		SetResult(&result).
		Post("/v1/downloads")

	if err != nil {
		return "", fmt.Errorf("下载请求失败: %w", err)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 202 {
		return "", fmt.Errorf("下载请求失败，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}
	if result.TaskID == "" {
		return "", fmt.Errorf("下载接口未返回任务ID")
	}

	return result.TaskID, nil
}

// FetchFile 下载生成产物到本地
func (c *Client) FetchFile(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("创建产物目录失败: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetOutputFileName(destPath).
		SetSaveResponse(true).
		Get(url)

	if err != nil {
		return fmt.Errorf("下载产物失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("下载产物失败，状态码: %d", resp.StatusCode())
	}

	return nil
}
