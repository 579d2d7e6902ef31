package server

import (
	"context"
	"media-forge/app/config"
	"media-forge/app/database"
	"media-forge/app/engine"
	"media-forge/app/filewatcher"
	"media-forge/app/handler"
	"media-forge/app/logger"
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config            *config.Config
	Logger            *logger.Logger
	gin               *gin.Engine
	http              *http.Server
	generationService *service.GenerationService
	promptService     *service.PromptVersionService
	backlinkService   *service.BacklinkService
	characterWatcher  *filewatcher.CharacterWatcher
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.Default()

	engineClient := engine.New(&cfg.Engine)

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:            cfg,
		Logger:            log,
		generationService: service.NewGenerationService(database.DB, engineClient, cfg, log),
		promptService:     service.NewPromptVersionService(database.DB, engineClient, log),
		backlinkService:   service.NewBacklinkService(database.DB, &cfg.Backlinks, log),
	}

	watcher, err := filewatcher.NewCharacterWatcher(&cfg.Characters, database.DB, log)
	if err != nil {
		log.Warnf("创建角色参考图监控器失败: %v", err)
	} else {
		s.characterWatcher = watcher
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 恢复上次运行中未结束任务的轮询
	s.generationService.ResumeActivePolling()

	// 启动外链定时任务
	if err := s.backlinkService.Start(); err != nil {
		s.Logger.Errorf("启动外链定时任务失败: %v", err)
	}

	// 启动角色参考图监控
	if err := s.characterWatcher.Start(); err != nil {
		s.Logger.Errorf("启动角色参考图监控失败: %v", err)
	}

	return s.http.ListenAndServe()
}

// Shutdown 优雅关闭服务器和后台服务
func (s *Server) Shutdown(ctx context.Context) error {
	// 停止角色参考图监控
	if err := s.characterWatcher.Stop(); err != nil {
		s.Logger.Errorf("停止角色参考图监控失败: %v", err)
	}

	// 停止外链定时任务
	s.backlinkService.Stop()

	// 关闭全部活跃的任务轮询
	s.generationService.Shutdown()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	// 创建处理器实例
	projectHandler := handler.NewProjectHandler()
	promptHandler := handler.NewPromptHandler(s.promptService)
	taskHandler := handler.NewTaskHandler(s.generationService)
	backlinkHandler := handler.NewBacklinkHandler(s.backlinkService)
	characterHandler := handler.NewCharacterHandler()
	viralHandler := handler.NewViralHandler()

	// 生成产物（图片/缩略图/视频）静态服务
	s.gin.Static("/media", s.Config.Server.MediaDir)

	// API路由组
	api := s.gin.Group("/api")

	// 视频项目相关路由
	projects := api.Group("/projects")
	{
		// 基础CRUD操作
		projects.POST("/", projectHandler.CreateProject)
		projects.GET("/", projectHandler.GetProjects)
		projects.GET("/:id", projectHandler.GetProject)
		projects.PUT("/:id", projectHandler.UpdateProject)
		projects.DELETE("/:id", projectHandler.DeleteProject)

		// 提示词版本相关
		projects.GET("/:id/prompt-history", promptHandler.GetHistory)
		projects.POST("/:id/prompts/generate", promptHandler.GeneratePrompts)
		projects.POST("/:id/prompts/continue", promptHandler.ContinuePrompts)
		projects.POST("/:id/prompts/regenerate", promptHandler.RegeneratePrompts)
		projects.POST("/:id/prompts/switch-version", promptHandler.SwitchVersion)
		projects.GET("/:id/prompts/export", projectHandler.ExportPrompts)

		// 生成任务派发
		projects.POST("/:id/generate/images", taskHandler.GenerateImages)
		projects.POST("/:id/generate/videos", taskHandler.GenerateVideos)
		projects.POST("/:id/download", taskHandler.StartDownload)
		projects.GET("/:id/tasks", taskHandler.GetProjectTasks)
	}

	// 任务控制相关路由
	tasks := api.Group("/tasks")
	{
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.POST("/:id/pause", taskHandler.PauseTask)
		tasks.POST("/:id/resume", taskHandler.ResumeTask)
		tasks.POST("/:id/cancel", taskHandler.CancelTask)
	}

	// 外链管理相关路由
	backlinks := api.Group("/backlinks")
	{
		backlinks.GET("/", backlinkHandler.GetBacklinks)
		backlinks.POST("/fetch", backlinkHandler.FetchBacklinks)
		backlinks.GET("/configs", backlinkHandler.GetConfigs)
		backlinks.POST("/configs", backlinkHandler.SaveConfig)
		backlinks.GET("/outreach", backlinkHandler.GetOutreachTasks)
		backlinks.POST("/outreach", backlinkHandler.CreateOutreachTask)
		backlinks.PUT("/outreach/:id", backlinkHandler.UpdateOutreachTask)
	}

	// 爆款库相关路由
	viral := api.Group("/viral")
	{
		viral.GET("/videos", viralHandler.GetViralVideos)
		viral.POST("/videos", viralHandler.CreateViralVideo)
		viral.GET("/videos/:id", viralHandler.GetViralVideo)
		viral.PUT("/videos/:id", viralHandler.UpdateViralVideo)
		viral.DELETE("/videos/:id", viralHandler.DeleteViralVideo)
		viral.POST("/videos/:id/create-project", viralHandler.CreateProjectFromViral)

		viral.GET("/tags", viralHandler.GetViralTags)
		viral.POST("/tags", viralHandler.CreateViralTag)
		viral.PUT("/tags/:id", viralHandler.UpdateViralTag)
		viral.DELETE("/tags/:id", viralHandler.DeleteViralTag)
	}

	// 角色参考映射相关路由
	characters := api.Group("/characters")
	{
		characters.GET("/", characterHandler.GetCharacters)
		characters.POST("/", characterHandler.SaveCharacter)
		characters.DELETE("/:id", characterHandler.DeleteCharacter)
	}
}
