package filewatcher

import (
	"fmt"
	"media-forge/app/config"
	"media-forge/app/logger"
	"media-forge/app/model"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"
)

// 角色参考图支持的扩展名
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// CharacterWatcher 角色参考图目录监控器
//
// 监控投放目录中的图片文件，文件名形如 "A.png" 或 "A_角色名.png"，
// 匹配到角色标识后写入全局角色库
type CharacterWatcher struct {
	config   *config.CharactersConfig
	db       *gorm.DB
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.RWMutex
}

// NewCharacterWatcher 创建角色参考图监控器
// 功能未启用时返回 nil，调用方按 nil 安全处理
func NewCharacterWatcher(cfg *config.CharactersConfig, db *gorm.DB, log *logger.Logger) (*CharacterWatcher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.WatchDir == "" {
		return nil, fmt.Errorf("角色参考图监控已启用但未配置投放目录")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &CharacterWatcher{
		config:  cfg,
		db:      db,
		watcher: watcher,
		logger:  log,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start 启动监控
func (cw *CharacterWatcher) Start() error {
	if cw == nil {
		return nil
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.watching {
		return fmt.Errorf("角色参考图监控器已经在运行")
	}

	if err := os.MkdirAll(cw.config.WatchDir, 0755); err != nil {
		return fmt.Errorf("创建投放目录失败: %w", err)
	}
	if err := cw.watcher.Add(cw.config.WatchDir); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	cw.watching = true
	cw.wg.Add(1)
	go cw.watchLoop()

	cw.logger.Infof("角色参考图监控器已启动，监控目录: %s", cw.config.WatchDir)

	// 启动后扫描一遍目录中已存在的参考图
	go func() {
		time.Sleep(1 * time.Second)
		cw.processExistingFiles()
	}()

	return nil
}

// Stop 停止监控
func (cw *CharacterWatcher) Stop() error {
	if cw == nil {
		return nil
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.watching {
		return nil
	}

	close(cw.stopCh)
	cw.watcher.Close()
	cw.wg.Wait()
	cw.watching = false

	cw.logger.Info("角色参考图监控器已停止")
	return nil
}

// watchLoop 监控事件循环
func (cw *CharacterWatcher) watchLoop() {
	defer cw.wg.Done()

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Errorf("角色参考图监控器错误: %v", err)

		case <-cw.stopCh:
			return
		}
	}
}

// handleEvent 处理文件系统事件
func (cw *CharacterWatcher) handleEvent(event fsnotify.Event) {
	// 只关心新建和写入
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return
	}

	if !isImageFile(event.Name) {
		return
	}

	if err := cw.waitForFileReady(event.Name); err != nil {
		cw.logger.Warnf("等待文件就绪失败: %s, 错误: %v", event.Name, err)
		return
	}

	if err := cw.registerReference(event.Name); err != nil {
		cw.logger.Errorf("登记角色参考图失败: %s, 错误: %v", event.Name, err)
	}
}

// processExistingFiles 扫描并登记目录中已存在的参考图
func (cw *CharacterWatcher) processExistingFiles() {
	entries, err := os.ReadDir(cw.config.WatchDir)
	if err != nil {
		cw.logger.Errorf("扫描投放目录失败: %v", err)
		return
	}

	var processed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(cw.config.WatchDir, entry.Name())
		if !isImageFile(path) {
			continue
		}
		if err := cw.registerReference(path); err != nil {
			cw.logger.Warnf("登记已存在的参考图失败: %s, 错误: %v", path, err)
			continue
		}
		processed++
	}

	cw.logger.Infof("初始扫描完成，登记了 %d 张角色参考图", processed)
}

// registerReference 解析文件名并把参考图写入全局角色库
func (cw *CharacterWatcher) registerReference(path string) error {
	identifier, name, ok := ParseReferenceFilename(filepath.Base(path))
	if !ok {
		cw.logger.Debugf("文件名不包含角色标识，跳过: %s", path)
		return nil
	}

	var mapping model.CharacterMapping
	err := cw.db.Where("project_id = ? AND identifier = ?", "", identifier).First(&mapping).Error
	if err == nil {
		mapping.ReferenceImageURL = path
		if name != "" {
			mapping.Name = name
		}
		if err := cw.db.Save(&mapping).Error; err != nil {
			return fmt.Errorf("更新角色映射失败: %w", err)
		}
		cw.logger.Infof("角色[%s]参考图已更新: %s", identifier, path)
		return nil
	}

	mapping = model.CharacterMapping{
		Identifier:        identifier,
		Name:              name,
		ReferenceImageURL: path,
	}
	if err := cw.db.Create(&mapping).Error; err != nil {
		return fmt.Errorf("保存角色映射失败: %w", err)
	}

	cw.logger.Infof("角色[%s]参考图已登记: %s", identifier, path)
	return nil
}

// waitForFileReady 等待文件写入完成
func (cw *CharacterWatcher) waitForFileReady(path string) error {
	maxWait := 10 * time.Second
	checkInterval := 200 * time.Millisecond
	timeout := time.After(maxWait)

	var lastSize int64 = -1

	for {
		select {
		case <-timeout:
			return fmt.Errorf("等待文件就绪超时: %s", path)
		case <-time.After(checkInterval):
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("获取文件信息失败: %w", err)
			}

			currentSize := info.Size()
			if currentSize == lastSize && currentSize > 0 {
				return nil
			}
			lastSize = currentSize
		}
	}
}

// ParseReferenceFilename 从文件名中解析角色标识和可选的角色名
// 支持 "A.png" 和 "A_角色名.png" 两种形式，标识必须是已知的角色字母
func ParseReferenceFilename(filename string) (identifier, name string, ok bool) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		return "", "", false
	}

	parts := strings.SplitN(base, "_", 2)
	candidate := strings.ToUpper(parts[0])

	for _, id := range model.DefaultCharacterIdentifiers {
		if candidate == id {
			if len(parts) == 2 {
				return id, parts[1], true
			}
			return id, "", true
		}
	}
	return "", "", false
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range imageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
