/*
 * @Date: 2025-06-06 17:08:19
 * @Description: 基于fsnotify的实时文件监控扫描
 */
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"shieldscan/internal/alert"
	"shieldscan/internal/config"
	"shieldscan/internal/engine"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// RealtimeScanner 监控目录中新建/修改的文件并立即送检
type RealtimeScanner struct {
	config     *config.Config
	engine     *engine.Engine
	alerter    *alert.Manager
	watcher    *fsnotify.Watcher
	workerPool chan struct{}
	waitGroup  sync.WaitGroup
	stopCh     chan struct{}
	mu         sync.Mutex
	isRunning  bool
}

// NewRealtimeScanner 创建实时扫描器。alerter可以为nil(不告警)
func NewRealtimeScanner(cfg *config.Config, eng *engine.Engine, alerter *alert.Manager) (*RealtimeScanner, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %v", err)
	}

	return &RealtimeScanner{
		config:     cfg,
		engine:     eng,
		alerter:    alerter,
		watcher:    watcher,
		workerPool: make(chan struct{}, cfg.Realtime.MaxConcurrency),
		stopCh:     make(chan struct{}),
	}, nil
}

// Start 递归注册监控目录并启动事件循环
func (s *RealtimeScanner) Start() error {
	if !s.config.Realtime.Enabled {
		return fmt.Errorf("realtime scanning is disabled in configuration")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scanner is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	for _, dir := range s.config.Realtime.Directories {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			for _, excludeDir := range s.config.Realtime.ExcludeDirs {
				if path == excludeDir {
					return filepath.SkipDir
				}
			}
			return s.watcher.Add(path)
		})
		if err != nil {
			return fmt.Errorf("failed to add directory to watcher: %v", err)
		}
	}

	logging.InfoLogger.Infof("实时监控已启动，监控目录: %v", s.config.Realtime.Directories)
	go s.watch()

	return nil
}

// Stop 停止监控并等待在途扫描完成
func (s *RealtimeScanner) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	s.waitGroup.Wait()
	return s.watcher.Close()
}

// watch 事件循环
func (s *RealtimeScanner) watch() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// 新建目录也要纳入监控
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := s.watcher.Add(event.Name); err != nil {
						logging.WarnLogger.Warnf("新增监控目录失败 %s: %v", event.Name, err)
					}
				}
				continue
			}

			if !s.matchesFileType(event.Name) {
				continue
			}

			s.waitGroup.Add(1)
			go func(path string) {
				defer s.waitGroup.Done()
				s.workerPool <- struct{}{}
				defer func() { <-s.workerPool }()

				s.scanOne(path)
			}(event.Name)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.WarnLogger.Warnf("文件监控错误: %v", err)

		case <-s.stopCh:
			return
		}
	}
}

func (s *RealtimeScanner) matchesFileType(path string) bool {
	ext := filepath.Ext(path)
	for _, fileType := range s.config.Realtime.FileTypes {
		if ext == fileType {
			return true
		}
	}
	return false
}

// scanOne 扫描单个文件，高危结果触发告警
func (s *RealtimeScanner) scanOne(path string) {
	result := s.engine.ScanFile(path)
	if result.Error != nil {
		logging.WarnLogger.Warnf("实时扫描文件失败 %s: %v", path, result.Error)
		return
	}

	if result.OverallRisk > types.RiskNone {
		logging.WarnLogger.Warnf("实时扫描发现问题文件: [%s] %s", result.OverallRisk.String(), path)
	}

	if s.alerter != nil && alert.ShouldAlert(result) {
		if err := s.alerter.SendAlert(result); err != nil {
			logging.WarnLogger.Warnf("告警发送失败 %s: %v", path, err)
		}
	}
}
