/*
 * @Date: 2025-06-07 15:26:41
 * @Description: 按固定周期对配置目录做全量扫描
 */
package scanner

import (
	"fmt"
	"sync"
	"time"

	"shieldscan/internal/alert"
	"shieldscan/internal/config"
	"shieldscan/internal/engine"
	"shieldscan/internal/history"
	"shieldscan/pkg/logging"
)

// ScheduledScanner 在配置的起始时间执行首轮扫描，之后按周期循环。
// 每轮扫描结果落历史库并按规则触发告警
type ScheduledScanner struct {
	config    *config.Config
	engine    *engine.Engine
	alerter   *alert.Manager
	history   *history.Manager
	ticker    *time.Ticker
	waitGroup sync.WaitGroup
	stopCh    chan struct{}
	mu        sync.Mutex
	isRunning bool
}

// NewScheduledScanner 创建定时扫描器。alerter和histManager都可以为nil
func NewScheduledScanner(cfg *config.Config, eng *engine.Engine, alerter *alert.Manager, histManager *history.Manager) (*ScheduledScanner, error) {
	return &ScheduledScanner{
		config:  cfg,
		engine:  eng,
		alerter: alerter,
		history: histManager,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start 启动定时扫描循环
func (s *ScheduledScanner) Start() error {
	if !s.config.Schedule.Enabled {
		return fmt.Errorf("scheduled scanning is disabled in configuration")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scanner is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	delay, err := firstScanDelay(s.config.Schedule.StartTime, time.Now())
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return fmt.Errorf("invalid start time format: %v", err)
	}

	interval := time.Duration(s.config.Schedule.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.ticker = time.NewTicker(interval)

	logging.InfoLogger.Infof("定时扫描已启动，首次扫描 %s 后执行，周期 %s，目录: %v",
		delay.Round(time.Second), interval, s.config.Schedule.Directories)

	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()

		select {
		case <-time.After(delay):
		case <-s.stopCh:
			return
		}
		s.scanAll()

		for {
			select {
			case <-s.ticker.C:
				s.scanAll()
			case <-s.stopCh:
				return
			}
		}
	}()

	return nil
}

// Stop 停止定时扫描并等待在途扫描完成
func (s *ScheduledScanner) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.waitGroup.Wait()
	return nil
}

// scanAll 对配置目录执行一轮全量扫描
func (s *ScheduledScanner) scanAll() {
	task := &engine.Task{
		Paths:      s.config.Schedule.Directories,
		Exclusions: s.config.Schedule.ExcludeDirs,
	}

	startTime := time.Now()
	results, err := s.engine.Scan(task)
	if err != nil {
		logging.ErrorLogger.Errorf("定时扫描执行失败: %v", err)
		return
	}
	endTime := time.Now()

	if s.history != nil {
		record := history.NewScanRecord("scheduled", startTime, endTime, results)
		if err := s.history.RecordScan(record); err != nil {
			logging.WarnLogger.Warnf("记录定时扫描历史失败: %v", err)
		}
	}

	if s.alerter == nil {
		return
	}
	for _, res := range results {
		if alert.ShouldAlert(res) {
			if err := s.alerter.SendAlert(res); err != nil {
				logging.WarnLogger.Warnf("告警发送失败 %s: %v", res.File.Path, err)
			}
		}
	}
}

// firstScanDelay 计算距首次扫描的等待时间。startTime为空表示立即开始，
// 当天时间点已过则顺延到次日
func firstScanDelay(startTime string, now time.Time) (time.Duration, error) {
	if startTime == "" {
		return 0, nil
	}

	parsed, err := time.Parse("15:04", startTime)
	if err != nil {
		return 0, err
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if next.Before(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now), nil
}
