/*
 * @Date: 2025-06-06 16:02:14
 * @Description: 木马告警管理
 */
package alert

import (
	"fmt"
	"sync"
	"time"

	"shieldscan/internal/config"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// AlertType 告警类型
type AlertType string

const (
	AlertTypeEmail   AlertType = "email"
	AlertTypeWebhook AlertType = "webhook"
)

// Alert 告警接口
type Alert interface {
	Send(result *types.ScanResult) error
	IsEnabled() bool
}

// Manager 告警管理器，同一文件在限流窗口内只告警一次
type Manager struct {
	alerts     map[AlertType]Alert
	mu         sync.RWMutex
	rateLimit  time.Duration
	lastAlerts map[string]time.Time // 文件路径 -> 上次告警时间
}

// NewManager 根据配置组装告警管理器
func NewManager(cfg *config.Config, rateLimit time.Duration) *Manager {
	m := &Manager{
		alerts:     make(map[AlertType]Alert),
		rateLimit:  rateLimit,
		lastAlerts: make(map[string]time.Time),
	}

	if cfg.Alert.Email.Enabled {
		m.RegisterAlert(AlertTypeEmail, NewEmailAlert(cfg.Alert))
	}
	if cfg.Alert.Webhook.Enabled {
		m.RegisterAlert(AlertTypeWebhook, NewWebhookAlert(cfg.Alert))
	}
	return m
}

// RegisterAlert 注册告警方式
func (m *Manager) RegisterAlert(alertType AlertType, alert Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alertType] = alert
}

// ShouldAlert 判定结果是否需要触发告警
func ShouldAlert(result *types.ScanResult) bool {
	if result == nil || result.Error != nil {
		return false
	}
	if result.Detection != nil && result.Detection.Verdict == types.VerdictWebshell {
		return true
	}
	return result.OverallRisk >= types.RiskHigh
}

// SendAlert 发送告警，所有已启用的通道都会收到
func (m *Manager) SendAlert(result *types.ScanResult) error {
	m.mu.Lock()
	if lastAlert, exists := m.lastAlerts[result.File.Path]; exists {
		if time.Since(lastAlert) < m.rateLimit {
			m.mu.Unlock()
			return fmt.Errorf("rate limit exceeded for %s", result.File.Path)
		}
	}
	m.lastAlerts[result.File.Path] = time.Now()
	m.mu.Unlock()

	var errs []error
	for alertType, alert := range m.alerts {
		if !alert.IsEnabled() {
			continue
		}
		if err := alert.Send(result); err != nil {
			logging.WarnLogger.Warnf("告警发送失败 (%s): %v", alertType, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("alert errors: %v", errs)
	}
	return nil
}
