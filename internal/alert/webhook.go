/*
 * @Date: 2025-06-06 16:41:33
 * @Description: Webhook告警
 */
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shieldscan/internal/config"
	"shieldscan/pkg/types"
)

// WebhookAlert 向外部系统推送JSON告警
type WebhookAlert struct {
	config config.AlertConfig
	client *http.Client
}

// webhookPayload 推送的告警内容
type webhookPayload struct {
	Event              string   `json:"event"`
	Path               string   `json:"path"`
	RiskLevel          string   `json:"risk_level"`
	Score              float64  `json:"score"`
	Verdict            string   `json:"verdict"`
	DangerousFunctions []string `json:"dangerous_functions,omitempty"`
	DetectedAt         string   `json:"detected_at"`
}

// NewWebhookAlert 创建Webhook告警
func NewWebhookAlert(cfg config.AlertConfig) *WebhookAlert {
	return &WebhookAlert{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsEnabled 检查是否启用
func (w *WebhookAlert) IsEnabled() bool {
	return w.config.Webhook.Enabled && w.config.Webhook.URL != ""
}

// Send 推送告警
func (w *WebhookAlert) Send(result *types.ScanResult) error {
	payload := webhookPayload{
		Event:      "webshell_detected",
		Path:       result.File.Path,
		RiskLevel:  result.OverallRisk.String(),
		DetectedAt: time.Now().Format(time.RFC3339),
	}
	if result.Detection != nil {
		payload.Score = result.Detection.Score
		payload.Verdict = string(result.Detection.Verdict)
		payload.DangerousFunctions = result.Detection.MatchedDangerousFunctions
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.config.Webhook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.config.Webhook.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.Webhook.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
