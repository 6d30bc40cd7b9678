/*
 * @Date: 2025-06-06 16:20:48
 * @Description: 邮件告警
 */
package alert

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"shieldscan/internal/config"
	"shieldscan/pkg/types"
)

// EmailAlert 邮件告警实现
type EmailAlert struct {
	config config.AlertConfig
	auth   smtp.Auth
}

// NewEmailAlert 创建邮件告警
func NewEmailAlert(cfg config.AlertConfig) *EmailAlert {
	auth := smtp.PlainAuth("", cfg.Email.Username, cfg.Email.Password, cfg.Email.Host)
	return &EmailAlert{
		config: cfg,
		auth:   auth,
	}
}

// IsEnabled 检查是否启用
func (e *EmailAlert) IsEnabled() bool {
	return e.config.Email.Enabled
}

// Send 发送邮件告警
func (e *EmailAlert) Send(result *types.ScanResult) error {
	body, err := e.generateEmailBody(result)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %v", err)
	}

	subject := fmt.Sprintf("Webshell Detection Alert - %s", result.OverallRisk.String())
	message := bytes.NewBuffer(nil)
	message.WriteString(fmt.Sprintf("From: %s\r\n", e.config.Email.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", e.config.Email.To[0]))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	tlsConfig := &tls.Config{
		ServerName: e.config.Email.Host,
	}

	addr := fmt.Sprintf("%s:%d", e.config.Email.Host, e.config.Email.Port)
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.Email.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %v", err)
	}
	defer client.Close()

	if err := client.Auth(e.auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %v", err)
	}

	if err := client.Mail(e.config.Email.From); err != nil {
		return fmt.Errorf("failed to set sender: %v", err)
	}
	for _, to := range e.config.Email.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %v", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to create email writer: %v", err)
	}
	defer w.Close()

	if _, err := w.Write(message.Bytes()); err != nil {
		return fmt.Errorf("failed to write email content: %v", err)
	}

	return nil
}

var emailTmpl = template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; }
        .risk { color: #ff0000; font-weight: bold; }
        .details { margin: 20px 0; }
    </style>
</head>
<body>
    <h2>Webshell Detection Alert</h2>
    <p>A potential webshell has been detected:</p>
    <ul>
        <li><strong>File:</strong> {{.Path}}</li>
        <li><strong>Risk Level:</strong> <span class="risk">{{.RiskLevel}}</span></li>
        <li><strong>Detection Time:</strong> {{.Time}}</li>
        {{if .HasScore}}<li><strong>Fusion Score:</strong> {{printf "%.4f" .Score}} ({{.Verdict}})</li>{{end}}
    </ul>

    {{if .Findings}}
    <div class="details">
        <h3>Detection Details:</h3>
        <ul>
            {{range .Findings}}
            <li>[{{.AnalyzerName}}] {{.Description}}</li>
            {{end}}
        </ul>
    </div>
    {{end}}

    {{if .DangerousFunctions}}
    <div class="details">
        <h3>Dangerous Functions:</h3>
        <ul>
            {{range .DangerousFunctions}}
            <li>{{.}}</li>
            {{end}}
        </ul>
    </div>
    {{end}}
</body>
</html>`))

// generateEmailBody 生成邮件内容
func (e *EmailAlert) generateEmailBody(result *types.ScanResult) (string, error) {
	data := struct {
		Path               string
		RiskLevel          string
		Time               string
		HasScore           bool
		Score              float64
		Verdict            string
		Findings           []*types.Finding
		DangerousFunctions []string
	}{
		Path:      result.File.Path,
		RiskLevel: result.OverallRisk.String(),
		Time:      time.Now().Format("2006-01-02 15:04:05"),
		Findings:  result.Findings,
	}
	if result.Detection != nil {
		data.HasScore = true
		data.Score = result.Detection.Score
		data.Verdict = string(result.Detection.Verdict)
		data.DangerousFunctions = result.Detection.MatchedDangerousFunctions
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
