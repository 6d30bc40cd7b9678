/*
 * @Date: 2025-06-06 14:18:40
 * @Description: 扫描历史记录管理(sqlite)
 */
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// Manager 历史记录管理器
type Manager struct {
	db              *sql.DB
	retentionDays   int
	maxRecords      int
	cleanupInterval time.Duration
	stopCh          chan struct{}
}

// Config 历史记录配置
type Config struct {
	DBPath          string
	RetentionDays   int
	MaxRecords      int
	CleanupInterval time.Duration
}

// NewManager 创建历史记录管理器并启动定期清理任务
func NewManager(cfg Config) (*Manager, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 24 * time.Hour
	}

	manager := &Manager{
		db:              db,
		retentionDays:   cfg.RetentionDays,
		maxRecords:      cfg.MaxRecords,
		cleanupInterval: cfg.CleanupInterval,
		stopCh:          make(chan struct{}),
	}

	if err := manager.initDatabase(); err != nil {
		db.Close()
		return nil, err
	}

	go manager.startCleanupTask()

	return manager, nil
}

// initDatabase 初始化数据库
func (m *Manager) initDatabase() error {
	createTable := `
	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		scan_type TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		total_files INTEGER NOT NULL,
		webshell_count INTEGER NOT NULL,
		high_risk_count INTEGER NOT NULL,
		medium_risk_count INTEGER NOT NULL,
		low_risk_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL DEFAULT 0,
		scan_results TEXT,
		error_message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_scan_time ON scan_history(start_time);
	CREATE INDEX IF NOT EXISTS idx_scan_type ON scan_history(scan_type);
	`

	_, err := m.db.Exec(createTable)
	return err
}

// NewScanRecord 从扫描结果汇总出一条历史记录
func NewScanRecord(scanType string, startTime, endTime time.Time, results []*types.ScanResult) *ScanRecord {
	record := &ScanRecord{
		ScanID:     uuid.NewString(),
		ScanType:   scanType,
		StartTime:  startTime,
		EndTime:    endTime,
		TotalFiles: len(results),
	}

	for _, res := range results {
		if res.Error != nil {
			record.ErrorCount++
			continue
		}

		entry := RecordedResult{
			Path: res.File.Path,
			Risk: int(res.OverallRisk),
		}
		if res.Detection != nil {
			entry.Score = res.Detection.Score
			entry.Verdict = string(res.Detection.Verdict)
			if res.Detection.Verdict == types.VerdictWebshell {
				record.WebshellCount++
			}
		}

		switch res.OverallRisk {
		case types.RiskCritical, types.RiskHigh:
			record.HighRiskCount++
		case types.RiskMedium:
			record.MediumRiskCount++
		case types.RiskLow:
			record.LowRiskCount++
		}

		// 正常文件不落库，历史表只保留问题文件
		if res.OverallRisk > types.RiskNone {
			record.ScanResults = append(record.ScanResults, entry)
		}
	}

	return record
}

// RecordScan 记录扫描历史
func (m *Manager) RecordScan(record *ScanRecord) error {
	scanResults, err := json.Marshal(record.ScanResults)
	if err != nil {
		return fmt.Errorf("failed to marshal scan results: %v", err)
	}

	_, err = m.db.Exec(`
		INSERT INTO scan_history (
			scan_id, scan_type, start_time, end_time,
			total_files, webshell_count, high_risk_count,
			medium_risk_count, low_risk_count, error_count,
			scan_results, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ScanID,
		record.ScanType,
		record.StartTime,
		record.EndTime,
		record.TotalFiles,
		record.WebshellCount,
		record.HighRiskCount,
		record.MediumRiskCount,
		record.LowRiskCount,
		record.ErrorCount,
		scanResults,
		record.ErrorMessage,
	)
	if err == nil {
		logging.InfoLogger.Infof("扫描历史已记录: %s (%d 文件, %d webshell)",
			record.ScanID, record.TotalFiles, record.WebshellCount)
	}

	return err
}
