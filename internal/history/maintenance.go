/*
 * @Date: 2025-06-06 14:50:22
 * @Description: 历史记录统计与过期清理
 */
package history

import (
	"database/sql"
	"fmt"
	"time"

	"shieldscan/pkg/logging"
)

// Statistics 统计信息
type Statistics struct {
	TotalScans       int            `json:"total_scans"`
	TotalFiles       int            `json:"total_files"`
	TotalWebshells   int            `json:"total_webshells"`
	HighRiskCount    int            `json:"high_risk_count"`
	MediumRiskCount  int            `json:"medium_risk_count"`
	LowRiskCount     int            `json:"low_risk_count"`
	AverageFileCount float64        `json:"average_file_count"`
	ScansByType      map[string]int `json:"scans_by_type"`
}

// GetStatistics 获取时间范围内的统计信息
func (m *Manager) GetStatistics(startTime, endTime time.Time) (*Statistics, error) {
	stats := &Statistics{
		ScansByType: make(map[string]int),
	}

	row := m.db.QueryRow(`
		SELECT
			COUNT(*) as total_scans,
			COALESCE(SUM(total_files), 0),
			COALESCE(SUM(webshell_count), 0),
			COALESCE(SUM(high_risk_count), 0),
			COALESCE(SUM(medium_risk_count), 0),
			COALESCE(SUM(low_risk_count), 0),
			COALESCE(AVG(total_files), 0)
		FROM scan_history
		WHERE start_time BETWEEN ? AND ?
	`, startTime, endTime)

	err := row.Scan(
		&stats.TotalScans,
		&stats.TotalFiles,
		&stats.TotalWebshells,
		&stats.HighRiskCount,
		&stats.MediumRiskCount,
		&stats.LowRiskCount,
		&stats.AverageFileCount,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get statistics: %v", err)
	}

	rows, err := m.db.Query(`
		SELECT scan_type, COUNT(*) as count
		FROM scan_history
		WHERE start_time BETWEEN ? AND ?
		GROUP BY scan_type
	`, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan type statistics: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scanType string
		var count int
		if err := rows.Scan(&scanType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		stats.ScansByType[scanType] = count
	}

	return stats, rows.Err()
}

// startCleanupTask 启动清理任务
func (m *Manager) startCleanupTask() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.cleanup(); err != nil {
				logging.WarnLogger.Warnf("历史记录清理失败: %v", err)
			}
		case <-m.stopCh:
			return
		}
	}
}

// cleanup 按保留天数和记录上限清理过期记录
func (m *Manager) cleanup() error {
	if m.retentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -m.retentionDays)
		_, err := m.db.Exec("DELETE FROM scan_history WHERE start_time < ?", cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete old records: %v", err)
		}
	}

	if m.maxRecords > 0 {
		_, err := m.db.Exec(`
			DELETE FROM scan_history
			WHERE id IN (
				SELECT id FROM scan_history
				ORDER BY start_time DESC
				LIMIT -1 OFFSET ?
			)
		`, m.maxRecords)
		if err != nil {
			return fmt.Errorf("failed to limit record count: %v", err)
		}
	}

	return nil
}

// Close 停止清理任务并关闭数据库
func (m *Manager) Close() error {
	close(m.stopCh)
	return m.db.Close()
}
