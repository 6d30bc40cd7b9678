/*
 * @Date: 2025-06-06 14:36:05
 * @Description: 历史记录查询
 */
package history

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordedResult 落库的单文件结果摘要
type RecordedResult struct {
	Path    string  `json:"path"`
	Risk    int     `json:"risk"`
	Score   float64 `json:"score"`
	Verdict string  `json:"verdict"`
}

// ScanRecord 扫描记录
type ScanRecord struct {
	ScanID          string           `json:"scan_id"`
	ScanType        string           `json:"scan_type"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	TotalFiles      int              `json:"total_files"`
	WebshellCount   int              `json:"webshell_count"`
	HighRiskCount   int              `json:"high_risk_count"`
	MediumRiskCount int              `json:"medium_risk_count"`
	LowRiskCount    int              `json:"low_risk_count"`
	ErrorCount      int              `json:"error_count"`
	ScanResults     []RecordedResult `json:"scan_results"`
	ErrorMessage    string           `json:"error_message"`
}

// QueryOptions 查询选项
type QueryOptions struct {
	StartTime *time.Time
	EndTime   *time.Time
	ScanType  string
	ScanID    string
	Limit     int
	Offset    int
}

// QueryHistory 查询历史记录，默认按开始时间倒序
func (m *Manager) QueryHistory(opts QueryOptions) ([]*ScanRecord, error) {
	query := `
		SELECT scan_id, scan_type, start_time, end_time,
		       total_files, webshell_count, high_risk_count,
		       medium_risk_count, low_risk_count, error_count,
		       scan_results, error_message
		FROM scan_history
		WHERE 1=1
	`
	var args []interface{}

	if opts.StartTime != nil {
		query += " AND start_time >= ?"
		args = append(args, opts.StartTime)
	}
	if opts.EndTime != nil {
		query += " AND end_time <= ?"
		args = append(args, opts.EndTime)
	}
	if opts.ScanType != "" {
		query += " AND scan_type = ?"
		args = append(args, opts.ScanType)
	}
	if opts.ScanID != "" {
		query += " AND scan_id = ?"
		args = append(args, opts.ScanID)
	}

	query += " ORDER BY start_time DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %v", err)
	}
	defer rows.Close()

	var records []*ScanRecord
	for rows.Next() {
		var record ScanRecord
		var scanResults string

		err := rows.Scan(
			&record.ScanID,
			&record.ScanType,
			&record.StartTime,
			&record.EndTime,
			&record.TotalFiles,
			&record.WebshellCount,
			&record.HighRiskCount,
			&record.MediumRiskCount,
			&record.LowRiskCount,
			&record.ErrorCount,
			&scanResults,
			&record.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}

		if scanResults != "" {
			if err := json.Unmarshal([]byte(scanResults), &record.ScanResults); err != nil {
				return nil, fmt.Errorf("failed to unmarshal scan results: %v", err)
			}
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
