/*
 * @Date: 2025-06-06 11:40:12
 * @Description: 朴素贝叶斯词袋模型训练
 */
package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"shieldscan/internal/ast"
	"shieldscan/internal/bridge"
	"shieldscan/pkg/logging"
)

// bayesClassStats 与推理端Words.model的类别结构一一对应
type bayesClassStats struct {
	DocCount       int            `json:"docCount"`
	WordCount      map[string]int `json:"wordCount"`
	TotalWordCount int            `json:"totalWordCount"`
}

type bayesModelFile struct {
	Normal             bayesClassStats `json:"normal"`
	Webshell           bayesClassStats `json:"webshell"`
	TotalDocumentCount int             `json:"totalDocumentCount"`
}

// TrainBayesModel 统计两类样本的词袋并写出Words.model。
// 任一类别没有可解析的样本时训练失败
func TrainBayesModel(goodDir, badDir, outputDir string, parser bridge.Parser) error {
	normal, err := collectClassStats(goodDir, parser)
	if err != nil {
		return fmt.Errorf("failed to process normal samples: %w", err)
	}
	webshell, err := collectClassStats(badDir, parser)
	if err != nil {
		return fmt.Errorf("failed to process webshell samples: %w", err)
	}

	if normal.DocCount == 0 || webshell.DocCount == 0 {
		return fmt.Errorf("bayes training requires parsable samples in both classes (normal=%d, webshell=%d)",
			normal.DocCount, webshell.DocCount)
	}

	model := bayesModelFile{
		Normal:             normal,
		Webshell:           webshell,
		TotalDocumentCount: normal.DocCount + webshell.DocCount,
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	outPath := filepath.Join(outputDir, "Words.model")
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model); err != nil {
		return fmt.Errorf("failed to write bayes model: %w", err)
	}

	logging.InfoLogger.Infof("Bayes模型已保存: %s (normal=%d docs, webshell=%d docs, 词表=%d/%d)",
		outPath, normal.DocCount, webshell.DocCount, len(normal.WordCount), len(webshell.WordCount))
	return nil
}

// collectClassStats 累计一个类别目录下所有样本的词频。
// 解析不出AST的文件跳过，不计入docCount
func collectClassStats(dir string, parser bridge.Parser) (bayesClassStats, error) {
	stats := bayesClassStats{WordCount: make(map[string]int)}

	files, err := listPhpFiles(dir)
	if err != nil {
		return stats, err
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			logging.WarnLogger.Warnf("读取样本失败 %s: %v", path, err)
			continue
		}

		parseResult, err := parser.Parse(content)
		if err != nil {
			logging.WarnLogger.Warnf("解析样本失败 %s: %v", path, err)
			continue
		}
		if !parseResult.HasAST {
			continue
		}

		words := ast.ExtractWords(ast.Normalize(parseResult.AST), nil)
		if len(words) == 0 {
			continue
		}

		stats.DocCount++
		for _, word := range words {
			stats.WordCount[word]++
			stats.TotalWordCount++
		}
	}

	return stats, nil
}
