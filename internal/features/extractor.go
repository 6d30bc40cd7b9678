/*
 * @Date: 2025-06-04 11:09:40
 * @Description: 特征提取器，统筹统计特征与AST特征
 */
package features

import (
	"shieldscan/internal/ast"
	"shieldscan/pkg/logging"
	"shieldscan/pkg/types"
)

// ExtractAllFeatures 为单个文件提取全部特征。goAST是归一化后的树，
// 没有树时传nil，此时只有统计特征可用
func ExtractAllFeatures(fileInfo types.FileInfo, content []byte, goAST interface{}) (*FeatureSet, error) {
	fs := &FeatureSet{
		RawAST: goAST,
	}

	// 1. 统计特征，只依赖文件内容
	if len(content) > 0 {
		calculatedStats := CalculateStatisticalFeatures(content)
		fs.Statistical = &calculatedStats
	} else {
		logging.InfoLogger.Infof("skipping statistical feature calculation for empty file: %s", fileInfo.Path)
	}

	// 2. AST特征
	if goAST != nil {
		fs.ASTWords = ast.ExtractWords(goAST, nil)
		fs.Callable = ast.HasCallable(goAST)
	} else {
		logging.InfoLogger.Infof("skipping AST-based feature extraction for %s (no AST available)", fileInfo.Path)
	}

	return fs, nil
}
