/*
 * @Date: 2025-06-05 15:01:26
 * @Description: 报告生成器接口定义
 */
package reporting

import "shieldscan/pkg/types"

// Reporter 报告生成器的通用接口。直接输出型的实现(如控制台)
// 可以忽略outputPath
type Reporter interface {
	Generate(results []*types.ScanResult, outputPath string) error
}
