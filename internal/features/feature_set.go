/*
 * @Date: 2025-06-04 11:02:47
 * @Description: 特征集合定义
 */
package features

// FeatureSet 单个文件的全部特征
type FeatureSet struct {
	Statistical *StatisticalFeatures // 未计算时为nil
	ASTWords    []string             // AST词袋
	Callable    bool                 // AST中是否存在可执行结构
	RawAST      interface{}          // 归一化后的AST，供需要的分析器复用
}

// StatisticalFeatures 八大统计特征，全部保留6位小数
type StatisticalFeatures struct {
	LM  float64 // 行最大长度
	LVC float64 // 行长度变异系数
	WM  float64 // 单词最大长度
	WVC float64 // 单词长度变异系数(x100)
	SR  float64 // 符号占比(x100)
	TR  float64 // 标签占比(x100)
	SPL float64 // 每行语句数
	IE  float64 // 信息熵
}

// Vector 按固定顺序展开为切片，供模型输入使用
func (sf *StatisticalFeatures) Vector() []float64 {
	return []float64{sf.LM, sf.LVC, sf.WM, sf.WVC, sf.SR, sf.TR, sf.SPL, sf.IE}
}
