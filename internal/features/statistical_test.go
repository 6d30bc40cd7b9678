package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateStatisticalFeatures_EmptyContent(t *testing.T) {
	sf := CalculateStatisticalFeatures(nil)

	assert.Equal(t, 0.0, sf.LM)
	assert.Equal(t, 0.0, sf.LVC)
	assert.Equal(t, 0.0, sf.WM)
	assert.Equal(t, 0.0, sf.WVC)
	assert.Equal(t, 0.0, sf.SR)
	assert.Equal(t, 0.0, sf.TR)
	assert.Equal(t, 0.0, sf.SPL)
	assert.Equal(t, 0.0, sf.IE)
}

func TestCalculateStatisticalFeatures_HandComputed(t *testing.T) {
	// 行: "ab;"(3) "cd;;"(4) ""(0)
	src := "ab;\ncd;;\n"
	sf := CalculateStatisticalFeatures([]byte(src))

	assert.Equal(t, 4.0, sf.LM)
	// 3个分号 / 3行
	assert.Equal(t, 1.0, sf.SPL)
	// 单词 "ab" "cd" 长度都是2
	assert.Equal(t, 2.0, sf.WM)
	assert.Equal(t, 0.0, sf.WVC)
	// 非字母数字: ';' ';' ';' '\n' '\n' = 5个，总长9
	assert.InDelta(t, 5.0/9.0*100, sf.SR, 1e-6)
	// 没有标签
	assert.Equal(t, 0.0, sf.TR)
}

func TestInfomationEntropy_Bounds(t *testing.T) {
	cases := []string{
		"",
		"aaaa",
		"abcabc",
		"<?php eval($_POST['x']); ?>",
		strings.Repeat("x", 1000),
	}
	for _, src := range cases {
		e := infomationEntropy(src)
		assert.GreaterOrEqual(t, e, 0.0, "src %q", src)
		assert.LessOrEqual(t, e, 8.0, "src %q", src)
	}
}

func TestInfomationEntropy_KnownValues(t *testing.T) {
	// 单一字符分布熵为0
	assert.Equal(t, 0.0, infomationEntropy("aaaa"))
	// 三个等概率字符: log2(3)
	assert.InDelta(t, 1.584963, infomationEntropy("abcabc"), 1e-6)
	// 换行符不参与统计
	assert.Equal(t, infomationEntropy("abcabc"), infomationEntropy("abc\nabc\n"))
}

func TestTagRatio(t *testing.T) {
	// 2个标签 / 4个单词("php","echo","hi","php"... 实际: php echo hi php)
	src := "<?php> echo hi <?php>"
	sf := CalculateStatisticalFeatures([]byte(src))
	assert.Greater(t, sf.TR, 0.0)
}

func TestRoundToSix(t *testing.T) {
	assert.Equal(t, 1.234568, roundToSix(1.23456789))
	assert.Equal(t, 0.0, roundToSix(0.0))
	assert.Equal(t, -1.234568, roundToSix(-1.23456789))
}

func TestStatWords(t *testing.T) {
	words := statWords("foo_bar baz99")
	// 下划线不是字母数字，分隔出 foo(3) bar(3) baz99(5)
	assert.Equal(t, []int64{3, 3, 5}, words)

	assert.Nil(t, statWords("!!!"))
}
