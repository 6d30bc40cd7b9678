package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBayesAnalyzer() *BayesWordsAnalyzer {
	return &BayesWordsAnalyzer{
		analyzerName:  "bayes_words",
		isInitialized: true,
		model: bayesModelData{
			Normal: classData{
				DocCount:       10,
				WordCount:      map[string]int{"echo": 30, "print": 20},
				TotalWordCount: 50,
			},
			Webshell: classData{
				DocCount:       10,
				WordCount:      map[string]int{"eval": 40, "DANGER_FUNC_eval": 8},
				TotalWordCount: 48,
			},
			TotalDocumentCount: 20,
		},
	}
}

func TestScore_EvalHeavyBagIsWebshell(t *testing.T) {
	a := testBayesAnalyzer()

	// 权重5的eval词袋：5个裸名称加1个标记
	words := []string{"eval", "DANGER_FUNC_eval", "eval", "eval", "eval", "eval"}
	score := a.Score(words)

	assert.GreaterOrEqual(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestScore_NormalBagIsLow(t *testing.T) {
	a := testBayesAnalyzer()

	score := a.Score([]string{"echo", "print", "echo"})

	assert.Less(t, score, 0.5)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestScore_OrderInvariant(t *testing.T) {
	a := testBayesAnalyzer()
	words := []string{"eval", "echo", "DANGER_FUNC_eval", "print", "eval", "fopen"}

	expected := a.Score(words)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), words...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.InDelta(t, expected, a.Score(shuffled), 1e-12)
	}
}

func TestScore_FailClosed(t *testing.T) {
	// 空词袋
	assert.Equal(t, 0.0, testBayesAnalyzer().Score(nil))
	assert.Equal(t, 0.0, testBayesAnalyzer().Score([]string{}))

	// 模型未加载
	uninitialized := &BayesWordsAnalyzer{analyzerName: "bayes_words"}
	assert.Equal(t, 0.0, uninitialized.Score([]string{"eval"}))

	// 训练文档数为0
	empty := testBayesAnalyzer()
	empty.model.TotalDocumentCount = 0
	assert.Equal(t, 0.0, empty.Score([]string{"eval"}))

	// 某一类别完全为空(分母为0)
	broken := testBayesAnalyzer()
	broken.model.Normal = classData{}
	assert.Equal(t, 0.0, broken.Score([]string{"eval"}))
}

// 未见过的词经拉普拉斯平滑后不应让分数变成NaN或越界
func TestScore_UnseenWordsStayBounded(t *testing.T) {
	a := testBayesAnalyzer()

	score := a.Score([]string{"never_seen_before", "another_unknown"})

	assert.False(t, score < 0.0 || score > 1.0)
}

func TestNewBayesWordsAnalyzer_MissingFileIsInactive(t *testing.T) {
	a, err := NewBayesWordsAnalyzer(t.TempDir())

	require.NoError(t, err)
	require.NotNil(t, a)
	assert.False(t, a.isInitialized)
	assert.Equal(t, 0.0, a.Score([]string{"eval"}))
}
