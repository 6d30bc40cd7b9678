package bridge

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResponse_ValidFrame(t *testing.T) {
	payload := `{"status":"successed","ast":{"kind":132,"children":[]}}`
	stream := bufio.NewReader(strings.NewReader(frame(payload)))

	result := evalResponse(readResponse(stream))

	require.True(t, result.HasAST)
	astMap, ok := result.AST.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(132), astMap["kind"])
}

// 长度头声称13字节，实际payload只有13字节的合法JSON但status不是
// "successed"：协议层正常读取，语义层判为无AST的软失败
func TestReadResponse_TruncatedStatusIsSoftFailure(t *testing.T) {
	stream := bufio.NewReader(strings.NewReader("13\n{\"status\":\"x\"}"))

	result := evalResponse(readResponse(stream))

	assert.False(t, result.HasAST)
	assert.Nil(t, result.AST)
}

func TestReadResponse_BadLengthLine(t *testing.T) {
	cases := []string{
		"notanumber\n{}",
		"-5\n{}",
		"12.5\n{}",
	}
	for _, input := range cases {
		stream := bufio.NewReader(strings.NewReader(input))
		result := evalResponse(readResponse(stream))
		assert.False(t, result.HasAST, "input %q should degrade to empty parse", input)
	}
}

func TestReadResponse_EOFBeforeHeader(t *testing.T) {
	stream := bufio.NewReader(strings.NewReader(""))

	result := evalResponse(readResponse(stream))

	assert.False(t, result.HasAST)
}

func TestReadResponse_EOFInsideBody(t *testing.T) {
	// 声称100字节但流里只有10字节
	stream := bufio.NewReader(strings.NewReader("100\n{\"status\":"))

	result := evalResponse(readResponse(stream))

	assert.False(t, result.HasAST)
}

func TestDecodeBody_BadJSON(t *testing.T) {
	data := decodeBody([]byte("{{{not json"))

	require.NotNil(t, data)
	assert.Equal(t, "success", data["status"])
}

// 状态串必须精确等于"successed"，标准拼写的"success"不算成功
func TestEvalResponse_StatusSpelling(t *testing.T) {
	withAST := func(status string) map[string]interface{} {
		return map[string]interface{}{
			"status": status,
			"ast":    map[string]interface{}{"kind": float64(1)},
		}
	}

	assert.True(t, evalResponse(withAST("successed")).HasAST)
	assert.False(t, evalResponse(withAST("success")).HasAST)
	assert.False(t, evalResponse(withAST("SUCCESSED")).HasAST)
	assert.False(t, evalResponse(withAST("failed")).HasAST)
}

func TestEvalResponse_SuccessedWithoutAST(t *testing.T) {
	result := evalResponse(map[string]interface{}{
		"status": "successed",
		"reason": "parser returned no tree",
	})

	assert.False(t, result.HasAST)
	assert.Equal(t, "parser returned no tree", result.Reason)
}

func TestWriteRequest_FrameFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeRequest(&buf, []byte("<?php echo 1;"))

	require.NoError(t, err)
	assert.Equal(t, "13\n<?php echo 1;", buf.String())
}

func TestParse_EmptySourceSkipsSubprocess(t *testing.T) {
	// 空源码不应该触发子进程启动(运行时路径不存在也不报错)
	b := NewPhpBridge("/nonexistent/php_ast_runtime")

	result, err := b.Parse(nil)

	require.NoError(t, err)
	assert.False(t, result.HasAST)
	assert.Equal(t, "empty source", result.Reason)
}

func TestCleanup_Idempotent(t *testing.T) {
	b := NewPhpBridge("/nonexistent/php_ast_runtime")

	assert.NoError(t, b.Cleanup())
	assert.NoError(t, b.Cleanup())
}

func frame(payload string) string {
	return strconv.Itoa(len(payload)) + "\n" + payload
}
