package bridge

import (
	"encoding/json"
	"strings"
)

// trimFrame 去掉长度行尾部的换行和空白
func trimFrame(line string) string {
	return strings.TrimSpace(line)
}

// decodeBody 解码响应JSON；解码失败时降级为空解析对象
func decodeBody(body []byte) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		return emptyParse()
	}
	return data
}
