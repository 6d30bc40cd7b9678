/*
 * @Date: 2025-06-04 10:18:33
 * @Description: AST词袋提取，危险函数按权重加权
 */
package ast

import (
	"sort"
	"strings"
)

// DangerMarkerPrefix 危险函数标记词的前缀
const DangerMarkerPrefix = "DANGER_FUNC_"

// DefaultDangerousFunctions 危险函数及其严重程度权重。
// 调用方可传入自己的表覆盖
func DefaultDangerousFunctions() map[string]float64 {
	return map[string]float64{
		// 执行代码的函数
		"eval": 5.0, "assert": 5.0, "create_function": 5.0, "exec": 5.0,
		"passthru": 4.0, "system": 4.0, "shell_exec": 4.0, "proc_open": 4.0,
		"popen": 4.0, "pcntl_exec": 4.0, "call_user_func": 3.0,

		// 编码/解码函数
		"base64_decode": 3.0, "str_rot13": 3.0, "gzinflate": 3.0,
		"gzuncompress": 3.0, "gzdecode": 3.0, "str_replace": 2.0,

		// 文件操作函数
		"file_get_contents": 2.0, "file_put_contents": 2.0, "fopen": 2.0,
		"fwrite": 2.0, "file": 2.0, "fputs": 2.0, "unlink": 2.0,

		// 网络功能
		"fsockopen": 3.0, "curl_exec": 3.0, "curl_init": 2.0,
	}
}

// ExtractWords 深度优先遍历类型化树，收集name字段组成词袋。
// 命中危险函数表的名称贡献weight次裸名称外加一个标记词。
// map按键排序遍历，保证结果可复现
func ExtractWords(node interface{}, dangerous map[string]float64) []string {
	if dangerous == nil {
		dangerous = DefaultDangerousFunctions()
	}
	var words []string
	collect(node, dangerous, &words, false)
	return words
}

// collect 实际的递归遍历。inspected标记当前map的name字段已在
// 上层Node处理过，避免同一出现被计两次
func collect(node interface{}, dangerous map[string]float64, words *[]string, inspected bool) {
	switch value := node.(type) {
	case Node:
		if childMap, ok := value.Children.(map[string]interface{}); ok {
			if name, ok := childMap["name"].(string); ok {
				appendWord(name, dangerous, words)
			}
			// children的name已计入，递归时跳过它自身的name检查
			collect(value.Children, dangerous, words, true)
			return
		}
		collect(value.Children, dangerous, words, false)
	case map[string]interface{}:
		if !inspected {
			if name, ok := value["name"].(string); ok {
				appendWord(name, dangerous, words)
			}
		}
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collect(value[k], dangerous, words, false)
		}
	case []interface{}:
		for _, item := range value {
			collect(item, dangerous, words, false)
		}
	}
}

// appendWord 将名称写入词袋并应用危险函数加权规则
func appendWord(name string, dangerous map[string]float64, words *[]string) {
	*words = append(*words, name)
	weight, ok := dangerous[name]
	if !ok {
		return
	}
	*words = append(*words, DangerMarkerPrefix+name)
	for i := 0; i < int(weight)-1; i++ {
		*words = append(*words, name)
	}
}

// MatchedDangerous 从词袋里取出命中的危险函数名(去重、排序)
func MatchedDangerous(words []string) []string {
	seen := make(map[string]bool)
	for _, w := range words {
		if strings.HasPrefix(w, DangerMarkerPrefix) {
			seen[strings.TrimPrefix(w, DangerMarkerPrefix)] = true
		}
	}
	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasCallable 判断树中是否存在可执行结构(eval/include、反引号执行、
// 函数/方法/静态调用)
func HasCallable(node interface{}) bool {
	switch value := node.(type) {
	case Node:
		switch value.Kind {
		case kindIncludeOrEval, kindShellExec, kindCall, kindMethodCall, kindStaticCall:
			return true
		}
		return HasCallable(value.Children)
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if HasCallable(value[k]) {
				return true
			}
		}
	case []interface{}:
		for _, item := range value {
			if HasCallable(item) {
				return true
			}
		}
	}
	return false
}
