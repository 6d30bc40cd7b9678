/*
 * @Date: 2025-06-04 10:05:48
 * @Description: 通用树结构到类型化节点的转换
 */
package ast

import (
	"reflect"
	"strconv"
)

// Normalize 将桥接返回的通用结构(map/list/标量)转换为类型化结构。
// 含有可转整数kind键的map变成Node，其余map/list逐值递归，标量原样
// 返回。转换是全量的：任意有限输入都不会失败，无法识别的形状原样
// 透传(递归转换后)
func Normalize(raw interface{}) interface{} {
	if raw == nil {
		return nil
	}

	switch value := raw.(type) {
	case float64, string, bool:
		return value
	case []interface{}:
		result := make([]interface{}, len(value))
		for i, v := range value {
			result[i] = Normalize(v)
		}
		return result
	case map[string]interface{}:
		if kindVal, ok := value["kind"]; ok {
			if kind, isInt := toInt(kindVal); isInt {
				flags, _ := toInt(value["flags"])
				lineno, _ := toInt(value["lineno"])
				return Node{
					Kind:     kind,
					Flags:    flags,
					LineNo:   lineno,
					Children: Normalize(value["children"]),
				}
			}
		}
		result := make(map[string]interface{}, len(value))
		for k, v := range value {
			result[k] = Normalize(v)
		}
		return result
	default:
		return value
	}
}

// toInt 尝试将任意值转为int。JSON数字解析为float64是最常见情况，
// 数字字符串也接受
func toInt(v interface{}) (int, bool) {
	if v == nil {
		return 0, false
	}
	if f, ok := v.(float64); ok {
		return int(f), true
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		return 0, false
	}
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(val.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int(val.Uint()), true
	}
	return 0, false
}
