/*
 * @Date: 2025-06-04 10:02:15
 * @Description: 类型化AST节点定义
 */
package ast

// Node PHP AST中的一个节点：类型标签、标志位、行号与子结构。
// 子结构类型不定：可能是Node、列表、map或标量
type Node struct {
	Kind     int         `json:"kind"`
	Flags    int         `json:"flags"`
	LineNo   int         `json:"lineno"`
	Children interface{} `json:"children"`
}

// 可执行结构的节点类型标签
const (
	kindIncludeOrEval = 269 // AST_INCLUDE_OR_EVAL
	kindShellExec     = 265 // AST_SHELL_EXEC
	kindCall          = 515 // AST_CALL
	kindMethodCall    = 768 // AST_METHOD_CALL
	kindStaticCall    = 769 // AST_STATIC_CALL
)
