/*
 * @Date: 2025-06-04 09:31:22
 * @Description: PHP AST解析器桥接，通过管道与持久化的解析进程通信
 */
package bridge

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"shieldscan/pkg/logging"
)

// Parser 抽象AST解析能力。嵌入式运行时和子进程实现都隐藏在该接口后面，
// 核心代码只依赖这里。
type Parser interface {
	Initialize(version string) error
	Parse(source []byte) (*ParseResult, error)
	Cleanup() error
}

// ParseResult 一次解析的结果。协议层的所有失败都被吸收为 HasAST=false，
// 不会以error形式抛给调用方。
type ParseResult struct {
	HasAST bool        // status为"successed"且带ast键时为true
	AST    interface{} // 原始的通用树结构(map/list/标量)
	Reason string      // 解析器返回的失败原因(可能为空)
}

// PhpBridge 管理PHP AST解析子进程。协议是无请求标识的字节流，
// 同一实例同一时刻只允许一个在途请求。
type PhpBridge struct {
	runtimePath string

	mu          sync.Mutex
	initialized bool
	version     string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader
	exited chan error
}

// NewPhpBridge 创建桥接实例，runtimePath为解析器可执行文件路径
func NewPhpBridge(runtimePath string) *PhpBridge {
	return &PhpBridge{runtimePath: runtimePath}
}

// Initialize 启动解析子进程。幂等：已初始化时直接返回
func (b *PhpBridge) Initialize(version string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initLocked(version)
}

func (b *PhpBridge) initLocked(version string) error {
	if b.initialized {
		return nil
	}
	if version == "" {
		version = "7"
	}

	cmd := exec.Command(b.runtimePath, "--php-version", version)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("failed to start php runtime %s: %w", b.runtimePath, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	b.cmd = cmd
	b.stdin = stdin
	b.stdout = stdout
	b.reader = bufio.NewReader(stdout)
	b.exited = exited
	b.version = version
	b.initialized = true
	return nil
}

// Parse 发送源码并阻塞读取完整的一帧响应。桥接协议层的任何异常
// (坏长度行、坏JSON、EOF)都降级为空解析结果而不是错误。
func (b *PhpBridge) Parse(source []byte) (*ParseResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 长度为0的请求是终止指令，空源码直接按无AST处理
	if len(source) == 0 {
		return &ParseResult{HasAST: false, Reason: "empty source"}, nil
	}

	if !b.initialized {
		// cleanup之后再次调用parse时重新初始化
		if err := b.initLocked(b.version); err != nil {
			return nil, err
		}
	}

	if err := writeRequest(b.stdin, source); err != nil {
		// 子进程已退出，按协议降级为空解析
		logging.WarnLogger.Warnf("php bridge write failed, treating as empty parse: %v", err)
		return evalResponse(emptyParse()), nil
	}

	return evalResponse(readResponse(b.reader)), nil
}

// Cleanup 发送终止帧"0\n"，等待子进程退出后释放管道。可重复调用；
// 清理后桥接回到未初始化状态
func (b *PhpBridge) Cleanup() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}

	if b.stdin != nil {
		if _, err := b.stdin.Write([]byte("0\n")); err != nil {
			logging.WarnLogger.Warnf("failed to send termination frame: %v", err)
		}
		b.stdin.Close()
		b.stdin = nil
	}

	if b.exited != nil {
		select {
		case <-b.exited:
		case <-time.After(3 * time.Second):
			logging.WarnLogger.Warnf("timeout waiting for php runtime to exit, killing")
			if b.cmd != nil && b.cmd.Process != nil {
				_ = b.cmd.Process.Kill()
			}
		}
		b.exited = nil
	}

	if b.stdout != nil {
		b.stdout.Close()
		b.stdout = nil
	}

	b.cmd = nil
	b.reader = nil
	b.initialized = false
	return nil
}

// writeRequest 写入一帧请求：十进制ASCII长度+换行，然后是原始payload
func writeRequest(w io.Writer, payload []byte) error {
	if w == nil {
		return fmt.Errorf("bridge stdin is not available")
	}
	header := strconv.Itoa(len(payload)) + "\n"
	if _, err := w.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write length header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// readResponse 读取一帧响应并解码为通用map。长度行非法、JSON解码失败
// 或者读到EOF时一律返回空解析对象(刻意的宽容降级)
func readResponse(r *bufio.Reader) map[string]interface{} {
	if r == nil {
		return emptyParse()
	}

	line, err := r.ReadString('\n')
	if err != nil {
		// 读满一个长度行之前遇到EOF，视为子进程已退出
		return emptyParse()
	}

	n, err := strconv.Atoi(trimFrame(line))
	if err != nil || n < 0 {
		return emptyParse()
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return emptyParse()
	}

	return decodeBody(body)
}

// emptyParse 宽容降级使用的空解析对象
func emptyParse() map[string]interface{} {
	return map[string]interface{}{
		"status": "success",
		"ast":    map[string]interface{}{},
	}
}

// evalResponse 解释响应对象。注意线上协议的状态串是"successed"(非标准拼写)，
// 必须精确匹配，其余状态都按无AST的软失败处理
func evalResponse(data map[string]interface{}) *ParseResult {
	status, _ := data["status"].(string)
	if status == "successed" {
		if ast, ok := data["ast"]; ok {
			return &ParseResult{HasAST: true, AST: ast}
		}
	}
	reason, _ := data["reason"].(string)
	return &ParseResult{HasAST: false, Reason: reason}
}
