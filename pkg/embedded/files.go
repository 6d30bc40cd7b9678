/*
 * @Date: 2025-06-03 10:24:51
 * @Description: 嵌入的默认资源文件
 */
package embedded

import (
	"embed"
	"io/fs"
)

// 模型文件是训练产物，体积较大，统一从磁盘的 data/models 目录加载，
// 这里只嵌入默认配置。
//
//go:embed config.yaml
var EmbeddedFiles embed.FS

// GetFileContent 获取嵌入文件的内容
func GetFileContent(path string) ([]byte, error) {
	return EmbeddedFiles.ReadFile(path)
}

// GetFS 获取嵌入文件系统
func GetFS() fs.FS {
	return EmbeddedFiles
}
