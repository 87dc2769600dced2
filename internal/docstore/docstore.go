package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound 表示文档还不存在，调用方需要走首次创建路径（空 token 写入）
	ErrNotFound = errors.New("文档不存在")
	// ErrConflict 表示写入时携带的 token 已经过期，说明有其他写入者先完成了修改
	ErrConflict = errors.New("文档版本冲突")
)

// Document 是一次读取的结果，Content 对本包而言是不透明的 JSON
type Document struct {
	Content []byte
	Token   string
}

// Store 是带乐观并发控制的命名 JSON 文档存储。
// Write 的 token 必须来自此前的一次 Read，token 过期时返回 ErrConflict；
// 首次创建时传入空 token。
type Store interface {
	Read(ctx context.Context, name string) (*Document, error)
	Write(ctx context.Context, name string, content []byte, token string) (string, error)
}
