package storage

import (
	"context"
	"errors"
	"io"

	"contextvault/pkg/types"
)

var (
	ErrNotFound = errors.New("blob not found")
)

// Store defines the interface for a blob byte-store backend.
// Implementations can be local disk, cloud storage, or in-memory storage.
// 寻址方式是 (context, blob) 二元组，不是内容哈希：
// 同一身份重复写入直接覆盖/跳过，由上层的元数据索引保证唯一性。
type Store interface {
	// PutBlob 持久化一个 blob 的完整字节
	PutBlob(ctx context.Context, id types.BlobID, data []byte) error

	// GetBlob 读取原始数据
	// 注意：返回 io.ReadCloser 而不是 []byte，
	// 为了支持大 blob 的流式读取，避免一次性把几百 MB 读进内存
	GetBlob(ctx context.Context, id types.BlobID) (io.ReadCloser, error)

	// HasBlob 检查 blob 是否存在 (幂等写入的预检)
	HasBlob(ctx context.Context, id types.BlobID) (bool, error)

	// DeleteContext 删除一个 context 下的全部 blob 字节
	// context 的销毁事务由存储引擎整体把控，这里只负责字节层
	DeleteContext(ctx context.Context, contextName string) error
}
