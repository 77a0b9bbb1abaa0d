package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"contextvault/pkg/storage"
	"contextvault/pkg/types"
)

// Adapter 实现了 storage.Store 接口
type Adapter struct {
	rootPath string // 比如: /var/lib/cv/objects
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{rootPath: root}, nil
}

// layout 返回身份对应的物理路径
// 策略：context 一个目录，blob 一个文件
// Example: {t1, a.bin} -> root/t1/a.bin
func (s *Adapter) layout(id types.BlobID) string {
	return filepath.Join(s.rootPath, id.Context, id.Name)
}

func (s *Adapter) PutBlob(ctx context.Context, id types.BlobID, data []byte) error {
	targetPath := s.layout(id)

	// 1. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 2. 原子写入 (Atomic Write)
	// 技巧：先写到一个临时文件，然后 Rename。
	// 这样保证要么文件不存在，要么文件是完整的。
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	// 确保临时文件会被清理（如果成功 Rename 了，这个删除会失效，或者无害）
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	tempFile.Close() // 必须先关闭才能 Rename

	// 3. 移动到最终位置（同名覆盖：blob 一旦写入即不可变，覆盖等价于幂等）
	if err := os.Rename(tempFile.Name(), targetPath); err != nil {
		return err
	}

	return nil
}

func (s *Adapter) GetBlob(ctx context.Context, id types.BlobID) (io.ReadCloser, error) {
	targetPath := s.layout(id)

	f, err := os.Open(targetPath)
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Adapter) HasBlob(ctx context.Context, id types.BlobID) (bool, error) {
	_, err := os.Stat(s.layout(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// DeleteContext 一把删掉整个 context 目录
func (s *Adapter) DeleteContext(ctx context.Context, contextName string) error {
	if contextName == "" {
		return fmt.Errorf("empty context name")
	}
	return os.RemoveAll(filepath.Join(s.rootPath, contextName))
}
