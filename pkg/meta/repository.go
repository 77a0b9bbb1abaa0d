package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contextvault/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBlobNotFound = errors.New("blob not found in metadata")
)

// walkBatchSize 是枚举时每次捞取的行数
// 太小 SQL 往返多，太大内存压力大，512 是个舒服的中间值
const walkBatchSize = 512

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. Context 登记
// -----------------------------------------------------------------------------

// EnsureContext 隐式创建 context (幂等)
// 第一次向某个 context 摄取成功时调用；已存在则什么都不做
func (r *Repository) EnsureContext(ctx context.Context, name string) error {
	model := ContextModel{Name: name}
	err := r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to ensure context: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// 2. Blob 身份索引
// -----------------------------------------------------------------------------

// UpsertBlob 幂等登记一个 blob 身份
// 同一身份重复摄取时覆盖大小和属性 —— blob 内容不可变，
// 但允许重新摄取同名源（覆盖写等价于 delete+create）。
func (r *Repository) UpsertBlob(ctx context.Context, id types.BlobID, size int64, attrs map[string]any) error {
	var attrsJSON datatypes.JSON
	if len(attrs) > 0 {
		raw, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("failed to marshal blob attrs: %w", err)
		}
		attrsJSON = datatypes.JSON(raw)
	}

	model := BlobModel{
		ContextName: id.Context,
		Name:        id.Name,
		SizeBytes:   size,
		Attrs:       attrsJSON,
	}

	err := r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "context_name"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"size_bytes", "attrs"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert blob: %w", err)
	}
	return nil
}

// GetBlob 按身份取一行索引 (主键查询，非常快)
func (r *Repository) GetBlob(ctx context.Context, id types.BlobID) (*BlobModel, error) {
	var blob BlobModel
	err := r.db.GetConn().WithContext(ctx).
		Where("context_name = ? AND name = ?", id.Context, id.Name).
		First(&blob).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &blob, nil
}

// WalkBlobs 按 (context_name, name) 升序逐个回调全部 blob 身份
// yield 返回 false 表示调用方不想再看了，枚举立即停止 ——
// 这就是 query limit “不扫描存储剩余部分”的底层保证。
//
// 实现用 Keyset Pagination 而不是 OFFSET：
// 每批以上一批最后一行为起点，(context_name, name) 正好是主键，走索引。
func (r *Repository) WalkBlobs(ctx context.Context, yield func(types.BlobID) bool) error {
	var (
		started  bool
		lastCtx  string
		lastName string
	)

	for {
		q := r.db.GetConn().WithContext(ctx).
			Order("context_name, name").
			Limit(walkBatchSize)
		if started {
			q = q.Where("context_name > ? OR (context_name = ? AND name > ?)",
				lastCtx, lastCtx, lastName)
		}

		var batch []BlobModel
		if err := q.Find(&batch).Error; err != nil {
			return fmt.Errorf("blob walk query failed: %w", err)
		}

		for _, b := range batch {
			if !yield(types.BlobID{Context: b.ContextName, Name: b.Name}) {
				return nil
			}
		}

		if len(batch) < walkBatchSize {
			return nil // 扫完了
		}
		last := batch[len(batch)-1]
		started, lastCtx, lastName = true, last.ContextName, last.Name
	}
}

// -----------------------------------------------------------------------------
// 3. Context 销毁
// -----------------------------------------------------------------------------

// DeleteContext 原子删除一个 context 及其全部 blob 行
// 事务保证：要么整个 context 消失，要么什么都没发生。
// 返回删掉的 blob 行数；删除不存在的 context 返回 0，不算错误 (幂等)。
func (r *Repository) DeleteContext(ctx context.Context, name string) (int64, error) {
	var deleted int64

	err := r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("context_name = ?", name).Delete(&BlobModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected

		if err := tx.Where("name = ?", name).Delete(&ContextModel{}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete context %q: %w", name, err)
	}
	return deleted, nil
}
