package meta

import (
	"time"

	"gorm.io/datatypes"
)

// ContextModel 是一个 context 在关系型数据库中的登记行
// context 在第一次成功摄取时隐式创建，销毁时整行连同 blob 行一起删掉
type ContextModel struct {
	// Name 是主键，store 内唯一
	Name string `gorm:"primaryKey;type:varchar(255)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ContextModel) TableName() string { return "contexts" }

// BlobModel 是 blob 身份索引
// 身份 = (context_name, name) 复合主键，天然保证 store 内唯一；
// 主键索引同时给了我们稳定的 (context_name, name) 升序枚举顺序。
type BlobModel struct {
	ContextName string `gorm:"primaryKey;type:varchar(255)"`
	Name        string `gorm:"primaryKey;type:varchar(255)"`

	// SizeBytes 让 query/检索能在不捞字节的前提下报告大小
	SizeBytes int64 `gorm:"not null"`

	// Attrs 存放摄取时的非结构化元数据 (format、来源 locator 等)
	Attrs datatypes.JSON

	CreatedAt time.Time
}

func (BlobModel) TableName() string { return "blobs" }
