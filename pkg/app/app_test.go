package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStore_Disk(t *testing.T) {
	// 1. Mock 配置
	tmp := t.TempDir()
	viper.Reset()
	viper.Set("storage.type", "disk")
	viper.Set("storage.path", filepath.Join(tmp, "objects"))

	// 2. 调用私有函数 (因为我们在同一个包)
	store, err := initStore(context.Background(), tmp)

	// 3. 验证
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestInitStore_S3_MissingBucket(t *testing.T) {
	viper.Reset()
	viper.Set("storage.type", "s3")
	// 故意不设置 bucket

	store, err := initStore(context.Background(), ".")
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestInitStore_UnknownType(t *testing.T) {
	viper.Reset()
	viper.Set("storage.type", "ftp") // 不支持的类型

	store, err := initStore(context.Background(), ".")
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestInitDB_UnknownDriver(t *testing.T) {
	viper.Reset()
	viper.Set("database.driver", "oracle")

	db, err := initDB(context.Background(), t.TempDir())
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNewApp_DiskSqlite(t *testing.T) {
	tmp := t.TempDir()
	viper.Reset()
	viper.Set("storage.type", "disk")
	viper.Set("storage.path", filepath.Join(tmp, ".cv", "objects"))
	viper.Set("database.driver", "sqlite")

	a, err := NewApp(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Repo)
	assert.NotNil(t, a.Engine)
	assert.NotNil(t, a.Explorer)
	assert.Equal(t, filepath.Join(tmp, ".cv"), a.RepoPath)
}
