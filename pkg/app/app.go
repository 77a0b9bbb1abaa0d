// pkg/app/app.go
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"contextvault/pkg/engine"
	"contextvault/pkg/explorer"
	"contextvault/pkg/meta"
	"contextvault/pkg/storage"
	"contextvault/pkg/storage/cache"
	"contextvault/pkg/storage/disk"
	"contextvault/pkg/storage/s3"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有“单例”服务
type App struct {
	Store    storage.Store
	Repo     *meta.Repository
	Engine   *engine.Engine
	Explorer *explorer.Explorer
	RepoPath string
}

// NewApp 是工厂函数，负责组装这一台机器
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	// 1. 获取工作目录根路径 (Single Source of Truth)
	storePath := viper.GetString("storage.path")
	if storePath == "" {
		return nil, fmt.Errorf("storage path not set")
	}

	// storePath: .../.cv/objects
	// repoPath:  .../.cv
	repoPath := filepath.Dir(storePath)

	// 2. 初始化存储层 (Dependency Injection)
	store, err := initStore(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 3. 可选的 Redis 缓存装饰器
	if viper.GetBool("cache.enabled") {
		cached, err := cache.NewCachedStore(store, cache.Config{
			RedisURL: fmt.Sprintf("redis://%s/%d",
				viper.GetString("cache.addr"), viper.GetInt("cache.db")),
			TTL: 24 * time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init cache: %w", err)
		}
		store = cached
	}

	// 4. 初始化元数据索引
	db, err := initDB(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init metadata db: %w", err)
	}
	repo := meta.NewRepository(db)

	// 5. 组装引擎和门面
	eng := engine.New(store, repo)

	var opts []explorer.Option
	if viper.GetBool("retrieve.strict_bytes") {
		opts = append(opts, explorer.WithStrictBytes())
	}
	exp := explorer.New(eng, opts...)

	return &App{
		Store:    store,
		Repo:     repo,
		Engine:   eng,
		Explorer: exp,
		RepoPath: repoPath,
	}, nil
}

// initStore 根据配置选择存储后端
// 如果未来要支持更多后端，在这里加 case
func initStore(ctx context.Context, repoPath string) (storage.Store, error) {
	storageType := viper.GetString("storage.type")

	switch storageType {
	case "disk", "":
		storePath := viper.GetString("storage.path")
		if storePath == "" {
			storePath = filepath.Join(repoPath, "objects")
		}
		return disk.NewAdapter(storePath)

	case "s3":
		bucket := viper.GetString("s3.bucket")
		if bucket == "" {
			return nil, fmt.Errorf("s3 bucket is required")
		}
		return s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          bucket,
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// initDB 根据配置选择元数据库
// 单机默认 sqlite（零运维）；集群形态切 postgres
func initDB(ctx context.Context, repoPath string) (*meta.DB, error) {
	driver := viper.GetString("database.driver")

	switch driver {
	case "sqlite", "":
		dbPath := viper.GetString("database.path")
		if dbPath == "" {
			dbPath = filepath.Join(repoPath, "meta.db")
		}
		return meta.NewSQLiteDB(ctx, dbPath)

	case "postgres":
		return meta.NewDB(ctx, meta.Config{
			Host:     viper.GetString("database.host"),
			Port:     viper.GetInt("database.port"),
			User:     viper.GetString("database.user"),
			Password: viper.GetString("database.password"),
			DBName:   viper.GetString("database.dbname"),
			SSLMode:  viper.GetString("database.sslmode"),
		})

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
