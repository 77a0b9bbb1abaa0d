package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"contextvault/pkg/storage"
	"contextvault/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 缓存层
// 只缓存“存在性”，不缓存 blob 字节本身：
// blob 可能非常大，Redis 内存极其宝贵，只存 Existence 性价比最高。
// （检索层本来就承诺不跨调用缓存字节，缓存字节也会破坏那个语义。）
type CachedStore struct {
	backend storage.Store // 被装饰的底层存储 (如 S3)
	client  *redis.Client // Redis 客户端
	ttl     time.Duration // 缓存过期时间 (例如 24h)
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	// 解析 URL
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
	}, nil
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(id types.BlobID) string {
	return "cv:has:" + id.Context + "/" + id.Name
}

func (s *CachedStore) HasBlob(ctx context.Context, id types.BlobID) (bool, error) {
	key := s.cacheKey(id)

	// 1. 查 Redis
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 架构决策：缓存故障降级 (Cache Failure Fallback)
		// Redis 挂了不应该让整个程序崩溃，退化为无缓存模式直接查底层。
		fmt.Printf("WARN: Redis error: %v\n", err)
	} else if val > 0 {
		// Cache Hit! 无需发起底层网络请求
		return true, nil
	}

	// 2. 缓存未命中 (Cache Miss)，查底层存储
	found, err := s.backend.HasBlob(ctx, id)
	if err != nil {
		return false, err
	}

	// 3. 缓存回填 (Cache Fill)
	if found {
		// 异步写入 Redis，不阻塞主流程
		// 使用 context.Background() 确保即使上层 ctx 取消，回填也能完成
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// PutBlob 写入对象。利用 HasBlob 的缓存能力进行预检。
func (s *CachedStore) PutBlob(ctx context.Context, id types.BlobID, data []byte) error {
	if err := s.backend.PutBlob(ctx, id, data); err != nil {
		return err
	}

	// 底层写成功了才写缓存；这里的 Set 错误可以忽略，不影响主流程
	s.client.Set(ctx, s.cacheKey(id), "1", s.ttl)
	return nil
}

// GetBlob 透传 - 我们不缓存 Blob 数据
func (s *CachedStore) GetBlob(ctx context.Context, id types.BlobID) (io.ReadCloser, error) {
	return s.backend.GetBlob(ctx, id)
}

// DeleteContext 先删底层，再把该 context 的存在性缓存整体失效
// 顺序很重要：如果先删缓存再删底层失败，缓存会被 Has 重新回填，反而自洽。
func (s *CachedStore) DeleteContext(ctx context.Context, contextName string) error {
	if err := s.backend.DeleteContext(ctx, contextName); err != nil {
		return err
	}

	// SCAN + DEL：避免 KEYS 在大库上的阻塞
	pattern := "cv:has:" + contextName + "/*"
	iter := s.client.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			// 失效失败只是多活一个 TTL 周期，打个警告即可
			fmt.Printf("WARN: failed to invalidate cache key %s: %v\n", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		fmt.Printf("WARN: cache invalidation scan failed: %v\n", err)
	}
	return nil
}
