// pkg/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"contextvault/pkg/assim"
	"contextvault/pkg/meta"
	"contextvault/pkg/pattern"
	"contextvault/pkg/storage"
	"contextvault/pkg/types"
)

// 存储引擎的状态码约定：0 成功，非 0 原样透传给调用方
// (上层不翻译、不重试，只包进对应的错误类型里报告出去)
const (
	StatusOK            = 0
	StatusInternal      = 1
	StatusBadSource     = 2 // 源 locator 缺 scheme / scheme 不支持
	StatusBadDest       = 3 // 目的 locator 不是 iowarp::<context>
	StatusReadFailed    = 4 // 源数据读取失败
	StatusUnresolvedDep = 5 // depends_on 指向批内不存在的请求（或成环）
)

// Engine 是本地实现的存储引擎：
// 字节放 storage.Store，身份/大小放 meta 索引，两层合起来
// 对外提供“提交摄取 / 枚举 / 取数 / 销毁”四个原语。
type Engine struct {
	store storage.Store
	repo  *meta.Repository
}

func New(store storage.Store, repo *meta.Repository) *Engine {
	return &Engine{store: store, repo: repo}
}

// -----------------------------------------------------------------------------
// 1. 摄取 (Assimilation)
// -----------------------------------------------------------------------------

// SubmitAssimilation 执行一批摄取请求，返回状态码
// 先按 depends_on 排出执行顺序，再逐条执行；第一条失败就停，
// 返回它的状态码（已执行成功的不回滚 —— blob 摄取本身是幂等的）。
func (e *Engine) SubmitAssimilation(ctx context.Context, reqs []assim.Request) int {
	ordered, code := scheduleByDependency(reqs)
	if code != StatusOK {
		return code
	}

	for _, req := range ordered {
		if code := e.assimilate(ctx, req); code != StatusOK {
			return code
		}
	}
	return StatusOK
}

// scheduleByDependency 用重复扫描法解依赖：
// 每一轮把“无依赖或依赖已满足”的请求挪进执行序列，
// 某一轮一个都挪不动但还有剩 -> 依赖无解（指向批外，或成环）。
// depends_on 的约定：指向同一批里另一条请求的目的 locator。
func scheduleByDependency(reqs []assim.Request) ([]assim.Request, int) {
	ordered := make([]assim.Request, 0, len(reqs))
	done := make(map[string]bool) // 已排定请求的 Dst 集合

	pending := make([]assim.Request, len(reqs))
	copy(pending, reqs)

	for len(pending) > 0 {
		progressed := false
		rest := pending[:0]

		for _, req := range pending {
			if req.DependsOn == "" || done[req.DependsOn] {
				ordered = append(ordered, req)
				done[req.Dst.String()] = true
				progressed = true
			} else {
				rest = append(rest, req)
			}
		}

		if !progressed {
			slog.Error("assimilation dependency cannot be resolved",
				slog.Int("unresolved", len(rest)),
				slog.String("first_depends_on", rest[0].DependsOn),
			)
			return nil, StatusUnresolvedDep
		}
		pending = rest
	}
	return ordered, StatusOK
}

// assimilate 执行单条请求：读源 -> 写字节层 -> 登记索引
func (e *Engine) assimilate(ctx context.Context, req assim.Request) int {
	if req.Src.Scheme() != types.SchemeFile || req.Src.Path() == "" {
		slog.Error("unsupported source locator", slog.String("src", req.Src.String()))
		return StatusBadSource
	}
	if req.Dst.Scheme() != types.SchemeIOWarp || req.Dst.Path() == "" {
		slog.Error("bad destination locator", slog.String("dst", req.Dst.String()))
		return StatusBadDest
	}

	contextName := req.Dst.Path()
	id := types.BlobID{Context: contextName, Name: filepath.Base(req.Src.Path())}

	data, code := readSourceRange(req)
	if code != StatusOK {
		return code
	}

	if err := e.store.PutBlob(ctx, id, data); err != nil {
		slog.Error("blob write failed", slog.String("blob", id.String()), slog.String("err", err.Error()))
		return StatusInternal
	}

	// context 在第一次成功摄取时隐式创建
	if err := e.repo.EnsureContext(ctx, contextName); err != nil {
		slog.Error("context registration failed", slog.String("context", contextName), slog.String("err", err.Error()))
		return StatusInternal
	}
	attrs := map[string]any{
		"format": req.Format,
		"src":    req.Src.String(),
	}
	if err := e.repo.UpsertBlob(ctx, id, int64(len(data)), attrs); err != nil {
		slog.Error("blob indexing failed", slog.String("blob", id.String()), slog.String("err", err.Error()))
		return StatusInternal
	}

	slog.Info("blob assimilated",
		slog.String("blob", id.String()),
		slog.Int("bytes", len(data)),
		slog.String("format", req.Format),
	)
	return StatusOK
}

// readSourceRange 按 (range_off, range_size) 读取源文件
// range_size = 0 表示从 range_off 读到末尾；range 超出文件则按实际长度截断
func readSourceRange(req assim.Request) ([]byte, int) {
	f, err := os.Open(req.Src.Path())
	if err != nil {
		slog.Error("source open failed", slog.String("src", req.Src.String()), slog.String("err", err.Error()))
		return nil, StatusReadFailed
	}
	defer f.Close()

	if req.RangeOff > 0 {
		if _, err := f.Seek(req.RangeOff, io.SeekStart); err != nil {
			slog.Error("source seek failed", slog.String("src", req.Src.String()), slog.String("err", err.Error()))
			return nil, StatusReadFailed
		}
	}

	var reader io.Reader = f
	if req.RangeSize > 0 {
		reader = io.LimitReader(f, req.RangeSize)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("source read failed", slog.String("src", req.Src.String()), slog.String("err", err.Error()))
		return nil, StatusReadFailed
	}
	return data, StatusOK
}

// -----------------------------------------------------------------------------
// 2. 枚举 / 取数
// -----------------------------------------------------------------------------

// Blobs 返回全库 blob 身份的枚举源，顺序 = 索引的自然顺序
// (稳定的 (context, name) 升序；调用方不应依赖跨结构变更的稳定性)
func (e *Engine) Blobs() pattern.Source {
	return func(ctx context.Context, yield func(types.BlobID) bool) error {
		return e.repo.WalkBlobs(ctx, yield)
	}
}

// FetchBlob 取回单个 blob 的完整字节
func (e *Engine) FetchBlob(ctx context.Context, id types.BlobID) ([]byte, error) {
	r, err := e.store.GetBlob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read failed: %w", id, err)
	}
	return data, nil
}

// -----------------------------------------------------------------------------
// 3. 销毁
// -----------------------------------------------------------------------------

// DestroyContexts 逐个销毁命名的 context，返回聚合状态码
// 单个 context 的销毁是原子的（索引事务先行，字节层随后）；
// 任何一个失败，整体返回非 0，但不中断后面的销毁 —— 和引擎
// “尽量多删、如实报告”的语义保持一致。销毁不存在的 context 不算失败。
func (e *Engine) DestroyContexts(ctx context.Context, names []string) int {
	errorCount := 0

	for _, name := range names {
		deleted, err := e.repo.DeleteContext(ctx, name)
		if err != nil {
			slog.Error("context index deletion failed", slog.String("context", name), slog.String("err", err.Error()))
			errorCount++
			continue
		}

		// 索引没了之后身份就不可见了，字节层的清理失败只会留下孤儿文件
		if err := e.store.DeleteContext(ctx, name); err != nil {
			slog.Error("context byte deletion failed", slog.String("context", name), slog.String("err", err.Error()))
			errorCount++
			continue
		}

		slog.Info("context destroyed", slog.String("context", name), slog.Int64("blobs", deleted))
	}

	if errorCount > 0 {
		return StatusInternal
	}
	return StatusOK
}
