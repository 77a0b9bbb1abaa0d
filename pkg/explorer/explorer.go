// pkg/explorer/explorer.go
package explorer

import (
	"context"

	"contextvault/pkg/assim"
	"contextvault/pkg/pattern"
	"contextvault/pkg/retriever"
	"contextvault/pkg/types"
)

// ContextStore 是外部存储引擎必须满足的最小能力集
// 状态码约定：0 成功，非 0 原样向上透传。
// 本仓库里由 pkg/engine 实现；任何满足这四个原语的后端都能接进来。
type ContextStore interface {
	// SubmitAssimilation 提交一批摄取请求
	SubmitAssimilation(ctx context.Context, reqs []assim.Request) int

	// Blobs 返回按存储自然顺序枚举 blob 身份的 Source
	Blobs() pattern.Source

	// FetchBlob 取回单个 blob 的完整字节
	FetchBlob(ctx context.Context, id types.BlobID) ([]byte, error)

	// DestroyContexts 按名字销毁 context，聚合状态码
	DestroyContexts(ctx context.Context, names []string) int
}

// Explorer 是四个公开操作的门面: Bundle / Query / Retrieve / Destroy
// 存储引擎在构造时显式注入 —— 没有惰性初始化的全局单例，
// 多个实例可以各管各的引擎，测试也能干净地搭建和拆除。
type Explorer struct {
	store ContextStore

	// strictBytes 把检索的字节预算从“完成边界”收紧为硬上限
	// (两种语义见 pkg/retriever，通过 Option 配置)
	strictBytes bool
}

// Option 配置 Explorer 的可选行为
type Option func(*Explorer)

// WithStrictBytes 启用检索字节预算的硬上限模式
func WithStrictBytes() Option {
	return func(e *Explorer) { e.strictBytes = true }
}

func New(store ContextStore, opts ...Option) *Explorer {
	e := &Explorer{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BundleReport 是一次成功提交的回执
type BundleReport struct {
	Submitted int // 提交的请求条数
}

// DestroyReport 是一次成功销毁的回执
type DestroyReport struct {
	Destroyed int // 请求销毁的 context 个数
}

// Bundle 校验并提交一批摄取描述符
// 错误路径：空输入 / 任何一条描述符非法 -> *assim.ValidationError，
// 此时不会碰存储；引擎返回非 0 -> *SubmissionError{Code}。
// All-or-Nothing：有一条坏的，整批都不提交。
func (e *Explorer) Bundle(ctx context.Context, raws []assim.Raw) (*BundleReport, error) {
	if len(raws) == 0 {
		return nil, &assim.ValidationError{Index: -1, Reason: "empty bundle"}
	}

	reqs, err := assim.BuildAll(raws)
	if err != nil {
		return nil, err
	}

	if code := e.store.SubmitAssimilation(ctx, reqs); code != 0 {
		return nil, &SubmissionError{Code: code}
	}

	return &BundleReport{Submitted: len(reqs)}, nil
}

// Query 按一对正则枚举匹配的 blob 身份
// maxResults = 0 表示不限。零匹配是正常的空结果，不是错误。
// 正则编译失败 -> *pattern.Error 原样向上。
func (e *Explorer) Query(ctx context.Context, ctxPattern, blobPattern string, maxResults int) ([]types.BlobID, error) {
	m, err := pattern.Compile(ctxPattern, blobPattern)
	if err != nil {
		return nil, err
	}
	return m.Scan(ctx, e.store.Blobs(), maxResults)
}

// Retrieve 先 Query 再按预算批量取字节
// 返回的条目顺序与 Query 的枚举顺序一致；单个 blob 的取数失败
// 记入 Result.Failures，不会让整个调用失败。
func (e *Explorer) Retrieve(ctx context.Context, ctxPattern, blobPattern string,
	maxResults int, maxTotalBytes int64, window int) (*retriever.Result, error) {

	ids, err := e.Query(ctx, ctxPattern, blobPattern, maxResults)
	if err != nil {
		return nil, err
	}

	budget := retriever.Budget{
		MaxResults:    maxResults,
		MaxTotalBytes: maxTotalBytes,
		Window:        window,
		StrictBytes:   e.strictBytes,
	}
	return retriever.Retrieve(ctx, ids, budget, e.store.FetchBlob)
}

// Destroy 按名字销毁 context
// 空输入 -> *assim.ValidationError（不碰存储）；
// 引擎返回非 0 -> *DestructionError{Code}。
// 幂等性归引擎管：销毁不存在的 context 由引擎的状态码说了算。
func (e *Explorer) Destroy(ctx context.Context, names []string) (*DestroyReport, error) {
	if len(names) == 0 {
		return nil, &assim.ValidationError{Index: -1, Reason: "empty context list"}
	}

	if code := e.store.DestroyContexts(ctx, names); code != 0 {
		return nil, &DestructionError{Code: code}
	}

	return &DestroyReport{Destroyed: len(names)}, nil
}
