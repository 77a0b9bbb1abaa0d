// pkg/retriever/retriever.go
package retriever

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"contextvault/pkg/types"

	"golang.org/x/sync/semaphore"
)

// DefaultWindow 是未指定并发窗口时的默认值
const DefaultWindow = 32

// FetchFunc 是外部存储提供的单 blob 取数原语
// 每一次调用就是一个挂起点；除此之外本包不做任何 I/O。
type FetchFunc func(ctx context.Context, id types.BlobID) ([]byte, error)

// Budget 约束一次批量检索: (数量上限, 字节上限, 并发窗口)
type Budget struct {
	// MaxResults = 0 表示数量不限
	MaxResults int

	// MaxTotalBytes = 0 表示字节数不限。
	// 默认策略是“完成边界”检查：累计完成字节到达上限后停止放行新的 fetch，
	// 已在窗口内的 fetch 允许跑完并保留结果（最多超出一个窗口的量）。
	MaxTotalBytes int64

	// Window 是同时在途的 fetch 上限，<= 0 时取 DefaultWindow
	Window int

	// StrictBytes 把宽松的完成边界策略收紧为硬上限：
	// 组装结果时裁掉会导致总字节超预算的尾部条目。
	// 两种语义原型系统里都说得通，所以做成开关而不是写死。
	StrictBytes bool
}

func (b Budget) window() int {
	if b.Window <= 0 {
		return DefaultWindow
	}
	return b.Window
}

// Item 是一条成功取回的 (身份, 字节) 对
type Item struct {
	ID   types.BlobID
	Data []byte
}

// Failure 记录单个身份的取数失败
// 失败不会中断整批——它被计入报告，让调用方自己决定怎么处理部分成功。
type Failure struct {
	ID  types.BlobID
	Err error
}

// Result 是一次检索的完整报告
// Items 的顺序 = 身份的枚举顺序，与 fetch 完成顺序无关。
type Result struct {
	Items      []Item
	Failures   []Failure
	TotalBytes int64
}

// Retrieve 以滑动窗口并发取回 ids 对应的字节
//
// 算法：
//  1. 按输入顺序放行身份，窗口内最多 Window 个 fetch 在途。
//  2. 每次放行前检查预算：数量到了 MaxResults、或累计完成字节到了
//     MaxTotalBytes，就不再放行。真实大小只有 fetch 完成后才知道，
//     所以字节预算是乐观准入 + 完成边界复查（semaphore 的 Acquire
//     恰好在“有 fetch 完成”之后返回，复查时机是天然对齐的）。
//  3. 全部在途 fetch 结束后按原始下标重组输出，保证确定性。
//
// 单个 fetch 失败只记入 Failures，绝不让异常穿透整批。
// slot 是重组用的占位：每个放行的身份占一格，按下标回填
type slot struct {
	admitted bool
	data     []byte
	err      error
}

func Retrieve(ctx context.Context, ids []types.BlobID, budget Budget, fetch FetchFunc) (*Result, error) {
	slots := make([]slot, len(ids))
	sem := semaphore.NewWeighted(int64(budget.window()))

	var (
		wg             sync.WaitGroup
		completedBytes atomic.Int64 // 只统计成功完成的 fetch
		admitted       int
	)

	for i, id := range ids {
		if budget.MaxResults > 0 && admitted >= budget.MaxResults {
			break
		}

		// Acquire 会阻塞到窗口里有空位（即有 fetch 完成）为止，
		// 所以它后面的预算检查看到的一定是最新的完成量。
		if err := sem.Acquire(ctx, 1); err != nil {
			// context 被取消：停止放行，等在途的收尾，返回已有结果
			wg.Wait()
			return assemble(ids, slots, budget), err
		}

		if budget.MaxTotalBytes > 0 && completedBytes.Load() >= budget.MaxTotalBytes {
			sem.Release(1)
			break
		}

		slots[i].admitted = true
		admitted++
		wg.Add(1)

		go func(i int, id types.BlobID) {
			defer wg.Done()
			defer sem.Release(1)

			data, err := fetch(ctx, id)
			if err != nil {
				slots[i].err = err
				slog.Warn("blob fetch failed",
					slog.String("context", id.Context),
					slog.String("blob", id.Name),
					slog.String("err", err.Error()),
				)
				return
			}
			slots[i].data = data
			completedBytes.Add(int64(len(data)))
		}(i, id)
	}

	// 不再放行之后，窗口里已经在飞的 fetch 允许跑完并保留结果
	wg.Wait()

	return assemble(ids, slots, budget), nil
}

// assemble 把乱序完成的槽位按枚举顺序重组成 Result
func assemble(ids []types.BlobID, slots []slot, budget Budget) *Result {
	res := &Result{}

	for i := range slots {
		if !slots[i].admitted {
			continue
		}
		if slots[i].err != nil {
			res.Failures = append(res.Failures, Failure{ID: ids[i], Err: slots[i].err})
			continue
		}
		if budget.MaxResults > 0 && len(res.Items) >= budget.MaxResults {
			break
		}
		if budget.StrictBytes && budget.MaxTotalBytes > 0 &&
			res.TotalBytes+int64(len(slots[i].data)) > budget.MaxTotalBytes {
			// 硬上限模式：这一条会把总量顶爆，整个尾部直接截断
			break
		}
		res.Items = append(res.Items, Item{ID: ids[i], Data: slots[i].data})
		res.TotalBytes += int64(len(slots[i].data))
	}
	return res
}
