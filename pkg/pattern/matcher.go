// pkg/pattern/matcher.go
package pattern

import (
	"context"
	"fmt"
	"regexp"

	"contextvault/pkg/types"
)

// Error 表示正则表达式编译失败 (PatternError)
// 这是调用方可以修复的错误：改正则就行，不做任何吞错处理。
type Error struct {
	Expr string // 出错的表达式原文
	Err  error  // regexp.Compile 的底层错误
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Expr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Source 是 blob 身份的推式枚举器 (Push Enumeration)
// 实现方按存储的自然顺序逐个回调 yield；yield 返回 false 表示提前停止。
// 这样 limit 生效之后就不会继续扫描存储的剩余部分。
type Source func(ctx context.Context, yield func(types.BlobID) bool) error

// Matcher 持有一对已编译的正则：context 名一个，blob 名一个
// 两者相互独立，各自对“全名”做完整匹配（不是子串搜索）。
type Matcher struct {
	ctxRe  *regexp.Regexp
	blobRe *regexp.Regexp
}

// Compile 编译两个模式，并强制锚定为全匹配
// 技巧：用 \A(?:expr)\z 包裹，这样 "ctx" 不会误匹配 "ctxA"，
// 而 ".*" 仍然匹配任意名字。
func Compile(ctxPattern, blobPattern string) (*Matcher, error) {
	ctxRe, err := regexp.Compile(anchored(ctxPattern))
	if err != nil {
		return nil, &Error{Expr: ctxPattern, Err: err}
	}
	blobRe, err := regexp.Compile(anchored(blobPattern))
	if err != nil {
		return nil, &Error{Expr: blobPattern, Err: err}
	}
	return &Matcher{ctxRe: ctxRe, blobRe: blobRe}, nil
}

func anchored(expr string) string {
	return `\A(?:` + expr + `)\z`
}

// Match 判断单个身份是否同时通过两个过滤器
func (m *Matcher) Match(id types.BlobID) bool {
	return m.ctxRe.MatchString(id.Context) && m.blobRe.MatchString(id.Name)
}

// Scan 按枚举顺序收集匹配的身份
// limit = 0 表示返回全部匹配；limit = N > 0 表示找满 N 个就停止枚举。
// 空结果不是错误：返回零长度切片即可，由上层决定如何措辞。
func (m *Matcher) Scan(ctx context.Context, src Source, limit int) ([]types.BlobID, error) {
	var matches []types.BlobID

	err := src(ctx, func(id types.BlobID) bool {
		if !m.Match(id) {
			return true // 不匹配，继续
		}
		matches = append(matches, id)
		// 找满 limit 就让枚举器停下来，不再扫剩余部分
		return limit <= 0 || len(matches) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("blob enumeration failed: %w", err)
	}
	return matches, nil
}
