// pkg/assim/builder.go
package assim

import (
	"fmt"

	"contextvault/pkg/types"
)

// ValidationError 表示调用方输入不合法
// 这一类错误在任何存储调用之前就会被发现，调用方修正输入即可恢复。
type ValidationError struct {
	Index  int    // 批量构建时出错的下标；单个构建时为 -1
	Field  string // 出错的字段名，可为空 (例如 "empty bundle" 这种整体性错误)
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		if e.Field != "" {
			return fmt.Sprintf("descriptor %d: field %q %s", e.Index, e.Field, e.Reason)
		}
		return fmt.Sprintf("descriptor %d: %s", e.Index, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("field %q %s", e.Field, e.Reason)
	}
	return e.Reason
}

// Raw 是一条未经校验的摄取描述符
// 对应 CLI / manifest JSON 里用户写的内容，所有可选字段的零值都有定义好的默认语义。
type Raw struct {
	Src       string `json:"src"`
	Dst       string `json:"dst"`
	Format    string `json:"format,omitempty"`
	DependsOn string `json:"depends_on,omitempty"`
	RangeOff  int64  `json:"range_off,omitempty"`
	RangeSize int64  `json:"range_size,omitempty"` // 0 = 从 RangeOff 读到末尾
	SrcToken  string `json:"src_token,omitempty"`
	DstToken  string `json:"dst_token,omitempty"`
}

// Request 是一条校验并补全默认值之后的 AssimilationRequest
// 只能通过 Build / BuildAll 构造，杜绝“字段名打错悄悄丢默认值”这类问题。
// 注意：这里不做任何文件系统或网络 I/O —— 真正的读取由存储引擎在提交时执行。
type Request struct {
	Src       types.Locator
	Dst       types.Locator
	Format    string
	DependsOn string
	RangeOff  int64
	RangeSize int64
	SrcToken  string // 不透明认证 token，默认空
	DstToken  string
}

// Build 校验一条描述符并应用默认值
func Build(raw Raw) (Request, error) {
	req, err := build(raw, -1)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

func build(raw Raw, index int) (Request, error) {
	if raw.Src == "" {
		return Request{}, &ValidationError{Index: index, Field: "src", Reason: "is required"}
	}
	if raw.Dst == "" {
		return Request{}, &ValidationError{Index: index, Field: "dst", Reason: "is required"}
	}
	if raw.RangeOff < 0 {
		return Request{}, &ValidationError{Index: index, Field: "range_off", Reason: "must not be negative"}
	}
	if raw.RangeSize < 0 {
		return Request{}, &ValidationError{Index: index, Field: "range_size", Reason: "must not be negative"}
	}

	format := raw.Format
	if format == "" {
		format = types.FormatBinary
	}

	return Request{
		Src:       types.Locator(raw.Src),
		Dst:       types.Locator(raw.Dst),
		Format:    format,
		DependsOn: raw.DependsOn,
		RangeOff:  raw.RangeOff,
		RangeSize: raw.RangeSize,
		SrcToken:  raw.SrcToken,
		DstToken:  raw.DstToken,
	}, nil
}

// BuildAll 批量构建，All-or-Nothing：
// 任何一条不合法，整批失败，错误里带着出错的下标。
// 这样就不会出现“提交了半个 bundle”的局面。
func BuildAll(raws []Raw) ([]Request, error) {
	reqs := make([]Request, 0, len(raws))
	for i, raw := range raws {
		req, err := build(raw, i)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
