// pkg/types/common.go
package types

import "strings"

// BlobID 是一个 blob 的唯一身份: (context 名, blob 名) 二元组
// 这是一个“值对象”，应当是不可变的。
type BlobID struct {
	Context string
	Name    string
}

func (id BlobID) String() string { return id.Context + "/" + id.Name }

// 验证 BlobID 合法性
func (id BlobID) IsZero() bool  { return id.Context == "" && id.Name == "" }
func (id BlobID) IsValid() bool { return id.Context != "" && id.Name != "" }

// Locator 是带 scheme 前缀的资源定位符，例如:
//
//	file::/tmp/data.bin   (本地文件源)
//	iowarp::my_dataset    (存储引擎里的 context)
//
// 分隔符固定为 "::"。
type Locator string

const locatorSep = "::"

// 已知的 scheme
const (
	SchemeFile   = "file"   // 本地文件系统
	SchemeIOWarp = "iowarp" // 存储引擎自身的 context 命名空间
)

func (l Locator) String() string { return string(l) }
func (l Locator) IsZero() bool   { return l == "" }

// Scheme 返回 "::" 之前的部分；没有分隔符时返回空串
func (l Locator) Scheme() string {
	s := string(l)
	if i := strings.Index(s, locatorSep); i >= 0 {
		return s[:i]
	}
	return ""
}

// Path 返回 "::" 之后的部分；没有分隔符时返回整个字符串
// (宽容处理：裸路径被当作无 scheme 的 path)
func (l Locator) Path() string {
	s := string(l)
	if i := strings.Index(s, locatorSep); i >= 0 {
		return s[i+len(locatorSep):]
	}
	return s
}

// IsValid 要求 scheme 和 path 都非空
func (l Locator) IsValid() bool { return l.Scheme() != "" && l.Path() != "" }

// 数据格式标签
const (
	FormatBinary = "binary" // 默认格式：不透明字节流
	FormatHDF5   = "hdf5"
)
