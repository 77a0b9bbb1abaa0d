// pkg/exporter/exporter.go
package exporter

import (
	"fmt"
	"io"

	"contextvault/pkg/retriever"

	"github.com/fxamacker/cbor/v2"
)

// 打包格式版本号，格式演进时递增
const packVersion = 1

// PackEntry 是打包文件里的一条 (身份, 字节) 记录
// cbor 短 key 是刻意的：打包文件往往很大，省下的是真金白银的字节
type PackEntry struct {
	Context string `cbor:"c"`
	Name    string `cbor:"n"`
	Data    []byte `cbor:"d"`
}

// Pack 是一次检索结果的落盘形态
// 条目顺序 = 检索结果顺序（也就是枚举顺序），序列化不打乱它
type Pack struct {
	Version    int         `cbor:"v"`
	Entries    []PackEntry `cbor:"e"`
	TotalBytes int64       `cbor:"s"`
}

// WritePack 把检索结果序列化成 CBOR 写入 writer
// 只打包成功取回的条目；失败报告是给人看的，不进打包文件
func WritePack(w io.Writer, res *retriever.Result) error {
	pack := Pack{
		Version:    packVersion,
		Entries:    make([]PackEntry, 0, len(res.Items)),
		TotalBytes: res.TotalBytes,
	}
	for _, item := range res.Items {
		pack.Entries = append(pack.Entries, PackEntry{
			Context: item.ID.Context,
			Name:    item.ID.Name,
			Data:    item.Data,
		})
	}

	if err := cbor.NewEncoder(w).Encode(pack); err != nil {
		return fmt.Errorf("failed to encode pack: %w", err)
	}
	return nil
}

// ReadPack 从 reader 反序列化一个打包文件
func ReadPack(r io.Reader) (*Pack, error) {
	var pack Pack
	if err := cbor.NewDecoder(r).Decode(&pack); err != nil {
		return nil, fmt.Errorf("failed to decode pack: %w", err)
	}
	if pack.Version != packVersion {
		return nil, fmt.Errorf("unsupported pack version: %d", pack.Version)
	}
	return &pack, nil
}
