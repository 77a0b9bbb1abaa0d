// pkg/exporter/printer.go
package exporter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"contextvault/pkg/retriever"
)

// previewBytes 是摘要里展示的十六进制预览长度
const previewBytes = 100

// PrintSummary 把检索结果渲染成人类可读的摘要
// 包含：条数、总字节、逐条的表格、第一条的 hex 预览、失败清单
func PrintSummary(w io.Writer, res *retriever.Result) {
	if len(res.Items) == 0 && len(res.Failures) == 0 {
		fmt.Fprintln(w, "No data found")
		return
	}

	fmt.Fprintf(w, "Retrieved %d blob(s)\n", len(res.Items))
	fmt.Fprintf(w, "Total data size: %d bytes (%.2f KB)\n", res.TotalBytes, float64(res.TotalBytes)/1024)

	if len(res.Items) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CONTEXT\tBLOB\tSIZE")
		for _, item := range res.Items {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", item.ID.Context, item.ID.Name, len(item.Data))
		}
		tw.Flush()

		// 第一条的前 100 字节 hex 预览，方便肉眼确认拿到的是不是想要的数据
		first := res.Items[0].Data
		n := len(first)
		if n > previewBytes {
			n = previewBytes
		}
		if n > 0 {
			fmt.Fprintf(w, "\nData preview (first %d bytes of %s):\n%s\n",
				n, res.Items[0].ID, hexDump(first[:n]))
			if len(first) > previewBytes {
				fmt.Fprintf(w, "... (%d more bytes)\n", len(first)-previewBytes)
			}
		}
	}

	if len(res.Failures) > 0 {
		fmt.Fprintf(w, "\n⚠️  %d blob(s) failed to fetch:\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  - %s: %v\n", f.ID, f.Err)
		}
	}
}

func hexDump(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, " ")
}
