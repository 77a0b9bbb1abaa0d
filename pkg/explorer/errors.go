// pkg/explorer/errors.go
package explorer

import "fmt"

// SubmissionError: 存储引擎拒绝了摄取提交
// Code 原样携带引擎的非 0 状态码，这一层不翻译也不重试
type SubmissionError struct {
	Code int
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("bundle submission failed with status code %d", e.Code)
}

// DestructionError: 存储引擎拒绝了销毁请求
type DestructionError struct {
	Code int
}

func (e *DestructionError) Error() string {
	return fmt.Sprintf("context destruction failed with status code %d", e.Code)
}
