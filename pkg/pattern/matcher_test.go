package pattern

import (
	"context"
	"errors"
	"testing"

	"contextvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource 把固定切片包装成 Source，并记录实际枚举了多少个
// 用于验证 limit 的“提前停止”语义
func sliceSource(ids []types.BlobID, scanned *int) Source {
	return func(ctx context.Context, yield func(types.BlobID) bool) error {
		for _, id := range ids {
			if scanned != nil {
				*scanned++
			}
			if !yield(id) {
				return nil
			}
		}
		return nil
	}
}

func fixedIDs() []types.BlobID {
	return []types.BlobID{
		{Context: "exp_1", Name: "result_1"},
		{Context: "exp_1", Name: "result_2"},
		{Context: "exp_2", Name: "result_1"},
		{Context: "exp_2", Name: "readme.txt"},
		{Context: "other", Name: "result_9"},
	}
}

func TestCompile_BadPattern(t *testing.T) {
	_, err := Compile("[", ".*")
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr, "compile failure must be a *pattern.Error")
	assert.Equal(t, "[", perr.Expr)

	// blob 端的表达式同样会被检查
	_, err = Compile(".*", "(")
	require.Error(t, err)
}

func TestScan_FullMatchAnchoring(t *testing.T) {
	// "exp_1" 不应该匹配 "exp_10" —— 这是全匹配，不是前缀搜索
	m, err := Compile("exp_1", ".*")
	require.NoError(t, err)

	ids := []types.BlobID{
		{Context: "exp_1", Name: "a"},
		{Context: "exp_10", Name: "a"},
	}
	got, err := m.Scan(context.Background(), sliceSource(ids, nil), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exp_1", got[0].Context)
}

func TestScan_BothFiltersApply(t *testing.T) {
	m, err := Compile("exp_.*", "result_[0-9]+")
	require.NoError(t, err)

	got, err := m.Scan(context.Background(), sliceSource(fixedIDs(), nil), 0)
	require.NoError(t, err)

	// readme.txt 和 other/* 都应被滤掉
	require.Len(t, got, 3)
	for _, id := range got {
		assert.Regexp(t, `^exp_`, id.Context)
		assert.Regexp(t, `^result_[0-9]+$`, id.Name)
	}
}

func TestScan_LimitIsPrefixOfUnbounded(t *testing.T) {
	m, err := Compile(".*", ".*")
	require.NoError(t, err)

	all, err := m.Scan(context.Background(), sliceSource(fixedIDs(), nil), 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	two, err := m.Scan(context.Background(), sliceSource(fixedIDs(), nil), 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, all[:2], two, "limited result must be a prefix of the unbounded result")
}

func TestScan_LimitStopsEnumeration(t *testing.T) {
	m, err := Compile(".*", ".*")
	require.NoError(t, err)

	scanned := 0
	_, err = m.Scan(context.Background(), sliceSource(fixedIDs(), &scanned), 2)
	require.NoError(t, err)

	// 找满 2 个就应该停下，不能扫完整个存储
	assert.Equal(t, 2, scanned, "scan must stop as soon as the limit is reached")
}

func TestScan_EmptyResultIsNotError(t *testing.T) {
	m, err := Compile("nope", ".*")
	require.NoError(t, err)

	got, err := m.Scan(context.Background(), sliceSource(fixedIDs(), nil), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScan_SourceErrorPropagates(t *testing.T) {
	m, err := Compile(".*", ".*")
	require.NoError(t, err)

	boom := errors.New("store unreachable")
	src := Source(func(ctx context.Context, yield func(types.BlobID) bool) error {
		return boom
	})

	_, err = m.Scan(context.Background(), src, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
