package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Defaults(t *testing.T) {
	// 空目录，模拟没有 .cvignore 的情况
	tmpDir := t.TempDir()

	matcher, err := NewMatcher(tmpDir)
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".cv", true},
		{".cv/objects/t1/a.bin", true}, // 子路径也应该被忽略
		{".git", true},
		{"config.yaml", true},
		{".DS_Store", true},
		{"main.go", false}, // 普通文件不应忽略
		{"data/trace.bin", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_WithUserFile(t *testing.T) {
	tmpDir := t.TempDir()

	// 自定义规则：忽略日志、temp 目录，但保留 important.log
	ignoreContent := `
# 这是注释
*.log
temp
!important.log
`
	err := os.WriteFile(filepath.Join(tmpDir, ".cvignore"), []byte(ignoreContent), 0644)
	require.NoError(t, err)

	matcher, err := NewMatcher(tmpDir)
	require.NoError(t, err)

	assert.True(t, matcher.Matches("debug.log"))
	assert.True(t, matcher.Matches("temp/scratch.bin"))
	assert.False(t, matcher.Matches("important.log"), "negation rule must win")

	// 默认规则依然生效
	assert.True(t, matcher.Matches(".cv/objects/x"))
	assert.False(t, matcher.Matches("data/trace.bin"))
}
