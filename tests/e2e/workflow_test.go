package e2e

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"contextvault/pkg/assim"
	"contextvault/pkg/engine"
	"contextvault/pkg/explorer"
	"contextvault/pkg/meta"
	"contextvault/pkg/storage/disk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv 搭建一个 真实文件系统 + 内存数据库 的端到端环境
// 不依赖任何外部服务，保证测试极速运行
func setupEnv(t *testing.T) *explorer.Explorer {
	tmpDir := t.TempDir()

	store, err := disk.NewAdapter(filepath.Join(tmpDir, "objects"))
	require.NoError(t, err)

	// 内存 SQLite 代替 Postgres；DSN 按测试名隔离，互不串库
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := meta.NewSQLiteDB(context.Background(), dsn)
	require.NoError(t, err)

	eng := engine.New(store, meta.NewRepository(db))
	return explorer.New(eng)
}

// TestWorkflow 验证完整的生命周期：
// bundle -> query -> retrieve -> destroy -> query 归零
func TestWorkflow(t *testing.T) {
	exp := setupEnv(t)
	ctx := context.Background()

	// 1. 准备源文件 (1MB 随机数据)
	srcDir := t.TempDir()
	payload := make([]byte, 1<<20)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	srcPath := filepath.Join(srcDir, "a.bin")
	require.NoError(t, os.WriteFile(srcPath, payload, 0644))

	// 2. Bundle: file::<path> -> iowarp::t1
	report, err := exp.Bundle(ctx, []assim.Raw{
		{Src: "file::" + srcPath, Dst: "iowarp::t1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted)

	// 3. Query: context "t1" 下应恰好出现一个身份
	ids, err := exp.Query(ctx, "t1", ".*", 0)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "t1", ids[0].Context)
	assert.Equal(t, "a.bin", ids[0].Name)

	// 4. Retrieve: 字节数与源文件一致，内容逐字节相同
	res, err := exp.Retrieve(ctx, "t1", ".*", 0, 0, 4)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Failures)
	assert.Equal(t, int64(len(payload)), res.TotalBytes)
	assert.Equal(t, payload, res.Items[0].Data)

	// 5. Destroy: 返回销毁个数
	dreport, err := exp.Destroy(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Equal(t, 1, dreport.Destroyed)

	// 6. 销毁之后查询归零
	ids, err = exp.Query(ctx, "t1", ".*", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// TestWorkflow_MultiContext 验证模式寻址跨 context 的行为
func TestWorkflow_MultiContext(t *testing.T) {
	exp := setupEnv(t)
	ctx := context.Background()

	srcDir := t.TempDir()
	var raws []assim.Raw
	for _, name := range []string{"exp_1", "exp_10", "exp_2"} {
		for i := 0; i < 2; i++ {
			p := filepath.Join(srcDir, fmt.Sprintf("%s_blob%d.bin", name, i))
			require.NoError(t, os.WriteFile(p, []byte(name), 0644))
			raws = append(raws, assim.Raw{Src: "file::" + p, Dst: "iowarp::" + name})
		}
	}
	_, err := exp.Bundle(ctx, raws)
	require.NoError(t, err)

	// 全匹配是锚定的：查 "exp_1" 不能把 "exp_10" 捞进来
	ids, err := exp.Query(ctx, "exp_1", ".*", 0)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	for _, id := range ids {
		assert.Equal(t, "exp_1", id.Context)
	}

	// 前缀正则显式写出来才会跨 context
	ids, err = exp.Query(ctx, "exp_.*", ".*", 0)
	require.NoError(t, err)
	assert.Len(t, ids, 6)

	// 只销毁一个 context，其余不受影响
	_, err = exp.Destroy(ctx, []string{"exp_10"})
	require.NoError(t, err)

	ids, err = exp.Query(ctx, "exp_.*", ".*", 0)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

// TestWorkflow_ByteRange 验证摄取时的字节范围裁剪
func TestWorkflow_ByteRange(t *testing.T) {
	exp := setupEnv(t)
	ctx := context.Background()

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "digits.bin")
	require.NoError(t, os.WriteFile(srcPath, []byte("0123456789"), 0644))

	_, err := exp.Bundle(ctx, []assim.Raw{
		{Src: "file::" + srcPath, Dst: "iowarp::t1", RangeOff: 2, RangeSize: 3},
	})
	require.NoError(t, err)

	res, err := exp.Retrieve(ctx, "t1", ".*", 0, 0, 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, []byte("234"), res.Items[0].Data)
}
