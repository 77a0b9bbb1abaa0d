package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"contextvault/pkg/assim"
	"contextvault/pkg/meta"
	"contextvault/pkg/storage"
	"contextvault/pkg/storage/disk"
	"contextvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestEngine 搭一个 disk + 内存 SQLite 的完整引擎
func setupTestEngine(t *testing.T) *Engine {
	store, err := disk.NewAdapter(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&meta.ContextModel{}, &meta.BlobModel{}))

	return New(store, meta.NewRepository(metaDB))
}

// writeSourceFile 造一个摄取源文件，返回 file:: locator
func writeSourceFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return "file::" + path
}

func mustBuild(t *testing.T, raw assim.Raw) assim.Request {
	req, err := assim.Build(raw)
	require.NoError(t, err)
	return req
}

func listAll(t *testing.T, e *Engine) []types.BlobID {
	var ids []types.BlobID
	require.NoError(t, e.Blobs()(context.Background(), func(id types.BlobID) bool {
		ids = append(ids, id)
		return true
	}))
	return ids
}

func TestEngine_AssimilateAndFetch(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	data := []byte("assimilate me")

	src := writeSourceFile(t, "a.bin", data)
	code := e.SubmitAssimilation(ctx, []assim.Request{
		mustBuild(t, assim.Raw{Src: src, Dst: "iowarp::t1"}),
	})
	require.Equal(t, StatusOK, code)

	// 身份可见：blob 名 = 源文件基础名
	ids := listAll(t, e)
	require.Len(t, ids, 1)
	assert.Equal(t, types.BlobID{Context: "t1", Name: "a.bin"}, ids[0])

	// 字节一致
	got, err := e.FetchBlob(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEngine_AssimilateByteRange(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()

	src := writeSourceFile(t, "ranged.bin", []byte("0123456789"))

	t.Run("OffsetAndSize", func(t *testing.T) {
		code := e.SubmitAssimilation(ctx, []assim.Request{
			mustBuild(t, assim.Raw{Src: src, Dst: "iowarp::r1", RangeOff: 2, RangeSize: 3}),
		})
		require.Equal(t, StatusOK, code)

		got, err := e.FetchBlob(ctx, types.BlobID{Context: "r1", Name: "ranged.bin"})
		require.NoError(t, err)
		assert.Equal(t, []byte("234"), got)
	})

	t.Run("SizeZeroReadsToEnd", func(t *testing.T) {
		code := e.SubmitAssimilation(ctx, []assim.Request{
			mustBuild(t, assim.Raw{Src: src, Dst: "iowarp::r2", RangeOff: 7}),
		})
		require.Equal(t, StatusOK, code)

		got, err := e.FetchBlob(ctx, types.BlobID{Context: "r2", Name: "ranged.bin"})
		require.NoError(t, err)
		assert.Equal(t, []byte("789"), got)
	})
}

func TestEngine_StatusCodes(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()
	src := writeSourceFile(t, "ok.bin", []byte("x"))

	cases := []struct {
		name string
		raw  assim.Raw
		want int
	}{
		{"UnknownSourceScheme", assim.Raw{Src: "ftp::/x", Dst: "iowarp::t"}, StatusBadSource},
		{"BareSourcePath", assim.Raw{Src: "/tmp/x", Dst: "iowarp::t"}, StatusBadSource},
		{"BadDestScheme", assim.Raw{Src: src, Dst: "file::/t"}, StatusBadDest},
		{"MissingSourceFile", assim.Raw{Src: "file::/no/such/file", Dst: "iowarp::t"}, StatusReadFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code := e.SubmitAssimilation(ctx, []assim.Request{mustBuild(t, tc.raw)})
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestEngine_DependencyOrdering(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()

	srcA := writeSourceFile(t, "base.bin", []byte("base"))
	srcB := writeSourceFile(t, "derived.bin", []byte("derived"))

	// derived 依赖 base，但故意把它放在前面 —— 调度要能排回来
	code := e.SubmitAssimilation(ctx, []assim.Request{
		mustBuild(t, assim.Raw{Src: srcB, Dst: "iowarp::dep_t", DependsOn: "iowarp::base_t"}),
		mustBuild(t, assim.Raw{Src: srcA, Dst: "iowarp::base_t"}),
	})
	require.Equal(t, StatusOK, code)
	assert.Len(t, listAll(t, e), 2)
}

func TestEngine_UnresolvedDependency(t *testing.T) {
	e := setupTestEngine(t)
	src := writeSourceFile(t, "a.bin", []byte("a"))

	code := e.SubmitAssimilation(context.Background(), []assim.Request{
		mustBuild(t, assim.Raw{Src: src, Dst: "iowarp::t", DependsOn: "iowarp::ghost"}),
	})
	assert.Equal(t, StatusUnresolvedDep, code)

	// 依赖排不开时整批都不该执行
	assert.Empty(t, listAll(t, e))
}

func TestEngine_FetchMissing(t *testing.T) {
	e := setupTestEngine(t)

	_, err := e.FetchBlob(context.Background(), types.BlobID{Context: "no", Name: "pe"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEngine_DestroyContexts(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()

	srcA := writeSourceFile(t, "a.bin", []byte("a"))
	srcB := writeSourceFile(t, "b.bin", []byte("b"))
	require.Equal(t, StatusOK, e.SubmitAssimilation(ctx, []assim.Request{
		mustBuild(t, assim.Raw{Src: srcA, Dst: "iowarp::t1"}),
		mustBuild(t, assim.Raw{Src: srcB, Dst: "iowarp::t2"}),
	}))

	require.Equal(t, StatusOK, e.DestroyContexts(ctx, []string{"t1"}))

	ids := listAll(t, e)
	require.Len(t, ids, 1)
	assert.Equal(t, "t2", ids[0].Context)

	// 字节层也要跟着消失
	_, err := e.FetchBlob(ctx, types.BlobID{Context: "t1", Name: "a.bin"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// 销毁不存在的 context 不算失败 (幂等)
	assert.Equal(t, StatusOK, e.DestroyContexts(ctx, []string{"t1", "ghost"}))
}
