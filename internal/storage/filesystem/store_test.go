package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrasalama/backend/internal/domain"
)

// 测试辅助函数：在临时目录下创建存储
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads", "cv"))
	require.NoError(t, err)
	return store
}

func testUpload(name string, content []byte) *domain.Upload {
	return &domain.Upload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Status:      domain.UploadOK,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), r.after)
	r.after -= n
	return n, nil
}

// TestNewStore 测试创建文件系统存储实例
func TestNewStore(t *testing.T) {
	t.Run("does not create directory eagerly", func(t *testing.T) {
		store := setupTestStore(t)

		_, err := os.Stat(store.Dir())
		assert.True(t, os.IsNotExist(err))
		assert.True(t, filepath.IsAbs(store.Dir()))
	})

	t.Run("rejects traversal", func(t *testing.T) {
		_, err := NewStore("../outside")
		assert.Error(t, err)
	})
}

// TestEnsureDir 测试目录创建与可写检查
func TestEnsureDir(t *testing.T) {
	t.Run("creates nested directory", func(t *testing.T) {
		store := setupTestStore(t)

		require.NoError(t, store.EnsureDir())

		info, err := os.Stat(store.Dir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file must be removed")
	})

	t.Run("fails when path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cv")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		store, err := NewStore(path)
		require.NoError(t, err)

		assert.ErrorIs(t, store.EnsureDir(), ErrCreateDir)
	})

	t.Run("fails when parent is read-only", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced")
		}
		parent := t.TempDir()
		require.NoError(t, os.Chmod(parent, 0o555))
		t.Cleanup(func() { os.Chmod(parent, 0o755) })

		store, err := NewStore(filepath.Join(parent, "cv"))
		require.NoError(t, err)

		assert.ErrorIs(t, store.EnsureDir(), ErrCreateDir)
	})

	t.Run("fails when directory is read-only", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced")
		}
		dir := t.TempDir()
		require.NoError(t, os.Chmod(dir, 0o555))
		t.Cleanup(func() { os.Chmod(dir, 0o755) })

		store, err := NewStore(dir)
		require.NoError(t, err)

		assert.ErrorIs(t, store.EnsureDir(), ErrNotWritable)
	})
}

// TestNewName 测试唯一文件名
func TestNewName(t *testing.T) {
	store := setupTestStore(t)
	store.now = func() time.Time { return time.Unix(1700000000, 0) }

	name := store.NewName("Mon CV.PDF")
	assert.Regexp(t, regexp.MustCompile(`^cv_1700000000_[0-9a-f]{16}\.pdf$`), name)

	noExt := store.NewName("resume")
	assert.Regexp(t, regexp.MustCompile(`^cv_1700000000_[0-9a-f]{16}$`), noExt)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		n := store.NewName("cv.pdf")
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
}

// TestSave 测试保存与删除
func TestSave(t *testing.T) {
	t.Run("save and remove", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.EnsureDir())
		content := []byte("%PDF-1.7 résumé")

		stored, err := store.Save(testUpload("../../Mon CV.pdf", content))
		require.NoError(t, err)

		assert.Equal(t, "Mon CV.pdf", stored.OriginalName)
		assert.Equal(t, int64(len(content)), stored.Size)
		assert.Equal(t, store.Dir(), filepath.Dir(stored.Path))

		onDisk, err := os.ReadFile(stored.Path)
		require.NoError(t, err)
		assert.Equal(t, content, onDisk)

		require.NoError(t, store.Remove(stored))
		_, err = os.Stat(stored.Path)
		assert.True(t, os.IsNotExist(err))

		// 重复删除不报错
		assert.NoError(t, store.Remove(stored))
	})

	t.Run("partial write leaves no file", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.EnsureDir())
		upload := testUpload("cv.pdf", nil)
		upload.Open = func() (io.ReadCloser, error) {
			return io.NopCloser(&failingReader{after: 1024}), nil
		}

		stored, err := store.Save(upload)

		assert.ErrorIs(t, err, ErrSave)
		assert.Nil(t, stored)
		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("missing directory fails", func(t *testing.T) {
		store := setupTestStore(t)

		_, err := store.Save(testUpload("cv.pdf", []byte("x")))

		assert.ErrorIs(t, err, ErrSave)
	})

	t.Run("remove refuses paths outside the directory", func(t *testing.T) {
		store := setupTestStore(t)
		outside := filepath.Join(t.TempDir(), "keep.txt")
		require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

		assert.Error(t, store.Remove(&domain.StoredFile{Path: outside}))
		_, err := os.Stat(outside)
		assert.NoError(t, err)
	})
}

// TestConcurrentSave 并发保存互不冲突
func TestConcurrentSave(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.EnsureDir())

	const workers = 20
	var wg sync.WaitGroup
	paths := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := store.Save(testUpload("cv.pdf", []byte(fmt.Sprintf("cv-%d", i))))
			if assert.NoError(t, err) {
				paths <- stored.Path
			}
		}(i)
	}
	wg.Wait()
	close(paths)

	unique := make(map[string]bool)
	for p := range paths {
		unique[p] = true
	}
	assert.Len(t, unique, workers)
}
