package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"infrasalama/backend/internal/domain"
)

// 存储错误
var (
	ErrCreateDir   = errors.New("upload directory cannot be created")
	ErrNotWritable = errors.New("upload directory is not writable")
	ErrSave        = errors.New("upload cannot be saved")
)

// Store 简历文件存储
//
// 文件名唯一，多个请求并发写入同一目录无需加锁。
type Store struct {
	basePath      string         // 简历保存目录
	platformUtils *PlatformUtils // 平台兼容性工具
	now           func() time.Time
}

// NewStore 创建文件系统存储实例
//
// 目录在每次保存前由 EnsureDir 创建，这里只校验并标准化路径。
func NewStore(basePath string) (*Store, error) {
	platformUtils := NewPlatformUtils()

	if err := platformUtils.ValidatePath(basePath); err != nil {
		return nil, fmt.Errorf("invalid base path: %w", err)
	}

	return &Store{
		basePath:      platformUtils.NormalizePath(basePath),
		platformUtils: platformUtils,
		now:           time.Now,
	}, nil
}

// Dir 返回保存目录的绝对路径
func (s *Store) Dir() string {
	return s.basePath
}

// EnsureDir 确保目录存在且可写
//
// 返回的错误包装 ErrCreateDir 或 ErrNotWritable。
func (s *Store) EnsureDir() error {
	info, err := os.Stat(s.basePath)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(s.basePath, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrCreateDir, err)
		}
	case err != nil:
		return fmt.Errorf("%w: %v", ErrCreateDir, err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrCreateDir, s.basePath)
	}

	return s.CheckWritable()
}

// CheckWritable 通过创建并删除探测文件检查目录可写
func (s *Store) CheckWritable() error {
	probe, err := os.CreateTemp(s.basePath, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	return nil
}

// NewName 生成唯一文件名：cv_<unix 时间>_<随机后缀><原扩展名>
func (s *Store) NewName(original string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("cv_%d_%s%s", s.now().Unix(), suffix, s.platformUtils.Extension(original))
}

// Save 将上传内容写入目录，失败时不留下残缺文件
//
// 调用方需先调用 EnsureDir。返回的错误包装 ErrSave。
func (s *Store) Save(upload *domain.Upload) (*domain.StoredFile, error) {
	if upload == nil || upload.Open == nil {
		return nil, fmt.Errorf("%w: no content", ErrSave)
	}

	src, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", ErrSave, err)
	}
	defer src.Close()

	path := filepath.Join(s.basePath, s.NewName(upload.Filename))

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSave, err)
	}

	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%w: write %s: %v", ErrSave, path, err)
	}

	return &domain.StoredFile{
		Path:         path,
		OriginalName: s.platformUtils.SanitizeFilename(upload.Filename),
		ContentType:  upload.ContentType,
		Size:         written,
	}, nil
}

// Remove 删除已保存的文件，文件不存在不视为错误
func (s *Store) Remove(file *domain.StoredFile) error {
	if file == nil || file.Path == "" {
		return nil
	}

	rel, err := filepath.Rel(s.basePath, file.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove %s outside %s", file.Path, s.basePath)
	}

	if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
