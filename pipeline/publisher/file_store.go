package publisher

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"ipfeed/internal/shared/logger"
)

var (
	// ErrStaleVersion 表示调用方持有的版本令牌已经过期。
	ErrStaleVersion = stderrors.New("stale version token")
	ErrExists       = stderrors.New("file already exists")
	ErrNotFound     = stderrors.New("file not found")
)

// FileStore 实现了 Store 接口，把发布内容保存在本地目录中。
// 版本令牌与 GitHub 相同，都是 git blob SHA-1。
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore 创建一个新的 FileStore 实例。
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (fs *FileStore) Name() string {
	return "file:" + fs.root
}

func (fs *FileStore) Get(_ context.Context, path string) (string, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	version, err := fs.currentVersion(path)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return version, true, nil
}

func (fs *FileStore) Create(_ context.Context, path, content, _ string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.currentVersion(path); err == nil {
		return "", ErrExists
	} else if !stderrors.Is(err, ErrNotFound) {
		return "", err
	}
	return fs.write(path, content)
}

func (fs *FileStore) Update(_ context.Context, path, content, _, version string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, err := fs.currentVersion(path)
	if err != nil {
		return "", err
	}
	if current != version {
		return "", fmt.Errorf("%w: have %s, stored %s", ErrStaleVersion, version, current)
	}
	return fs.write(path, content)
}

// currentVersion 必须在持有锁的情况下调用。
func (fs *FileStore) currentVersion(path string) (string, error) {
	data, err := os.ReadFile(fs.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return BlobSHA(data), nil
}

// write 先写临时文件再重命名，读者不会看到写了一半的内容。
func (fs *FileStore) write(path, content string) (string, error) {
	l := logger.WithComponent("IPFeed/FileStore")
	target := fs.resolve(path)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".ipfeed-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	l.Info().Str("path", target).Int("bytes", len(content)).Msg("Successfully saved file.")
	return BlobSHA([]byte(content)), nil
}

// resolve 把仓库相对路径限制在 root 之下。
func (fs *FileStore) resolve(path string) string {
	return filepath.Join(fs.root, filepath.Clean("/"+path))
}

// BlobSHA 计算与 git 相同的 blob 哈希: sha1("blob <len>\x00<content>")。
func BlobSHA(content []byte) string {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
