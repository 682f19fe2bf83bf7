package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hbjs97/flakenv/internal/fsutil"
)

// ErrNotFound는 키에 해당하는 항목이 없을 때 Backend가 반환한다.
var ErrNotFound = errors.New("profile not found")

// Backend는 키 단위로 원자적인 읽기/쓰기를 제공하는 저장소다.
// Put은 같은 키의 이전 값을 통째로 교체해야 하며, 동시 Put이 섞인 결과를 남기면 안 된다.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	List() ([]string, error)
	Close() error
}

var backendKeyPattern = regexp.MustCompile(`^[0-9a-f]{16,128}$`)

func checkKey(key string) error {
	if !backendKeyPattern.MatchString(key) {
		return fmt.Errorf("잘못된 캐시 키: %q", key)
	}
	return nil
}

// FileBackend는 키마다 JSON 파일 하나를 두는 Backend다.
// 쓰기는 임시 파일에 기록한 뒤 rename하므로 독자는 부분 기록을 보지 않는다.
type FileBackend struct {
	dir string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend는 dir에 항목을 저장하는 FileBackend를 생성한다.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("profile.NewFileBackend: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Get은 키의 항목을 읽는다.
func (b *FileBackend) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, fmt.Errorf("profile.FileBackend.Get: %w", err)
	}
	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile.FileBackend.Get: %w", err)
	}
	return data, nil
}

// Put은 키의 항목을 원자적으로 교체한다.
func (b *FileBackend) Put(key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return fmt.Errorf("profile.FileBackend.Put: %w", err)
	}
	if err := fsutil.WriteFileAtomic(b.path(key), data, 0600); err != nil {
		return fmt.Errorf("profile.FileBackend.Put: %w", err)
	}
	return nil
}

// Delete는 키의 항목을 제거한다. 없는 키는 에러가 아니다.
func (b *FileBackend) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return fmt.Errorf("profile.FileBackend.Delete: %w", err)
	}
	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("profile.FileBackend.Delete: %w", err)
	}
	return nil
}

// List는 저장된 키를 정렬하여 반환한다.
func (b *FileBackend) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile.FileBackend.List: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if checkKey(key) == nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close는 아무것도 하지 않는다.
func (b *FileBackend) Close() error {
	return nil
}
