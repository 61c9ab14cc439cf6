package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pubshare/internal/baas"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FileStore 将上传的附件保存到 <root>/<collection>/<recordID>/ 目录
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the storage root served under /api/files.
func (s *FileStore) Root() string {
	return s.root
}

// Save writes the file and returns its stored name.
func (s *FileStore) Save(collection, recordID string, file baas.File) (string, error) {
	if len(file.Data) == 0 {
		return "", errors.New("empty file")
	}
	name := storedName(file.Name)
	dir := filepath.Join(s.root, collection, recordID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Remove deletes a single stored file; a missing file is not an error.
func (s *FileStore) Remove(collection, recordID, name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, collection, recordID, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveRecord deletes every file of a record.
func (s *FileStore) RemoveRecord(collection, recordID string) error {
	return os.RemoveAll(filepath.Join(s.root, collection, recordID))
}

// Path returns the on-disk location of a stored file.
func (s *FileStore) Path(collection, recordID, name string) string {
	return filepath.Join(s.root, collection, recordID, filepath.Base(name))
}

// storedName 生成唯一文件名：原始名称 + 随机后缀 + 扩展名
func storedName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) > 10 || unsafeFileChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "file"
	}
	if len(base) > 100 {
		base = base[:100]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("%s_%s%s", strings.ToLower(base), suffix, ext)
}
