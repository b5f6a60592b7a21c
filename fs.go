package graft

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ResolveFiles expands a glob-style pattern relative to root into the
// ordered list of matching paths. No match means an empty list, never an
// error.
func ResolveFiles(root, pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(root, pattern)
	}
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func GetFileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

type PathResolver struct {
	wd string
}

func NewPathResolver(root string) (*PathResolver, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &PathResolver{wd: abs}, nil
}

func (r *PathResolver) Root() string { return r.wd }

func (r *PathResolver) Resolve(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return filepath.Clean(relativePath)
	}
	return filepath.Join(r.wd, relativePath)
}

// WriteBlob stores zlib-compressed content under its hash so a later undo
// can restore the exact bytes.
func WriteBlob(dir string, hash string, content []byte) error {
	blobDir := filepath.Join(dir, BlobsDir)
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return err
	}

	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(content); err != nil {
		return err
	}
	w.Close()

	return os.WriteFile(filepath.Join(blobDir, hash), b.Bytes(), 0644)
}

func ReadBlob(dir string, hash string) ([]byte, error) {
	if hash == "" {
		return []byte{}, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, BlobsDir, hash))
	if err != nil {
		return nil, err
	}

	if !isZlibCompressed(data) {
		return data, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}
	defer r.Close()

	return io.ReadAll(r)
}

func isZlibCompressed(data []byte) bool {
	return len(data) > 2 && data[0] == 0x78
}
