// Package local serves order workbooks from a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"courtstats/internal/ingest"
	"courtstats/internal/sheets"
	"courtstats/internal/validation"
)

const ext = ".xlsx"

type Store struct {
	dir string
}

var (
	_ sheets.Source   = (*Store)(nil)
	_ sheets.Uploader = (*Store)(nil)
)

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(ref string) (string, error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), ext)
	if !validation.ValidSourceRef(ref) {
		return "", fmt.Errorf("%w: %q", sheets.ErrInvalidRef, ref)
	}
	return filepath.Join(s.dir, ref+ext), nil
}

// ReadTable opens <dir>/<ref>.xlsx and returns its first sheet.
func (s *Store) ReadTable(ctx context.Context, ref string) (ingest.Table, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Table{}, err
	}
	p, err := s.path(ref)
	if err != nil {
		return ingest.Table{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ingest.Table{}, fmt.Errorf("%w: %s", sheets.ErrSourceNotFound, ref)
		}
		return ingest.Table{}, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	t, err := ingest.ReadXLSX(f)
	if err != nil {
		return ingest.Table{}, fmt.Errorf("read %s: %w", ref, err)
	}
	return t, nil
}

// Save writes a workbook under ref, replacing any existing file.
func (s *Store) Save(ctx context.Context, ref string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return os.Rename(tmp.Name(), p)
}

// List returns the workbooks in the directory, sorted by ref.
func (s *Store) List(ctx context.Context) ([]sheets.SourceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []sheets.SourceInfo{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	out := make([]sheets.SourceInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ext) || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		ref := strings.TrimSuffix(name, filepath.Ext(name))
		if !validation.ValidSourceRef(ref) {
			continue
		}
		info := sheets.SourceInfo{Ref: ref}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.ModifiedAt = fi.ModTime()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}
