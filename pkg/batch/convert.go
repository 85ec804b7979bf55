package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConvertSummary reports the outcome of ConvertDir or RenameDir.
type ConvertSummary struct {
	Converted []string // destination paths
	Failed    map[string]error
}

func newConvertSummary() *ConvertSummary {
	return &ConvertSummary{Failed: make(map[string]error)}
}

// Err joins every per-file failure, nil when all files succeeded.
func (s *ConvertSummary) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Failed))
	for name := range s.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, s.Failed[name]))
	}
	return errors.Join(errs...)
}

// listByExt returns the regular files of dir (non-recursive) whose extension
// equals ext, compared case-insensitively.
func listByExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ConvertDir copies every .plt file of dir into dir/outSub as <stem>.txt.
// The sources are left untouched. Per-file failures are collected in the
// summary and do not stop the run.
func ConvertDir(dir, outSub string) (*ConvertSummary, error) {
	if outSub == "" {
		outSub = "Txt"
	}
	names, err := listByExt(dir, ".plt")
	if err != nil {
		return nil, err
	}

	outDir := filepath.Join(dir, outSub)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("batch: create %s: %w", outDir, err)
	}

	summary := newConvertSummary()
	for _, name := range names {
		dst := filepath.Join(outDir, strings.TrimSuffix(name, filepath.Ext(name))+".txt")
		if err := copyFile(filepath.Join(dir, name), dst); err != nil {
			summary.Failed[name] = err
			continue
		}
		summary.Converted = append(summary.Converted, dst)
	}
	return summary, nil
}

// RenameDir renames every file of dir with extension from (case-insensitive)
// to the same stem with extension to.
func RenameDir(dir, from, to string) (*ConvertSummary, error) {
	names, err := listByExt(dir, from)
	if err != nil {
		return nil, err
	}

	summary := newConvertSummary()
	for _, name := range names {
		dst := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+to)
		if err := os.Rename(filepath.Join(dir, name), dst); err != nil {
			summary.Failed[name] = err
			continue
		}
		summary.Converted = append(summary.Converted, dst)
	}
	return summary, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
