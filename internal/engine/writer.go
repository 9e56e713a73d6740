package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohaanymo/gpmfx/internal/models"
)

// Output file extensions.
const (
	RawExt    = ".gpmf"
	TimingExt = ".timing.json"
)

// FileWriter writes the raw payload and its timing next to each other.
type FileWriter struct {
	dir string
}

// NewFileWriter creates a writer resolving relative base paths against dir.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir}
}

// Write stores out as <basePath>.gpmf and <basePath>.timing.json and
// returns the written paths. Each file is replaced atomically.
func (w *FileWriter) Write(ctx context.Context, out *models.Outcome, basePath string) ([]string, error) {
	if out == nil {
		return nil, fmt.Errorf("nothing to write")
	}
	if basePath == "" {
		basePath = "output"
	}
	if !filepath.IsAbs(basePath) && w.dir != "" {
		basePath = filepath.Join(w.dir, basePath)
	}
	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	timing, err := json.MarshalIndent(out.Timing, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode timing: %w", err)
	}

	files := []string{basePath + RawExt, basePath + TimingExt}
	for i, data := range [][]byte{out.RawData, timing} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeAtomic(files[i], data); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// BaseName returns the output base name for an input file name.
func BaseName(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "output"
	}
	return sanitizeName(base)
}

// sanitizeName makes a name safe for file names.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(name)
}
