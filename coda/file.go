package coda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile decodes the annotation file at path. The file is closed on every
// return path. When opts.Name is empty the database is named after the file.
func ReadFile(ctx context.Context, path string, opts DecodeOptions) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Kind: ErrKindIO, Err: fmt.Errorf("open: %w", err)}
	}
	defer f.Close()

	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Decode(ctx, f, opts)
}

// WriteFile encodes db to path. The output is written to a temporary file in
// the same directory and renamed over path only after a complete, synced
// write, so path ends up either fully written or untouched.
func WriteFile(ctx context.Context, path string, db *Database, opts EncodeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := Encode(tmp, db, opts); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
