// Package archive reads and writes survey bundles: zip archives of JSON documents.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
)

const component = "archive"

// maxEntrySize caps a single decompressed entry.
const maxEntrySize = 1 << 30

// maxPrealloc caps the buffer reserved from an entry's declared size.
const maxPrealloc = 64 << 20

// Entry is one file inside a bundle.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Bundle is a fully read survey archive. It holds no open file handles.
type Bundle struct {
	Path    string
	entries []Entry
	byName  map[string]int
}

// Open reads every entry of the archive at path into memory and closes it.
func Open(ctx context.Context, path string) (*Bundle, error) {
	start := time.Now()

	zr, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(fmt.Errorf("open bundle: %w", err)).
				Component(component).
				Category(errors.CategoryFileIO).
				Priority(errors.PriorityHigh).
				FileContext(path, 0).
				Build()
		}
		return nil, archiveError(err, "open bundle", path)
	}
	defer func() {
		_ = zr.Close()
	}()

	b := &Bundle{
		Path:    path,
		entries: make([]Entry, 0, len(zr.File)),
		byName:  make(map[string]int, len(zr.File)),
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		if _, dup := b.byName[f.Name]; dup {
			return nil, archiveError(fmt.Errorf("duplicate entry %q", f.Name), "read bundle", path)
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, archiveError(fmt.Errorf("entry %s: %w", f.Name, err), "read bundle", path)
		}
		b.byName[f.Name] = len(b.entries)
		b.entries = append(b.entries, Entry{Name: f.Name, Data: data, Modified: f.Modified})
	}

	logger.Global().Module(component).Debug("bundle loaded",
		logger.String("path", path),
		logger.Int("entries", len(b.entries)),
		logger.Duration("elapsed", time.Since(start)))

	return b, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.FileInfo().IsDir() {
		return nil, nil
	}
	if f.UncompressedSize64 > maxEntrySize {
		return nil, fmt.Errorf("entry size %d exceeds limit", f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()

	var buf bytes.Buffer
	buf.Grow(preallocSize(f.UncompressedSize64))
	n, err := io.Copy(&buf, io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if n > maxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return buf.Bytes(), nil
}

// preallocSize returns how much of a declared entry size to reserve up front.
// Header sizes are not trusted past maxPrealloc; the copy grows the rest.
func preallocSize(declared uint64) int {
	return int(min(declared, maxPrealloc))
}

// Document returns the contents of the named entry.
func (b *Bundle) Document(name string) ([]byte, bool) {
	i, ok := b.byName[name]
	if !ok {
		return nil, false
	}
	return b.entries[i].Data, true
}

// Names returns the entry names in archive order.
func (b *Bundle) Names() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entry list in archive order.
func (b *Bundle) Entries() []Entry {
	return slices.Clone(b.entries)
}

// Size returns the total uncompressed size of all entries.
func (b *Bundle) Size() int64 {
	var n int64
	for _, e := range b.entries {
		n += int64(len(e.Data))
	}
	return n
}

// DefaultOutputPath returns "<dir>/<stem><suffix><ext>" for an input path.
func DefaultOutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if ext == "" {
		ext = ".esx"
	}
	return stem + suffix + ext
}

// stageFunc writes one staged entry to disk.
type stageFunc func(path string, data []byte) error

func writeStaged(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}

// WriteBundle writes a copy of src to dest with the replaced documents
// swapped in. Entry order is kept; replacements for names src does not
// contain are appended in name order. Every entry is staged to a temporary
// directory first and the archive is only assembled, in a temp file renamed
// over dest, once all staged writes succeeded. dest may be src.Path.
func WriteBundle(ctx context.Context, src *Bundle, dest string, replacements map[string][]byte) error {
	return writeBundle(ctx, src, dest, replacements, writeStaged)
}

func writeBundle(ctx context.Context, src *Bundle, dest string, replacements map[string][]byte, stage stageFunc) error {
	start := time.Now()
	entries := merge(src.entries, replacements)

	dir := filepath.Dir(dest)
	stageDir, err := os.MkdirTemp(dir, ".esxtool-stage-*")
	if err != nil {
		return fileError(err, "create staging directory", dest)
	}
	defer func() {
		_ = os.RemoveAll(stageDir)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		if strings.HasSuffix(e.Name, "/") {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := stage(stagedPath(stageDir, i), e.Data); err != nil {
				return fmt.Errorf("stage %s: %w", e.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		return errors.New(fmt.Errorf("stage bundle entries: %w", err)).
			Component(component).
			Category(errors.CategoryFileIO).
			Priority(errors.PriorityHigh).
			Timing("stage bundle entries", time.Since(start)).
			FileContext(dest, 0).
			Build()
	}

	if err := assemble(entries, stageDir, dest); err != nil {
		return err
	}

	logger.Global().Module(component).Info("bundle written",
		logger.String("path", dest),
		logger.Int("entries", len(entries)),
		logger.Int("replaced", len(replacements)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func stagedPath(dir string, i int) string {
	return filepath.Join(dir, strconv.Itoa(i))
}

// merge applies replacements to entries without modifying either.
func merge(entries []Entry, replacements map[string][]byte) []Entry {
	out := make([]Entry, 0, len(entries)+len(replacements))
	seen := make(map[string]bool, len(entries))
	now := time.Now()
	for _, e := range entries {
		seen[e.Name] = true
		if data, ok := replacements[e.Name]; ok {
			e.Data = data
			e.Modified = now
		}
		out = append(out, e)
	}

	var added []string
	for name := range replacements {
		if !seen[name] {
			added = append(added, name)
		}
	}
	slices.Sort(added)
	for _, name := range added {
		out = append(out, Entry{Name: name, Data: replacements[name], Modified: now})
	}
	return out
}

// assemble builds the archive from the staged files and renames it into place.
func assemble(entries []Entry, stageDir, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fileError(err, "create temporary bundle", dest)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	zw := zip.NewWriter(tmp)
	for i, e := range entries {
		if err := addEntry(zw, e, stagedPath(stageDir, i)); err != nil {
			return archiveError(fmt.Errorf("entry %s: %w", e.Name, err), "assemble bundle", dest)
		}
	}
	if err := zw.Close(); err != nil {
		return archiveError(err, "finish bundle", dest)
	}
	if err := tmp.Sync(); err != nil {
		return fileError(err, "sync bundle", dest)
	}
	if err := tmp.Close(); err != nil {
		return fileError(err, "close bundle", dest)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fileError(err, "replace bundle", dest)
	}
	committed = true
	return nil
}

func addEntry(zw *zip.Writer, e Entry, staged string) error {
	header := &zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: e.Modified,
	}
	if strings.HasSuffix(e.Name, "/") {
		header.Method = zip.Store
		_, err := zw.CreateHeader(header)
		return err
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(staged)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	_, err = io.Copy(w, f)
	return err
}

func archiveError(err error, operation, path string) error {
	return errors.New(fmt.Errorf("%s: %w", operation, err)).
		Component(component).
		Category(errors.CategoryArchive).
		Priority(errors.PriorityHigh).
		Context("operation", operation).
		FileContext(path, 0).
		Build()
}

func fileError(err error, operation, path string) error {
	return errors.New(fmt.Errorf("%s: %w", operation, err)).
		Component(component).
		Category(errors.CategoryFileIO).
		Priority(errors.PriorityHigh).
		Context("operation", operation).
		FileContext(path, 0).
		Build()
}

func cancelled(err error) error {
	return errors.New(err).
		Component(component).
		Category(errors.CategoryCancellation).
		Build()
}
