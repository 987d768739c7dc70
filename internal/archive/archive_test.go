package archive

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/esxtool/esxtool/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type file struct {
	name string
	body string
}

var sample = []file{
	{"project.json", `{"project":{"id":"p1"}}`},
	{"accessPoints.json", `{"accessPoints":[]}`},
	{"image-f1/", ""},
	{"image-f1/plan.png", "\x89PNG"},
	{"accessPointMeasurements.json", `{"accessPointMeasurements":[]}`},
}

func writeZip(t *testing.T, path string, files []file) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func readZip(t *testing.T, path string) ([]string, map[string]string, map[string]uint16) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	var names []string
	bodies := make(map[string]string)
	methods := make(map[string]uint16)
	for _, f := range zr.File {
		names = append(names, f.Name)
		methods[f.Name] = f.Method
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		bodies[f.Name] = string(data)
	}
	return names, bodies, methods
}

func openSample(t *testing.T) (*Bundle, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.esx")
	writeZip(t, path, sample)
	b, err := Open(context.Background(), path)
	require.NoError(t, err)
	return b, path
}

func TestOpen(t *testing.T) {
	t.Parallel()

	b, path := openSample(t)
	assert.Equal(t, path, b.Path)
	assert.Equal(t, []string{
		"project.json", "accessPoints.json", "image-f1/", "image-f1/plan.png", "accessPointMeasurements.json",
	}, b.Names())

	data, ok := b.Document("accessPoints.json")
	require.True(t, ok)
	assert.JSONEq(t, `{"accessPoints":[]}`, string(data))

	_, ok = b.Document("notes.json")
	assert.False(t, ok)
	assert.Len(t, b.Entries(), 5)
	assert.Positive(t, b.Size())

	// the file is closed after Open, so it can be removed right away
	require.NoError(t, os.Remove(path))
	_, ok = b.Document("project.json")
	assert.True(t, ok)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Open(context.Background(), filepath.Join(dir, "missing.esx"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	garbage := filepath.Join(dir, "garbage.esx")
	require.NoError(t, os.WriteFile(garbage, []byte("not a zip"), 0o600))
	_, err = Open(context.Background(), garbage)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryArchive))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	valid := filepath.Join(dir, "valid.esx")
	writeZip(t, valid, sample)
	_, err = Open(ctx, valid)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenOversizedHeader(t *testing.T) {
	t.Parallel()

	body := []byte(`{"project":{}}`)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "project.json",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(body),
		CompressedSize64:   uint64(len(body)),
		UncompressedSize64: 900 << 20,
	})
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "crafted.esx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	_, err = Open(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryArchive))
}

func TestPreallocSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, preallocSize(0))
	assert.Equal(t, 4096, preallocSize(4096))
	assert.Equal(t, maxPrealloc, preallocSize(maxEntrySize))
}

func TestWriteBundle(t *testing.T) {
	t.Parallel()

	b, path := openSample(t)
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	dest := filepath.Join(filepath.Dir(path), "site_modified.esx")
	err = WriteBundle(context.Background(), b, dest, map[string][]byte{
		"accessPoints.json": []byte(`{"accessPoints":[{"id":"ap1"}]}`),
		"tagKeys.json":      []byte(`{"tagKeys":[]}`),
		"buildings.json":    []byte(`{"buildings":[]}`),
	})
	require.NoError(t, err)

	names, bodies, methods := readZip(t, dest)
	assert.Equal(t, []string{
		"project.json", "accessPoints.json", "image-f1/", "image-f1/plan.png", "accessPointMeasurements.json",
		"buildings.json", "tagKeys.json",
	}, names)
	assert.Equal(t, `{"accessPoints":[{"id":"ap1"}]}`, bodies["accessPoints.json"])
	assert.Equal(t, "\x89PNG", bodies["image-f1/plan.png"])
	assert.Equal(t, `{"tagKeys":[]}`, bodies["tagKeys.json"])
	assert.Equal(t, zip.Deflate, methods["project.json"])
	assert.Equal(t, zip.Deflate, methods["tagKeys.json"])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after, "source bundle modified")

	assertNoLeftovers(t, filepath.Dir(path), "site.esx", "site_modified.esx")
}

func TestWriteBundleInPlace(t *testing.T) {
	t.Parallel()

	b, path := openSample(t)
	require.NoError(t, WriteBundle(context.Background(), b, path, map[string][]byte{
		"project.json": []byte(`{"project":{"id":"p2"}}`),
	}))

	_, bodies, _ := readZip(t, path)
	assert.Equal(t, `{"project":{"id":"p2"}}`, bodies["project.json"])
	assertNoLeftovers(t, filepath.Dir(path), "site.esx")
}

func TestWriteBundleStagingFailureLeavesSourceUntouched(t *testing.T) {
	t.Parallel()

	b, path := openSample(t)
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	var calls atomic.Int32
	failing := func(p string, data []byte) error {
		if calls.Add(1) == 3 {
			return fmt.Errorf("disk full")
		}
		return writeStaged(p, data)
	}

	err = writeBundle(context.Background(), b, path, map[string][]byte{
		"project.json": []byte(`{}`),
	}, failing)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.Contains(t, err.Error(), "disk full")

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "stage bundle entries", ee.ContextString("operation"))
	assert.NotEmpty(t, ee.ContextString("duration_ms"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
	assertNoLeftovers(t, filepath.Dir(path), "site.esx")
}

func TestWriteBundleCancelled(t *testing.T) {
	t.Parallel()

	b, path := openSample(t)
	dest := filepath.Join(filepath.Dir(path), "out.esx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WriteBundle(ctx, b, dest, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.NoFileExists(t, dest)
}

func TestDefaultOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input, suffix, want string
	}{
		{"site.esx", "_modified", "site_modified.esx"},
		{"/data/surveys/hq.v2.esx", "_modified", "/data/surveys/hq.v2_modified.esx"},
		{"plain", "_anon", "plain_anon.esx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultOutputPath(tt.input, tt.suffix))
	}
}

func assertNoLeftovers(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	assert.ElementsMatch(t, want, got)
}
