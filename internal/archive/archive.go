// Package archive builds and extracts the in-memory zip bundle that
// becomes a Capsule's FS blob. Every declared file is stored under a
// fresh random identifier (a UUID string) rather than its original
// path, with entries rejecting ".." traversal on extraction. The zip
// method is registered to compress with brotli instead of deflate.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"

	"github.com/capsulenv/capsulenv/internal/cerr"
)

// BrotliMethod is the archive/zip compression method id used for every
// entry this package writes. Values 0(store)/8(deflate) are reserved by
// the zip spec; values >= 0x0100 are available for private use.
const BrotliMethod = 0x0100

var registerOnce sync.Once

func registerBrotli() {
	registerOnce.Do(func() {
		zip.RegisterCompressor(BrotliMethod, func(w io.Writer) (io.WriteCloser, error) {
			return brotli.NewWriter(w), nil
		})
		zip.RegisterDecompressor(BrotliMethod, func(r io.Reader) io.ReadCloser {
			return io.NopCloser(brotli.NewReader(r))
		})
	})
}

// Builder accumulates files into an in-memory zip bundle keyed by
// generated identifier, rewriting each mapping entry from
// source-path -> target to identifier -> target as it goes.
type Builder struct {
	buf    stringWriterAt
	zw     *zip.Writer
}

type stringWriterAt struct {
	data []byte
}

func (s *stringWriterAt) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

// NewBuilder starts a new in-memory bundle.
func NewBuilder() *Builder {
	registerBrotli()
	b := &Builder{}
	b.zw = zip.NewWriter(&b.buf)
	return b
}

// AddMapping rewrites mapping (source -> target, relative to baseDir
// when not absolute) into a fresh identifier -> target mapping, writing
// each source's bytes into the bundle under its identifier. Each
// process's mapping is rewritten independently by calling this once per
// mapping; identifier collisions across calls are not checked
// (statistically impossible with 128-bit UUIDs).
func (b *Builder) AddMapping(baseDir string, mapping map[string]string) (map[string]string, error) {
	rewritten := make(map[string]string, len(mapping))
	for source, target := range mapping {
		resolved := source
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, source)
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, cerr.CouldNotReadFile(resolved)
		}

		id := uuid.NewString()
		w, err := b.zw.CreateHeader(&zip.FileHeader{Name: id, Method: BrotliMethod})
		if err != nil {
			return nil, cerr.CouldNotWriteFile(resolved)
		}
		if _, err := w.Write(data); err != nil {
			return nil, cerr.CouldNotWriteFile(resolved)
		}
		rewritten[id] = target
	}
	return rewritten, nil
}

// Finish closes the zip writer and returns the bundle bytes, ready to
// become a Capsule's FS field.
func (b *Builder) Finish() ([]byte, error) {
	if err := b.zw.Close(); err != nil {
		return nil, cerr.InternalError("close zip writer: " + err.Error())
	}
	return b.buf.data, nil
}

// Extract opens fsBlob as a zip archive and writes each entry named by
// mapping's key to root/mapping[key]. Parent directories are created as
// needed; missing archive entries or write failures fail with the
// corresponding error kind.
func Extract(fsBlob []byte, mapping map[string]string, root string) error {
	registerBrotli()
	if len(mapping) == 0 {
		return nil
	}
	zr, err := zip.NewReader(sliceReaderAt(fsBlob), int64(len(fsBlob)))
	if err != nil {
		return cerr.InternalError("open fs archive: " + err.Error())
	}
	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	for id, target := range mapping {
		f, ok := byName[id]
		if !ok {
			return cerr.CouldNotFindFile(id)
		}
		if strings.Contains(target, "..") {
			return cerr.CouldNotWriteFile(target)
		}
		outPath := filepath.Join(root, target)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return cerr.CouldNotCreatePath(filepath.Dir(outPath))
		}

		rc, err := f.Open()
		if err != nil {
			return cerr.CouldNotReadFile(id)
		}
		if err := writeAll(outPath, rc); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
	}
	return nil
}

func writeAll(outPath string, r io.Reader) error {
	out, err := os.Create(outPath)
	if err != nil {
		return cerr.CouldNotWriteFile(outPath)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return cerr.CouldNotWriteFile(outPath)
	}
	return nil
}

type sliceReaderAt []byte

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
