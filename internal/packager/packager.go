// Package packager implements the capsulenv-pack operation: read a
// textual capsule, bundle its referenced files into an in-memory
// archive, serialize it, optionally encrypt it, and append it to a
// copy of the target's runtime image with the self-locating footer.
package packager

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/capsulenv/capsulenv/internal/archive"
	"github.com/capsulenv/capsulenv/internal/capsulefooter"
	"github.com/capsulenv/capsulenv/internal/cerr"
	"github.com/capsulenv/capsulenv/internal/envcrypto"
	"github.com/capsulenv/capsulenv/internal/textcapsule"
	"github.com/capsulenv/capsulenv/internal/wire"
)

// Options configures one Package invocation.
type Options struct {
	SourcePath   string // path to the textual capsule document
	TargetTriple string // e.g. "x86_64-linux", "x86_64-windows"
	Password     string // used only when HasPassword is set
	HasPassword  bool
	OutputPath   string // empty means use the default naming scheme
	RuntimeDir   string // directory of prebuilt per-target runtime binaries
}

// Package runs the full packaging pipeline and returns the output path
// it wrote to.
func Package(opts Options) (string, error) {
	sourceDir := filepath.Dir(opts.SourcePath)
	text, err := os.ReadFile(opts.SourcePath)
	if err != nil {
		return "", cerr.CouldNotReadFile(opts.SourcePath)
	}

	capsule, err := textcapsule.Parse(text)
	if err != nil {
		return "", err
	}

	if capsule.HasBundledFiles() {
		builder := archive.NewBuilder()
		if len(capsule.Files) > 0 {
			rewritten, err := builder.AddMapping(sourceDir, capsule.Files)
			if err != nil {
				return "", err
			}
			capsule.Files = rewritten
		}
		for name, p := range capsule.Processes {
			if len(p.Files) == 0 {
				continue
			}
			rewritten, err := builder.AddMapping(sourceDir, p.Files)
			if err != nil {
				return "", err
			}
			capsule.Processes[name].Files = rewritten
		}
		fs, err := builder.Finish()
		if err != nil {
			return "", err
		}
		capsule.FS = fs
	}

	payload := wire.EncodeCapsule(capsule)
	encrypted := false
	if opts.HasPassword {
		sealed, err := envcrypto.Encrypt(opts.Password, payload)
		if err != nil {
			return "", err
		}
		payload = sealed
		encrypted = true
	}

	runtimeBlob, err := loadRuntimeImage(opts.RuntimeDir, opts.TargetTriple)
	if err != nil {
		return "", err
	}

	outPath := opts.OutputPath
	if outPath == "" {
		outPath = defaultOutputPath(opts.SourcePath, opts.TargetTriple)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", cerr.CouldNotWriteFile(outPath)
	}
	if _, err := out.Write(runtimeBlob); err != nil {
		out.Close()
		return "", cerr.CouldNotWriteFile(outPath)
	}
	if err := capsulefooter.WriteAppend(out, payload, encrypted); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", cerr.CouldNotWriteFile(outPath)
	}
	if err := os.Chmod(outPath, 0o755); err != nil {
		return "", cerr.CouldNotWriteFile(outPath)
	}
	return outPath, nil
}

// loadRuntimeImage reads the prebuilt runtime binary for triple out of
// runtimeDir. runtimeDir is required: without it there is nowhere to
// look up a target's runtime image.
func loadRuntimeImage(runtimeDir, triple string) ([]byte, error) {
	if runtimeDir == "" {
		return nil, cerr.UnsupportedTarget(triple)
	}
	name := triple
	if strings.Contains(triple, "windows") {
		name += ".exe"
	}
	path := filepath.Join(runtimeDir, name)
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.UnsupportedTarget(triple)
	}
	return blob, nil
}

// defaultOutputPath builds "<capsule-dir>/<stem>-<target><ext>" where
// <ext> is .exe for Windows triples, empty otherwise.
func defaultOutputPath(sourcePath, triple string) string {
	dir := filepath.Dir(sourcePath)
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	ext := ""
	if strings.Contains(triple, "windows") {
		ext = ".exe"
	}
	return filepath.Join(dir, stem+"-"+triple+ext)
}
