// Package fsys is the engine's filesystem abstraction.
//
// All filesystem access by the engine (absolutizing output roots, hashing
// source files for rule keys, listing and opening plugin archives) goes
// through a [Filesystem] so that tests can run against an in-memory tree.
// The backing store is an [afero.Fs]; production code uses the OS filesystem
// and tests use [afero.NewMemMapFs].
package fsys

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/matzehuels/rulegraph/pkg/target"
)

// DefaultOutDir is the build output directory relative to the project root.
const DefaultOutDir = "build-out"

// Filesystem resolves project-relative paths and reads files below a project root.
type Filesystem struct {
	fs     afero.Fs
	root   string
	outDir string
}

// New returns a Filesystem rooted at root. root must be absolute; outDir is
// relative to root and defaults to [DefaultOutDir] when empty.
func New(fs afero.Fs, root, outDir string) *Filesystem {
	if outDir == "" {
		outDir = DefaultOutDir
	}
	return &Filesystem{fs: fs, root: filepath.Clean(root), outDir: outDir}
}

// OS returns a Filesystem backed by the operating system.
func OS(root, outDir string) *Filesystem {
	return New(afero.NewOsFs(), root, outDir)
}

// Memory returns a Filesystem backed by an in-memory tree, for tests.
func Memory(root string) *Filesystem {
	return New(afero.NewMemMapFs(), root, "")
}

// Afero exposes the backing filesystem.
func (f *Filesystem) Afero() afero.Fs { return f.fs }

// Root returns the absolute project root.
func (f *Filesystem) Root() string { return f.root }

// Abs resolves p against the project root. Absolute paths are cleaned and
// returned unchanged; "//"-prefixed paths are taken as root-relative.
func (f *Filesystem) Abs(p string) string {
	if strings.HasPrefix(p, "//") {
		p = strings.TrimPrefix(p, "//")
	} else if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(f.root, filepath.FromSlash(p))
}

// Rel returns p as a "//"-prefixed root-relative path when it lies below the
// project root, and p unchanged otherwise.
func (f *Filesystem) Rel(p string) string {
	rel, err := filepath.Rel(f.root, f.Abs(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	if rel == "." {
		return "//"
	}
	return "//" + filepath.ToSlash(rel)
}

// OutDir returns the absolute build output directory.
func (f *Filesystem) OutDir() string { return f.Abs(f.outDir) }

// GenPath returns the generated-file path for t using the given name format,
// where "%s" is replaced by the target's short name and flavor postfix:
//
//	GenPath(//a/b:lib#abi, "lib__%s__output/%s.jar") -> <out>/gen/a/b/lib__lib#abi__output/lib#abi.jar
func (f *Filesystem) GenPath(t target.BuildTarget, format string) string {
	return f.underOut("gen", t, format)
}

// ScratchPath is like GenPath but under the scratch (bin) directory.
func (f *Filesystem) ScratchPath(t target.BuildTarget, format string) string {
	return f.underOut("bin", t, format)
}

func (f *Filesystem) underOut(kind string, t target.BuildTarget, format string) string {
	name := strings.ReplaceAll(format, "%s", t.ShortNameAndFlavorPostfix())
	return filepath.Join(f.OutDir(), kind, filepath.FromSlash(t.BasePath()), filepath.FromSlash(name))
}

// Exists reports whether p exists.
func (f *Filesystem) Exists(p string) bool {
	ok, err := afero.Exists(f.fs, f.Abs(p))
	return err == nil && ok
}

// IsDir reports whether p is an existing directory.
func (f *Filesystem) IsDir(p string) bool {
	ok, err := afero.IsDir(f.fs, f.Abs(p))
	return err == nil && ok
}

// ReadFile reads the whole file at p.
func (f *Filesystem) ReadFile(p string) ([]byte, error) {
	return afero.ReadFile(f.fs, f.Abs(p))
}

// WriteFile writes data to p, creating parent directories.
func (f *Filesystem) WriteFile(p string, data []byte) error {
	abs := f.Abs(p)
	if err := f.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(f.fs, abs, data, 0o644)
}

// Open opens p for reading.
func (f *Filesystem) Open(p string) (afero.File, error) {
	return f.fs.Open(f.Abs(p))
}

// OpenReaderAt opens p and returns it as an io.ReaderAt along with its size,
// as needed by archive readers.
func (f *Filesystem) OpenReaderAt(p string) (io.ReaderAt, int64, io.Closer, error) {
	file, err := f.Open(p)
	if err != nil {
		return nil, 0, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, nil, err
	}
	return file, info.Size(), file, nil
}

// ReadDir returns the absolute paths of the entries in dir, sorted by name.
// Subdirectories are included only if withDirs is set.
func (f *Filesystem) ReadDir(dir string, withDirs bool) ([]string, error) {
	abs := f.Abs(dir)
	infos, err := afero.ReadDir(f.fs, abs)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() && !withDirs {
			continue
		}
		out = append(out, filepath.Join(abs, info.Name()))
	}
	slices.Sort(out)
	return out, nil
}

// Glob returns the root-relative slash paths below dir matching match, sorted.
func (f *Filesystem) Glob(dir string, match func(rel string) bool) ([]string, error) {
	abs := f.Abs(dir)
	var out []string
	err := afero.Walk(f.fs, abs, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if match(rel) {
			out = append(out, path.Join(filepath.ToSlash(strings.TrimPrefix(dir, "//")), rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}
