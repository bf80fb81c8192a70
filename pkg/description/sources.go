package description

import (
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/rulekey"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// ResolvePaths resolves package-relative paths of owner to absolute paths,
// sorted and unique. Entries containing glob metacharacters are expanded
// against the filesystem with doublestar semantics ("**" crosses
// directories); literal entries are taken as given.
func ResolvePaths(fs *fsys.Filesystem, owner target.BuildTarget, entries []string) ([]string, error) {
	var out []string
	for _, e := range entries {
		if !strings.ContainsAny(e, "*?[{") {
			out = append(out, fs.Abs(joinPackage(owner, e)))
			continue
		}
		if !doublestar.ValidatePattern(e) {
			return nil, errors.New(errors.ErrCodeInvalidArg, "%s: invalid glob %q", owner, e)
		}
		if !fs.IsDir("//" + owner.BasePath()) {
			continue
		}
		matches, err := fs.Glob("//"+owner.BasePath(), func(rel string) bool {
			ok, _ := doublestar.Match(e, rel)
			return ok
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidArg, err, "%s: expand %q", owner, e)
		}
		for _, m := range matches {
			out = append(out, fs.Abs("//"+m))
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// SourcePaths converts absolute paths to rule key source paths.
func SourcePaths(paths []string) []rulekey.SourcePath {
	out := make([]rulekey.SourcePath, len(paths))
	for i, p := range paths {
		out[i] = rulekey.SourcePath(p)
	}
	return out
}

// ResolveTargets parses target references. References starting with ':' are
// relative to owner's package.
func ResolveTargets(owner target.BuildTarget, refs []string) ([]target.BuildTarget, error) {
	out := make([]target.BuildTarget, 0, len(refs))
	for _, ref := range refs {
		t, err := ResolveTarget(owner, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	slices.SortFunc(out, target.Compare)
	return slices.Compact(out), nil
}

// ResolveTarget parses one target reference relative to owner.
func ResolveTarget(owner target.BuildTarget, ref string) (target.BuildTarget, error) {
	if strings.HasPrefix(ref, ":") {
		ref = "//" + owner.BasePath() + ref
	}
	return target.Parse(ref)
}

func joinPackage(owner target.BuildTarget, p string) string {
	if strings.HasPrefix(p, "//") || path.IsAbs(p) {
		return p
	}
	return "//" + path.Join(owner.BasePath(), p)
}
