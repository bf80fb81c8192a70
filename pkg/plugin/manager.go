// Package plugin discovers rule kinds contributed by plugin archives.
//
// A plugin archive is a zip file (".zip" or ".jar") in the configured plugin
// directory. Entries matching [CandidatePattern] are HCL rule descriptors;
// every other entry is ignored without being read. Each archive gets its own
// [Namespace] whose parent is the engine namespace, so plugins can build on
// the built-in descriptions while their own symbols stay private.
//
// Loading is a partial-failure domain: a corrupt archive, an unresolvable
// symbol or a failing constructor produces a [Diagnostic] and loading
// continues with everything else. Duplicate rule kinds keep the first
// registration; archives and their entries are processed in sorted order, so
// the winner is deterministic.
//
// Usage:
//
//	m, err := plugin.Load(ctx, fs, cfg, known, logger)
//	if err != nil {
//	    return err
//	}
//	for _, d := range m.Diagnostics() {
//	    logger.Warn(d.Error())
//	}
package plugin

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/klauspost/compress/zip"
	"github.com/zclconf/go-cty/cty"

	"github.com/matzehuels/rulegraph/pkg/config"
	"github.com/matzehuels/rulegraph/pkg/description"
	"github.com/matzehuels/rulegraph/pkg/errors"
	"github.com/matzehuels/rulegraph/pkg/fsys"
	"github.com/matzehuels/rulegraph/pkg/observability"
	"github.com/matzehuels/rulegraph/pkg/target"
)

// ArchiveExtensions are the file extensions treated as plugin archives.
var ArchiveExtensions = []string{".jar", ".zip"}

// Entry is a discovered rule kind and the namespace it was found in.
type Entry struct {
	Kind      string
	Archive   string
	Namespace *Namespace

	symbol *Symbol
}

// Instance is an instantiated plugin description.
type Instance struct {
	Entry       *Entry
	Description description.Description
}

// Manager discovers, instantiates and registers plugin rule kinds. It is
// used once at start-up from a single goroutine.
type Manager struct {
	fs     *fsys.Filesystem
	engine *Namespace
	logger *log.Logger

	entries []*Entry
	byKind  map[string]*Entry
	diags   []Diagnostic
}

// NewManager creates a manager whose engine namespace holds the descriptions
// of known. A nil logger is replaced by the default logger.
func NewManager(fs *fsys.Filesystem, known *description.Known, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		fs:     fs,
		engine: NewEngineNamespace(known),
		logger: logger,
		byKind: map[string]*Entry{},
	}
}

// Load runs the full start-up sequence: discover every archive in the
// configured plugin directory, instantiate the descriptions and register them
// into known. An unset or missing plugin directory disables discovery.
func Load(ctx context.Context, fs *fsys.Filesystem, cfg *config.Config, known *description.Known, logger *log.Logger) (*Manager, error) {
	m := NewManager(fs, known, logger)
	dir, ok := cfg.PluginDirectory(fs)
	if !ok {
		m.logger.Debug("plugin discovery disabled")
		return m, nil
	}
	if err := m.LoadDirectory(ctx, dir); err != nil {
		return m, err
	}
	m.Register(ctx, known, m.Instantiate(cfg))
	return m, nil
}

// LoadDirectory discovers every archive in dir, in sorted order. Only a
// failure to list dir is returned; archive problems become diagnostics.
func (m *Manager) LoadDirectory(ctx context.Context, dir string) error {
	paths, err := m.fs.ReadDir(dir, false)
	if err != nil {
		return errors.Wrap(errors.ErrCodePluginArchive, err, "list plugin directory %s", dir)
	}
	for _, p := range paths {
		if !slices.Contains(ArchiveExtensions, strings.ToLower(filepath.Ext(p))) {
			m.logger.Debug("skipping non-archive file", "path", p)
			continue
		}
		_, _ = m.Discover(ctx, p)
	}
	return nil
}

type candidate struct {
	name string
	data []byte
	err  error
}

// Discover reads the rule descriptors of one archive and returns the rule
// kinds it contributes. An archive that cannot be opened or enumerated is
// reported as a diagnostic and returned as a PLUGIN_ARCHIVE error.
func (m *Manager) Discover(ctx context.Context, archive string) ([]*Entry, error) {
	candidates, err := m.scan(archive)
	observability.Plugin().OnArchiveScanned(ctx, archive, len(candidates), err)
	if err != nil {
		m.report(SeverityError, archive, "", err)
		return nil, err
	}

	ns := m.engine.Child(archive)
	var defined []*Symbol
	for _, c := range candidates {
		if c.err != nil {
			m.report(SeverityWarning, archive, "", c.err)
			continue
		}
		syms, err := parseDescriptor(archive, c.name, c.data)
		if err != nil {
			m.report(SeverityWarning, archive, "", err)
			continue
		}
		for _, s := range syms {
			if !ns.Define(s) {
				m.report(SeverityWarning, archive, s.Name,
					errors.New(errors.ErrCodePluginDuplicate, "symbol %s is defined more than once in %s", s.Name, archive))
				continue
			}
			defined = append(defined, s)
		}
	}

	var found []*Entry
	for _, s := range defined {
		if s.Kind != SymbolRule {
			continue
		}
		if prev, ok := m.byKind[s.Name]; ok {
			m.report(SeverityWarning, archive, s.Name,
				errors.New(errors.ErrCodePluginDuplicate, "rule kind %s is already provided by %s; keeping that one", s.Name, prev.Archive))
			continue
		}
		if b, ok := m.engine.Lookup(s.Name); ok && b.IsBuiltin() {
			m.report(SeverityWarning, archive, s.Name,
				errors.New(errors.ErrCodePluginDuplicate, "rule kind %s is built in; keeping the built-in", s.Name))
			continue
		}
		isDesc, err := resolve(ns, s, map[*Symbol]bool{})
		if err != nil {
			m.report(SeverityDebug, archive, s.Name, err)
			continue
		}
		if !isDesc {
			m.report(SeverityDebug, archive, s.Name,
				errors.New(errors.ErrCodePluginSymbol, "%s does not implement %s", s.Name, CapabilityDescription))
			continue
		}
		e := &Entry{Kind: s.Name, Archive: archive, Namespace: ns, symbol: s}
		m.byKind[s.Name] = e
		m.entries = append(m.entries, e)
		found = append(found, e)
	}
	m.logger.Debug("scanned plugin archive", "archive", archive, "candidates", len(candidates), "kinds", len(found))
	return found, nil
}

// scan lists the candidate entries of archive in name order and reads them.
func (m *Manager) scan(archive string) ([]candidate, error) {
	r, size, closer, err := m.fs.OpenReaderAt(archive)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePluginArchive, err, "open %s", archive)
	}
	defer closer.Close()

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePluginArchive, err, "read %s", archive)
	}
	var files []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(CandidatePattern, f.Name); ok {
			files = append(files, f)
		}
	}
	slices.SortFunc(files, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })

	out := make([]candidate, len(files))
	for i, f := range files {
		out[i] = candidate{name: f.Name}
		rc, err := f.Open()
		if err != nil {
			out[i].err = errors.Wrap(errors.ErrCodePluginArchive, err, "%s!%s", archive, f.Name)
			continue
		}
		out[i].data, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			out[i].err = errors.Wrap(errors.ErrCodePluginArchive, err, "%s!%s", archive, f.Name)
		}
	}
	return out, nil
}

// resolve links s to its base through the namespace chain and reports
// whether s is a rule description.
func resolve(ns *Namespace, s *Symbol, visiting map[*Symbol]bool) (bool, error) {
	if s.resolved {
		return s.builtin != nil || s.base != nil, nil
	}
	if visiting[s] {
		return false, errors.New(errors.ErrCodePluginSymbol, "%s: base cycle", s.Name)
	}
	visiting[s] = true

	implementsDesc := false
	for _, c := range s.Implements {
		cs, ok := ns.Lookup(c)
		if !ok || cs.Kind != SymbolCapability {
			return false, errors.New(errors.ErrCodePluginSymbol, "%s: unresolved capability %q", s.Name, c)
		}
		implementsDesc = implementsDesc || c == CapabilityDescription
	}
	if s.Base == "" {
		if implementsDesc {
			return false, errors.New(errors.ErrCodePluginSymbol, "%s: implements %s without a base", s.Name, CapabilityDescription)
		}
		s.resolved = true
		return false, nil
	}

	b, ok := ns.Lookup(s.Base)
	if ok && b == s && ns.Parent() != nil {
		b, ok = ns.Parent().Lookup(s.Base)
	}
	if !ok || b.Kind != SymbolRule {
		return false, errors.New(errors.ErrCodePluginSymbol, "%s: unresolved base %q", s.Name, s.Base)
	}
	isDesc, err := resolve(ns, b, visiting)
	if err != nil {
		return false, err
	}
	if !isDesc {
		return false, errors.New(errors.ErrCodePluginSymbol, "%s: base %s is not a rule description", s.Name, b.Name)
	}
	s.base = b
	s.resolved = true
	return true, nil
}

// Entries returns the discovered rule kinds in discovery order.
func (m *Manager) Entries() []*Entry { return slices.Clone(m.entries) }

// Instantiate constructs a description for every discovered rule kind. The
// "config" constructor is preferred, with the shared configuration exposed to
// its expressions as "config"; the "default" constructor is the fallback.
// Failures are reported per rule kind and do not stop the others.
func (m *Manager) Instantiate(cfg *config.Config) []Instance {
	if cfg == nil {
		cfg = config.Default()
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"config": cfg.CtyValue()}}
	built := map[*Symbol]description.Description{}

	var out []Instance
	for _, e := range m.entries {
		d, err := instantiate(e.symbol, evalCtx, built)
		if err != nil {
			m.report(SeverityError, e.Archive, e.Kind, err)
			continue
		}
		out = append(out, Instance{Entry: e, Description: d})
	}
	return out
}

func instantiate(s *Symbol, evalCtx *hcl.EvalContext, built map[*Symbol]description.Description) (description.Description, error) {
	if s.builtin != nil {
		return s.builtin, nil
	}
	if d, ok := built[s]; ok {
		return d, nil
	}
	base, err := instantiate(s.base, evalCtx, built)
	if err != nil {
		return nil, err
	}

	var defaults map[string]any
	switch {
	case s.constructors[ConstructorConfig] != nil:
		defaults, err = evalDefaults(s.constructors[ConstructorConfig], evalCtx)
	case s.constructors[ConstructorDefault] != nil:
		defaults, err = evalDefaults(s.constructors[ConstructorDefault], nil)
	default:
		err = errors.New(errors.ErrCodePluginInstantiate, "no %q or %q constructor", ConstructorConfig, ConstructorDefault)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePluginInstantiate, err, "instantiate %s", s.Name)
	}

	d := newDescription(s.Name, base, defaults)
	if _, err := description.DecodeArg(d, target.BuildTarget{}, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodePluginInstantiate, err, "instantiate %s: defaults do not fit %s", s.Name, base.Kind())
	}
	built[s] = d
	return d, nil
}

func evalDefaults(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]any, error) {
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return map[string]any{}, nil
	}
	g, err := fromCty(v)
	if err != nil {
		return nil, err
	}
	defaults, ok := g.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodePluginInstantiate, "defaults must be an object, got %s", v.Type().FriendlyName())
	}
	return defaults, nil
}

// Register adds the instantiated descriptions to known. A kind that is
// already registered is reported and skipped.
func (m *Manager) Register(ctx context.Context, known *description.Known, instances []Instance) {
	for _, inst := range instances {
		if err := known.Register(inst.Description, inst.Entry.Archive); err != nil {
			m.report(SeverityWarning, inst.Entry.Archive, inst.Entry.Kind, err)
			continue
		}
		observability.Plugin().OnKindRegistered(ctx, inst.Entry.Kind, inst.Entry.Archive)
		m.logger.Debug("registered plugin rule kind", "kind", inst.Entry.Kind, "archive", inst.Entry.Archive)
	}
}

// Diagnostics returns every diagnostic in the order it was reported.
func (m *Manager) Diagnostics() []Diagnostic { return slices.Clone(m.diags) }

// Err aggregates the warning and error diagnostics, or returns nil.
func (m *Manager) Err() error { return combine(m.diags) }

func (m *Manager) report(sev Severity, archive, kind string, err error) {
	m.diags = append(m.diags, Diagnostic{Severity: sev, Archive: archive, Kind: kind, Err: err})
	switch sev {
	case SeverityDebug:
		m.logger.Debug("plugin symbol skipped", "archive", archive, "kind", kind, "err", err)
	case SeverityWarning:
		m.logger.Warn("plugin problem", "archive", archive, "kind", kind, "err", err)
	default:
		m.logger.Error("plugin failed to load", "archive", archive, "kind", kind, "err", err)
	}
}
