// Package pkg holds the libraries behind rulegraph, the rule graph and
// classpath resolution core of a JVM build tool.
//
// # Overview
//
// A project is described by a target graph: every build target with its rule
// kind and arguments. rulegraph turns that graph into build rules, resolves
// their classpaths and fingerprints them:
//
//	targets.json
//	     ↓
//	[targetgraph] (validate, order, dispatch)
//	     ↓
//	[description] kinds, flavored through [flavor]
//	     ↓
//	[rules] index
//	     ↓
//	[classpath] views, [rulekey] keys, [macros] expansion
//
// # Main Packages
//
// [target] - Build target names and flavors.
//
// [rules] - The rule model: classified dependencies, capabilities and the
// per-build rule index.
//
// [description] - Rule kinds and the build context they construct rules in.
// [description/jvm], [description/cxx] and [description/builtin] supply the
// built-in kinds.
//
// [flavor] - Dispatches flavored targets to their recipes.
//
// [classpath] - The output, declared, transitive and transitive_deps views,
// each memoized per rule.
//
// [rulekey] - Field schemas and content-addressed rule keys.
//
// [plugin] - Loads additional rule kinds from plugin archives.
//
// [macros] - Expands $(classpath), $(srcs) and $(bindir) in rule arguments.
//
// [dag] - The directed graph underneath [targetgraph], with cycle detection,
// ordering and DOT rendering.
//
// ## Infrastructure
//
// [config] - Project configuration from .rulegraph.toml.
//
// [fsys] - Project-rooted filesystem and output path layout.
//
// [cache] - The rule key status store.
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for resolver and plugin events.
//
// [memo] - Compute-once tables.
//
// [buildinfo] - Version information.
//
// # Testing
//
//	go test ./pkg/...                # All tests
//	go test ./pkg/classpath/...      # Specific package
//	go test -run Example ./pkg/dag   # Examples only
//
// [target]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/target
// [rules]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/rules
// [description]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/description
// [description/jvm]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/description/jvm
// [description/cxx]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/description/cxx
// [description/builtin]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/description/builtin
// [flavor]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/flavor
// [classpath]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/classpath
// [rulekey]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/rulekey
// [plugin]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/plugin
// [macros]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/macros
// [dag]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/dag
// [targetgraph]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/targetgraph
// [config]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/config
// [fsys]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/fsys
// [cache]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/observability
// [memo]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/memo
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/rulegraph/pkg/buildinfo
package pkg
