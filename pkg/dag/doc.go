// Package dag holds the target graph: build targets as nodes and their
// dependencies as directed edges.
//
// Edges point from a target to what it depends on. The graph must be
// acyclic before rules are constructed; [DAG.Validate] returns a
// [*CycleError] naming the cycle otherwise:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "//app:app"})
//	g.AddNode(dag.Node{ID: "//lib:lib"})
//	g.AddEdge(dag.Edge{From: "//app:app", To: "//lib:lib"})
//	order, err := g.TopoOrder() // ["//lib:lib", "//app:app"]
//
// [DAG.TopoOrder] lists dependencies before dependents, breaking ties by ID.
// [DAG.AssignLayers] sets each node's Row for display, and [ToDOT] with
// [RenderSVG] draw the graph with Graphviz.
package dag
