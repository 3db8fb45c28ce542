package deptree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coveytools/covey/pkg/manifest"
)

// Graph is the directed dependency graph over installed collections. An
// edge A -> B means A declares a dependency on B.
type Graph struct {
	nodes    map[string]manifest.Record
	edges    map[string][]string // collection -> dependencies
	revEdges map[string][]string // collection -> dependents
}

// Build constructs the graph from the installed universe. Declared
// dependencies that are not installed still appear as edges so the tree
// can show them as missing.
func Build(universe manifest.Universe) *Graph {
	g := &Graph{
		nodes:    make(map[string]manifest.Record),
		edges:    make(map[string][]string),
		revEdges: make(map[string][]string),
	}
	for name, record := range universe {
		g.nodes[name] = record
		deps := make([]string, 0, len(record.CollectionInfo.Dependencies))
		for dep := range record.CollectionInfo.Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			g.edges[name] = append(g.edges[name], dep)
			g.revEdges[dep] = append(g.revEdges[dep], name)
		}
	}
	return g
}

// Dependencies returns the direct dependencies of a collection.
func (g *Graph) Dependencies(name string) []string {
	return g.edges[name]
}

// Dependents returns the collections that depend on the given one.
func (g *Graph) Dependents(name string) []string {
	return g.revEdges[name]
}

// Transitive returns the full dependency closure of root, dependencies
// ordered before their dependents, excluding root itself. Only installed
// collections are included. A cycle among the reachable collections makes
// the ordering undefined and is an error.
func (g *Graph) Transitive(root string) ([]string, error) {
	reachable := make(map[string]bool)
	var walk func(name string)
	walk = func(name string) {
		for _, dep := range g.edges[name] {
			if reachable[dep] {
				continue
			}
			if _, installed := g.nodes[dep]; !installed {
				continue
			}
			reachable[dep] = true
			walk(dep)
		}
	}
	walk(root)

	levels, err := g.sortSubset(reachable)
	if err != nil {
		return nil, err
	}

	var ordered []string
	for _, level := range levels {
		ordered = append(ordered, level...)
	}
	return ordered, nil
}

// sortSubset runs Kahn's algorithm over a subset of nodes, returning
// levels whose members have no ordering constraints among themselves.
func (g *Graph) sortSubset(subset map[string]bool) ([][]string, error) {
	if len(subset) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int)
	for name := range subset {
		count := 0
		for _, dep := range g.edges[name] {
			if subset[dep] {
				count++
			}
		}
		inDegree[name] = count
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}

	var result [][]string
	processed := 0
	for len(queue) > 0 {
		sort.Strings(queue)
		level := make([]string, len(queue))
		copy(level, queue)
		result = append(result, level)
		processed += len(level)

		var next []string
		for _, node := range queue {
			for _, dependent := range g.revEdges[node] {
				if !subset[dependent] {
					continue
				}
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		queue = next
	}

	if processed != len(subset) {
		var cycle []string
		for name, degree := range inDegree {
			if degree > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("dependency cycle detected among collections: [%s]", strings.Join(cycle, ", "))
	}
	return result, nil
}

// Render prints the dependency tree of every root collection (one that
// nothing depends on). Uninstalled dependencies are marked.
func (g *Graph) Render() string {
	var roots []string
	for name := range g.nodes {
		if len(g.revEdges[name]) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)

	var b strings.Builder
	for _, root := range roots {
		g.renderNode(&b, root, "", make(map[string]bool))
	}
	return b.String()
}

func (g *Graph) renderNode(b *strings.Builder, name, indent string, seen map[string]bool) {
	record, installed := g.nodes[name]
	label := name
	if installed {
		label = fmt.Sprintf("%s %s", name, record.CollectionInfo.Version)
	} else {
		label = fmt.Sprintf("%s (not installed)", name)
	}
	fmt.Fprintf(b, "%s%s\n", indent, label)

	if seen[name] {
		return
	}
	seen[name] = true
	defer delete(seen, name)

	for _, dep := range g.edges[name] {
		g.renderNode(b, dep, indent+"  ", seen)
	}
}
