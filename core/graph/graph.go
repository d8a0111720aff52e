package graph

import (
	"fmt"

	"github.com/tristendillon/nixbundle/core/logger"
	"github.com/tristendillon/nixbundle/core/models"
	"github.com/tristendillon/nixbundle/core/resolver"
)

// DependencyGraph maps every file reachable from Entry to its resolved node.
// It is filled once by a Builder and read-only afterwards.
type DependencyGraph struct {
	Entry models.FileIdentity

	nodes map[models.FileIdentity]*models.ResolvedFile
	order []models.FileIdentity
}

func newDependencyGraph(entry models.FileIdentity) *DependencyGraph {
	return &DependencyGraph{
		Entry: entry,
		nodes: make(map[models.FileIdentity]*models.ResolvedFile),
	}
}

func (dg *DependencyGraph) add(node *models.ResolvedFile) {
	dg.nodes[node.Identity] = node
	dg.order = append(dg.order, node.Identity)
}

// Get retrieves the node for id.
func (dg *DependencyGraph) Get(id models.FileIdentity) (*models.ResolvedFile, bool) {
	node, exists := dg.nodes[id]
	return node, exists
}

// Has reports whether id has been processed.
func (dg *DependencyGraph) Has(id models.FileIdentity) bool {
	_, exists := dg.nodes[id]
	return exists
}

// Len returns the number of distinct files in the graph.
func (dg *DependencyGraph) Len() int {
	return len(dg.nodes)
}

// Files returns every identity in discovery order, entry first.
func (dg *DependencyGraph) Files() []models.FileIdentity {
	files := make([]models.FileIdentity, len(dg.order))
	copy(files, dg.order)
	return files
}

// Dependencies returns the resolved targets of a file's imports in textual
// order. Repeated imports of the same file appear once.
func (dg *DependencyGraph) Dependencies(id models.FileIdentity) ([]models.FileIdentity, error) {
	node, exists := dg.nodes[id]
	if !exists {
		return nil, models.NewMissingNodeError(id)
	}

	seen := make(map[models.FileIdentity]bool)
	var deps []models.FileIdentity
	for _, imp := range node.Imports {
		child, err := resolver.Resolve(imp.Target, id)
		if err != nil {
			return nil, err
		}
		if seen[child] {
			continue
		}
		seen[child] = true
		deps = append(deps, child)
	}
	return deps, nil
}

// Dependents returns files that import id, in discovery order.
func (dg *DependencyGraph) Dependents(id models.FileIdentity) ([]models.FileIdentity, error) {
	var dependents []models.FileIdentity
	for _, file := range dg.order {
		deps, err := dg.Dependencies(file)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if dep == id {
				dependents = append(dependents, file)
				break
			}
		}
	}
	return dependents, nil
}

// DetectCycles finds circular imports. Each cycle is reported once, starting
// and ending at the file where it was first entered.
func (dg *DependencyGraph) DetectCycles() ([][]models.FileIdentity, error) {
	var cycles [][]models.FileIdentity
	visited := make(map[models.FileIdentity]bool)
	recursionStack := make(map[models.FileIdentity]bool)

	for _, file := range dg.order {
		if visited[file] {
			continue
		}
		if err := dg.dfsFindCycles(file, visited, recursionStack, nil, &cycles); err != nil {
			return nil, err
		}
	}

	if len(cycles) > 0 {
		logger.Debug("DependencyGraph: Detected %d cycles", len(cycles))
	}
	return cycles, nil
}

// TopologicalOrder returns files with every dependency before its dependents.
func (dg *DependencyGraph) TopologicalOrder() ([]models.FileIdentity, error) {
	// Kahn's algorithm over "depends on" edges
	inDegree := make(map[models.FileIdentity]int, len(dg.nodes))
	dependents := make(map[models.FileIdentity][]models.FileIdentity, len(dg.nodes))
	var queue []models.FileIdentity
	var result []models.FileIdentity

	for _, file := range dg.order {
		deps, err := dg.Dependencies(file)
		if err != nil {
			return nil, err
		}
		inDegree[file] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], file)
		}
		if len(deps) == 0 {
			queue = append(queue, file)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(dg.nodes) {
		return nil, fmt.Errorf("dependency graph contains cycles")
	}

	return result, nil
}

func (dg *DependencyGraph) dfsFindCycles(
	file models.FileIdentity,
	visited, recursionStack map[models.FileIdentity]bool,
	path []models.FileIdentity,
	cycles *[][]models.FileIdentity,
) error {
	visited[file] = true
	recursionStack[file] = true
	path = append(path, file)

	deps, err := dg.Dependencies(file)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		if !visited[dep] {
			if err := dg.dfsFindCycles(dep, visited, recursionStack, path, cycles); err != nil {
				return err
			}
			continue
		}
		if !recursionStack[dep] {
			continue
		}
		for i, p := range path {
			if p == dep {
				cycle := make([]models.FileIdentity, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, dep)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[file] = false
	return nil
}
