package scheduler

import (
	"sort"

	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// topoSort orders nodes by Kahn's algorithm: an edge u -> v means "u
// depends on v", so v must be visited before u. Nodes with equal
// in-degree rank (no edges remaining between them) are ordered by digest
// lexicographic value, per spec.md §4.9's determinism requirement. A
// residual edge after the algorithm terminates reports CircularDependency.
func topoSort(edges map[digest.Digest][]digest.Digest) ([]digest.Digest, error) {
	all := make(map[digest.Digest]bool)
	for u, deps := range edges {
		all[u] = true
		for _, v := range deps {
			all[v] = true
		}
	}

	// remaining[n] counts how many of n's own dependencies have not yet
	// been visited; n becomes ready once that count reaches zero.
	remaining := make(map[digest.Digest]int)
	dependents := make(map[digest.Digest][]digest.Digest)
	for u, deps := range edges {
		remaining[u] = len(deps)
		for _, v := range deps {
			dependents[v] = append(dependents[v], u)
		}
	}
	for n := range all {
		if _, ok := remaining[n]; !ok {
			remaining[n] = 0
		}
	}

	var ready []digest.Digest
	for n, r := range remaining {
		if r == 0 {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []digest.Digest
	visited := make(map[digest.Digest]bool)

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		n := ready[0]
		ready = ready[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)

		for _, dependent := range dependents[n] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(all) {
		return nil, vorpalerr.New(vorpalerr.CircularDependency, "dependency graph contains a cycle")
	}
	return order, nil
}
