// Package career models occupation-to-occupation transitions as a
// directed graph and answers successor, reachability, and path queries
// over it.
package career

import "sort"

// Transition is a directed edge between two occupation codes.
type Transition struct {
	From   string `json:"from_nco"`
	To     string `json:"to_nco"`
	Reason string `json:"reason,omitempty"`
}

// Graph is an in-memory adjacency view over transition edges.
type Graph struct {
	out   map[string][]Transition
	edges int
}

// New builds a graph from transition edges. Edges with a missing
// endpoint are dropped; duplicate from/to pairs keep the first reason
// seen. Outgoing edges are kept ordered by target code.
func New(transitions []Transition) *Graph {
	g := &Graph{out: make(map[string][]Transition)}
	seen := make(map[[2]string]bool, len(transitions))
	for _, t := range transitions {
		if t.From == "" || t.To == "" {
			continue
		}
		key := [2]string{t.From, t.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.out[t.From] = append(g.out[t.From], t)
		g.edges++
	}
	for _, edges := range g.out {
		sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	}
	return g
}

// Size returns the number of edges in the graph.
func (g *Graph) Size() int { return g.edges }

// Successors returns the direct transitions out of code, ordered by
// target code.
func (g *Graph) Successors(code string) []Transition {
	edges := g.out[code]
	if len(edges) == 0 {
		return nil
	}
	out := make([]Transition, len(edges))
	copy(out, edges)
	return out
}

// Reachable walks outgoing edges breadth-first up to maxDepth hops and
// returns every code reachable from start, excluding start itself.
// The result is sorted.
func (g *Graph) Reachable(start string, maxDepth int) []string {
	if maxDepth <= 0 {
		return nil
	}

	visited := map[string]bool{start: true}
	queue := []string{start}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, code := range queue {
			for _, t := range g.out[code] {
				if !visited[t.To] {
					visited[t.To] = true
					next = append(next, t.To)
				}
			}
		}
		queue = next
	}

	codes := make([]string, 0, len(visited)-1)
	for code := range visited {
		if code != start {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Paths returns every simple path from one code to another of at most
// maxDepth hops, both endpoints included. Paths are discovered
// breadth-first, so shorter paths come first.
func (g *Graph) Paths(from, to string, maxDepth int) [][]string {
	if from == to {
		return [][]string{{from}}
	}
	if maxDepth <= 0 {
		return nil
	}

	var found [][]string
	queue := [][]string{{from}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		if len(path)-1 >= maxDepth {
			continue
		}

		last := path[len(path)-1]
		for _, t := range g.out[last] {
			if containsCode(path, t.To) {
				continue // simple paths only
			}
			next := append(append(make([]string, 0, len(path)+1), path...), t.To)
			if t.To == to {
				found = append(found, next)
				continue
			}
			queue = append(queue, next)
		}
	}
	return found
}

func containsCode(path []string, code string) bool {
	for _, c := range path {
		if c == code {
			return true
		}
	}
	return false
}
