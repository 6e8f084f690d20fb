package geodesic

import (
	"container/heap"
	"fmt"
	"math"

	"cortexgeom/pkg/meshgraph"
)

// FindPath returns the least-cost vertex path from start to end over g.
//
// If cost implements Targeter it is first re-aimed at end. Edge costs must be
// non-negative; a negative cost aborts the search with ErrNegativeCost.
// When start and end are not connected the returned Path is empty and the
// error is nil.
//
// With StopWhenEndReached (the default) the search stops as soon as end is
// settled. The resulting path is the same optimal path either way.
//
// Complexity: O((V + E) log V) time, O(V + E) space.
func FindPath(g *meshgraph.Graph, cost EdgeCost, start, end int, opts ...Option) (Path, error) {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	if g == nil {
		return Path{}, ErrNilGraph
	}
	if cost == nil {
		return Path{}, ErrNilCost
	}
	if !g.Contains(start) {
		return Path{}, fmt.Errorf("%w: start %d", ErrVertexOutOfRange, start)
	}
	if !g.Contains(end) {
		return Path{}, fmt.Errorf("%w: end %d", ErrVertexOutOfRange, end)
	}

	if t, ok := cost.(Targeter); ok {
		cost = t.Towards(end)
	}

	if start == end {
		return Path{Vertices: []int{start}}, nil
	}

	r := newRunner(g, cost, cfg)
	if err := r.run(start, end); err != nil {
		return Path{}, err
	}

	if math.IsInf(r.dist[end], 1) {
		return Path{}, nil
	}
	return Path{Vertices: r.trace(start, end), Cost: r.dist[end]}, nil
}

// FindCurve returns the least-cost path visiting waypoints in order. Each
// segment is searched independently, with a Targeter cost re-aimed at the
// segment's end. Joint vertices appear once. If any segment is disconnected
// the returned Path is empty.
func FindCurve(g *meshgraph.Graph, cost EdgeCost, waypoints []int, opts ...Option) (Path, error) {
	if len(waypoints) < 2 {
		return Path{}, ErrTooFewWaypoints
	}

	var curve Path
	for i := 0; i < len(waypoints)-1; i++ {
		segment, err := FindPath(g, cost, waypoints[i], waypoints[i+1], opts...)
		if err != nil {
			return Path{}, fmt.Errorf("segment %d: %w", i, err)
		}
		if !segment.Found() {
			return Path{}, nil
		}

		vertices := segment.Vertices
		if i > 0 {
			vertices = vertices[1:]
		}
		curve.Vertices = append(curve.Vertices, vertices...)
		curve.Cost += segment.Cost
	}
	return curve, nil
}

// PathCost sums StaticCost + DynamicCost over consecutive vertices of path.
// A Targeter cost is aimed at the last vertex, as FindPath would do.
func PathCost(cost EdgeCost, path []int) float64 {
	if len(path) < 2 {
		return 0
	}
	if t, ok := cost.(Targeter); ok {
		cost = t.Towards(path[len(path)-1])
	}

	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		u, v := path[i], path[i+1]
		total += cost.StaticCost(u, v) + cost.DynamicCost(u, v)
	}
	return total
}

// runner holds the mutable state of one search
type runner struct {
	g       *meshgraph.Graph
	cost    EdgeCost
	options Options
	dist    []float64 // best known cost from start
	prev    []int     // predecessor on the best known path, -1 if none
	visited []bool    // settled vertices
	pq      frontier
	seq     uint64 // insertion counter for stable tie-breaks
}

func newRunner(g *meshgraph.Graph, cost EdgeCost, options Options) *runner {
	n := g.NumVertices()
	r := &runner{
		g:       g,
		cost:    cost,
		options: options,
		dist:    make([]float64, n),
		prev:    make([]int, n),
		visited: make([]bool, n),
		pq:      make(frontier, 0, n),
	}
	for v := 0; v < n; v++ {
		r.dist[v] = math.Inf(1)
		r.prev[v] = -1
	}
	return r
}

// run settles vertices in order of increasing cost from start
func (r *runner) run(start, end int) error {
	r.dist[start] = 0
	heap.Init(&r.pq)
	r.push(start, 0)

	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*frontierItem)
		u := item.vertex

		// Stale entry from a lazy decrease-key
		if r.visited[u] {
			continue
		}
		r.visited[u] = true

		if u == end && r.options.StopWhenEndReached {
			return nil
		}
		if err := r.relax(u); err != nil {
			return err
		}
	}
	return nil
}

// relax tries to improve the cost of every unsettled neighbor of u
func (r *runner) relax(u int) error {
	for _, v := range r.g.Neighbors(u) {
		if r.visited[v] {
			continue
		}

		w := r.cost.StaticCost(u, v) + r.cost.DynamicCost(u, v)
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%w: edge %d->%d cost=%g", ErrNegativeCost, u, v, w)
		}

		d := r.dist[u] + w
		if d >= r.dist[v] {
			continue
		}
		r.dist[v] = d
		r.prev[v] = u
		r.push(v, d)
	}
	return nil
}

func (r *runner) push(v int, d float64) {
	heap.Push(&r.pq, &frontierItem{vertex: v, dist: d, seq: r.seq})
	r.seq++
}

// trace walks the predecessor chain back from end and returns it start-first
func (r *runner) trace(start, end int) []int {
	var path []int
	for v := end; v != -1; v = r.prev[v] {
		path = append(path, v)
		if v == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// frontierItem is a vertex waiting in the priority queue
type frontierItem struct {
	vertex int
	dist   float64
	seq    uint64
}

// frontier is a min-heap of frontierItem ordered by dist, then by insertion order
type frontier []*frontierItem

func (pq frontier) Len() int { return len(pq) }

func (pq frontier) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].seq < pq[j].seq
}

func (pq frontier) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *frontier) Push(x interface{}) { *pq = append(*pq, x.(*frontierItem)) }

func (pq *frontier) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
