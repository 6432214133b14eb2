// Package semgraph builds a weighted co-occurrence graph from a token
// sequence and derives its structural metrics. Token pairs within an
// elastic window attract each other with inverse-distance decay; the
// resulting topology separates structured prose from repetition loops
// and word salad.
package semgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

const (
	// windowSpan is the maximum forward distance considered for
	// co-occurrence. The window shrinks near the end of the sequence.
	windowSpan = 15

	// maxPathSources caps BFS sources for average path length so
	// analysis stays tractable on large vocabularies.
	maxPathSources = 50

	// minNodesForMetrics guards the ratio metrics. Below three nodes
	// density and clustering carry no information.
	minNodesForMetrics = 3
)

// Graph is a directed co-occurrence graph over unique tokens.
// Node IDs follow first-appearance order, which keeps every derived
// metric deterministic for a given token sequence.
type Graph struct {
	dg        *simple.WeightedDirectedGraph
	ids       map[string]int64
	tokens    []string
	edgeCount int
}

// Edge is an exported view of one weighted directed edge.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Metrics holds the structural measurements of one graph.
type Metrics struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	Density       float64 `json:"density"`
	LCCRatio      float64 `json:"lcc_ratio"`
	Clustering    float64 `json:"clustering"`
	AvgPathLength float64 `json:"avg_path_length"`
	SmallWorld    float64 `json:"small_world"`
	Components    int     `json:"components"`
}

// Build constructs the co-occurrence graph for a token sequence.
// For the token at position i, every distinct token up to windowSpan
// positions ahead receives a directed edge weighted 1/(distance+1),
// accumulated across repeated co-occurrences.
func Build(tokens []string) *Graph {
	g := &Graph{
		dg:  simple.NewWeightedDirectedGraph(0, 0),
		ids: make(map[string]int64),
	}

	for i, tok := range tokens {
		from := g.ensureNode(tok)
		span := windowSpan
		if remaining := len(tokens) - 1 - i; remaining < span {
			span = remaining
		}
		for d := 1; d <= span; d++ {
			if tokens[i+d] == tok {
				continue
			}
			to := g.ensureNode(tokens[i+d])
			g.addWeight(from, to, 1.0/float64(d+1))
		}
	}
	return g
}

func (g *Graph) ensureNode(tok string) int64 {
	if id, ok := g.ids[tok]; ok {
		return id
	}
	id := int64(len(g.tokens))
	g.ids[tok] = id
	g.tokens = append(g.tokens, tok)
	g.dg.AddNode(simple.Node(id))
	return id
}

func (g *Graph) addWeight(from, to int64, w float64) {
	if existing := g.dg.WeightedEdge(from, to); existing != nil {
		w += existing.Weight()
	} else {
		g.edgeCount++
	}
	g.dg.SetWeightedEdge(g.dg.NewWeightedEdge(simple.Node(from), simple.Node(to), w))
}

// NodeCount returns the number of unique tokens.
func (g *Graph) NodeCount() int { return len(g.tokens) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// Tokens returns the node labels in first-appearance order.
func (g *Graph) Tokens() []string {
	out := make([]string, len(g.tokens))
	copy(out, g.tokens)
	return out
}

// Edges returns all directed edges sorted by source then target position.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edgeCount)
	it := g.dg.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		edges = append(edges, Edge{
			Source: g.tokens[e.From().ID()],
			Target: g.tokens[e.To().ID()],
			Weight: e.Weight(),
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return g.ids[edges[i].Source] < g.ids[edges[j].Source]
		}
		return g.ids[edges[i].Target] < g.ids[edges[j].Target]
	})
	return edges
}

// Analyze derives the structural metrics of a graph. Connectivity,
// clustering, and path metrics are computed on the undirected view;
// density keeps the directed edge count. Graphs below three nodes get
// zeroed ratio metrics.
func Analyze(g *Graph) Metrics {
	m := Metrics{
		Nodes: g.NodeCount(),
		Edges: g.EdgeCount(),
	}

	u := g.undirectedView()
	components := sortedComponents(u)
	m.Components = len(components)

	if m.Nodes < minNodesForMetrics {
		return m
	}

	n := float64(m.Nodes)
	m.Density = float64(m.Edges) / (n * (n - 1))

	largest := components[0]
	m.LCCRatio = float64(len(largest)) / n
	m.Clustering = meanClustering(u, m.Nodes)
	m.AvgPathLength = avgPathLength(u, largest)
	if m.AvgPathLength > 0 {
		m.SmallWorld = m.Clustering / m.AvgPathLength
	}
	return m
}

func (g *Graph) undirectedView() *simple.WeightedUndirectedGraph {
	u := simple.NewWeightedUndirectedGraph(0, 0)
	for id := range g.tokens {
		u.AddNode(simple.Node(id))
	}
	it := g.dg.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		w := e.Weight()
		if existing := u.WeightedEdge(e.From().ID(), e.To().ID()); existing != nil {
			w += existing.Weight()
		}
		u.SetWeightedEdge(u.NewWeightedEdge(e.From(), e.To(), w))
	}
	return u
}

// sortedComponents returns connected components largest first, with node
// IDs ascending inside each component.
func sortedComponents(u *simple.WeightedUndirectedGraph) [][]int64 {
	raw := topo.ConnectedComponents(u)
	components := make([][]int64, 0, len(raw))
	for _, comp := range raw {
		ids := make([]int64, 0, len(comp))
		for _, node := range comp {
			ids = append(ids, node.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		components = append(components, ids)
	}
	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}

// meanClustering averages local transitivity over nodes of degree >= 2.
// Nodes are visited in ID order so the float accumulation is stable.
func meanClustering(u *simple.WeightedUndirectedGraph, nodes int) float64 {
	sum := 0.0
	qualifying := 0
	for id := int64(0); id < int64(nodes); id++ {
		neighbors := neighborIDs(u, id)
		deg := len(neighbors)
		if deg < 2 {
			continue
		}
		links := 0
		for i := 0; i < deg; i++ {
			for j := i + 1; j < deg; j++ {
				if u.HasEdgeBetween(neighbors[i], neighbors[j]) {
					links++
				}
			}
		}
		sum += 2.0 * float64(links) / float64(deg*(deg-1))
		qualifying++
	}
	if qualifying == 0 {
		return 0
	}
	return sum / float64(qualifying)
}

func neighborIDs(u *simple.WeightedUndirectedGraph, id int64) []int64 {
	var ids []int64
	it := u.From(id)
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// avgPathLength computes the mean unweighted shortest-path length over
// reachable pairs inside the largest component, sampling at most
// maxPathSources BFS sources in ID order.
func avgPathLength(u *simple.WeightedUndirectedGraph, component []int64) float64 {
	sources := component
	if len(sources) > maxPathSources {
		sources = sources[:maxPathSources]
	}

	totalDist := 0
	totalPairs := 0
	for _, src := range sources {
		bfs := traverse.BreadthFirst{}
		bfs.Walk(u, u.Node(src), func(n graph.Node, depth int) bool {
			if n.ID() != src {
				totalDist += depth
				totalPairs++
			}
			return false
		})
	}
	if totalPairs == 0 {
		return 0
	}
	return float64(totalDist) / float64(totalPairs)
}
