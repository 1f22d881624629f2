package application

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// BuildGraph walks the dependency graph from a root property in the given
// direction, bounded by maxDepth levels (clamped to DefaultMaxDepth).
// Direction "both" runs the upstream and downstream walks independently and
// unions them; a node reached by both keeps its smaller depth and its
// upstream role.
func (e *Engine) BuildGraph(ctx context.Context, tenantID, rootID uuid.UUID, direction domain.Direction, maxDepth int) (domain.Graph, error) {
	if maxDepth <= 0 || maxDepth > DefaultMaxDepth {
		maxDepth = DefaultMaxDepth
	}
	root, err := e.repo.GetProperty(ctx, tenantID, rootID)
	if err != nil {
		return domain.Graph{}, err
	}

	var directions []domain.Direction
	switch direction {
	case domain.DirectionUpstream, domain.DirectionDownstream:
		directions = []domain.Direction{direction}
	case domain.DirectionBoth:
		directions = []domain.Direction{domain.DirectionUpstream, domain.DirectionDownstream}
	default:
		return domain.Graph{}, domain.NewValidationError("unknown direction %q", direction)
	}

	nodes := map[uuid.UUID]domain.GraphNode{rootID: graphNode(root, domain.RoleRoot, 0)}
	edgeSet := map[edgeKey]domain.GraphEdge{}

	for _, dir := range directions {
		if err := e.walk(ctx, tenantID, root, dir, maxDepth, nodes, edgeSet); err != nil {
			return domain.Graph{}, err
		}
	}

	g := domain.Graph{RootID: rootID}
	for _, n := range nodes {
		g.Nodes = append(g.Nodes, n)
	}
	sort.Slice(g.Nodes, func(i, j int) bool {
		if g.Nodes[i].Depth != g.Nodes[j].Depth {
			return g.Nodes[i].Depth < g.Nodes[j].Depth
		}
		return g.Nodes[i].Name < g.Nodes[j].Name
	})
	for _, ge := range edgeSet {
		g.Edges = append(g.Edges, ge)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.SourcePropertyID != b.SourcePropertyID {
			return a.SourcePropertyID.String() < b.SourcePropertyID.String()
		}
		if a.DependentPropertyID != b.DependentPropertyID {
			return a.DependentPropertyID.String() < b.DependentPropertyID.String()
		}
		return a.Type < b.Type
	})
	g.Metrics = graphMetrics(g, e.collectTypes(nodes))
	return g, nil
}

type edgeKey struct {
	source    uuid.UUID
	dependent uuid.UUID
	edgeType  domain.DependencyType
}

func graphNode(p domain.Property, role domain.NodeRole, depth int) domain.GraphNode {
	return domain.GraphNode{
		PropertyID:   p.ID,
		Name:         p.Name,
		ObjectType:   p.ObjectType,
		PropertyType: p.PropertyType,
		DataType:     p.DataType,
		Role:         role,
		Depth:        depth,
	}
}

// walk is one breadth-first pass. The depth bound is checked before a
// frontier is expanded, so no level beyond maxDepth is ever loaded.
func (e *Engine) walk(ctx context.Context, tenantID uuid.UUID, root domain.Property, dir domain.Direction, maxDepth int, nodes map[uuid.UUID]domain.GraphNode, edgeSet map[edgeKey]domain.GraphEdge) error {
	role := domain.RoleDownstream
	if dir == domain.DirectionUpstream {
		role = domain.RoleUpstream
	}

	frontier := []uuid.UUID{root.ID}
	seen := map[uuid.UUID]struct{}{root.ID: {}}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var (
			edges []domain.DependencyEdge
			err   error
		)
		if dir == domain.DirectionDownstream {
			edges, err = e.repo.ListEdgesFrom(ctx, frontier, true)
		} else {
			edges, err = e.repo.ListEdgesTo(ctx, frontier, true)
		}
		if err != nil {
			return err
		}

		var nextIDs []uuid.UUID
		nextSet := map[uuid.UUID]struct{}{}
		for _, de := range edges {
			other := de.DependentPropertyID
			if dir == domain.DirectionUpstream {
				other = de.SourcePropertyID
			}
			if _, ok := nextSet[other]; !ok {
				nextSet[other] = struct{}{}
				nextIDs = append(nextIDs, other)
			}
		}
		props, err := e.repo.ListPropertiesByIDs(ctx, tenantID, nextIDs)
		if err != nil {
			return err
		}
		visible := make(map[uuid.UUID]domain.Property, len(props))
		for _, p := range props {
			if p.IsDeleted {
				continue
			}
			visible[p.ID] = p
		}

		var nextFrontier []uuid.UUID
		for _, de := range edges {
			other := de.DependentPropertyID
			if dir == domain.DirectionUpstream {
				other = de.SourcePropertyID
			}
			otherProp, ok := visible[other]
			if !ok {
				if _, known := nodes[other]; !known {
					// endpoint invisible to the tenant or soft deleted
					continue
				}
			}
			edgeSet[edgeKey{de.SourcePropertyID, de.DependentPropertyID, de.Type}] = domain.GraphEdge{
				SourcePropertyID:    de.SourcePropertyID,
				DependentPropertyID: de.DependentPropertyID,
				Type:                de.Type,
				IsCritical:          de.IsCritical,
				BreakOnDelete:       de.BreakOnDelete,
			}
			if _, visited := seen[other]; visited {
				continue
			}
			seen[other] = struct{}{}
			if existing, known := nodes[other]; !known {
				nodes[other] = graphNode(otherProp, role, depth+1)
			} else if depth+1 < existing.Depth {
				// already discovered by the opposite walk at a larger depth
				existing.Depth = depth + 1
				nodes[other] = existing
			}
			nextFrontier = append(nextFrontier, other)
		}
		frontier = nextFrontier
	}
	return nil
}

func (e *Engine) collectTypes(nodes map[uuid.UUID]domain.GraphNode) map[domain.PropertyType]int {
	counts := make(map[domain.PropertyType]int)
	for _, n := range nodes {
		counts[n.PropertyType]++
	}
	return counts
}

func graphMetrics(g domain.Graph, propertyTypes map[domain.PropertyType]int) domain.GraphMetrics {
	m := domain.GraphMetrics{
		NodeCount:       len(g.Nodes),
		EdgeCount:       len(g.Edges),
		PropertyTypes:   propertyTypes,
		DependencyTypes: make(map[domain.DependencyType]int),
	}
	for _, n := range g.Nodes {
		if n.Depth > m.MaxDepth {
			m.MaxDepth = n.Depth
		}
	}
	critical := 0
	for _, ge := range g.Edges {
		m.DependencyTypes[ge.Type]++
		if ge.IsCritical {
			critical++
		}
	}
	if m.EdgeCount > 0 {
		m.CriticalEdgePercent = 100 * float64(critical) / float64(m.EdgeCount)
	}
	return m
}

// DetectCycles scans every active edge the tenant can see and reports each
// distinct cycle once, canonically rotated so the smallest id leads. Cycles
// are diagnostics only; traversal tolerates them via the visited set.
func (e *Engine) DetectCycles(ctx context.Context, tenantID uuid.UUID) ([]domain.Cycle, error) {
	edges, err := e.repo.ListTenantEdges(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	adj := make(map[uuid.UUID][]uuid.UUID)
	nodeSet := make(map[uuid.UUID]struct{})
	for _, de := range edges {
		adj[de.SourcePropertyID] = append(adj[de.SourcePropertyID], de.DependentPropertyID)
		nodeSet[de.SourcePropertyID] = struct{}{}
		nodeSet[de.DependentPropertyID] = struct{}{}
	}
	var order []uuid.UUID
	for id := range nodeSet {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	for id := range adj {
		children := adj[id]
		sort.Slice(children, func(i, j int) bool { return children[i].String() < children[j].String() })
	}

	const (
		white = iota
		gray
		black
	)
	color := make(map[uuid.UUID]int, len(nodeSet))
	seenCycles := make(map[string]struct{})
	var cycles []domain.Cycle

	type frame struct {
		id   uuid.UUID
		next int
	}

	for _, start := range order {
		if color[start] != white {
			continue
		}
		stack := []frame{{id: start}}
		var path []uuid.UUID
		onPath := make(map[uuid.UUID]int)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next == 0 {
				color[f.id] = gray
				onPath[f.id] = len(path)
				path = append(path, f.id)
			}
			children := adj[f.id]
			if f.next < len(children) {
				child := children[f.next]
				f.next++
				if idx, ok := onPath[child]; ok {
					cyc := canonicalCycle(path[idx:])
					key := cycleKey(cyc)
					if _, dup := seenCycles[key]; !dup {
						seenCycles[key] = struct{}{}
						cycles = append(cycles, domain.Cycle{Path: cyc})
					}
					continue
				}
				if color[child] == white {
					stack = append(stack, frame{id: child})
				}
				continue
			}
			color[f.id] = black
			delete(onPath, f.id)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return cycles, nil
}

func canonicalCycle(path []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(path))
	copy(out, path)
	if len(out) < 2 {
		return out
	}
	min := 0
	for i := 1; i < len(out); i++ {
		if out[i].String() < out[min].String() {
			min = i
		}
	}
	rotated := make([]uuid.UUID, 0, len(out))
	rotated = append(rotated, out[min:]...)
	rotated = append(rotated, out[:min]...)
	return rotated
}

func cycleKey(path []uuid.UUID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = id.String()
	}
	return strings.Join(parts, ">")
}
