package rgraph

// topologicalSort orders every pass across every component. Edges record
// "this pass must run before that one" (addIntraComponentEdges,
// ConnectImage), so the schedule places the source of every edge before
// its destination.
//
// Implemented as DFS post-order followed by a reversal, per the original
// topological_visit/topological_sort pair: visiting a node first recurses
// into every pass its edges point at (the passes that must come after it),
// appends the node to post-order only once every successor is appended,
// then the whole sequence is reversed so each pass precedes its successors.
func topologicalSort(components []*componentObj) ([]*passObj, *Error) {
	visited := make(map[Name]int) // 0 unvisited, 1 in-progress, 2 done
	order := make([]*passObj, 0)

	all := map[Name]*passObj{}
	for _, c := range components {
		for _, p := range c.graphicsPassOrder {
			all[p.name] = p
		}
	}

	var visit func(p *passObj) *Error
	visit = func(p *passObj) *Error {
		switch visited[p.name] {
		case 2:
			return nil
		case 1:
			return newError(ErrCycle, "pass dependency graph contains a cycle at %q", p.debugName)
		}
		visited[p.name] = 1
		for _, next := range p.edges {
			if err := visit(next); err != nil {
				return err
			}
		}
		visited[p.name] = 2
		order = append(order, p)
		return nil
	}

	for _, c := range components {
		for _, p := range c.graphicsPassOrder {
			if err := visit(p); err != nil {
				return nil, err
			}
		}
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
