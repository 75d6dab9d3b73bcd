package workflow

// ExecutionOrder computes a topological order of wf's nodes using Kahn's
// algorithm.
//
// Edges point from prerequisite to dependent. The work queue is seeded with
// every node of in-degree 0 in insertion order; each dequeued node is
// appended to the order and its successors' in-degrees are decremented, with
// successors reaching 0 enqueued in the order their connections were added.
// The result is deterministic for a fixed workflow, but callers should rely
// only on "every prerequisite precedes its dependents".
//
// Connections whose endpoints are not nodes of wf are ignored.
//
// ok is false when the graph contains a cycle. In that case order holds the
// nodes that could be ordered before the cycle blocked progress, so
// len(order) < len(wf.Nodes()).
func ExecutionOrder(wf *Workflow) (order []Node, ok bool) {
	inDegree := make(map[string]int, len(wf.nodes))
	adjacency := make(map[string][]string, len(wf.nodes))
	for _, n := range wf.nodes {
		inDegree[n.ID()] = 0
	}

	for _, c := range wf.connections {
		_, srcOK := inDegree[c.SourceNodeID]
		_, dstOK := inDegree[c.TargetNodeID]
		if !srcOK || !dstOK {
			continue
		}
		adjacency[c.SourceNodeID] = append(adjacency[c.SourceNodeID], c.TargetNodeID)
		inDegree[c.TargetNodeID]++
	}

	queue := make([]string, 0, len(wf.nodes))
	for _, n := range wf.nodes {
		if inDegree[n.ID()] == 0 {
			queue = append(queue, n.ID())
		}
	}

	order = make([]Node, 0, len(wf.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, wf.index[current])

		for _, next := range adjacency[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	return order, len(order) == len(wf.nodes)
}

// OrderIDs is a convenience wrapper returning the node IDs of ExecutionOrder.
func OrderIDs(wf *Workflow) ([]string, bool) {
	order, ok := ExecutionOrder(wf)
	ids := make([]string, len(order))
	for i, n := range order {
		ids[i] = n.ID()
	}
	return ids, ok
}
