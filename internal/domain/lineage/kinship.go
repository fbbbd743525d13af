package lineage

import (
	"fmt"
	"sort"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/entities"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Step is one hop of a kinship path: To appears in From's List.
type Step struct {
	From string                `json:"from"`
	List entities.ListKind     `json:"list"`
	To   string                `json:"to"`
	Type entities.RelationType `json:"type"`
}

// nodeIndex maps member ids to graph node ids in member order.
type nodeIndex struct {
	ids  []string
	byID map[string]int64
}

func newNodeIndex(members []*entities.Member) *nodeIndex {
	idx := &nodeIndex{byID: make(map[string]int64, len(members))}
	for _, m := range members {
		if _, ok := idx.byID[m.ID]; ok {
			continue
		}
		idx.byID[m.ID] = int64(len(idx.ids))
		idx.ids = append(idx.ids, m.ID)
	}
	return idx
}

// AncestryCycles returns groups of members that are their own ancestors
// through parent links. Each group is ordered by member position and the
// groups are ordered by their first member.
func AncestryCycles(members []*entities.Member) [][]string {
	idx := newNodeIndex(members)
	g := simple.NewDirectedGraph()
	for i := range idx.ids {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, m := range members {
		self := idx.byID[m.ID]
		for _, p := range m.Parents {
			parentNode, ok := idx.byID[p.ID]
			if !ok || parentNode == self || g.HasEdgeFromTo(parentNode, self) {
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(parentNode), g.Node(self)))
		}
		for _, c := range m.Children {
			childNode, ok := idx.byID[c.ID]
			if !ok || childNode == self || g.HasEdgeFromTo(self, childNode) {
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(self), g.Node(childNode)))
		}
	}

	var groups [][]int64
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		group := make([]int64, 0, len(scc))
		for _, n := range scc {
			group = append(group, n.ID())
		}
		sort.Slice(group, func(i, j int) bool { return group[i] < group[j] })
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	out := make([][]string, 0, len(groups))
	for _, group := range groups {
		names := make([]string, 0, len(group))
		for _, n := range group {
			names = append(names, idx.ids[n])
		}
		out = append(out, names)
	}
	return out
}

// Path returns the shortest chain of relations leading from one member to
// another over all four lists. Unconnected members yield an empty path.
func Path(members []*entities.Member, from, to string) ([]Step, error) {
	idx := newNodeIndex(members)
	fromNode, ok := idx.byID[from]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", entities.ErrNotFound, from)
	}
	toNode, ok := idx.byID[to]
	if !ok {
		return nil, fmt.Errorf("%w: member %s", entities.ErrNotFound, to)
	}
	if from == to {
		return []Step{}, nil
	}

	byID := make(map[string]*entities.Member, len(members))
	g := simple.NewUndirectedGraph()
	for i := range idx.ids {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, m := range members {
		if _, ok := byID[m.ID]; !ok {
			byID[m.ID] = m
		}
		a := idx.byID[m.ID]
		for _, list := range entities.AllLists {
			for _, r := range m.Relations(list) {
				b, ok := idx.byID[r.ID]
				if !ok || a == b || g.HasEdgeBetween(a, b) {
					continue
				}
				g.SetEdge(g.NewEdge(g.Node(a), g.Node(b)))
			}
		}
	}

	nodes, _ := path.DijkstraFrom(g.Node(fromNode), g).To(toNode)
	if len(nodes) < 2 {
		return []Step{}, nil
	}

	steps := make([]Step, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		steps = append(steps, stepBetween(byID, idx, nodes[i], nodes[i+1]))
	}
	return steps, nil
}

func stepBetween(byID map[string]*entities.Member, idx *nodeIndex, a, b graph.Node) Step {
	fromID, toID := idx.ids[a.ID()], idx.ids[b.ID()]
	for _, list := range entities.AllLists {
		if r, ok := byID[fromID].FindRelation(list, toID); ok {
			return Step{From: fromID, List: list, To: toID, Type: r.Type}
		}
	}
	// Only the reverse entry exists.
	for _, list := range entities.AllLists {
		if r, ok := byID[toID].FindRelation(list, fromID); ok {
			return Step{From: fromID, List: list.Mirror(), To: toID, Type: r.Type}
		}
	}
	return Step{From: fromID, To: toID}
}
