package circuit

import (
	"github.com/edp1096/toy-breadboard/pkg/device"
)

type Terminal struct {
	Component device.ComponentID
	Index     int
}

// Connection is a wire between two terminals.
type Connection struct {
	A Terminal
	B Terminal
}

// unionFind works on terminal slot indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// topology is a rebuild result that has not been committed to the store.
type topology struct {
	components []*device.Component
	terminals  [][]device.NodeID // parallel to components
	nodes      []*Node
	ground     device.NodeID
	skipped    int
	nextNode   device.NodeID
}

// buildTopology merges the terminals named by edges into nodes. Edges naming
// an unknown component or terminal are counted in skipped and ignored. Node
// ids are allocated from nextNode in component then terminal order.
func buildTopology(components []*device.Component, edges []Connection, nextNode device.NodeID) *topology {
	t := &topology{
		components: components,
		terminals:  make([][]device.NodeID, len(components)),
		ground:     device.NoNode,
	}

	offset := make(map[device.ComponentID]int, len(components))
	position := make(map[device.ComponentID]int, len(components))
	slots := 0
	for i, c := range components {
		offset[c.ID] = slots
		position[c.ID] = i
		slots += len(c.Terminals)
	}

	slot := func(term Terminal) (int, bool) {
		i, ok := position[term.Component]
		if !ok {
			return 0, false
		}
		if term.Index < 0 || term.Index >= len(components[i].Terminals) {
			return 0, false
		}
		return offset[term.Component] + term.Index, true
	}

	uf := newUnionFind(slots)
	for _, e := range edges {
		a, okA := slot(e.A)
		b, okB := slot(e.B)
		if !okA || !okB {
			t.skipped++
			continue
		}
		uf.union(a, b)
	}

	rootNode := make(map[int]*Node)
	for i, c := range components {
		terms := make([]device.NodeID, len(c.Terminals))
		for k := range c.Terminals {
			root := uf.find(offset[c.ID] + k)
			n, ok := rootNode[root]
			if !ok {
				n = &Node{ID: nextNode}
				nextNode++
				rootNode[root] = n
				t.nodes = append(t.nodes, n)
			}
			terms[k] = n.ID
		}
		t.terminals[i] = terms
	}
	t.nextNode = nextNode

	for i, c := range components {
		if c.Kind != device.Battery {
			continue
		}
		neg := t.terminals[i][1]
		for _, n := range t.nodes {
			if n.ID == neg {
				n.IsGround = true
				n.Voltage = 0
			}
		}
		t.ground = neg
		break
	}

	return t
}
