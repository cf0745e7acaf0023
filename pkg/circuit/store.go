package circuit

import (
	"fmt"

	"github.com/edp1096/toy-breadboard/pkg/device"
)

type Node struct {
	ID       device.NodeID
	Voltage  float64
	IsGround bool
}

// Name is the debug label of the node.
func (n Node) Name() string {
	if n.IsGround {
		return "gnd"
	}
	return fmt.Sprintf("n%d", n.ID)
}

// Store owns every Node and Component. Components keep their ids for their
// whole life; nodes are replaced wholesale by each rebuild and their ids are
// never reused, so an id from an older rebuild simply stops resolving.
type Store struct {
	components    map[device.ComponentID]*device.Component
	order         []device.ComponentID
	nextComponent device.ComponentID

	nodes    []*Node
	nodeByID map[device.NodeID]*Node
	nextNode device.NodeID
}

func NewStore() *Store {
	return &Store{
		components: make(map[device.ComponentID]*device.Component),
		nodeByID:   make(map[device.NodeID]*Node),
	}
}

func (s *Store) AddComponent(kind device.Kind, pos device.Position) (*device.Component, error) {
	c, err := device.New(s.nextComponent, kind, pos)
	if err != nil {
		return nil, err
	}
	s.nextComponent++

	s.components[c.ID] = c
	s.order = append(s.order, c.ID)
	return c, nil
}

func (s *Store) RemoveComponent(id device.ComponentID) bool {
	if _, ok := s.components[id]; !ok {
		return false
	}
	delete(s.components, id)
	for i, cid := range s.order {
		if cid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Component(id device.ComponentID) (*device.Component, bool) {
	c, ok := s.components[id]
	return c, ok
}

// Components returns the live records in insertion order.
func (s *Store) Components() []*device.Component {
	list := make([]*device.Component, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.components[id])
	}
	return list
}

func (s *Store) Node(id device.NodeID) (*Node, bool) {
	n, ok := s.nodeByID[id]
	return n, ok
}

func (s *Store) Nodes() []*Node {
	return s.nodes
}

// commit installs a freshly built topology in one step.
func (s *Store) commit(t *topology) {
	s.nodes = t.nodes
	s.nodeByID = make(map[device.NodeID]*Node, len(t.nodes))
	for _, n := range t.nodes {
		s.nodeByID[n.ID] = n
	}
	for i, c := range t.components {
		c.Terminals = t.terminals[i]
	}
	s.nextNode = t.nextNode
}

func (s *Store) reset() {
	s.components = make(map[device.ComponentID]*device.Component)
	s.order = nil
	s.nodes = nil
	s.nodeByID = make(map[device.NodeID]*Node)
}
