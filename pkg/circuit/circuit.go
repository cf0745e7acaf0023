package circuit

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edp1096/toy-breadboard/internal/config"
	"github.com/edp1096/toy-breadboard/internal/consts"
	"github.com/edp1096/toy-breadboard/pkg/device"
	"github.com/edp1096/toy-breadboard/pkg/matrix"
)

// Simulation owns one breadboard: its components, the wire list and the
// nodes of the last rebuild. Every call holds the simulation lock for its
// whole duration, so readers never see a rebuild half applied.
type Simulation struct {
	mu     sync.RWMutex
	id     uuid.UUID
	logger *zap.Logger

	maxPasses int
	tolerance float64
	backend   matrix.Backend
	systemOut io.Writer

	store *Store
	edges []Connection
	last  Result
}

type Option func(*Simulation)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulation) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSolverConfig(cfg config.Solver) Option {
	return func(s *Simulation) {
		if cfg.MaxPasses > 0 {
			s.maxPasses = cfg.MaxPasses
		}
		if cfg.Tolerance > 0 {
			s.tolerance = cfg.Tolerance
		}
		if cfg.Backend != "" {
			s.backend = matrix.Backend(cfg.Backend)
		}
	}
}

func WithBackend(backend matrix.Backend) Option {
	return func(s *Simulation) { s.backend = backend }
}

// WithSystemWriter prints the equations of the last pass of every solve to w.
func WithSystemWriter(w io.Writer) Option {
	return func(s *Simulation) { s.systemOut = w }
}

func New(opts ...Option) *Simulation {
	s := &Simulation{
		id:        uuid.New(),
		logger:    zap.NewNop(),
		maxPasses: consts.MAX_PASSES,
		tolerance: consts.VOLT_TOL,
		backend:   matrix.BackendDense,
		store:     NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("simulation", s.id.String()))

	return s
}

func (s *Simulation) ID() uuid.UUID { return s.id }

// Reset drops every component, wire and node.
func (s *Simulation) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.reset()
	s.edges = nil
	s.last = Result{}
	s.logger.Debug("simulation reset")
}

// Destroy resets the simulation and flushes its logger. The value may be
// reused afterwards as an empty simulation.
func (s *Simulation) Destroy() {
	s.Reset()
	_ = s.logger.Sync()
}

func (s *Simulation) AddComponent(kind device.Kind, pos device.Position) (device.ComponentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !kind.Valid() {
		return 0, fmt.Errorf("adding component of kind %d: %w", int(kind), ErrUnknownKind)
	}

	c, err := s.store.AddComponent(kind, pos)
	if err != nil {
		return 0, fmt.Errorf("adding %s: %w", kind, err)
	}

	s.logger.Debug("component added",
		zap.Int("component", int(c.ID)),
		zap.Stringer("kind", c.Kind),
	)
	return c.ID, nil
}

// RemoveComponent deletes the component. Wires that still name it are
// ignored by the next rebuild.
func (s *Simulation) RemoveComponent(id device.ComponentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.RemoveComponent(id) {
		return fmt.Errorf("removing component %d: %w", id, ErrComponentNotFound)
	}
	s.logger.Debug("component removed", zap.Int("component", int(id)))
	return nil
}

// SetConnections replaces the wire list used by the next rebuild.
func (s *Simulation) SetConnections(edges []Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges = append([]Connection(nil), edges...)
}

func (s *Simulation) Connections() []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Connection(nil), s.edges...)
}

// Connect appends a wire between a and b after checking both ends exist.
func (s *Simulation) Connect(a, b Terminal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, term := range []Terminal{a, b} {
		if err := s.checkTerminal(term); err != nil {
			return err
		}
	}
	s.edges = append(s.edges, Connection{A: a, B: b})
	return nil
}

// Disconnect removes every wire joining a and b, in either direction, and
// reports how many were removed.
func (s *Simulation) Disconnect(a, b Terminal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.edges[:0]
	removed := 0
	for _, e := range s.edges {
		if (e.A == a && e.B == b) || (e.A == b && e.B == a) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return removed
}

// Detach removes every wire touching the terminal, as when a wire end is
// pulled off a component.
func (s *Simulation) Detach(term Terminal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.edges[:0]
	removed := 0
	for _, e := range s.edges {
		if e.A == term || e.B == term {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return removed
}

func (s *Simulation) checkTerminal(term Terminal) error {
	c, ok := s.store.Component(term.Component)
	if !ok {
		return fmt.Errorf("terminal %d.%d: %w", term.Component, term.Index, ErrComponentNotFound)
	}
	if term.Index < 0 || term.Index >= len(c.Terminals) {
		return fmt.Errorf("terminal %d.%d of %s: %w", term.Component, term.Index, c.Kind, ErrInvalidTerminal)
	}
	return nil
}

// Rebuild recomputes the nodes from the wire list and solves.
func (s *Simulation) Rebuild() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := buildTopology(s.store.Components(), s.edges, s.store.nextNode)
	s.store.commit(t)

	s.logger.Debug("topology rebuilt",
		zap.Int("components", len(t.components)),
		zap.Int("nodes", len(t.nodes)),
		zap.Int("edges", len(s.edges)),
		zap.Int("skippedEdges", t.skipped),
		zap.Bool("grounded", t.ground != device.NoNode),
	)

	return s.solveLocked()
}

// Solve re-runs the iteration on the current topology, e.g. after a
// property edit.
func (s *Simulation) Solve() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.solveLocked()
}

// LastResult is the diagnostic of the most recent solve.
func (s *Simulation) LastResult() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.last
}

func (s *Simulation) Component(id device.ComponentID) (device.Component, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.store.Component(id)
	if !ok {
		return device.Component{}, false
	}
	return c.Clone(), true
}

func (s *Simulation) Components() []device.Component {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.store.Components()
	out := make([]device.Component, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}

func (s *Simulation) Current(id device.ComponentID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.store.Component(id)
	if !ok {
		return 0, fmt.Errorf("current of %d: %w", id, ErrComponentNotFound)
	}
	return c.Current, nil
}

// VoltageDrop is V(terminal 0) minus V(active terminal) at the last solve.
func (s *Simulation) VoltageDrop(id device.ComponentID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.store.Component(id)
	if !ok {
		return 0, fmt.Errorf("voltage drop of %d: %w", id, ErrComponentNotFound)
	}
	return c.Drop, nil
}

func (s *Simulation) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := s.store.Nodes()
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = *n
	}
	return out
}

func (s *Simulation) Node(id device.NodeID) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.store.Node(id)
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (s *Simulation) NodeVoltage(id device.NodeID) (float64, bool) {
	n, ok := s.Node(id)
	return n.Voltage, ok
}

// TerminalVoltage is the voltage of the node the terminal was merged into.
// Terminals of components added since the last rebuild have no node yet.
func (s *Simulation) TerminalVoltage(term Terminal) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkTerminal(term); err != nil {
		return 0, err
	}
	c, _ := s.store.Component(term.Component)
	n, ok := s.store.Node(c.Terminals[term.Index])
	if !ok {
		return 0, fmt.Errorf("terminal %d.%d is not part of the current topology: %w", term.Component, term.Index, ErrInvalidTerminal)
	}
	return n.Voltage, nil
}

func (s *Simulation) mutate(id device.ComponentID, what string, fn func(c *device.Component) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.store.Component(id)
	if !ok {
		return fmt.Errorf("setting %s of %d: %w", what, id, ErrComponentNotFound)
	}
	if err := fn(c); err != nil {
		return fmt.Errorf("setting %s of %s %d: %w", what, c.Kind, id, err)
	}
	return nil
}

// SetResistance changes the resistance of a resistive component. LDRs and
// potentiometers only accept values in their dial range.
func (s *Simulation) SetResistance(id device.ComponentID, r float64) error {
	return s.mutate(id, "resistance", func(c *device.Component) error {
		switch c.Kind {
		case device.Switch, device.Pushbutton, device.SPDT, device.LED:
			return ErrInvalidProperty
		}
		if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
			return ErrInvalidValue
		}
		if lo, hi, ok := c.Kind.Adjustable(); ok && (r < lo || r > hi) {
			return fmt.Errorf("%g outside %g..%g: %w", r, lo, hi, ErrInvalidValue)
		}
		c.Resistance = r
		return nil
	})
}

func (s *Simulation) SetSourceVoltage(id device.ComponentID, v float64) error {
	return s.mutate(id, "source voltage", func(c *device.Component) error {
		if c.Kind != device.Battery {
			return ErrInvalidProperty
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidValue
		}
		c.Voltage = v
		return nil
	})
}

func (s *Simulation) SetOpen(id device.ComponentID, open bool) error {
	return s.mutate(id, "open", func(c *device.Component) error {
		if c.Kind != device.Switch && c.Kind != device.Pushbutton {
			return ErrInvalidProperty
		}
		c.IsOpen = open
		return nil
	})
}

func (s *Simulation) SetSpdtState(id device.ComponentID, state int) error {
	return s.mutate(id, "spdt state", func(c *device.Component) error {
		if c.Kind != device.SPDT {
			return ErrInvalidProperty
		}
		if state != 0 && state != 1 {
			return ErrInvalidValue
		}
		c.SpdtState = state
		return nil
	})
}

// Toggle flips a switch or moves an spdt to its other output.
func (s *Simulation) Toggle(id device.ComponentID) error {
	return s.mutate(id, "toggle", func(c *device.Component) error {
		switch c.Kind {
		case device.Switch:
			c.IsOpen = !c.IsOpen
		case device.SPDT:
			c.SpdtState = 1 - c.SpdtState
		default:
			return ErrInvalidProperty
		}
		return nil
	})
}

func (s *Simulation) Press(id device.ComponentID) error {
	return s.pushbutton(id, false)
}

func (s *Simulation) Release(id device.ComponentID) error {
	return s.pushbutton(id, true)
}

func (s *Simulation) pushbutton(id device.ComponentID, open bool) error {
	return s.mutate(id, "pushbutton", func(c *device.Component) error {
		if c.Kind != device.Pushbutton {
			return ErrInvalidProperty
		}
		c.IsOpen = open
		return nil
	})
}

// Move places a component on the board. It does not touch the electrical
// state.
func (s *Simulation) Move(id device.ComponentID, pos device.Position, rotation int) error {
	return s.mutate(id, "placement", func(c *device.Component) error {
		if rotation%90 != 0 {
			return ErrInvalidValue
		}
		c.Position = pos
		c.Rotation = ((rotation % 360) + 360) % 360
		return nil
	})
}

type Stats struct {
	Components int
	Edges      int
	Nodes      int
	Grounds    int
	Batteries  int
	Unknowns   int
}

// Stats counts what the next solve would see. Components added after the
// last rebuild are left out, as they are by the solver.
func (s *Simulation) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Components: len(s.store.order),
		Edges:      len(s.edges),
		Nodes:      len(s.store.nodes),
	}
	for _, n := range s.store.nodes {
		if n.IsGround {
			st.Grounds++
		}
	}
	for _, c := range s.store.Components() {
		if c.Kind == device.Battery && s.wiredLocked(c) {
			st.Batteries++
		}
	}
	st.Unknowns = st.Nodes - st.Grounds + st.Batteries
	return st
}

// wiredLocked reports whether every terminal of c resolves to a node of the
// current topology.
func (s *Simulation) wiredLocked(c *device.Component) bool {
	for _, id := range c.Terminals {
		if _, ok := s.store.nodeByID[id]; !ok {
			return false
		}
	}
	return true
}
