package netlist

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
)

// Document is a breadboard saved as YAML:
//
//	title: divider
//	components:
//	  - {name: B1, kind: battery, value: "9"}
//	  - {name: R1, kind: resistor, value: 1k}
//	  - {name: S1, kind: switch, open: false}
//	wires:
//	  - [B1.0, R1.0]
//	  - [R1.1, S1.0]
//	  - [S1.1, B1.1]
//	sweep:
//	  - {source: B1, start: 0, stop: 9, step: 1}
type Document struct {
	Title      string     `yaml:"title"`
	Components []Part     `yaml:"components" validate:"required,min=1,dive"`
	Wires      [][]string `yaml:"wires" validate:"dive,len=2,dive,required"`
	Sweep      []Sweep    `yaml:"sweep" validate:"max=2,dive"`
}

type Part struct {
	Name     string  `yaml:"name" validate:"required,excludesall=."`
	Kind     string  `yaml:"kind" validate:"required,component_kind"`
	Value    string  `yaml:"value"` // resistance, or source voltage for a battery
	Open     *bool   `yaml:"open"`
	State    int     `yaml:"state" validate:"oneof=0 1"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation int     `yaml:"rotation" validate:"oneof=0 90 180 270"`
}

type Sweep struct {
	Source string  `yaml:"source" validate:"required"`
	Start  float64 `yaml:"start"`
	Stop   float64 `yaml:"stop" validate:"gtefield=Start"`
	Step   float64 `yaml:"step" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("component_kind", func(fl validator.FieldLevel) bool {
		_, err := device.ParseKind(fl.Field().String())
		return err == nil
	})
	return v
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading circuit: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a circuit document. Part names must be unique.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding circuit: %w", err)
	}

	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return nil, fmt.Errorf("invalid circuit: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid circuit: %w", err)
	}

	seen := make(map[string]bool, len(doc.Components))
	for _, p := range doc.Components {
		if seen[p.Name] {
			return nil, fmt.Errorf("invalid circuit: duplicate component %s", p.Name)
		}
		seen[p.Name] = true
	}

	return doc, nil
}

// Load builds a simulation from the document and returns it with the
// name to id map. The topology is not rebuilt.
func Load(doc *Document, opts ...circuit.Option) (*circuit.Simulation, map[string]device.ComponentID, error) {
	sim := circuit.New(opts...)
	names := make(map[string]device.ComponentID, len(doc.Components))

	for _, p := range doc.Components {
		id, err := addPart(sim, p)
		if err != nil {
			sim.Destroy()
			return nil, nil, fmt.Errorf("component %s: %w", p.Name, err)
		}
		names[p.Name] = id
	}

	for i, w := range doc.Wires {
		if len(w) != 2 {
			sim.Destroy()
			return nil, nil, fmt.Errorf("wire %d: need two ends, got %d", i, len(w))
		}
		a, err := ParseTerminal(w[0], names)
		if err != nil {
			sim.Destroy()
			return nil, nil, fmt.Errorf("wire %d: %w", i, err)
		}
		b, err := ParseTerminal(w[1], names)
		if err != nil {
			sim.Destroy()
			return nil, nil, fmt.Errorf("wire %d: %w", i, err)
		}
		if err := sim.Connect(a, b); err != nil {
			sim.Destroy()
			return nil, nil, fmt.Errorf("wire %d %s-%s: %w", i, w[0], w[1], err)
		}
	}

	return sim, names, nil
}

func addPart(sim *circuit.Simulation, p Part) (device.ComponentID, error) {
	kind, err := device.ParseKind(p.Kind)
	if err != nil {
		return 0, err
	}

	id, err := sim.AddComponent(kind, device.Position{X: p.X, Y: p.Y})
	if err != nil {
		return 0, err
	}
	if p.Rotation != 0 {
		if err := sim.Move(id, device.Position{X: p.X, Y: p.Y}, p.Rotation); err != nil {
			return 0, err
		}
	}

	if p.Value != "" {
		value, err := ParseValue(p.Value)
		if err != nil {
			return 0, err
		}
		if kind == device.Battery {
			err = sim.SetSourceVoltage(id, value)
		} else {
			err = sim.SetResistance(id, value)
		}
		if err != nil {
			return 0, err
		}
	}

	if p.Open != nil {
		if err := sim.SetOpen(id, *p.Open); err != nil {
			return 0, err
		}
	}

	if p.State != 0 {
		if err := sim.SetSpdtState(id, p.State); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// ParseTerminal resolves "NAME.INDEX", e.g. "R1.0".
func ParseTerminal(s string, names map[string]device.ComponentID) (circuit.Terminal, error) {
	s = strings.TrimSpace(s)
	dot := strings.LastIndex(s, ".")
	if dot <= 0 || dot == len(s)-1 {
		return circuit.Terminal{}, fmt.Errorf("invalid terminal format: %s", s)
	}

	id, ok := names[s[:dot]]
	if !ok {
		return circuit.Terminal{}, fmt.Errorf("terminal %s: unknown component %s", s, s[:dot])
	}
	idx, err := strconv.Atoi(s[dot+1:])
	if err != nil {
		return circuit.Terminal{}, fmt.Errorf("terminal %s: invalid index: %w", s, err)
	}

	return circuit.Terminal{Component: id, Index: idx}, nil
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGKkmunpf])?(?:V|ohm|Ω)?$`)

// ParseValue reads a number with an optional engineering suffix and unit,
// e.g. "4.7k", "1meg", "9V", "330ohm".
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if matches[2] != "" {
		num *= unitMap[matches[2]]
	}

	return num, nil
}
