package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/edp1096/toy-breadboard/internal/config"
	"github.com/edp1096/toy-breadboard/internal/logging"
	"github.com/edp1096/toy-breadboard/pkg/analysis"
	"github.com/edp1096/toy-breadboard/pkg/circuit"
	"github.com/edp1096/toy-breadboard/pkg/device"
	"github.com/edp1096/toy-breadboard/pkg/netlist"
	"github.com/edp1096/toy-breadboard/pkg/util"
)

type options struct {
	configPath  string
	logLevel    string
	backend     string
	sweeps      string
	toggles     string
	printSystem bool
	circuitPath string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("breadboard", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&opts.backend, "backend", "", "linear solver: dense or sparse")
	fs.StringVar(&opts.sweeps, "sweep", "", "DC sweep SRC:START:STOP:STEP[,SRC:START:STOP:STEP]")
	fs.StringVar(&opts.toggles, "toggle", "", "comma separated switches, spdts or pushbuttons to flip before solving")
	fs.BoolVar(&opts.printSystem, "print-system", false, "print the equations of the last pass")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: breadboard [flags] <circuit.yaml>")
	}
	opts.circuitPath = fs.Arg(0)
	return opts, nil
}

// parseSweeps reads "B1:0:9:1,B2:0:5:0.5".
func parseSweeps(s string) ([]netlist.Sweep, error) {
	if s == "" {
		return nil, nil
	}

	var list []netlist.Sweep
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid sweep %q, want SRC:START:STOP:STEP", part)
		}
		vals := make([]float64, 3)
		for i, f := range fields[1:] {
			v, err := netlist.ParseValue(f)
			if err != nil {
				return nil, fmt.Errorf("sweep %s: %w", fields[0], err)
			}
			vals[i] = v
		}
		list = append(list, netlist.Sweep{Source: fields[0], Start: vals[0], Stop: vals[1], Step: vals[2]})
	}
	return list, nil
}

func newAnalyzer(sweeps []netlist.Sweep) (analysis.Analysis, error) {
	if len(sweeps) == 0 {
		return analysis.NewOP(), nil
	}

	var sources []string
	var starts, stops, steps []float64
	for _, sw := range sweeps {
		sources = append(sources, sw.Source)
		starts = append(starts, sw.Start)
		stops = append(stops, sw.Stop)
		steps = append(steps, sw.Step)
	}
	return analysis.NewDCSweep(sources, starts, stops, steps)
}

func applyToggles(sim *circuit.Simulation, names map[string]device.ComponentID, list string) error {
	if list == "" {
		return nil
	}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		id, ok := names[name]
		if !ok {
			return fmt.Errorf("toggle: unknown component %s", name)
		}
		c, _ := sim.Component(id)

		var err error
		if c.Kind == device.Pushbutton {
			err = sim.Press(id)
		} else {
			err = sim.Toggle(id)
		}
		if err != nil {
			return fmt.Errorf("toggle %s: %w", name, err)
		}
	}
	return nil
}

func getKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printResults(w io.Writer, title string, results map[string][]float64) {
	fmt.Fprintln(w, "\nAnalysis Results:")
	fmt.Fprintln(w, "================")
	if title != "" {
		fmt.Fprintf(w, "Circuit: %s\n", title)
	}

	var voltageNames, currentNames []string
	for _, name := range getKeys(results) {
		if strings.HasPrefix(name, "V(") {
			voltageNames = append(voltageNames, name)
		} else if strings.HasPrefix(name, "I(") {
			currentNames = append(currentNames, name)
		}
	}

	// DC Sweep
	if sweep1, isDC := results["SWEEP1"]; isDC {
		fmt.Fprintf(w, "\nDC Sweep Analysis Results (%d points):\n", len(sweep1))
		fmt.Fprintln(w, "------------------------------------------------")

		columns := append(append([]string(nil), voltageNames...), currentNames...)
		sweep2, hasNested := results["SWEEP2"]
		for i := range sweep1 {
			if hasNested {
				fmt.Fprintf(w, "V1=%-11s V2=%-11s  ",
					util.FormatValueFactor(sweep1[i], "V"),
					util.FormatValueFactor(sweep2[i], "V"))
			} else {
				fmt.Fprintf(w, "V=%-11s  ", util.FormatValueFactor(sweep1[i], "V"))
			}

			for _, name := range columns {
				fmt.Fprintf(w, "%s  ", util.FormatResult(name, results[name][i]))
			}
			fmt.Fprintln(w)
		}
		return
	}

	// Operating point
	fmt.Fprintln(w, "\nVoltages:")
	for _, name := range voltageNames {
		fmt.Fprintln(w, util.FormatResult(name, results[name][0]))
	}
	fmt.Fprintln(w, "\nCurrents:")
	for _, name := range currentNames {
		fmt.Fprintln(w, util.FormatResult(name, results[name][0]))
	}
	if passes, ok := results["PASSES"]; ok {
		fmt.Fprintf(w, "\nPasses: %d\n", int(passes[0]))
	}
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.backend != "" {
		cfg.Solver.Backend = opts.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	doc, err := netlist.ParseFile(opts.circuitPath)
	if err != nil {
		return err
	}

	simOpts := []circuit.Option{
		circuit.WithLogger(logger),
		circuit.WithSolverConfig(cfg.Solver),
	}
	if opts.printSystem {
		simOpts = append(simOpts, circuit.WithSystemWriter(stdout))
	}

	sim, names, err := netlist.Load(doc, simOpts...)
	if err != nil {
		return err
	}
	defer sim.Destroy()

	logger.Info("circuit loaded",
		zap.String("file", opts.circuitPath),
		zap.String("simulation", sim.ID().String()),
		zap.Int("components", len(names)),
		zap.Int("wires", len(doc.Wires)),
	)

	if err := applyToggles(sim, names, opts.toggles); err != nil {
		return err
	}

	sweeps := doc.Sweep
	if opts.sweeps != "" {
		sweeps, err = parseSweeps(opts.sweeps)
		if err != nil {
			return err
		}
	}

	analyzer, err := newAnalyzer(sweeps)
	if err != nil {
		return err
	}
	if err := analyzer.Setup(sim, names); err != nil {
		return fmt.Errorf("analysis setup failed: %w", err)
	}

	err = analyzer.Execute()
	if errors.Is(err, analysis.ErrNotConverged) {
		logger.Warn("results include unconverged solves", zap.Error(err))
	} else if err != nil {
		return fmt.Errorf("analysis execution failed: %w", err)
	}

	printResults(stdout, doc.Title, analyzer.GetResults())
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
