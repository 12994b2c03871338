// Command esdlrender decodes an ESDL document and prints the payload the map
// front-end draws for it. With -view it opens a terminal browser of the
// area/building tree instead.
//
//	esdlrender -in polder.esdl -indent
//	esdlrender -config mapeditor.yaml -system polder -strict
//	cat polder.esdl | esdlrender -view
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dd0wney/cluso-mapeditor/pkg/config"
	"github.com/dd0wney/cluso-mapeditor/pkg/esdl"
	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/store"
)

// errDangling is returned under -strict when connectedTo entries point at
// ports that are not indexed
var errDangling = errors.New("document has dangling port references")

type options struct {
	in         string
	configPath string
	systemID   string
	indent     bool
	strict     bool
	view       bool
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "-", "ESDL file to read, - for stdin")
	flag.StringVar(&opts.configPath, "config", "", "Config file selecting the document store (with -system)")
	flag.StringVar(&opts.systemID, "system", "", "Load this system id from the configured store instead of -in")
	flag.BoolVar(&opts.indent, "indent", false, "Indent the JSON output")
	flag.BoolVar(&opts.strict, "strict", false, "Exit non-zero when the document has dangling references")
	flag.BoolVar(&opts.view, "view", false, "Browse the system in a terminal UI")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")
	flag.Parse()

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(opts.logLevel))

	if err := run(context.Background(), opts, os.Stdin, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "esdlrender: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer, logger logging.Logger) error {
	es, err := loadSystem(ctx, opts, stdin, logger)
	if err != nil {
		return err
	}
	root, ok := es.RootArea()
	if !ok {
		return fmt.Errorf("system %q has no root area", es.ID)
	}
	idx, err := geoindex.Rebuild(root)
	if err != nil {
		return fmt.Errorf("index ports: %w", err)
	}

	if opts.view {
		_, err := tea.NewProgram(newBrowser(es, root, idx), tea.WithAltScreen()).Run()
		return err
	}

	payload := render.Build(root, idx)
	logger.Info("rendered",
		logging.SystemID(es.ID),
		logging.Int("assets", len(payload.Assets)),
		logging.Int("connections", len(payload.Connections)),
		logging.Int("ports", idx.Len()))
	for _, d := range payload.Dangling {
		logger.Warn("dangling reference",
			logging.AssetID(d.AssetID),
			logging.PortID(d.PortID),
			logging.String("target", d.TargetID))
	}

	enc := json.NewEncoder(stdout)
	if opts.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(payload); err != nil {
		return err
	}
	if opts.strict && len(payload.Dangling) > 0 {
		return fmt.Errorf("%w: %d", errDangling, len(payload.Dangling))
	}
	return nil
}

// loadSystem reads from the configured store when a system id is given,
// otherwise from -in.
func loadSystem(ctx context.Context, opts options, stdin io.Reader, logger logging.Logger) (*model.EnergySystem, error) {
	if opts.systemID != "" {
		cfg := config.Default()
		if opts.configPath != "" {
			var err error
			if cfg, err = config.Load(opts.configPath); err != nil {
				return nil, err
			}
		}
		docs, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
		}
		defer docs.Close()
		logger.Debug("loading from store", logging.Backend(docs.Backend()), logging.SystemID(opts.systemID))
		return store.LoadSystem(ctx, docs, opts.systemID)
	}

	if opts.in == "" || opts.in == "-" {
		return esdl.Decode(stdin)
	}
	f, err := os.Open(opts.in)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	logger.Debug("loading file", logging.Path(opts.in))
	return esdl.Decode(f)
}
