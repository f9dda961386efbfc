package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ilocn/stampid/internal/config"
	"github.com/ilocn/stampid/internal/idgen"
	"github.com/ilocn/stampid/internal/logger"
	"github.com/ilocn/stampid/internal/server"
)

var version = "dev" // injected via ldflags at build time

const description = "stampid — time-ordered decimal IDs\n\nIDs are the milliseconds since an epoch followed by a per-millisecond sequence.\n\nUSAGE:  stampid <command> [arguments]"

// Globals holds state shared by every command: the resolved configuration
// and the one Generator built from it.
type Globals struct {
	ConfigPath string `name:"config" short:"c" env:"STAMPID_CONFIG" type:"path" help:"YAML config file."`
	Epoch      string `help:"Epoch as RFC 3339 (overrides config; default Unix epoch)."`
	ZeroPad    *bool  `name:"zero-pad" help:"Pad the sequence to 4 digits; --zero-pad=false turns it off (overrides config)."`

	out io.Writer

	once sync.Once
	cfg  config.Config
	gen  *idgen.Generator
	err  error
}

// Settings lazily resolves the configuration on first call: file, then
// environment, then flags. It also configures logging from the result.
func (g *Globals) Settings() (config.Config, error) {
	g.once.Do(func() {
		g.cfg, g.err = g.resolve()
		if g.err != nil {
			return
		}
		logger.Setup(g.cfg.Log.Level, g.cfg.Log.Format, os.Stderr)

		var gc idgen.Config
		gc, g.err = g.cfg.Generator()
		if g.err == nil {
			g.gen = idgen.NewFromConfig(gc)
		}
	})
	return g.cfg, g.err
}

// Generator returns the process's Generator.
func (g *Globals) Generator() (*idgen.Generator, error) {
	if _, err := g.Settings(); err != nil {
		return nil, err
	}
	return g.gen, nil
}

func (g *Globals) resolve() (config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := config.FromEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	if g.Epoch != "" {
		cfg.Epoch = g.Epoch
	}
	if g.ZeroPad != nil {
		cfg.ZeroPad = *g.ZeroPad
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (g *Globals) stdout() io.Writer {
	if g.out != nil {
		return g.out
	}
	return os.Stdout
}

// ─── Top-level CLI struct ────────────────────────────────────────────────────

type CLI struct {
	Globals

	Next    NextCmd    `cmd:"" group:"ids"   help:"Print new IDs, one per line."`
	Parse   ParseCmd   `cmd:"" group:"ids"   help:"Split zero-padded IDs into timestamp and sequence."`
	Serve   ServeCmd   `cmd:"" group:"serve" help:"Issue IDs over HTTP."`
	Config  ConfigCmd  `cmd:"" group:"maint" help:"Print the effective configuration as YAML."`
	Version VersionCmd `cmd:"" group:"maint" help:"Print version and platform info."`
}

// ─── next ────────────────────────────────────────────────────────────────────

type NextCmd struct {
	Count int `short:"n" default:"1" help:"Number of IDs to print."`
}

func (c *NextCmd) Run(g *Globals) error {
	if c.Count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", c.Count)
	}
	gen, err := g.Generator()
	if err != nil {
		return err
	}
	w := g.stdout()
	for i := 0; i < c.Count; i++ {
		id, err := gen.GetID()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, id)
	}
	return nil
}

// ─── parse ───────────────────────────────────────────────────────────────────

type ParseCmd struct {
	IDs []string `arg:"" name:"id" help:"Zero-padded IDs to decode."`
}

func (c *ParseCmd) Run(g *Globals) error {
	gen, err := g.Generator()
	if err != nil {
		return err
	}
	if !gen.ZeroPad() {
		return idgen.ErrUnpadded
	}
	w := tabwriter.NewWriter(g.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tSEQUENCE\tTIME")
	for _, id := range c.IDs {
		s, err := idgen.Parse(id)
		if err != nil {
			w.Flush()
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", id, s.Timestamp, s.Sequence, s.Time(gen.Epoch()).Format(time.RFC3339Nano))
	}
	return w.Flush()
}

// ─── serve ───────────────────────────────────────────────────────────────────

type ServeCmd struct {
	Addr string `help:"Listen address (overrides config server.addr)."`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.Settings()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, server.New(g.gen, server.Options{MaxBatch: cfg.Server.MaxBatch}), addr)
}

// ─── config ──────────────────────────────────────────────────────────────────

type ConfigCmd struct{}

func (c *ConfigCmd) Run(g *Globals) error {
	cfg, err := g.Settings()
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = g.stdout().Write(data)
	return err
}

// ─── version ─────────────────────────────────────────────────────────────────

type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.stdout(), "stampid %s %s/%s\n", version, runtime.GOOS, runtime.GOARCH)
	return nil
}

// newParser builds the kong parser shared by main and the tests.
func newParser(cli *CLI, extra ...kong.Option) (*kong.Kong, error) {
	opts := []kong.Option{
		kong.Name("stampid"),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
		kong.ExplicitGroups([]kong.Group{
			{Key: "ids", Title: "── IDS ──────────────────────────────────────────────────────────────────────────"},
			{Key: "serve", Title: "── SERVICE ──────────────────────────────────────────────────────────────────────"},
			{Key: "maint", Title: "── MAINTENANCE ──────────────────────────────────────────────────────────────────"},
		}),
	}
	return kong.New(cli, append(opts, extra...)...)
}

func main() {
	logger.Init()

	var cli CLI
	k, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := k.Parse(os.Args[1:])
	k.FatalIfErrorf(err)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
