package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-go-golems/caddy-pretty-print/pkg/config"
	"github.com/go-go-golems/caddy-pretty-print/pkg/filters"
	"github.com/go-go-golems/caddy-pretty-print/pkg/format"
	"github.com/go-go-golems/caddy-pretty-print/pkg/pipeline"
	"github.com/go-go-golems/caddy-pretty-print/pkg/terminal"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configPath string
	color      terminal.ColorMode
	strict     bool
	hosts      []string
	since      string
	until      string
	width      int
	inputPath  string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd, err := newRootCmd()
	cobra.CheckErr(err)
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func newRootCmd() (*cobra.Command, error) {
	opts := options{color: terminal.ColorAuto}

	rootCmd := &cobra.Command{
		Use:   "caddy-pretty-print",
		Short: "Pretty-print caddy JSON access logs read from stdin",
		Long: "caddy-pretty-print rewrites each JSON log line into a readable, optionally colored block.\n" +
			"Lines that are not caddy log records are passed through unless --strict is set.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.InitLoggerFromCobra(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to YAML config file (ignored when missing)")
	flags.Var(&opts.color, "color", "When to use terminal colors: auto|always|never")
	flags.BoolVar(&opts.strict, "strict", false, "Suppress all but legal log lines. By default lines that cannot be parsed are passed through")
	flags.StringArrayVar(&opts.hosts, "host", nil, "Filter by request host; repeat the flag or use glob syntax to match several hosts")
	flags.StringVar(&opts.since, "since", "", "Only show records at or after this time (timestamp or duration ago, e.g. 15m)")
	flags.StringVar(&opts.until, "until", "", "Only show records before this time (timestamp or duration ago)")
	flags.IntVar(&opts.width, "width", 0, "Terminal width for truncating request lines (0 = detect, <0 = never truncate)")
	flags.StringVar(&opts.inputPath, "input", "", "Input file path (default: stdin)")

	if err := logging.AddLoggingLayerToRootCommand(rootCmd, "caddy-pretty-print"); err != nil {
		return nil, err
	}
	return rootCmd, nil
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	cfg, err := config.LoadOptional(opts.configPath)
	if err != nil {
		return err
	}
	opts, err = mergeConfig(cmd, opts, cfg)
	if err != nil {
		return err
	}

	f, err := buildFilters(opts, time.Now())
	if err != nil {
		return err
	}

	stdout := os.Stdout
	width := opts.width
	if width == 0 {
		width = terminal.Width(stdout)
	}
	formatter := format.New(format.Options{
		Color: opts.color.Enabled(stdout),
		Width: width,
	})

	var r io.Reader = cmd.InOrStdin()
	if opts.inputPath != "" {
		in, err := os.Open(opts.inputPath)
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer func() { _ = in.Close() }()
		r = in
	}

	fo := formatter.Options()
	log.Debug().
		Str("color_mode", string(opts.color)).
		Bool("color", fo.Color).
		Bool("strict", opts.strict).
		Strs("hosts", f.HostPatterns()).
		Int("width", fo.Width).
		Msg("starting")

	err = pipeline.New(f, formatter).Run(ctx, r, cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// mergeConfig fills options that were not given on the command line from the
// config file.
func mergeConfig(cmd *cobra.Command, opts options, cfg *config.File) (options, error) {
	flags := cmd.Flags()
	if !flags.Changed("color") && cfg.Color != "" {
		mode, err := terminal.ParseColorMode(cfg.Color)
		if err != nil {
			return opts, errors.Wrap(err, "config color")
		}
		opts.color = mode
	}
	if !flags.Changed("strict") && cfg.Strict != nil {
		opts.strict = *cfg.Strict
	}
	if !flags.Changed("host") && len(cfg.Hosts) > 0 {
		opts.hosts = cfg.Hosts
	}
	if !flags.Changed("since") && cfg.Since != "" {
		opts.since = cfg.Since
	}
	if !flags.Changed("until") && cfg.Until != "" {
		opts.until = cfg.Until
	}
	if !flags.Changed("width") && cfg.Width != nil {
		opts.width = *cfg.Width
	}
	return opts, nil
}

func buildFilters(opts options, now time.Time) (*filters.Filters, error) {
	b := filters.NewBuilder().WithStrict(opts.strict)
	for _, host := range opts.hosts {
		if _, err := b.WithHost(host); err != nil {
			return nil, err
		}
	}

	since, err := filters.ParseTime(opts.since, now)
	if err != nil {
		return nil, errors.Wrap(err, "--since")
	}
	until, err := filters.ParseTime(opts.until, now)
	if err != nil {
		return nil, errors.Wrap(err, "--until")
	}
	return b.WithSince(since).WithUntil(until).Build()
}
