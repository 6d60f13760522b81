package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/rycus86/tuebus/pkg/client"
	"github.com/rycus86/tuebus/pkg/config"
	"github.com/rycus86/tuebus/pkg/departures"
	"github.com/rycus86/tuebus/pkg/document"
	"github.com/rycus86/tuebus/pkg/logging"
	"github.com/rycus86/tuebus/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"io"
	"os"
	"strings"
)

const (
	exitOK = iota
	exitConfig
	exitFetch
	exitExtraction
	exitOutput
)

type options struct {
	configPath string
	format     string
	stop       string
	lines      []string
	verbose    bool
	listen     string
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "tuebus [stop]",
		Short: "Shows the next bus departures of a stop in Tübingen",
		Long: `Fetches the live departure page of swtue.de for a stop and prints the
departures as a table, JSON or plain text.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && opts.stop == "" {
				opts.stop = args[0]
			}
			return showDepartures(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", os.Getenv("TUEBUS_CONFIG"),
		"JSON (or YAML) config file (alternatively set the TUEBUS_CONFIG environment variable)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug information to stderr")

	root.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: table, json or plain")
	root.Flags().StringVarP(&opts.stop, "stop", "s", "", "Stop name or id")
	root.Flags().StringSliceVarP(&opts.lines, "line", "l", nil, "Only display these lines (repeatable)")

	root.AddCommand(newServeCommand(opts))

	return root
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()

	if path := strings.TrimSpace(opts.configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if baseURL := strings.TrimSpace(os.Getenv("TUEBUS_BASE_URL")); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	cfg.Override(opts.stop, opts.format, opts.lines)

	return cfg, nil
}

func showDepartures(ctx context.Context, stdout, stderr io.Writer, opts *options) error {
	logger, err := logging.New(opts.verbose, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Debug("configuration loaded",
		zap.String("stop", cfg.StopName),
		zap.String("format", string(cfg.OutputFormat)),
		zap.Strings("filters", cfg.Filters))

	scraper := departures.NewScraper(client.NewHttpClient(cfg.RequestTimeout(), logger), cfg, logger)

	board, err := scraper.Scrape(ctx, cfg.StopName, departures.NewLineFilter(cfg.Filters))
	if err != nil {
		return err
	}

	return output.Render(stdout, board, cfg.OutputFormat)
}

func classify(err error) (string, int) {
	var (
		configErr     *config.Error
		fetchErr      *client.FetchError
		parseErr      *document.ParseError
		extractionErr *departures.ExtractionError
		outputErr     *output.Error
	)

	switch {
	case errors.As(err, &configErr):
		return "config", exitConfig
	case errors.As(err, &fetchErr):
		return "fetch", exitFetch
	case errors.As(err, &parseErr):
		return "parse", exitExtraction
	case errors.As(err, &extractionErr):
		return "extraction", exitExtraction
	case errors.As(err, &outputErr):
		return "output", exitOutput
	default:
		return "usage", exitConfig
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &options{}
	root := newRootCommand(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		kind, code := classify(err)
		fmt.Fprintf(stderr, "%s error: %v\n", kind, err)
		return code
	}

	return exitOK
}

func main() {
	// a missing .env file is fine
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
