// Package cli implements the flowdoc command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usestring/flowdoc/internal/config"
	"github.com/usestring/flowdoc/internal/convert"
	"github.com/usestring/flowdoc/internal/logging"
	"github.com/usestring/flowdoc/internal/markdown"
	"github.com/usestring/flowdoc/internal/query"
	"github.com/usestring/flowdoc/pkg/capture"
)

// Build information, injected from main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
)

const examples = `  # Convert all requests
  flowdoc flows.mitm output.md

  # Filter by specific paths (include only)
  flowdoc flows.mitm output.md --filter /api/ /v1/users

  # Use wildcards
  flowdoc flows.mitm output.md --filter "/api/*" "*/auth/*"

  # Use regex patterns
  flowdoc flows.mitm output.md --filter "^/api/v[0-9]+/" "/users/[0-9]+$"

  # Exclude certain paths
  flowdoc flows.mitm output.md --exclude "/health" "/metrics"

  # Combine include and exclude
  flowdoc flows.mitm output.md --filter "/api/*" --exclude "*/internal/*"

  # Keep only failed POSTs (jq)
  flowdoc flows.har output.md --select '.method == "POST" and .status >= 400'`

type flags struct {
	configPath string
	include    []string
	exclude    []string
	selectExpr string
	compact    bool
	schema     bool
	workers    int
	logLevel   string
	logFile    string
	verbose    bool
}

// NewRootCommand creates the flowdoc command.
func NewRootCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "flowdoc INPUT OUTPUT",
		Short: "Convert a flow capture to Markdown documentation",
		Long: `flowdoc reads a capture of recorded HTTP exchanges (mitmproxy flow dump,
HAR archive or powhttp session export) and writes a Markdown document with
the request, response and an equivalent curl command for every flow.

Patterns containing * or ? are wildcards; anything else is a regular
expression, matched anywhere in the request path. Invalid expressions match
as plain substrings.`,
		Example:       examples,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, args[0], args[1])
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.include, "filter", "f", nil, "path pattern to include (repeatable)")
	fl.StringArrayVarP(&f.exclude, "exclude", "e", nil, "path pattern to exclude (repeatable)")
	fl.StringVar(&f.selectExpr, "select", "", "jq expression a flow must satisfy")
	fl.BoolVar(&f.compact, "compact", false, "trim long JSON arrays and strings in bodies")
	fl.BoolVar(&f.schema, "schema", false, "append an inferred JSON Schema to JSON bodies")
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.IntVarP(&f.workers, "workers", "w", 0, "render workers (default number of CPUs)")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	fl.StringVar(&f.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "shorthand for --log-level debug")

	return cmd
}

func run(cmd *cobra.Command, f *flags, input, output string) error {
	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return err
	}

	var sel *query.Selector
	if cfg.Select != "" {
		if sel, err = query.Compile(cfg.Select); err != nil {
			return err
		}
	}

	lc := cfg.Logging()
	lc.Writer = cmd.ErrOrStderr()
	cleanup, err := logging.Setup(lc)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer cleanup()

	conv := convert.New(convert.Options{
		Include:          cfg.Include,
		Exclude:          cfg.Exclude,
		Select:           sel,
		Body:             markdown.BodyOptions{Compact: cfg.CompactOptions(), Schema: cfg.Schema},
		Workers:          cfg.Workers,
		PatternCacheSize: cfg.PatternCacheSize,
	})

	res, err := conv.Convert(cmd.Context(), input, output)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Successfully converted %d flows to %s\n", res.Accepted(), output)
	if res.Skipped() > 0 {
		fmt.Fprintf(out, "   Skipped %d flows (didn't match filters)\n", res.Skipped())
	}
	return nil
}

// resolveConfig layers defaults, the optional config file and the flags.
// Flag patterns are appended to patterns from the file.
func resolveConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	fl := cmd.Flags()
	cfg.Include = append(cfg.Include, f.include...)
	cfg.Exclude = append(cfg.Exclude, f.exclude...)
	if fl.Changed("select") {
		cfg.Select = f.selectExpr
	}
	if fl.Changed("compact") {
		cfg.Compact = f.compact
	}
	if fl.Changed("schema") {
		cfg.Schema = f.schema
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	if fl.Changed("log-file") {
		cfg.Log.File = f.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs cmd with args and returns the process exit code. Errors are
// printed to the command's error stream.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(expandPatternArgs(args))
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(cmd.ErrOrStderr(), err)
		return ExitError
	}
	return ExitOK
}

func printError(w io.Writer, err error) {
	if errors.Is(err, capture.ErrUnreadable) {
		fmt.Fprintf(w, "Error reading flow file: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// patternFlags take one or more values: "-f a b" is read as "-f a -f b".
var patternFlags = map[string]bool{
	"-f":        true,
	"--filter":  true,
	"-e":        true,
	"--exclude": true,
}

// expandPatternArgs rewrites pattern flags followed by several values into
// repeated flags. Values run until the next argument starting with "-".
func expandPatternArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		out = append(out, arg)
		if arg == "--" {
			return append(out, args[i+1:]...)
		}
		if !patternFlags[arg] || i+1 >= len(args) {
			continue
		}

		// first value belongs to the flag as written
		i++
		out = append(out, args[i])
		for i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, arg, args[i])
		}
	}
	return out
}
