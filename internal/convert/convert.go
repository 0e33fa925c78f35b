// Package convert turns a capture into a Markdown document: flows are
// decoded, filtered by path and rendered in stream order.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/moby/sys/atomicwriter"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/flowdoc/internal/markdown"
	"github.com/usestring/flowdoc/internal/pattern"
	"github.com/usestring/flowdoc/internal/query"
	"github.com/usestring/flowdoc/pkg/capture"
)

// ErrWriteOutput is wrapped by failures to write the output document.
var ErrWriteOutput = errors.New("writing output")

// Options configures a Converter.
type Options struct {
	Include []string // path patterns a flow must match one of (empty = all)
	Exclude []string // path patterns that reject a flow

	// Select, if set, must also match for a flow to be rendered.
	Select *query.Selector

	Body    markdown.BodyOptions
	Workers int // render workers, default runtime.NumCPU()

	// PatternCacheSize bounds the compiled pattern cache.
	// Default: pattern.DefaultCacheSize
	PatternCacheSize int

	// Open opens a capture by path. Default: capture.Open
	Open func(path string) (capture.Source, error)
}

// Converter renders captures as Markdown documents.
type Converter struct {
	opts     Options
	filter   *pattern.Filter
	renderer *markdown.Renderer
}

// New creates a Converter.
func New(opts Options) *Converter {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.PatternCacheSize <= 0 {
		opts.PatternCacheSize = pattern.DefaultCacheSize
	}
	if opts.Open == nil {
		opts.Open = capture.Open
	}

	return &Converter{
		opts:     opts,
		filter:   pattern.NewFilter(opts.Include, opts.Exclude, pattern.NewMatcher(opts.PatternCacheSize)),
		renderer: markdown.NewRenderer(opts.Body),
	}
}

// Convert reads the capture at inputPath and writes the document to
// outputPath. The output is only written when the whole capture was read.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	src, err := c.opts.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	doc, res, err := c.Document(ctx, src, inputPath)
	if err != nil {
		return res, err
	}

	if err := atomicwriter.WriteFile(outputPath, []byte(doc), 0o644); err != nil {
		return res, fmt.Errorf("%w %s: %w", ErrWriteOutput, outputPath, err)
	}

	slog.Info("wrote document",
		slog.String("output", outputPath),
		slog.Int("accepted", res.Accepted()),
		slog.Int("skipped", res.Skipped()),
		slog.Int("failed", res.Failed()),
	)
	return res, nil
}

// Document renders every accepted flow of src under a title naming input.
// Records that are not HTTP exchanges are ignored. Single records that fail
// to decode are logged and counted; a broken stream aborts the run.
func (c *Converter) Document(ctx context.Context, src capture.Source, input string) (string, *Result, error) {
	res := newResult()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	var sections []*string
	var readErr error

	for pos := uint32(0); ; pos++ {
		if err := gctx.Err(); err != nil {
			readErr = err
			break
		}

		f, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var flowErr *capture.FlowError
			if errors.As(err, &flowErr) {
				slog.Warn("skipping undecodable flow",
					slog.Int("index", flowErr.Index),
					slog.String("error", flowErr.Err.Error()),
				)
				res.failed.Add(pos)
				continue
			}
			readErr = fmt.Errorf("reading %s: %w", input, err)
			break
		}

		if !f.IsHTTP() {
			slog.Debug("ignoring non-HTTP flow",
				slog.String("id", f.ID),
				slog.String("kind", f.Kind),
			)
			continue
		}

		if !c.accept(gctx, f) {
			res.skipped.Add(pos)
			continue
		}
		res.accepted.Add(pos)

		out := new(string)
		sections = append(sections, out)
		if c.opts.Workers == 1 {
			*out = c.renderer.Render(f)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			*out = c.renderer.Render(f)
			return nil
		})
	}

	if err := g.Wait(); err != nil && readErr == nil {
		readErr = err
	}
	if readErr != nil {
		return "", res, readErr
	}

	rendered := make([]string, len(sections))
	for i, s := range sections {
		rendered[i] = *s
	}
	return markdown.Document(markdown.Title(input, c.opts.Include, c.opts.Exclude), rendered), res, nil
}

func (c *Converter) accept(ctx context.Context, f *capture.Flow) bool {
	if !c.filter.Accept(f.Request.Path) {
		return false
	}
	if c.opts.Select != nil && !c.opts.Select.Match(ctx, f) {
		return false
	}
	return true
}
