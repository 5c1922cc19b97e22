package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/export"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inspect"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/inventory"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/k8sclient"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/logger"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/render"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/selection"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/snapshot"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/terminal"
	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/ui"
)

// maxAutoWidth caps the box width taken from the terminal.
const maxAutoWidth = 120

type runOptions struct {
	inspect    inspect.Options
	renderer   render.Renderer
	format     export.Format
	selector   string
	context    string
	kubeconfig string
	timeout    time.Duration
	watch      time.Duration
	colors     bool
	strict     bool
	log        logger.Options
}

// resolve merges flags over the loaded config and validates every enum
// before anything touches the cluster.
func (a *app) resolve(cmd *cobra.Command) (runOptions, error) {
	cfg := a.cfg
	changed := cmd.Flags().Changed
	var o runOptions

	o.context = cfg.Context
	if changed("context") {
		o.context = a.context
	}
	o.kubeconfig = cfg.Kubeconfig
	if changed("kubeconfig") {
		o.kubeconfig = a.kubeconfig
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return o, err
	}
	if changed("timeout") {
		timeout = a.timeout
	}
	if timeout < 0 {
		return o, fmt.Errorf("--timeout must not be negative")
	}
	o.timeout = timeout

	format, err := export.ParseFormat(a.output)
	if err != nil {
		return o, err
	}
	o.format = format

	basisName := cfg.Basis
	if changed("basis") {
		basisName = a.basis
	}
	basis, err := inventory.ParseBasis(basisName)
	if err != nil {
		return o, err
	}
	o.inspect.Builder = inventory.Builder{Basis: basis, AutoscalerPattern: cfg.AutoscalerLabelPatterns}

	sortName := cfg.Selection.SortBy
	if changed("sort-by") {
		sortName = a.sortBy
	}
	if o.inspect.SortBy, err = selection.ParseSortKey(sortName); err != nil {
		return o, err
	}

	rawFilters := cfg.Selection.Filters
	if changed("filter") {
		rawFilters = a.filters
	}
	if a.filterTainted {
		rawFilters = append(slices.Clone(rawFilters), string(selection.Tainted))
	}
	if a.filterHighUsage {
		rawFilters = append(slices.Clone(rawFilters), string(selection.HighUsage))
	}
	for _, raw := range rawFilters {
		f, err := selection.ParseFilter(raw)
		if err != nil {
			return o, err
		}
		if !slices.Contains(o.inspect.Filters, f) {
			o.inspect.Filters = append(o.inspect.Filters, f)
		}
	}

	threshold := cfg.Selection.HighUsageThreshold
	if changed("high-usage-threshold") {
		threshold = a.highUsage
	}
	if threshold <= 0 || threshold > 100 {
		return o, fmt.Errorf("--high-usage-threshold must be in (0, 100]")
	}
	o.inspect.Selector = selection.Selector{HighUsageThreshold: threshold}

	if a.selector != "" {
		if _, err := labels.Parse(a.selector); err != nil {
			return o, fmt.Errorf("invalid --selector %q: %w", a.selector, err)
		}
	}
	o.selector = a.selector

	width := cfg.Display.Width
	if changed("width") {
		width = a.width
	}
	if width < 0 {
		return o, fmt.Errorf("--width must not be negative")
	}
	o.renderer = render.Renderer{Width: width, Thresholds: cfg.Display.Thresholds, Verbose: a.verbose}

	o.watch = a.watch
	if o.watch < 0 {
		return o, fmt.Errorf("--watch must not be negative")
	}
	if o.watch > 0 && o.format != export.FormatText {
		return o, fmt.Errorf("--watch only supports text output")
	}

	out, _ := a.stdout.(*os.File)
	o.colors = !a.noColor && terminal.ColorEnabled(out, cfg.Display.Colors)
	if o.renderer.Width == 0 {
		o.renderer.Width = min(terminal.Width(out, render.DefaultWidth), maxAutoWidth)
	}

	o.strict = a.strict
	o.log = logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Verbose:    a.verbose,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	return o, nil
}

func (a *app) run(cmd *cobra.Command) error {
	opts, err := a.resolve(cmd)
	if err != nil {
		return err
	}

	// Full-screen mode owns the terminal; keep diagnostics to the log file.
	logOut := a.stderr
	if opts.watch > 0 {
		logOut = io.Discard
	}
	log, err := logger.New(opts.log, logOut)
	if err != nil {
		return err
	}
	defer log.Close()

	fetcher, cluster, err := a.connect(opts.kubeconfig, opts.context, opts.timeout, log.Logger)
	if err != nil {
		return err
	}

	if opts.watch > 0 {
		return a.watchLoop(fetcher, cluster, opts, log.Logger)
	}

	res, err := collect(cmd.Context(), fetcher, opts, log.Logger)
	if err != nil {
		return err
	}
	if err := a.write(res, cluster, opts); err != nil {
		return err
	}
	if opts.strict && len(res.Skipped) > 0 {
		return fmt.Errorf("%d node(s) skipped because of invalid capacity", len(res.Skipped))
	}
	return nil
}

func collect(ctx context.Context, fetcher snapshot.Fetcher, opts runOptions, log *zap.Logger) (inspect.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	snap, err := fetcher.Fetch(ctx, snapshot.Query{LabelSelector: opts.selector})
	if err != nil {
		return inspect.Result{}, k8sclient.WrapConnErr(err)
	}
	res := inspect.Inspect(snap, opts.inspect)
	for _, f := range res.Skipped {
		log.Warn("node skipped", zap.String("node", f.Node), zap.Error(f.Err))
	}
	log.Debug("inspection complete",
		zap.Int("nodes", res.Aggregate.Nodes),
		zap.Int("shown", len(res.Nodes)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("withoutMetrics", res.Aggregate.NoMetricsNodes),
	)
	return res, nil
}

func (a *app) write(res inspect.Result, cluster string, opts runOptions) error {
	if opts.format != export.FormatText {
		return export.Write(a.stdout, opts.format, cluster, res)
	}
	doc := opts.renderer.Render(res.Report(cluster))
	_, err := io.WriteString(a.stdout, doc.Paint(terminal.NewPainter(a.stdout, opts.colors)))
	return err
}

func (a *app) watchLoop(fetcher snapshot.Fetcher, cluster string, opts runOptions, log *zap.Logger) error {
	painter := terminal.NewPainter(a.stdout, opts.colors)
	fixedWidth := a.cfg.Display.Width > 0 || a.width > 0
	return ui.Run(ui.Options{
		Title:    binaryName + "  •  " + displayCluster(cluster),
		Interval: opts.watch,
		Load: func(ctx context.Context, width int) (string, error) {
			res, err := collect(ctx, fetcher, opts, log)
			if err != nil {
				return "", err
			}
			r := opts.renderer
			if !fixedWidth && width > 0 {
				r.Width = min(width, maxAutoWidth)
			}
			return r.Render(res.Report(cluster)).Paint(painter), nil
		},
	})
}

func displayCluster(name string) string {
	if name == "" {
		return "current"
	}
	return name
}
