package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/relaybench/internal/metrics"
)

const historySize = 100

// RunConfig holds benchmark parameters for display.
type RunConfig struct {
	Target     string        // Relay address
	Mode       string        // connect, echo or req
	Count      int           // Planned connections
	Rate       int           // Admissions per second
	Keepalive  time.Duration // Lifetime ceiling (0 = unbounded)
	Arrival    string        // Admission model
	Size       int           // Echo payload bytes
	Limit      int           // Request-cycle result limit
	Interfaces int           // Number of local bind addresses
	ConfigFile string        // Path to config file if used
}

// Dashboard renders a live terminal UI. It receives connection snapshots
// as a reporter sink and reads the shared message counters on each refresh.
type Dashboard struct {
	messages     *metrics.Messages
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid          *ui.Grid
	aliveSparkle  *widgets.SparklineGroup
	latencyPara   *widgets.Paragraph
	progressGauge *widgets.Gauge
	errorList     *widgets.List
	summaryPara   *widgets.Paragraph
	outcomePara   *widgets.Paragraph
	messagePara   *widgets.Paragraph
	aliveHistory  []float64

	latest     metrics.ConnectionStats
	elapsed    time.Duration
	lastTick   time.Time
	lastTrips  int
	runConfig  RunConfig
	renderable bool
}

// New creates a new Dashboard. messages may be nil for connect-only runs.
// shutdownFunc runs when the user presses q or Ctrl-C.
func New(messages *metrics.Messages, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	d := newDashboard(messages, cfg, shutdownFunc)
	d.renderable = true
	d.setupGrid()
	return d, nil
}

func newDashboard(messages *metrics.Messages, cfg RunConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		messages:     messages,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		aliveHistory: make([]float64, 0, historySize),
		lastTick:     time.Now(),
		runConfig:    cfg,
		latest:       metrics.ConnectionStats{Total: cfg.Count},
	}
	d.initWidgets()
	return d
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Alive"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.aliveSparkle = widgets.NewSparklineGroup(sparkline)
	d.aliveSparkle.Title = "Alive Connections"
	d.aliveSparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency"
	d.latencyPara.Text = "Waiting for data..."
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Concluded Connections"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.errorList = widgets.NewList()
	d.errorList.Title = "Connection Errors"
	d.errorList.Rows = []string{"[No errors](fg:green)"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.outcomePara = widgets.NewParagraph()
	d.outcomePara.Title = "Connections"
	d.outcomePara.Text = "Waiting for data..."
	d.outcomePara.BorderStyle.Fg = ui.ColorCyan

	d.messagePara = widgets.NewParagraph()
	d.messagePara.Title = "Messages"
	d.messagePara.Text = "[Connect-only run](fg:green)"
	d.messagePara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.messagePara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.progressGauge),
			ui.NewCol(0.5, d.outcomePara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.aliveSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.42,
			ui.NewCol(0.5, d.messagePara),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Report stores the latest connection snapshot. It satisfies the runner's sink.
func (d *Dashboard) Report(elapsed time.Duration, stats metrics.ConnectionStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = stats
	d.elapsed = elapsed
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	if d.renderable {
		ui.Close()
		// Give terminal time to restore
		time.Sleep(100 * time.Millisecond)
	}
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop() cancels the context once the run has wound down.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update(time.Now())
			d.render()
		}
	}
}

// update refreshes all widget data from the latest snapshot.
func (d *Dashboard) update(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := d.latest
	d.aliveHistory = append(d.aliveHistory, float64(stats.Alive))
	if len(d.aliveHistory) > historySize {
		d.aliveHistory = d.aliveHistory[1:]
	}
	d.aliveSparkle.Sparklines[0].Data = d.aliveHistory
	d.aliveSparkle.Title = fmt.Sprintf("Alive Connections | Current: %d | Planned: %d", stats.Alive, stats.Total)

	percent := 0
	if stats.Total > 0 {
		percent = stats.Complete * 100 / stats.Total
	}
	d.progressGauge.Percent = percent
	d.progressGauge.Label = fmt.Sprintf("%d / %d", stats.Complete, stats.Total)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Alive: %d | Concluded: %d",
		d.runConfig.Target,
		d.formatRunParams(),
		d.elapsed.Round(time.Second),
		stats.Alive,
		stats.Complete,
	)

	d.outcomePara.Text = fmt.Sprintf(
		"Attempted:  %d\nAlive:      %d\nClosed:     %d\nLost:       %d\nErrored:    %d",
		stats.Attempted, stats.Alive, stats.Closed, stats.Lost, stats.Errored,
	)

	lines := []string{"[Connect time](fg:cyan,mod:bold)", formatLatency(stats.ConnectTime)}
	if d.messages != nil {
		msg := d.messages.Snapshot()
		window := now.Sub(d.lastTick)
		tps := 0.0
		if window > 0 {
			tps = float64(msg.Complete-d.lastTrips) / window.Seconds()
		}
		d.lastTrips = msg.Complete
		d.lastTick = now

		lines = append(lines, "[Round trip](fg:cyan,mod:bold)", formatLatency(msg.RoundTrip))
		d.messagePara.Text = fmt.Sprintf(
			"Round trips/sec:  %.1f\nStarted:          %d\nCompleted:        %d\nErrored:          %d\nEvents:           %d\nTransferred:      %.2f MB",
			tps, msg.Total, msg.Complete, msg.Errored, msg.Event, float64(msg.Size)/1e6,
		)
	}
	d.latencyPara.Text = strings.Join(lines, "\n")

	d.errorList.Rows = formatErrorRows(stats.Errors)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.grid != nil {
		ui.Render(d.grid)
	}
}

func formatLatency(l metrics.LatencyStats) string {
	if l.Count == 0 {
		return "  no samples"
	}
	return fmt.Sprintf("  Min %.1fms  Mean %.1fms  Max %.1fms\n  P50 %.1fms  P90 %.1fms  P99 %.1fms",
		ms(l.Min), ms(l.Avg), ms(l.Max), l.P50Ms, l.P90Ms, l.P99Ms)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatErrorRows(errs map[string]int) []string {
	if len(errs) == 0 {
		return []string{"[No errors](fg:green)"}
	}
	kinds := make([]string, 0, len(errs))
	for kind := range errs {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if errs[kinds[i]] == errs[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return errs[kinds[i]] > errs[kinds[j]]
	})
	if len(kinds) > 10 {
		kinds = kinds[:10]
	}
	rows := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) %d", metrics.FriendlyKind(kind), errs[kind]))
	}
	return rows
}

// formatRunParams formats the benchmark parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string
	cfg := d.runConfig

	if cfg.Mode != "" {
		parts = append(parts, fmt.Sprintf("Mode: %s", cfg.Mode))
	}
	if cfg.Count > 0 {
		parts = append(parts, fmt.Sprintf("Connections: %d", cfg.Count))
	}
	if cfg.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", cfg.Rate))
	}
	if cfg.Arrival != "" && cfg.Arrival != "batch" {
		parts = append(parts, fmt.Sprintf("Arrival: %s", cfg.Arrival))
	}
	if cfg.Keepalive > 0 {
		parts = append(parts, fmt.Sprintf("Keepalive: %s", cfg.Keepalive))
	} else {
		parts = append(parts, "Keepalive: unbounded")
	}
	switch cfg.Mode {
	case "echo":
		if cfg.Size > 0 {
			parts = append(parts, fmt.Sprintf("Payload: %dB", cfg.Size))
		}
	case "req":
		if cfg.Limit > 0 {
			parts = append(parts, fmt.Sprintf("Limit: %d", cfg.Limit))
		}
	}
	if cfg.Interfaces > 0 {
		parts = append(parts, fmt.Sprintf("Interfaces: %d", cfg.Interfaces))
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
