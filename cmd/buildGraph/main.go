package main

import (
	"flag"
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/anthonyjamesgoddard/LockFree/pkg/report"
)

// workerStats holds "5%-avg-min", median, and "5%-avg-max" for one worker count.
type workerStats struct {
	x      float64 // category index plus per-implementation offset
	orig   float64 // worker count
	min    float64 // "average of bottom 5%"
	median float64
	max    float64 // "average of top 5%"
}

// statsPoints implements XYer and YErrorer for workerStats, so we can plot lines + error bars.
type statsPoints []workerStats

func (s statsPoints) Len() int                { return len(s) }
func (s statsPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s statsPoints) YError(i int) (low, high float64) {
	return s[i].median - s[i].min, s[i].max - s[i].median
}

// categoryTicks implements a categorical X-axis: 0,1,2,... => labels for worker counts.
type categoryTicks struct {
	positions []float64
	labels    []string
}

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, pos := range ct.positions {
		if pos >= min && pos <= max {
			ticks = append(ticks, plot.Tick{Value: pos, Label: ct.labels[i]})
		}
	}
	return ticks
}

// groupByCPU groups ns/push samples by CPU count -> implementation -> workers.
// Runs that broke conservation are left out.
func groupByCPU(sessions []report.FullReport) map[int]map[string]map[float64][]float64 {
	pointsByCPU := make(map[int]map[string]map[float64][]float64)
	for _, session := range sessions {
		cpus := session.SystemInfo.SimulatedCPUCount
		if cpus == 0 {
			cpus = session.SystemInfo.NumCPU
		}
		if _, ok := pointsByCPU[cpus]; !ok {
			pointsByCPU[cpus] = make(map[string]map[float64][]float64)
		}
		implMap := pointsByCPU[cpus]
		for _, b := range session.Benchmarks {
			if b.NumPushed == 0 || !b.Conserved() {
				continue
			}
			if _, ok := implMap[b.Implementation]; !ok {
				implMap[b.Implementation] = make(map[float64][]float64)
			}
			x := float64(b.NumWorkers)
			implMap[b.Implementation][x] = append(implMap[b.Implementation][x], b.NsPerPush)
		}
	}
	return pointsByCPU
}

func main() {
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON file containing test sessions")
	outputPrefix := flag.String("out", "benchmark_graph", "Output graph image filename prefix")
	flag.Parse()

	sessions, err := report.LoadSessions(*jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading sessions: %v\n", err)
		os.Exit(1)
	}

	for cpus, implMap := range groupByCPU(sessions) {
		p := newDarkPlot(fmt.Sprintf("Push cost (5%%-avg-min / Median / 5%%-avg-max) vs. Workers for %d CPU(s)", cpus))

		// Build union of worker counts for this CPU group.
		workerSet := make(map[float64]struct{})
		for _, implData := range implMap {
			for w := range implData {
				workerSet[w] = struct{}{}
			}
		}
		var workerValues []float64
		for w := range workerSet {
			workerValues = append(workerValues, w)
		}
		sort.Float64s(workerValues)

		// Map worker count => category index.
		mapping := make(map[float64]float64)
		var positions []float64
		var labels []string
		for i, w := range workerValues {
			mapping[w] = float64(i)
			positions = append(positions, float64(i))
			labels = append(labels, strconv.FormatFloat(w, 'f', -1, 64))
		}
		p.X.Tick.Marker = categoryTicks{positions: positions, labels: labels}

		// Sort implementations alphabetically for consistent legend ordering.
		var implNames []string
		for implName := range implMap {
			implNames = append(implNames, implName)
		}
		sort.Strings(implNames)

		colors := plotutil.SoftColors
		shapes := []draw.GlyphDrawer{
			draw.CircleGlyph{},
			draw.SquareGlyph{},
			draw.TriangleGlyph{},
			draw.CrossGlyph{},
			draw.PlusGlyph{},
		}

		// Slight offset so each implementation is visually separated.
		offsetRange := 0.4
		offsetStep := offsetRange / float64(len(implNames))
		startOffset := -offsetRange/2 + offsetStep/2

		for i, impl := range implNames {
			stats := buildStats(implMap[impl])
			if len(stats) == 0 {
				continue
			}
			for j := range stats {
				stats[j].x = mapping[stats[j].orig] + startOffset + float64(i)*offsetStep
			}
			sort.Slice(stats, func(a, b int) bool { return stats[a].x < stats[b].x })
			sp := statsPoints(stats)

			line, err := plotter.NewLine(sp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating line: %v\n", err)
				continue
			}
			line.Color = colors[i%len(colors)]

			points, err := plotter.NewScatter(sp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating scatter: %v\n", err)
				continue
			}
			points.GlyphStyle.Radius = vg.Points(5)
			points.Color = colors[i%len(colors)]
			points.Shape = shapes[i%len(shapes)]

			yErrBars, err := plotter.NewYErrorBars(sp)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating error bars: %v\n", err)
				continue
			}
			yErrBars.Color = colors[i%len(colors)]

			p.Add(line, points, yErrBars)
			p.Legend.Add(impl, line, points)
		}

		filename := fmt.Sprintf("%s_%d.png", *outputPrefix, cpus)
		if err := p.Save(12*vg.Inch, 9*vg.Inch, filename); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving plot for %d CPU(s): %v\n", cpus, err)
			continue
		}
		fmt.Printf("Graph for %d CPU(s) saved to %s\n", cpus, filename)
	}
}

// newDarkPlot returns a plot with the dark theme and log-spaced ns ticks on Y.
func newDarkPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Workers"
	p.Y.Label.Text = "Time per Push (ns)"

	p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p.Title.TextStyle.Color = white
	p.X.Label.TextStyle.Color = white
	p.Y.Label.TextStyle.Color = white
	p.X.Color = white
	p.Y.Color = white
	p.X.Tick.Label.Color = white
	p.Y.Tick.Label.Color = white
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Color = white

	p.Y.Tick.Marker = plot.TickerFunc(logSpacedTicks)
	p.Add(plotter.NewGrid())
	return p
}

// logSpacedTicks places roughly one tick every 30px of a 9 inch plot,
// evenly spaced in log10.
func logSpacedTicks(min, max float64) []plot.Tick {
	const pxHeight = 648.0
	const pxSpacing = 30.0
	nTicks := pxHeight / pxSpacing

	if min <= 0 {
		min = 1e-9
	}
	if max <= min {
		return []plot.Tick{{Value: min, Label: formatNs(min)}}
	}
	start := math.Log10(min)
	end := math.Log10(max)
	step := (end - start) / nTicks

	var ticks []plot.Tick
	for i := 0.0; i <= nTicks; i++ {
		y := math.Pow(10, start+i*step)
		ticks = append(ticks, plot.Tick{Value: y, Label: formatNs(y)})
	}
	return ticks
}

// buildStats computes "average of bottom 5%", median, and "average of top 5%".
func buildStats(byWorkers map[float64][]float64) []workerStats {
	var out []workerStats
	for x, vals := range byWorkers {
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out = append(out, workerStats{
			x:      x,
			orig:   x,
			min:    averageOfRange(vals, 0.0, 0.05),
			median: report.Median(vals),
			max:    averageOfRange(vals, 0.95, 1.0),
		})
	}
	return out
}

// averageOfRange returns the average of sortedVals in [startFrac, endFrac] of its length.
// E.g. averageOfRange(vals, 0, 0.05) is the average of the bottom 5%.
func averageOfRange(sortedVals []float64, startFrac, endFrac float64) float64 {
	n := len(sortedVals)
	if n == 0 {
		return 0
	}
	startIndex := max(int(float64(n)*startFrac), 0)
	endIndex := min(int(float64(n)*endFrac), n)
	if startIndex >= endIndex {
		// fallback to median if 5% slice is too small
		return report.Median(sortedVals)
	}
	sum := 0.0
	for i := startIndex; i < endIndex; i++ {
		sum += sortedVals[i]
	}
	return sum / float64(endIndex-startIndex)
}

// formatNs nicely formats a nanoseconds value in ns, µs, ms, or s.
func formatNs(ns float64) string {
	switch {
	case ns < 1e3:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.1fµs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.1fms", ns/1e6)
	default:
		return fmt.Sprintf("%.2fs", ns/1e9)
	}
}
