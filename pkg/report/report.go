package report

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// BenchmarkResult holds results for one timed run.
type BenchmarkResult struct {
	Implementation string  `json:"implementation"`
	NumWorkers     int     `json:"num_workers"`
	TotalItems     int     `json:"total_items"`
	PayloadSize    int     `json:"payload_size"`
	NumPushed      int64   `json:"num_pushed"`          // completed Push calls
	FinalLen       int     `json:"final_len"`           // reachable elements after join
	ActualElapsed  string  `json:"actual_elapsed"`      // measured time, e.g. "1.2s"
	ElapsedNs      int64   `json:"elapsed_ns"`          // same, in nanoseconds
	NsPerPush      float64 `json:"ns_per_push"`         // elapsed / pushed
	Throughput     float64 `json:"throughput_push_sec"` // pushed / second
	CASRetries     int64   `json:"cas_retries,omitempty"`
	Backoff        string  `json:"backoff,omitempty"`
	Timestamp      int64   `json:"timestamp"`
	GoVersion      string  `json:"go_version"`
}

// NewResult fills the derived fields of a BenchmarkResult.
func NewResult(impl string, workers, totalItems, payloadSize int, pushed int64, finalLen int, elapsed time.Duration) BenchmarkResult {
	r := BenchmarkResult{
		Implementation: impl,
		NumWorkers:     workers,
		TotalItems:     totalItems,
		PayloadSize:    payloadSize,
		NumPushed:      pushed,
		FinalLen:       finalLen,
		ActualElapsed:  elapsed.String(),
		ElapsedNs:      elapsed.Nanoseconds(),
		Timestamp:      time.Now().Unix(),
		GoVersion:      runtime.Version(),
	}
	if pushed > 0 {
		r.NsPerPush = float64(elapsed.Nanoseconds()) / float64(pushed)
	}
	if elapsed > 0 {
		r.Throughput = float64(pushed) / elapsed.Seconds()
	}
	return r
}

// Conserved reports whether every push is reachable after the run.
func (r BenchmarkResult) Conserved() bool {
	return r.NumPushed == int64(r.TotalItems) && r.FinalLen == r.TotalItems
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// GatherSystemInfo collects basic CPU and memory details. Probe failures
// leave the corresponding fields empty.
func GatherSystemInfo() SystemInfo {
	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      runtime.NumCPU(),
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      runtime.GOARCH,
		TotalMemory: totalMemory,
	}
}

// LoadSessions reads all sessions stored in a results file.
func LoadSessions(path string) ([]FullReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	var sessions []FullReport
	if len(data) == 0 {
		return sessions, nil
	}
	if err := sonic.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return sessions, nil
}

// AppendSessions appends sessions to the results file, creating it if it
// does not exist yet.
func AppendSessions(path string, sessions []FullReport) error {
	previous, err := LoadSessions(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	updated := append(previous, sessions...)
	data, err := sonic.ConfigStd.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

// Meta describes an implementation in the summary table.
type Meta struct {
	PkgName  string
	Features []string
}

// WriteMarkdownTable writes a summary of one session, one row per
// implementation and worker count, fastest first. Repeated iterations are
// reduced to their median ns/push.
func WriteMarkdownTable(w io.Writer, session FullReport, meta map[string]Meta) error {
	type key struct {
		impl    string
		workers int
	}
	samples := make(map[key][]float64)
	for _, b := range session.Benchmarks {
		k := key{b.Implementation, b.NumWorkers}
		samples[k] = append(samples[k], b.NsPerPush)
	}

	type tableRow struct {
		implementation string
		pkgName        string
		features       string
		workers        int
		nsPerPush      float64
	}
	var rows []tableRow
	for k, vals := range samples {
		sort.Float64s(vals)
		m := meta[k.impl]
		rows = append(rows, tableRow{
			implementation: k.impl,
			pkgName:        m.PkgName,
			features:       strings.Join(m.Features, ", "),
			workers:        k.workers,
			nsPerPush:      Median(vals),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].workers != rows[j].workers {
			return rows[i].workers < rows[j].workers
		}
		return rows[i].nsPerPush < rows[j].nsPerPush
	})

	const header = "## Last Session Benchmark Summary\n\n" +
		"| Implementation           | Package         | Features                    | Workers | ns/push (median) |\n" +
		"|--------------------------|-----------------|-----------------------------|---------|------------------|\n"
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "| %-24s | %-15s | %-27s | %7d | %16.1f |\n",
			r.implementation, r.pkgName, r.features, r.workers, r.nsPerPush); err != nil {
			return err
		}
	}
	return nil
}

// Median returns the median of an already sorted slice, or 0 if it is empty.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}
