package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/google/gops/agent"
	"github.com/schollz/progressbar/v3"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/anthonyjamesgoddard/LockFree/internal/stack"
	"github.com/anthonyjamesgoddard/LockFree/internal/testbench"
	"github.com/anthonyjamesgoddard/LockFree/pkg/coarsestack"
	"github.com/anthonyjamesgoddard/LockFree/pkg/config"
	"github.com/anthonyjamesgoddard/LockFree/pkg/finestack"
	"github.com/anthonyjamesgoddard/LockFree/pkg/lockfreestack"
	"github.com/anthonyjamesgoddard/LockFree/pkg/report"
	"github.com/anthonyjamesgoddard/LockFree/pkg/spinstack"
)

// errNotConserved is returned when a run finishes with fewer or more
// reachable elements than pushes.
var errNotConserved = errors.New("pushed elements not conserved")

// Implementation represents a stack implementation.
type Implementation[T any] struct {
	name        string
	description string
	pkgName     string
	features    []string
	newStack    func(backoff lockfreestack.Backoff) stack.PushValidationInterface[T]
}

// hasFeature reports whether the implementation is tagged with feature.
func (impl Implementation[T]) hasFeature(feature string) bool {
	for _, f := range impl.features {
		if f == feature {
			return true
		}
	}
	return false
}

// casRetries returns the failed CAS count for stacks that track it.
func casRetries[T any](s stack.PushValidationInterface[T]) int64 {
	if r, ok := s.(interface{ Retries() int64 }); ok {
		return r.Retries()
	}
	return 0
}

// outputMarkdownTable loads the JSON file and outputs a Markdown table.
func outputMarkdownTable(jsonFile string) error {
	sessions, err := report.LoadSessions(jsonFile)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in %q", jsonFile)
	}
	// Use the last session for the table.
	lastSession := sessions[len(sessions)-1]
	meta := make(map[string]report.Meta)
	for _, impl := range getImplementations[[]int]() {
		meta[impl.name] = report.Meta{PkgName: impl.pkgName, Features: impl.features}
	}
	return report.WriteMarkdownTable(os.Stdout, lastSession, meta)
}

func main() {
	// Flags.
	configFile := flag.String("config", "", "Optional YAML config file; flags override its values")
	testIterations := flag.Int("iter", 5, "Number of test iterations per concurrency setting")
	cpuMaxFlag := flag.Int("cpu", 0, "If non-zero, test only that GOMAXPROCS value; if 0, test common CPU/vCPU values up to runtime.NumCPU()")
	workersFlag := flag.String("workers", "4", "Comma separated worker counts to test, e.g. 1,2,4,8")
	itemsFlag := flag.Int("items", 210000, "Total pushes per run, split evenly across workers")
	payloadFlag := flag.Int("payload", 1000, "Length of the []int pushed each time")
	backoffFlag := flag.String("backoff", "none", "Lock-free CAS backoff: none, spin or sleep")
	implFlag := flag.String("impl", "", "Comma separated package names to run (default all)")
	jsonExport := flag.Bool("json", false, "Export results as JSON to -jsonfile")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from the JSON file and exit")
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to the JSON results file")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	gopsFlag := flag.Bool("gops", false, "Start a gops diagnostics agent for the duration of the run")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logx.MustSetup(logx.LogConf{
		ServiceName: "stackbench",
		Mode:        "console",
		Encoding:    "plain",
		Level:       level,
	})
	logx.DisableStat()

	if *markdownTable {
		if err := outputMarkdownTable(*jsonFile); err != nil {
			fatal(err)
		}
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	// Explicit flags win over the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "iter":
			cfg.Iterations = *testIterations
		case "cpu":
			cfg.CPUs = *cpuMaxFlag
		case "workers":
			workers, err := config.ParseIntList(*workersFlag)
			if err != nil {
				flagErr = err
			}
			cfg.Workers = workers
		case "items":
			cfg.TotalItems = *itemsFlag
		case "payload":
			cfg.PayloadSize = *payloadFlag
		case "backoff":
			cfg.Backoff = *backoffFlag
		case "impl":
			cfg.Implementations = config.ParseNameList(*implFlag)
		}
	})
	if flagErr != nil {
		fatal(flagErr)
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	if *gopsFlag {
		if err := agent.Listen(agent.Options{}); err != nil {
			fatal(fmt.Errorf("start gops agent: %w", err))
		}
		defer agent.Close()
	}

	sessions, err := runBenchmarks(cfg, *progressFlag)
	if err != nil && !errors.Is(err, errNotConserved) {
		fatal(err)
	}

	// If JSON export is requested, append the new sessions to the results file.
	if *jsonExport {
		if err := report.AppendSessions(*jsonFile, sessions); err != nil {
			fatal(err)
		}
		fmt.Printf("\nWrote results to %s\n", *jsonFile)
	}

	if err != nil {
		fatal(err)
	}
}

// runBenchmarks runs every selected implementation against every workload
// for each GOMAXPROCS setting. All sessions gathered are returned even when
// a run breaks conservation, together with errNotConserved.
func runBenchmarks(cfg config.Config, showProgress bool) ([]report.FullReport, error) {
	backoff, err := lockfreestack.ParseBackoff(cfg.Backoff)
	if err != nil {
		return nil, err
	}

	trueCpuCount := runtime.NumCPU()
	cpuSettings := cpuSweep(cfg.CPUs, trueCpuCount)

	var impls []Implementation[[]int]
	for _, impl := range getImplementations[[]int]() {
		if cfg.Selected(impl.pkgName) {
			impls = append(impls, impl)
		}
	}
	if len(impls) == 0 {
		return nil, fmt.Errorf("%w: no implementation matches %v", config.ErrInvalidConfig, cfg.Implementations)
	}

	workloads := cfg.Workloads()
	generator := testbench.IntSlicePayload(cfg.PayloadSize)

	// Calculate total number of tests for progress tracking.
	totalTests := len(cpuSettings) * len(workloads) * cfg.Iterations * len(impls)
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(totalTests,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
		)
		defer bar.Finish()
	}

	logx.Infow("starting benchmark",
		logx.Field("implementations", len(impls)),
		logx.Field("workers", cfg.Workers),
		logx.Field("total_items", cfg.TotalItems),
		logx.Field("payload_size", cfg.PayloadSize),
		logx.Field("backoff", backoff.String()),
		logx.Field("runs", totalTests),
	)

	header := color.New(color.FgCyan, color.Bold)
	var allSessions []report.FullReport
	var runErr error

	// Iterate over the desired GOMAXPROCS settings.
	for _, cpus := range cpuSettings {
		runtime.GOMAXPROCS(cpus)
		sysInfo := report.GatherSystemInfo()
		sysInfo.NumCPU = cpus
		sysInfo.TrueCPU = trueCpuCount
		sysInfo.SimulatedCPUCount = cpus

		header.Printf("\n=============================\n")
		header.Printf("GOMAXPROCS = %d\n", cpus)
		header.Printf("=============================\n")

		var results []report.BenchmarkResult

		for _, wl := range workloads {
			fmt.Printf("  [Workload: workers=%d, items=%d, payload=%d]\n", wl.NumWorkers, wl.TotalItems, cfg.PayloadSize)
			for iteration := 1; iteration <= cfg.Iterations; iteration++ {
				fmt.Printf("    iteration %d/%d\n", iteration, cfg.Iterations)
				for _, impl := range impls {
					runtime.GC()
					s := impl.newStack(backoff)

					pushed, elapsed, err := testbench.RunPushTest(s, wl, generator)
					if err != nil {
						return allSessions, fmt.Errorf("%s: %w", impl.name, err)
					}
					result := report.NewResult(impl.name, wl.NumWorkers, wl.TotalItems, cfg.PayloadSize, pushed, s.Len(), elapsed)
					if impl.hasFeature("Lock-Free") {
						result.CASRetries = casRetries(s)
						result.Backoff = backoff.String()
					}
					results = append(results, result)

					if bar != nil {
						fmt.Printf("\r")
					}

					// Print test result to stdout.
					fmt.Printf("    %s => pushed=%d, len=%d, %.1f ns/push, throughput=%.0f push/s, took=%v\n",
						impl.name, result.NumPushed, result.FinalLen, result.NsPerPush, result.Throughput, elapsed)

					logx.Debugw("run finished",
						logx.Field("impl", impl.pkgName),
						logx.Field("cpus", cpus),
						logx.Field("workers", wl.NumWorkers),
						logx.Field("iteration", iteration),
						logx.Field("elapsed", elapsed.String()),
						logx.Field("cas_retries", result.CASRetries),
					)

					if !result.Conserved() {
						logx.Errorw("conservation violated",
							logx.Field("impl", impl.pkgName),
							logx.Field("workers", wl.NumWorkers),
							logx.Field("pushed", result.NumPushed),
							logx.Field("len", result.FinalLen),
							logx.Field("expected", wl.TotalItems),
						)
						runErr = fmt.Errorf("%s with %d workers: %w", impl.name, wl.NumWorkers, errNotConserved)
					}

					if bar != nil {
						_ = bar.Add(1)
					}
				}
			}
		}

		allSessions = append(allSessions, report.FullReport{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  sysInfo,
			Benchmarks:  results,
		})
	}

	return allSessions, runErr
}

// cpuSweep returns the GOMAXPROCS values to test. A non-zero pinned value is
// capped at the real CPU count.
func cpuSweep(pinned, trueCpuCount int) []int {
	if pinned > 0 {
		return []int{min(pinned, trueCpuCount)}
	}
	// Define the common CPU/vCPU settings.
	commonCPUs := []int{1, 2, 3, 4, 6, 8, 12, 16, 32, 48, 56, 64, 96, 128, 192, 256, 384, 512}
	var cpuSettings []int
	for _, v := range commonCPUs {
		if v <= trueCpuCount {
			cpuSettings = append(cpuSettings, v)
		}
	}
	return cpuSettings
}

func fatal(err error) {
	logx.Errorw("stackbench failed", logx.Field("error", err.Error()))
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// getImplementations enumerates our different stack implementations.
func getImplementations[T any]() []Implementation[T] {
	return []Implementation[T]{
		{
			name:        "CoarseStack",
			pkgName:     "coarsestack",
			description: "A slice-backed stack guarded by a single mutex for every operation. The throughput baseline.",
			features:    []string{"LIFO", "Mutex", "Coarse-Grained"},
			newStack: func(lockfreestack.Backoff) stack.PushValidationInterface[T] {
				return coarsestack.New[T]()
			},
		},
		{
			name:        "FineStack",
			pkgName:     "finestack",
			description: "A linked stack that allocates outside the lock and holds the mutex only for the head swap.",
			features:    []string{"LIFO", "Mutex", "Fine-Grained", "Linked"},
			newStack: func(lockfreestack.Backoff) stack.PushValidationInterface[T] {
				return finestack.New[T]()
			},
		},
		{
			name:        "SpinStack",
			pkgName:     "spinstack",
			description: "A linked stack whose head swap is guarded by a spin lock instead of a mutex.",
			features:    []string{"LIFO", "Spin-Lock", "Fine-Grained", "Linked"},
			newStack: func(lockfreestack.Backoff) stack.PushValidationInterface[T] {
				return spinstack.New[T]()
			},
		},
		{
			name:        "LockFreeStack",
			pkgName:     "lockfreestack",
			description: "A linked stack whose head is only changed by compare-and-swap; pushers never block.",
			features:    []string{"LIFO", "Lock-Free", "CAS", "Linked"},
			newStack: func(backoff lockfreestack.Backoff) stack.PushValidationInterface[T] {
				return lockfreestack.New[T](lockfreestack.WithBackoff(backoff))
			},
		},
	}
}
