// Package main provides a performance benchmarking tool for the miklabel CLI.
// It measures prepare times across raw exports of different sizes and both
// dataset kinds, running each test multiple times, treating the first
// successful cached run as cold and averaging the rest as warm, and
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - miklabel binary installed and available in PATH
// - Raw exports (*.tsv) in the specified export directory
//
// Usage: go run benchmark/main.go [export-dir]
//
//	export-dir: Directory containing raw issue and pull request exports
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Export      string
	Kind        string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	ExportDir   string
	WorkDir     string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Exports     []string
	Kinds       []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [export-dir]\n", os.Args[0])
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "miklabel-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	config := BenchmarkConfig{
		ExportDir:   os.Args[1],
		WorkDir:     workDir,
		Timeout:     5 * time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Kinds:       []string{"issues", "prs"},
	}

	if err := checkPrerequisites(&config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	// Clear the cache using miklabel cache clear
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("miklabel", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the miklabel binary and raw exports exist
func checkPrerequisites(config *BenchmarkConfig) error {
	if _, err := exec.LookPath("miklabel"); err != nil {
		return fmt.Errorf("miklabel binary not found in PATH")
	}

	exports, err := filepath.Glob(filepath.Join(config.ExportDir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(exports) == 0 {
		return fmt.Errorf("no raw exports found in %s", config.ExportDir)
	}
	sort.Strings(exports)
	config.Exports = exports
	return nil
}

// runBenchmarks executes all benchmark tests across configured exports
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d exports, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Exports), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, export := range config.Exports {
		fmt.Printf("Benchmarking %s\n", filepath.Base(export))
		for _, kind := range config.Kinds {
			results = append(results, runBenchmarkSuite(config, export, kind))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for one export and kind
func runBenchmarkSuite(config BenchmarkConfig, export, kind string) BenchmarkResult {
	name := filepath.Base(export)
	fmt.Printf("Running prepare %s on %s\n", kind, name)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, export, kind, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Export:      name,
		Kind:        kind,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes prepare multiple times with the specified cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, export, kind, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	stem := strings.TrimSuffix(filepath.Base(export), filepath.Ext(export))
	args := []string{
		"prepare", kind, export,
		"--cache-backend", cacheBackend,
		"--train", filepath.Join(config.WorkDir, stem+"-train.tsv"),
		"--validate", filepath.Join(config.WorkDir, stem+"-validate.tsv"),
		"--test", filepath.Join(config.WorkDir, stem+"-test.tsv"),
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("miklabel", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Prepared in") &&
		strings.Contains(outputStr, "Cache backend")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/miklabel_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"export", "kind", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Export, result.Kind, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	for _, kind := range config.Kinds {
		fmt.Printf("Prepare %s:\n", kind)
		for _, result := range results {
			if result.Kind == kind {
				fmt.Printf("  %-24s: No-cache: %s, Cold: %s, Warm: %s\n", result.Export, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}

	fmt.Printf("Benchmark script completed successfully\n")
}
