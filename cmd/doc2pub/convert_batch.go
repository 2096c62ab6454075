package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	doc2pub "github.com/alnah/go-doc2pub"
)

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath string
	Artifact  *doc2pub.Artifact
	Err       error
	Duration  time.Duration
}

// convertBatch converts jobs concurrently with at most workers in flight.
// Results keep the order of jobs.
func convertBatch(ctx context.Context, conv Converter, jobs []conversionJob, workers int) []ConversionResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(max(workers, 1), len(jobs))
	results := make([]ConversionResult, len(jobs))
	queue := make(chan int, len(jobs))
	var wg sync.WaitGroup

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{InputPath: jobs[idx].Input, Err: ctx.Err()}
					continue
				}
				results[idx] = convertOne(ctx, conv, jobs[idx])
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

func convertOne(ctx context.Context, conv Converter, job conversionJob) ConversionResult {
	start := time.Now()
	art, err := conv.Convert(ctx, job.Input, job.Output)
	return ConversionResult{
		InputPath: job.Input,
		Artifact:  art,
		Err:       err,
		Duration:  time.Since(start),
	}
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs conversion results and returns the failure count.
func printResults(results []ConversionResult, common commonFlags, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %s\n", r.InputPath, describeError(r.Err))
			continue
		}

		if common.quiet {
			continue
		}

		if common.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.InputPath, r.Artifact.Path, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.Artifact.Path)
		}
	}

	if !common.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}
