package main

import (
	"context"
	"errors"
	"fmt"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/config"
	"github.com/alnah/go-doc2pub/internal/hints"
)

// conversionJob is one input with its optional output hint.
type conversionJob struct {
	Input  string
	Output string
}

// runConvert converts one or more documents.
//
// Forms:
//
//	doc2pub convert <input> [output]
//	doc2pub convert <input>... [-o dir] [-w workers]
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		return fmt.Errorf("%w%s", ErrNoInput, hints.ForListInputs())
	}

	jobs, outputDir := planJobs(positional, flags.output)
	merge := func(cfg *config.Config) {
		flags.pipeline.apply(cfg)
		setIf(&cfg.Directories.Output, outputDir)
		if flags.workers > 0 {
			cfg.Workers = flags.workers
		}
	}

	a, err := newApp(flags.common, env, merge)
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := a.converter(nil)
	if err != nil {
		return err
	}

	results := convertBatch(ctx, conv, jobs, doc2pub.ResolvePoolSize(a.cfg.Workers))
	if failed := printResults(results, flags.common, env); failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrConversionFailed, failed, len(results))
	}
	return nil
}

// planJobs maps positional arguments to jobs. Two arguments where the
// second is not a supported input are read as <input> <output>; otherwise
// every argument is an input and output names an output directory.
func planJobs(positional []string, output string) ([]conversionJob, string) {
	if len(positional) == 2 && output == "" && doc2pub.Detect(positional[1]) == doc2pub.FormatUnknown {
		return []conversionJob{{Input: positional[0], Output: positional[1]}}, ""
	}
	if len(positional) == 1 {
		return []conversionJob{{Input: positional[0], Output: output}}, ""
	}

	jobs := make([]conversionJob, len(positional))
	for i, p := range positional {
		jobs[i] = conversionJob{Input: p}
	}
	return jobs, output
}

// describeError renders err with the operator hints it calls for.
func describeError(err error) string {
	msg := err.Error()

	var se *doc2pub.StageError
	if errors.As(err, &se) && se.Interchange != "" {
		msg += hints.ForRetainedInterchange(se.Interchange)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg += hints.ForTimeout()
	}
	if errors.Is(err, doc2pub.ErrToolNotFound) {
		msg += hints.ForDoctor()
	}
	return msg
}
