package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/history"
)

// ErrHistoryDisabled is returned when the ledger is switched off.
var ErrHistoryDisabled = errors.New("job history is disabled (history.enabled: false)")

// runHistory lists recorded jobs or the interchange artifacts kept after
// packaging failures.
func runHistory(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseHistoryFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(flags.common, env, nil)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return ErrHistoryDisabled
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch {
	case flags.clean:
		return cleanRetained(ctx, store, env.Stdout, flags.common.quiet)
	case flags.retained:
		records, err := store.Retained(ctx)
		if err != nil {
			return err
		}
		printRetained(env.Stdout, records)
	default:
		records, err := store.List(ctx, flags.limit)
		if err != nil {
			return err
		}
		printJobs(env.Stdout, records)
	}
	return nil
}

// cleanRetained deletes kept interchange files and clears them in the ledger.
func cleanRetained(ctx context.Context, store *history.Store, w io.Writer, quiet bool) error {
	records, err := store.Retained(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, rec := range records {
		if err := os.Remove(rec.Retained); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		if err := store.Forget(ctx, rec.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		if !quiet {
			fmt.Fprintf(w, "Removed %s\n", rec.Retained)
		}
	}
	if !quiet && len(records) == 0 {
		fmt.Fprintln(w, "No retained interchange artifacts")
	}
	return errors.Join(errs...)
}

func printJobs(w io.Writer, records []doc2pub.JobRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No jobs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATE\tINPUT\tOUTPUT")
	for _, r := range records {
		state := r.State
		if r.FailedStage != "" {
			state += " (" + r.FailedStage + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), state, r.Input, r.Output)
	}
	_ = tw.Flush()
}

func printRetained(w io.Writer, records []doc2pub.JobRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No retained interchange artifacts")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s\n  input: %s\n  failed: %s at %s\n", r.Retained, r.Input,
			r.FailedStage, r.FinishedAt.Local().Format(time.DateTime))
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", firstLine(r.Error))
		}
	}
}
