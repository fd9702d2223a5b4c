package crosspack

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

type Phase string

const (
	PhaseBuild   Phase = "build"
	PhasePackage Phase = "package"
)

type Status int

const (
	Skipped Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// TargetResult is the outcome of one phase for one target.
type TargetResult struct {
	Target   Target
	Phase    Phase
	Status   Status
	Artifact string
	Duration time.Duration
	Err      error
}

// Report holds results in matrix order, whatever the completion order was.
type Report struct {
	Results []TargetResult
}

func (r *Report) Failed() []TargetResult {
	var failed []TargetResult
	for _, res := range r.Results {
		if res.Status == Failed {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) Artifacts() []string {
	var artifacts []string
	for _, res := range r.Results {
		if res.Status == Succeeded {
			artifacts = append(artifacts, res.Artifact)
		}
	}
	return artifacts
}

// Err joins the errors of every failed target, nil when none failed.
func (r *Report) Err() error {
	var failures []error
	for _, res := range r.Failed() {
		failures = append(failures, res.Err)
	}
	return errors.Join(failures...)
}

type targetFunc func(ctx context.Context, t Target) (string, error)

// cancelled reports whether err comes from a cancelled context rather than
// from the target itself.
func cancelled(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}

// forEachTarget runs fn once per target on at most parallelism goroutines.
// With failFast, the first failure cancels the context given to fn. Targets
// not started yet, and targets whose fn returns because of that cancellation,
// stay Skipped.
func forEachTarget(ctx context.Context, phase Phase, targets []Target, parallelism int, failFast bool, sw *Stopwatch, fn targetFunc) *Report {
	results := make([]TargetResult, len(targets))
	for i, t := range targets {
		results[i] = TargetResult{Target: t, Phase: phase, Status: Skipped}
	}

	if parallelism < 1 {
		parallelism = 1
	}
	g := &errgroup.Group{}
	runCtx := ctx
	if failFast {
		g, runCtx = errgroup.WithContext(ctx)
	}
	g.SetLimit(parallelism)

	for i := range targets {
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			res := &results[i]
			label := string(phase) + " " + res.Target.String()

			sw.Start(label)
			artifact, err := fn(runCtx, res.Target)
			res.Duration = sw.Stop(label)
			if err != nil {
				// stopped by another target's failure or by an interrupt
				if runCtx.Err() != nil && cancelled(err) {
					return nil
				}
				res.Status = Failed
				res.Err = err
				if failFast {
					return err
				}
				return nil
			}
			res.Status = Succeeded
			res.Artifact = artifact
			return nil
		})
	}
	_ = g.Wait()

	return &Report{Results: results}
}
