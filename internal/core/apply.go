package core

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/melih-ucgun/calswitch/internal/state"
)

// DesiredToggle is one entry of a desired-state file.
type DesiredToggle struct {
	Toggle  `yaml:",inline"`
	Enabled bool   `yaml:"enabled"`
	When    string `yaml:"when,omitempty"`
}

// PlanChange is a toggle whose desired value differs from the visible one.
type PlanChange struct {
	Toggle  Toggle
	Enabled bool
	Action  string
	Diff    string
}

// PlanResult holds the changes needed to reach the desired state.
type PlanResult struct {
	Changes []PlanChange
	Skipped []Toggle
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	// Atomic reverts every successful change when any change fails.
	Atomic bool
	DryRun bool
	// Where filters the desired toggles with an expression.
	Where       string
	Concurrency int
}

// ApplyResult is the outcome of one planned change.
type ApplyResult struct {
	Change   PlanChange
	Outcome  Outcome
	Reverted bool
}

// ApplyReport summarizes an Apply run.
type ApplyReport struct {
	TransactionID string
	Status        string
	Results       []ApplyResult
}

// Failed returns the number of failed changes.
func (r *ApplyReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Status == OutcomeFailure {
			n++
		}
	}
	return n
}

// Plan computes the changes required to reach desired.
func (s *Syncer) Plan(desired []DesiredToggle, where string) (*PlanResult, error) {
	result := &PlanResult{}

	for _, d := range desired {
		if err := d.Toggle.Validate(); err != nil {
			return nil, fmt.Errorf("[%s] %w", d.Toggle.DisplayName(), err)
		}

		ok, err := matches(d, where)
		if err != nil {
			return nil, fmt.Errorf("[%s] condition error: %w", d.Toggle.DisplayName(), err)
		}
		if !ok {
			result.Skipped = append(result.Skipped, d.Toggle)
			continue
		}

		// Calendars missing from the selected list are off.
		current, _ := s.State(d.Toggle.Key())
		before, after := describe(d.Toggle, current.Visible), describe(d.Toggle, d.Enabled)
		if before == after {
			continue
		}
		result.Changes = append(result.Changes, PlanChange{
			Toggle:  d.Toggle,
			Enabled: d.Enabled,
			Action:  actionFor(d.Enabled),
			Diff:    GenerateDiff(before, after),
		})
	}

	return result, nil
}

// Apply drives every planned change through Set semantics and records a
// single transaction for the whole run.
func (s *Syncer) Apply(ctx context.Context, desired []DesiredToggle, opts ApplyOptions) (*ApplyReport, error) {
	plan, err := s.Plan(desired, opts.Where)
	if err != nil {
		return nil, err
	}

	report := &ApplyReport{Status: "planned"}
	if opts.DryRun {
		for _, change := range plan.Changes {
			report.Results = append(report.Results, ApplyResult{Change: change})
		}
		return report, nil
	}
	if len(plan.Changes) == 0 {
		report.Status = string(OutcomeSuccess)
		return report, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		mu        sync.Mutex
		succeeded []int
		firstErr  error
	)
	report.Results = make([]ApplyResult, len(plan.Changes))

	// Failures are collected in the report; the group never short-circuits.
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, change := range plan.Changes {
		i, change := i, change
		g.Go(func() error {
			outcome, err := s.set(ctx, change.Toggle, change.Enabled)
			if err != nil {
				outcome = Failed(err, err.Error())
			}

			mu.Lock()
			defer mu.Unlock()
			report.Results[i] = ApplyResult{Change: change, Outcome: outcome}
			switch outcome.Status {
			case OutcomeSuccess:
				succeeded = append(succeeded, i)
			case OutcomeFailure:
				if firstErr == nil {
					firstErr = outcome.Err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Status = string(OutcomeSuccess)
	if firstErr != nil {
		report.Status = string(OutcomeFailure)
		if opts.Atomic && len(succeeded) > 0 {
			s.logger.Warn(fmt.Sprintf("Apply failed. Reverting %d applied toggles...", len(succeeded)))
			s.revert(ctx, report, succeeded)
			report.Status = "reverted"
		}
	}

	changes := make([]state.TransactionChange, 0, len(report.Results))
	for _, res := range report.Results {
		change := changeFor(res.Change.Toggle, res.Change.Enabled, res.Outcome)
		if res.Reverted {
			change.Status = "reverted"
		}
		changes = append(changes, change)
	}
	report.TransactionID = s.recordTransaction(OutcomeStatus(report.Status), changes)

	if firstErr != nil {
		return report, fmt.Errorf("%d of %d toggles failed: %w", report.Failed(), len(report.Results), firstErr)
	}
	return report, nil
}

// revert undoes successful changes in reverse completion order.
func (s *Syncer) revert(ctx context.Context, report *ApplyReport, succeeded []int) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		res := &report.Results[succeeded[i]]
		t := res.Change.Toggle
		outcome, err := s.set(ctx, t, !res.Change.Enabled)
		if err != nil || !outcome.OK() {
			s.logger.Error(fmt.Sprintf("Failed to revert %s: %s", t.DisplayName(), outcome.Reason))
			continue
		}
		res.Reverted = true
		s.logger.Info(fmt.Sprintf("Reverted %s", t.DisplayName()))
	}
}

func matches(d DesiredToggle, where string) (bool, error) {
	for _, cond := range []string{d.When, where} {
		ok, err := EvaluateCondition(cond, d.Toggle, d.Enabled)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func describe(t Toggle, enabled bool) string {
	return fmt.Sprintf("%s (%s)\nenabled: %t\n", t.DisplayName(), t.Kind, enabled)
}
