package assign

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tidemann/chorewheel/internal/rule"
	"github.com/tidemann/chorewheel/internal/store"
)

// Generator expands a household's active recurring templates into dated
// assignments. Generation is idempotent: the occurrence key
// (template, child-or-none, date) is unique in storage, so re-running any
// window, or running it concurrently, never creates duplicates.
type Generator struct {
	templates   *store.TemplateStore
	assignments *store.AssignmentStore
	logger      *slog.Logger
}

func NewGenerator(ts *store.TemplateStore, as *store.AssignmentStore, logger *slog.Logger) *Generator {
	return &Generator{templates: ts, assignments: as, logger: logger}
}

// GenerationError records one template that could not be expanded for one
// date. Configuration problems land here instead of aborting the batch.
type GenerationError struct {
	TemplateID int64  `json:"template_id"`
	Date       string `json:"date"`
	Message    string `json:"message"`
}

// Summary reports the outcome of one generation run.
type Summary struct {
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Errors  []GenerationError `json:"errors"`
}

// Generate walks each date in [start, start+days) over the household's
// active non-single templates and inserts any missing assignments. Existing
// keys count as skipped. A malformed rule is reported per template and date
// and the walk continues; only a failure to load the template set aborts the
// call. Cost scales with days x templates x roster size; callers bound the
// window (the HTTP layer caps it at 30 days).
func (g *Generator) Generate(householdID int64, start time.Time, days int) (*Summary, error) {
	if days < 1 {
		return nil, fmt.Errorf("day count must be at least 1, got %d", days)
	}

	templates, err := g.templates.ListActiveByHousehold(householdID)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	summary := &Summary{Errors: []GenerationError{}}
	start = startOfDay(start)

	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)

		for _, tpl := range templates {
			r, err := rule.Parse(tpl.RuleSpec)
			if err != nil {
				summary.Errors = append(summary.Errors, generationError(tpl.ID, date, err))
				continue
			}
			if r.Kind == rule.Single {
				continue
			}

			targets, err := rule.ResolveTargets(r, date)
			if err != nil {
				summary.Errors = append(summary.Errors, generationError(tpl.ID, date, err))
				continue
			}

			for _, childID := range targets {
				created, err := g.assignments.InsertIfAbsent(householdID, tpl.ID, childID, date)
				if err != nil {
					summary.Errors = append(summary.Errors, generationError(tpl.ID, date, err))
					continue
				}
				if created {
					summary.Created++
				} else {
					summary.Skipped++
				}
			}
		}
	}

	g.logger.Info("generated assignments",
		"household_id", householdID,
		"start", start.Format("2006-01-02"),
		"days", days,
		"created", summary.Created,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func generationError(templateID int64, date time.Time, err error) GenerationError {
	return GenerationError{
		TemplateID: templateID,
		Date:       date.Format("2006-01-02"),
		Message:    err.Error(),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
