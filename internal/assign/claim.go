package assign

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tidemann/chorewheel/internal/model"
	"github.com/tidemann/chorewheel/internal/rule"
	"github.com/tidemann/chorewheel/internal/store"
)

// Arbitrator handles single-claim tasks: a candidate pool races to accept,
// and exactly one accept converts into the template's one assignment.
// Eligibility checks happen before any lock; the check-and-create itself is
// a locked transaction in the store.
type Arbitrator struct {
	templates   *store.TemplateStore
	children    *store.ChildStore
	assignments *store.AssignmentStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewArbitrator(ts *store.TemplateStore, cs *store.ChildStore, as *store.AssignmentStore, logger *slog.Logger) *Arbitrator {
	return &Arbitrator{
		templates:   ts,
		children:    cs,
		assignments: as,
		logger:      logger,
		now:         time.Now,
	}
}

// singleRule loads the template and its parsed rule, rejecting anything a
// claim operation may not touch. Templates outside the caller's household
// look exactly like missing ones.
func (a *Arbitrator) singleRule(householdID, templateID int64) (*model.TaskTemplate, rule.Rule, error) {
	tpl, err := a.templates.GetByID(templateID)
	if err != nil {
		return nil, rule.Rule{}, fmt.Errorf("get template: %w", err)
	}
	if tpl == nil || tpl.HouseholdID != householdID || !tpl.Active {
		return nil, rule.Rule{}, ErrTemplateNotFound
	}

	r, err := rule.Parse(tpl.RuleSpec)
	if err != nil {
		return nil, rule.Rule{}, fmt.Errorf("template %d has malformed rule: %w", templateID, err)
	}
	if r.Kind != rule.Single {
		return nil, rule.Rule{}, ErrNotSingle
	}
	return tpl, r, nil
}

func isCandidate(r rule.Rule, childID int64) bool {
	for _, id := range r.Children {
		if id == childID {
			return true
		}
	}
	return false
}

// checkActor verifies the acting child exists and lives in the template's
// household.
func (a *Arbitrator) checkActor(tpl *model.TaskTemplate, childID int64) error {
	child, err := a.children.GetByID(childID)
	if err != nil {
		return fmt.Errorf("get child: %w", err)
	}
	if child == nil || child.HouseholdID != tpl.HouseholdID {
		return ErrChildNotFound
	}
	return nil
}

// Accept claims the task for the child. Exactly one accept per template ever
// succeeds; losers of the race get ErrAlreadyClaimed.
func (a *Arbitrator) Accept(householdID, templateID, childID int64) (*model.Assignment, error) {
	tpl, r, err := a.singleRule(householdID, templateID)
	if err != nil {
		return nil, err
	}
	if err := a.checkActor(tpl, childID); err != nil {
		return nil, err
	}
	if !isCandidate(r, childID) {
		return nil, ErrNotCandidate
	}

	assignment, err := a.assignments.ClaimSingle(templateID, childID, tpl.HouseholdID, a.now())
	if err != nil {
		return nil, fmt.Errorf("claim task %d: %w", templateID, err)
	}
	if assignment == nil {
		return nil, ErrAlreadyClaimed
	}

	a.logger.Info("task claimed", "template_id", templateID, "child_id", childID)
	return assignment, nil
}

// Decline records that the child passed on the task. Declining twice is a
// no-op, and a decline never touches an existing assignment.
func (a *Arbitrator) Decline(householdID, templateID, childID int64) error {
	tpl, r, err := a.singleRule(householdID, templateID)
	if err != nil {
		return err
	}
	if err := a.checkActor(tpl, childID); err != nil {
		return err
	}
	if !isCandidate(r, childID) {
		return ErrNotCandidate
	}

	if _, err := a.assignments.RecordDecline(templateID, childID, tpl.HouseholdID); err != nil {
		return fmt.Errorf("decline task %d: %w", templateID, err)
	}
	return nil
}

// UndoDecline removes the child's declined response, restoring eligibility.
// Returns false when there is nothing to undo, including when the task has
// already been claimed.
func (a *Arbitrator) UndoDecline(householdID, templateID, childID int64) (bool, error) {
	if _, _, err := a.singleRule(householdID, templateID); err != nil {
		return false, err
	}

	existing, err := a.assignments.GetForTemplate(templateID)
	if err != nil {
		return false, fmt.Errorf("check existing claim: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	removed, err := a.assignments.DeleteDecline(templateID, childID)
	if err != nil {
		return false, fmt.Errorf("undo decline for task %d: %w", templateID, err)
	}
	return removed, nil
}

// ListAvailable returns the single-claim templates the child could still
// accept: active, child in the candidate pool, unclaimed, and not declined
// by that child. The child must belong to the caller's household.
func (a *Arbitrator) ListAvailable(householdID, childID int64) ([]model.TaskTemplate, error) {
	child, err := a.children.GetByID(childID)
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	if child == nil || child.HouseholdID != householdID {
		return nil, ErrChildNotFound
	}

	declined := map[int64]bool{}
	responses, err := a.assignments.ListResponsesByChild(childID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	for _, resp := range responses {
		if resp.Response == model.ResponseDeclined {
			declined[resp.TemplateID] = true
		}
	}

	return a.filterSingles(householdID, func(tpl model.TaskTemplate, r rule.Rule) (bool, error) {
		if !isCandidate(r, childID) || declined[tpl.ID] {
			return false, nil
		}
		return a.unclaimed(tpl.ID)
	})
}

// ListFailed returns single-claim templates every candidate has declined
// while the task was still unclaimed.
func (a *Arbitrator) ListFailed(householdID int64) ([]model.TaskTemplate, error) {
	return a.filterSingles(householdID, func(tpl model.TaskTemplate, r rule.Rule) (bool, error) {
		open, err := a.unclaimed(tpl.ID)
		if err != nil || !open {
			return false, err
		}

		responses, err := a.assignments.ListResponsesByTemplate(tpl.ID)
		if err != nil {
			return false, err
		}
		declined := map[int64]bool{}
		for _, resp := range responses {
			if resp.Response == model.ResponseDeclined {
				declined[resp.ChildID] = true
			}
		}
		for _, id := range r.Children {
			if !declined[id] {
				return false, nil
			}
		}
		return true, nil
	})
}

// ListExpired returns single-claim templates whose deadline has passed with
// no claim.
func (a *Arbitrator) ListExpired(householdID int64) ([]model.TaskTemplate, error) {
	today := startOfDay(a.now())
	return a.filterSingles(householdID, func(tpl model.TaskTemplate, r rule.Rule) (bool, error) {
		if tpl.Deadline == nil || !startOfDay(*tpl.Deadline).Before(today) {
			return false, nil
		}
		return a.unclaimed(tpl.ID)
	})
}

// CandidateStatus pairs a candidate with their recorded response, if any.
type CandidateStatus struct {
	ChildID  int64  `json:"child_id"`
	Response string `json:"response,omitempty"`
}

// ListCandidates returns the template's candidate pool with each child's
// response so far.
func (a *Arbitrator) ListCandidates(householdID, templateID int64) ([]CandidateStatus, error) {
	_, r, err := a.singleRule(householdID, templateID)
	if err != nil {
		return nil, err
	}

	responses, err := a.assignments.ListResponsesByTemplate(templateID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	byChild := map[int64]string{}
	for _, resp := range responses {
		byChild[resp.ChildID] = resp.Response
	}

	statuses := make([]CandidateStatus, 0, len(r.Children))
	for _, id := range r.Children {
		statuses = append(statuses, CandidateStatus{ChildID: id, Response: byChild[id]})
	}
	return statuses, nil
}

func (a *Arbitrator) unclaimed(templateID int64) (bool, error) {
	existing, err := a.assignments.GetForTemplate(templateID)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

// filterSingles applies keep to every active single-claim template in the
// household. Templates with malformed rules are skipped rather than failing
// the whole listing.
func (a *Arbitrator) filterSingles(householdID int64, keep func(model.TaskTemplate, rule.Rule) (bool, error)) ([]model.TaskTemplate, error) {
	templates, err := a.templates.ListActiveByHousehold(householdID)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	result := []model.TaskTemplate{}
	for _, tpl := range templates {
		r, err := rule.Parse(tpl.RuleSpec)
		if err != nil || r.Kind != rule.Single {
			continue
		}
		ok, err := keep(tpl, r)
		if err != nil {
			return nil, fmt.Errorf("template %d: %w", tpl.ID, err)
		}
		if ok {
			result = append(result, tpl)
		}
	}
	return result, nil
}
