// Package workflow holds the pure decision logic of the approval engine:
// step status transitions, current-step computation and asset status
// derivation. Persistence and locking live in the approval service.
package workflow

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/framepoint/framepoint-backend/internal/platform/apierr"
)

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

type StepStatus string

const (
	StepPending             StepStatus = "pending"
	StepApproved            StepStatus = "approved"
	StepApprovedWithChanges StepStatus = "approved_with_changes"
	StepChangesRequested    StepStatus = "changes_requested"
	StepRejected            StepStatus = "rejected"
)

type AssetStatus string

const (
	AssetInReview     AssetStatus = "in_review"
	AssetApproved     AssetStatus = "approved"
	AssetNeedsChanges AssetStatus = "needs_changes"
)

// StepView is the slice of step state the engine needs; the service maps its
// persisted rows into this.
type StepView struct {
	StepOrder int
	Status    StepStatus
}

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeSequential:
		return ModeSequential, nil
	case ModeParallel:
		return ModeParallel, nil
	default:
		return "", fmt.Errorf("unknown workflow mode %q", raw)
	}
}

func ParseDecision(raw string) (StepStatus, error) {
	switch StepStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StepApproved:
		return StepApproved, nil
	case StepApprovedWithChanges:
		return StepApprovedWithChanges, nil
	case StepChangesRequested:
		return StepChangesRequested, nil
	case StepRejected:
		return StepRejected, nil
	default:
		return "", fmt.Errorf("invalid decision %q", raw)
	}
}

// IsTerminal reports whether a step status can no longer change. Every
// status except pending is terminal; steps are never re-opened.
func IsTerminal(s StepStatus) bool {
	return s != StepPending
}

func approvedLike(s StepStatus) bool {
	return s == StepApproved || s == StepApprovedWithChanges
}

// CurrentStepOrder computes the display-active step: the lowest pending
// step_order in sequential mode. Parallel workflows have no single current
// step, and neither does a fully decided sequential one; both return false.
func CurrentStepOrder(mode Mode, steps []StepView) (int, bool) {
	if mode != ModeSequential {
		return 0, false
	}
	current := 0
	found := false
	for _, s := range steps {
		if s.Status != StepPending {
			continue
		}
		if !found || s.StepOrder < current {
			current = s.StepOrder
			found = true
		}
	}
	return current, found
}

// DeriveAssetStatus applies the aggregate rule after one step lands on
// `decided`. The returned bool is false when the decision leaves the asset
// status untouched — notably for rejected, which deliberately triggers no
// automatic transition.
func DeriveAssetStatus(decided StepStatus, all []StepView) (AssetStatus, bool) {
	switch {
	case decided == StepChangesRequested:
		return AssetNeedsChanges, true
	case approvedLike(decided):
		for _, s := range all {
			if !approvedLike(s.Status) {
				return "", false
			}
		}
		return AssetApproved, true
	default:
		return "", false
	}
}

// StepSpec is caller input for creating or replacing a workflow's steps.
type StepSpec struct {
	RoleLabel     string
	AssigneeEmail string
	StepOrder     int
}

// ValidateSteps rejects step lists before any write: role label and assignee
// are required on every step, and orders must not collide.
func ValidateSteps(specs []StepSpec) error {
	if len(specs) == 0 {
		return apierr.New(http.StatusBadRequest, "steps_required", fmt.Errorf("workflow needs at least one step"))
	}
	seen := make(map[int]bool, len(specs))
	for i, s := range specs {
		if strings.TrimSpace(s.RoleLabel) == "" {
			return apierr.New(http.StatusBadRequest, "role_label_required", fmt.Errorf("step %d: role_label is required", i+1))
		}
		if strings.TrimSpace(s.AssigneeEmail) == "" {
			return apierr.New(http.StatusBadRequest, "assignee_email_required", fmt.Errorf("step %d: assignee_email is required", i+1))
		}
		if seen[s.StepOrder] {
			return apierr.New(http.StatusBadRequest, "duplicate_step_order", fmt.Errorf("step_order %d appears twice", s.StepOrder))
		}
		seen[s.StepOrder] = true
	}
	return nil
}

// Renumber sorts specs by their given order and rewrites orders to the
// 1-based array position, the canonical form steps persist in.
func Renumber(specs []StepSpec) []StepSpec {
	out := make([]StepSpec, len(specs))
	copy(out, specs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	for i := range out {
		out[i].StepOrder = i + 1
	}
	return out
}
