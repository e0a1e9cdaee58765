// Package truth finalizes findings by enforcing the status/confidence
// invariant: every truth status corresponds to a confidence band, and
// confidence can only ever be lowered by policy.
package truth

import (
	"github.com/verityhq/verity/internal/determinism"
	"github.com/verityhq/verity/internal/domain"
)

// Context carries the pre-guardrails confidence for the finding being
// reconciled, as produced by the external confidence engine.
type Context struct {
	InitialConfidence      float64
	InitialConfidenceLevel domain.ConfidenceLevel
}

// Reconciler enforces the confidence/status consistency table and emits
// immutable truth decisions.
type Reconciler struct {
	clock determinism.Clock
}

// NewReconciler creates a reconciler using the given clock for decision
// timestamps.
func NewReconciler(clock determinism.Clock) *Reconciler {
	if clock == nil {
		clock = determinism.SystemClock
	}
	return &Reconciler{clock: clock}
}

// Finalize enforces the invariant table against a finding that has been
// through guardrails and returns the finalized finding plus its truth
// decision. The input finding is never mutated; the decision is
// write-once.
//
//	CONFIRMED      no cap, but only legitimate when guardrails itself
//	               recommended CONFIRMED; otherwise a contradiction is
//	               recorded without silently changing the status.
//	SUSPECTED      capped at 0.69 when guardrails applied any downgrade
//	               or flagged a contradiction.
//	INFORMATIONAL  capped at 0.2.
//	IGNORED        forced to exactly 0.
//
// Reconciliation is never silent: a no-op still records
// NO_RECONCILIATION_NEEDED.
func (r *Reconciler) Finalize(f domain.Finding, gr domain.GuardrailsResult, rc Context) (domain.Finding, domain.TruthDecision) {
	confidence := f.Confidence
	reasons := []domain.ReasonCode{}
	contradictionsResolved := len(gr.Contradictions)

	switch f.Status {
	case domain.StatusConfirmed:
		if gr.FinalDecision != domain.StatusConfirmed {
			// A CONFIRMED claim without guardrails approval is a defect
			// signal. Record it for operator review; never auto-correct.
			reasons = append(reasons, domain.ReasonCode(domain.CodeConfirmedWithoutGuardrails))
			contradictionsResolved++
		} else if gr.Applied() {
			reasons = append(reasons, domain.ReasonConfirmedApproved)
		}

	case domain.StatusSuspected:
		if (gr.Applied() || len(gr.Contradictions) > 0) && confidence > domain.SuspectedConfidenceCap {
			confidence = domain.SuspectedConfidenceCap
			reasons = append(reasons, domain.ReasonConfidenceCappedSuspected)
		}

	case domain.StatusInformational:
		if confidence > domain.InformationalConfidenceCap {
			confidence = domain.InformationalConfidenceCap
			reasons = append(reasons, domain.ReasonConfidenceCappedInformational)
		}

	case domain.StatusIgnored:
		if confidence != 0 {
			confidence = 0
			reasons = append(reasons, domain.ReasonConfidenceZeroedIgnored)
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, domain.ReasonNoReconciliationNeeded)
	}

	// Level is recomputed after capping, never before.
	final := f.WithConfidence(confidence)
	final = final.WithGuardrails(domain.GuardrailsAnnotation{
		Result: gr,
		Reconciliation: domain.Reconciliation{
			ConfidenceBefore:      rc.InitialConfidence,
			ConfidenceAfter:       final.Confidence,
			ConfidenceLevelBefore: rc.InitialConfidenceLevel,
			ConfidenceLevelAfter:  final.ConfidenceLevel,
			Reasons:               reasons,
		},
	})

	decision := domain.TruthDecision{
		FindingID:              f.ID,
		FindingType:            f.Type,
		FinalStatus:            final.Status,
		ConfidenceBefore:       rc.InitialConfidence,
		ConfidenceAfter:        final.Confidence,
		ConfidenceLevelBefore:  rc.InitialConfidenceLevel,
		ConfidenceLevelAfter:   final.ConfidenceLevel,
		ReconciliationReasons:  reasons,
		ContradictionsResolved: contradictionsResolved,
		ConfidenceDelta:        final.Confidence - rc.InitialConfidence,
		DecidedAt:              r.clock(),
	}

	return final, decision
}
