package guardrails

import (
	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/policy"
)

// Engine applies a frozen policy's rules to findings. The policy is
// shared by reference and never mutated, so a single Engine is safe for
// concurrent per-finding evaluation.
type Engine struct {
	policy policy.Policy
}

// NewEngine creates an engine over a validated policy.
func NewEngine(pol policy.Policy) *Engine {
	return &Engine{policy: pol}
}

// Policy returns the frozen policy the engine evaluates.
func (e *Engine) Policy() policy.Policy {
	return e.policy
}

// Apply evaluates every applicable rule against the finding and returns
// a new finding carrying the adjusted confidence and recommended status,
// plus the guardrails result. The input finding is never mutated.
//
// Deltas from all fired rules are summed; the resulting confidence is
// clamped so it never exceeds the pre-rule value and never drops below
// zero. When several rules fire, the strongest downgrade wins (lowest
// claim rank), but every fired rule is retained for traceability.
func (e *Engine) Apply(f domain.Finding, ctx Context) (domain.Finding, domain.GuardrailsResult) {
	result := domain.GuardrailsResult{
		AppliedRules:   []domain.RuleRef{},
		Contradictions: []domain.Contradiction{},
		FinalDecision:  f.Status,
	}

	recommended := f.Status
	totalDelta := 0.0

	for _, rule := range e.policy.Rules {
		if !rule.AppliesToType(f.Type) {
			continue
		}
		fired, known := EvaluateRule(f, ctx, rule)
		if !known || !fired {
			continue
		}

		result.AppliedRules = append(result.AppliedRules, domain.RuleRef{
			ID:              rule.ID,
			Category:        string(rule.Category),
			Action:          string(rule.Action),
			Trigger:         rule.Trigger,
			ConfidenceDelta: rule.ConfidenceDelta,
		})
		totalDelta += rule.ConfidenceDelta

		if rule.Action == policy.ActionBlock && f.Status == domain.StatusConfirmed {
			result.Contradictions = append(result.Contradictions, domain.Contradiction{
				Code:    rule.ID,
				Message: rule.Trigger,
			})
		}

		recommended = domain.Weaker(recommended, targetStatus(rule))
	}

	result.FinalDecision = recommended
	result.ConfidenceDelta = totalDelta

	adjusted := clampConfidence(f.Confidence+totalDelta, f.Confidence)
	updated := f.WithConfidence(adjusted).WithStatus(recommended)
	return updated, result
}

// targetStatus maps a fired rule to the status it recommends. A rule
// whose evaluation implies complete absence of signal recommends IGNORED
// regardless of action.
func targetStatus(rule policy.Rule) domain.TruthStatus {
	if rule.Evaluation.Type == policy.EvalNoObservableSignals {
		return domain.StatusIgnored
	}
	switch rule.Action {
	case policy.ActionInfo:
		return domain.StatusInformational
	default: // BLOCK and DOWNGRADE both demote a confirmed claim to suspected
		return domain.StatusSuspected
	}
}

// clampConfidence bounds the adjusted confidence to [0, preRule]. Rules
// can only lower confidence, never raise it.
func clampConfidence(adjusted, preRule float64) float64 {
	if adjusted > preRule {
		return preRule
	}
	if adjusted < 0 {
		return 0
	}
	return adjusted
}
