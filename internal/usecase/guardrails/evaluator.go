// Package guardrails evaluates mandatory policy rules against findings
// and derives a recommended truth status. Evaluation is a pure function
// of (finding, context, policy): no I/O, no implicit state, fully
// deterministic and replayable.
package guardrails

import (
	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/policy"
)

// Context supplies the evaluation inputs that live outside the finding
// itself: the sanitized evidence package, the sensor summary, the
// confidence engine's reasons, and the type of the promise under test.
type Context struct {
	Evidence          domain.EvidencePackage
	Signals           domain.Signals
	ConfidenceReasons []string
	PromiseType       string
}

// ContextFor builds an evaluation context from a finding's own evidence
// and signals. Callers with external confidence reasons extend it.
func ContextFor(f domain.Finding) Context {
	return Context{
		Evidence:    f.Evidence,
		Signals:     f.Signals,
		PromiseType: f.Type,
	}
}

// handler decides whether one rule's condition holds. Handlers read
// signals and evidence only; they never mutate anything.
type handler func(f domain.Finding, ctx Context, rule policy.Rule) bool

// handlers is the enum-keyed dispatch table. Policy validation rejects
// unknown evaluation types at load time, so lookups here cannot miss for
// a validated policy.
var handlers = map[policy.EvaluationType]handler{
	policy.EvalNetworkSuccessNoUIChange:  evalNetworkSuccessNoUIChange,
	policy.EvalAnalyticsTrafficOnly:      evalAnalyticsTrafficOnly,
	policy.EvalNoObservableSignals:       evalNoObservableSignals,
	policy.EvalHashOnlyNavigation:        evalHashOnlyNavigation,
	policy.EvalShallowRouteChange:        evalShallowRouteChange,
	policy.EvalUIFeedbackPresent:         evalUIFeedbackPresent,
	policy.EvalTargetDisabled:            evalTargetDisabled,
	policy.EvalValidationFeedbackPresent: evalValidationFeedbackPresent,
	policy.EvalEvidenceIncomplete:        evalEvidenceIncomplete,
	policy.EvalViewContentUnchanged:      evalViewContentUnchanged,
}

// EvaluateRule reports whether the rule's condition holds for the
// finding. The second return value is false when the evaluation type has
// no handler.
func EvaluateRule(f domain.Finding, ctx Context, rule policy.Rule) (fired, known bool) {
	h, ok := handlers[rule.Evaluation.Type]
	if !ok {
		return false, false
	}
	return h(f, ctx, rule), true
}

// condition reads a tuning knob off the rule, falling back to def when
// the policy does not set it.
func condition(rule policy.Rule, key string, def float64) float64 {
	if v, ok := rule.Evaluation.Conditions[key]; ok {
		return v
	}
	return def
}

// Successful network traffic with no visible UI change contradicts a
// silent-failure claim: the action may have worked without feedback, but
// it demonstrably did not fail silently on the wire.
func evalNetworkSuccessNoUIChange(_ domain.Finding, ctx Context, rule policy.Rule) bool {
	minSuccess := int(condition(rule, "minSuccessfulRequests", 1))
	net := ctx.Signals.Network
	return net.SuccessfulRequests >= minSuccess &&
		net.FailedRequests == 0 &&
		!ctx.Signals.UI.Changed
}

// Analytics/beacon-only traffic cannot support a network-based claim.
func evalAnalyticsTrafficOnly(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	net := ctx.Signals.Network
	return net.TotalRequests > 0 && net.AnalyticsRequests == net.TotalRequests
}

// A finding with no signals at all has nothing to stand on.
func evalNoObservableSignals(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	return ctx.Signals.Empty()
}

// Hash-only routing cannot confirm a route change either way.
func evalHashOnlyNavigation(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	return ctx.Signals.Navigation.HashOnly
}

func evalShallowRouteChange(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	nav := ctx.Signals.Navigation
	return nav.ShallowRoute && !nav.HashOnly
}

// Presence of UI feedback contradicts a "no feedback" claim.
func evalUIFeedbackPresent(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	return ctx.Signals.UI.FeedbackDetected
}

// A disabled or blocked interaction target producing no effect is
// expected behavior, not a failure.
func evalTargetDisabled(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	return ctx.Signals.UI.TargetDisabled
}

func evalValidationFeedbackPresent(_ domain.Finding, ctx Context, rule policy.Rule) bool {
	minMessages := int(condition(rule, "minValidationMessages", 1))
	return ctx.Signals.UI.ValidationMessages >= minMessages
}

// An incomplete evidence package blocks CONFIRMED outright.
func evalEvidenceIncomplete(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	return !ctx.Evidence.Complete
}

func evalViewContentUnchanged(_ domain.Finding, ctx Context, _ policy.Rule) bool {
	nav := ctx.Signals.Navigation
	return nav.URLChanged && !ctx.Signals.UI.Changed
}
