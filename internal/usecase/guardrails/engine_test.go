package guardrails_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verityhq/verity/internal/domain"
	"github.com/verityhq/verity/internal/policy"
	"github.com/verityhq/verity/internal/usecase/guardrails"
)

func confirmedFinding(findingType string, confidence float64, signals domain.Signals) domain.Finding {
	return domain.NewFinding(domain.FindingInput{
		Type:       findingType,
		PromiseID:  "promise-1",
		Status:     domain.StatusConfirmed,
		Confidence: confidence,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: true},
		Signals:    signals,
	})
}

// The canonical silent-failure contradiction: the network call succeeded
// and nothing failed, so a CONFIRMED silent-failure claim cannot stand.
func TestApplyNetworkSuccessNoUIBlocksConfirmed(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	f := confirmedFinding("silent_failure", 0.9, domain.Signals{
		Network: domain.NetworkSignals{
			TotalRequests:      1,
			SuccessfulRequests: 1,
			FailedRequests:     0,
		},
		UI: domain.UISignals{Changed: false},
	})

	updated, result := engine.Apply(f, guardrails.ContextFor(f))

	if len(result.AppliedRules) != 1 {
		t.Fatalf("got %d applied rules %v, want 1", len(result.AppliedRules), result.AppliedRules)
	}
	if result.AppliedRules[0].ID != "NET_SUCCESS_NO_UI" {
		t.Errorf("got rule %s, want NET_SUCCESS_NO_UI", result.AppliedRules[0].ID)
	}
	if len(result.Contradictions) != 1 {
		t.Fatalf("expected one contradiction, got %v", result.Contradictions)
	}
	if result.FinalDecision != domain.StatusSuspected {
		t.Errorf("got decision %s, want SUSPECTED", result.FinalDecision)
	}
	if updated.Status != domain.StatusSuspected {
		t.Errorf("got status %s, want SUSPECTED", updated.Status)
	}
	if math.Abs(updated.Confidence-0.6) > 1e-9 {
		t.Errorf("got confidence %v, want 0.6 (0.9 - 0.3)", updated.Confidence)
	}
	// Input never mutated.
	if f.Status != domain.StatusConfirmed || f.Confidence != 0.9 {
		t.Error("input finding was mutated")
	}
}

func TestApplyNoRulesFireForHealthySignals(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	f := confirmedFinding("silent_failure", 0.85, domain.Signals{
		Network: domain.NetworkSignals{TotalRequests: 2, FailedRequests: 2},
		UI:      domain.UISignals{Changed: true},
	})

	updated, result := engine.Apply(f, guardrails.ContextFor(f))

	if result.Applied() {
		t.Fatalf("expected no rules to fire, got %v", result.AppliedRules)
	}
	if result.FinalDecision != domain.StatusConfirmed {
		t.Errorf("got decision %s, want CONFIRMED", result.FinalDecision)
	}
	if updated.Confidence != 0.85 {
		t.Errorf("confidence changed without any fired rule: %v", updated.Confidence)
	}
}

// When several rules fire, the weakest claim wins but every fired rule
// stays on the record.
func TestApplyStrongestDowngradeWins(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	// Empty signals trip NO_OBSERVABLE_SIGNALS (absence, recommends
	// IGNORED) and EVIDENCE_INCOMPLETE (BLOCK, recommends SUSPECTED).
	f := domain.NewFinding(domain.FindingInput{
		Type:       "silent_failure",
		Status:     domain.StatusConfirmed,
		Confidence: 0.9,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: false},
	})

	updated, result := engine.Apply(f, guardrails.ContextFor(f))

	if len(result.AppliedRules) < 2 {
		t.Fatalf("expected at least two fired rules, got %v", result.AppliedRules)
	}
	if result.FinalDecision != domain.StatusIgnored {
		t.Errorf("got decision %s, want IGNORED (strongest downgrade)", result.FinalDecision)
	}
	if updated.Status != domain.StatusIgnored {
		t.Errorf("got status %s, want IGNORED", updated.Status)
	}
}

func TestApplyAnalyticsOnlyTrafficDowngrades(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	f := confirmedFinding("network_error", 0.8, domain.Signals{
		Network: domain.NetworkSignals{TotalRequests: 3, AnalyticsRequests: 3},
	})

	_, result := engine.Apply(f, guardrails.ContextFor(f))

	found := false
	for _, ref := range result.AppliedRules {
		if ref.ID == "NET_ANALYTICS_ONLY" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected NET_ANALYTICS_ONLY to fire, got %v", result.AppliedRules)
	}
	if result.FinalDecision != domain.StatusSuspected {
		t.Errorf("got decision %s, want SUSPECTED", result.FinalDecision)
	}
}

func TestApplyDisabledTargetIsInformational(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	f := confirmedFinding("click_failure", 0.7, domain.Signals{
		UI: domain.UISignals{TargetDisabled: true, Changed: true},
	})

	updated, result := engine.Apply(f, guardrails.ContextFor(f))

	if result.FinalDecision != domain.StatusInformational {
		t.Errorf("got decision %s, want INFORMATIONAL", result.FinalDecision)
	}
	if math.Abs(updated.Confidence-0.4) > 1e-9 {
		t.Errorf("got confidence %v, want 0.4 (0.7 - 0.3)", updated.Confidence)
	}
}

func TestApplyConfidenceNeverBelowZeroOrAbovePreRule(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	// Multiple firing rules whose summed deltas exceed the confidence.
	f := domain.NewFinding(domain.FindingInput{
		Type:       "silent_failure",
		Status:     domain.StatusConfirmed,
		Confidence: 0.2,
		Evidence:   domain.EvidencePackage{ID: "ev-1", Complete: false},
	})

	updated, result := engine.Apply(f, guardrails.ContextFor(f))

	if updated.Confidence != 0 {
		t.Errorf("got confidence %v, want clamp at 0", updated.Confidence)
	}
	if result.ConfidenceDelta >= 0 {
		t.Errorf("expected negative total delta, got %v", result.ConfidenceDelta)
	}
}

func TestApplyOnlyMatchingTypesEvaluated(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	// Hash-only navigation, but the finding type is outside
	// NAV_HASH_ONLY's appliesTo set.
	f := confirmedFinding("form_failure", 0.8, domain.Signals{
		Navigation: domain.NavigationSignals{URLChanged: true, HashOnly: true},
		UI:         domain.UISignals{Changed: true},
	})

	_, result := engine.Apply(f, guardrails.ContextFor(f))

	for _, ref := range result.AppliedRules {
		if ref.ID == "NAV_HASH_ONLY" {
			t.Error("NAV_HASH_ONLY must not fire for form_failure findings")
		}
	}
}

// Evaluation is a pure function of (finding, context, policy): applying
// the engine twice to identical inputs yields identical outputs.
func TestApplyIsDeterministic(t *testing.T) {
	engine := guardrails.NewEngine(policy.Default())

	f := confirmedFinding("silent_failure", 0.9, domain.Signals{
		Network: domain.NetworkSignals{TotalRequests: 1, SuccessfulRequests: 1},
	})

	first, firstResult := engine.Apply(f, guardrails.ContextFor(f))
	second, secondResult := engine.Apply(f, guardrails.ContextFor(f))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("findings differ between replays (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(firstResult, secondResult); diff != "" {
		t.Errorf("results differ between replays (-first +second):\n%s", diff)
	}
}

func TestApplyCustomConditionThreshold(t *testing.T) {
	pol := policy.Policy{
		Version: "9.9.9",
		Source:  policy.SourceCustom,
		Rules: []policy.Rule{{
			ID:              "VALIDATION_MANY",
			Category:        policy.CategoryValidation,
			Action:          policy.ActionDowngrade,
			ConfidenceDelta: -0.1,
			AppliesTo:       []string{"form_failure"},
			Mandatory:       true,
			Trigger:         "several validation messages shown",
			Evaluation: policy.Evaluation{
				Type:       policy.EvalValidationFeedbackPresent,
				Conditions: map[string]float64{"minValidationMessages": 3},
			},
		}},
	}
	if err := pol.Validate(); err != nil {
		t.Fatalf("policy invalid: %v", err)
	}
	engine := guardrails.NewEngine(pol)

	below := confirmedFinding("form_failure", 0.8, domain.Signals{
		UI: domain.UISignals{ValidationMessages: 2},
	})
	if _, result := engine.Apply(below, guardrails.ContextFor(below)); result.Applied() {
		t.Error("rule fired below its configured threshold")
	}

	at := confirmedFinding("form_failure", 0.8, domain.Signals{
		UI: domain.UISignals{ValidationMessages: 3},
	})
	if _, result := engine.Apply(at, guardrails.ContextFor(at)); !result.Applied() {
		t.Error("rule did not fire at its configured threshold")
	}
}
