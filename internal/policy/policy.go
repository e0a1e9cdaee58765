// Package policy defines guardrail rules and the store that loads,
// validates, and freezes them for the duration of a run.
package policy

import (
	"errors"
	"fmt"
)

// Category groups rules by the sensor family their conditions read.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryNavigation Category = "navigation"
	CategoryUIFeedback Category = "ui-feedback"
	CategoryValidation Category = "validation"
	CategoryState      Category = "state"
	CategoryViewSwitch Category = "view-switch"
)

// IsValid returns true if the category is a recognized value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryNetwork, CategoryNavigation, CategoryUIFeedback,
		CategoryValidation, CategoryState, CategoryViewSwitch:
		return true
	default:
		return false
	}
}

// Action is what a firing rule does to the finding's claim.
type Action string

const (
	ActionBlock     Action = "BLOCK"
	ActionDowngrade Action = "DOWNGRADE"
	ActionInfo      Action = "INFO"
)

// IsValid returns true if the action is a recognized value.
func (a Action) IsValid() bool {
	switch a {
	case ActionBlock, ActionDowngrade, ActionInfo:
		return true
	default:
		return false
	}
}

// EvaluationType keys the dispatch table of condition handlers. Each type
// names the single boolean check a handler performs against the finding's
// signals and evidence.
type EvaluationType string

const (
	EvalNetworkSuccessNoUIChange  EvaluationType = "network_success_without_ui_change"
	EvalAnalyticsTrafficOnly      EvaluationType = "analytics_traffic_only"
	EvalNoObservableSignals       EvaluationType = "no_observable_signals"
	EvalHashOnlyNavigation        EvaluationType = "hash_only_navigation"
	EvalShallowRouteChange        EvaluationType = "shallow_route_change"
	EvalUIFeedbackPresent         EvaluationType = "ui_feedback_present"
	EvalTargetDisabled            EvaluationType = "target_disabled"
	EvalValidationFeedbackPresent EvaluationType = "validation_feedback_present"
	EvalEvidenceIncomplete        EvaluationType = "evidence_incomplete"
	EvalViewContentUnchanged      EvaluationType = "view_content_unchanged"
)

// IsValid returns true if the evaluation type has a registered handler.
func (t EvaluationType) IsValid() bool {
	switch t {
	case EvalNetworkSuccessNoUIChange, EvalAnalyticsTrafficOnly,
		EvalNoObservableSignals, EvalHashOnlyNavigation,
		EvalShallowRouteChange, EvalUIFeedbackPresent, EvalTargetDisabled,
		EvalValidationFeedbackPresent, EvalEvidenceIncomplete,
		EvalViewContentUnchanged:
		return true
	default:
		return false
	}
}

// Evaluation is the typed condition descriptor on a rule. Conditions are
// optional per-type tuning knobs; the type alone selects the handler.
type Evaluation struct {
	Type       EvaluationType     `yaml:"type" json:"type"`
	Conditions map[string]float64 `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Rule is one mandatory, confidence-decreasing guardrail. Rules are
// immutable once loaded.
type Rule struct {
	ID              string     `yaml:"id" json:"id"`
	Category        Category   `yaml:"category" json:"category"`
	Action          Action     `yaml:"action" json:"action"`
	ConfidenceDelta float64    `yaml:"confidenceDelta" json:"confidenceDelta"`
	AppliesTo       []string   `yaml:"appliesTo" json:"appliesTo"`
	Mandatory       bool       `yaml:"mandatory" json:"mandatory"`
	Trigger         string     `yaml:"trigger" json:"trigger"`
	Evaluation      Evaluation `yaml:"evaluation" json:"evaluation"`
}

// AppliesToType reports whether the rule targets the given finding type.
// The wildcard "*" matches every type.
func (r Rule) AppliesToType(findingType string) bool {
	for _, tag := range r.AppliesTo {
		if tag == "*" || tag == findingType {
			return true
		}
	}
	return false
}

// Source records where a policy came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceCustom  Source = "custom"
)

// Policy is a frozen set of guardrail rules. Loaded once per run,
// read-only thereafter.
type Policy struct {
	Version string `yaml:"version" json:"version"`
	Source  Source `yaml:"-" json:"source"`
	Rules   []Rule `yaml:"rules" json:"rules"`
}

// ErrInvalidPolicy wraps every structural validation failure. A policy
// that fails validation is rejected whole; there is no partial load.
var ErrInvalidPolicy = errors.New("invalid guardrails policy")

// Validate checks every rule structurally. This is the single gate that
// prevents a misconfigured policy from increasing confidence or silently
// disabling a rule, so it runs at load time, not at evaluation time.
func (p Policy) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidPolicy)
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("%w: no rules defined", ErrInvalidPolicy)
	}

	seen := make(map[string]struct{}, len(p.Rules))
	for i, rule := range p.Rules {
		if rule.ID == "" {
			return fmt.Errorf("%w: rule %d has empty id", ErrInvalidPolicy, i)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidPolicy, rule.ID)
		}
		seen[rule.ID] = struct{}{}

		if !rule.Category.IsValid() {
			return fmt.Errorf("%w: rule %q has unknown category %q", ErrInvalidPolicy, rule.ID, rule.Category)
		}
		if !rule.Action.IsValid() {
			return fmt.Errorf("%w: rule %q has unknown action %q", ErrInvalidPolicy, rule.ID, rule.Action)
		}
		if rule.ConfidenceDelta > 0 {
			return fmt.Errorf("%w: rule %q has positive confidenceDelta %v", ErrInvalidPolicy, rule.ID, rule.ConfidenceDelta)
		}
		if len(rule.AppliesTo) == 0 {
			return fmt.Errorf("%w: rule %q has empty appliesTo", ErrInvalidPolicy, rule.ID)
		}
		if !rule.Mandatory {
			return fmt.Errorf("%w: rule %q is not mandatory", ErrInvalidPolicy, rule.ID)
		}
		if !rule.Evaluation.Type.IsValid() {
			return fmt.Errorf("%w: rule %q has unknown evaluation type %q", ErrInvalidPolicy, rule.ID, rule.Evaluation.Type)
		}
	}
	return nil
}

// RuleByID returns the rule with the given id, if present.
func (p Policy) RuleByID(id string) (Rule, bool) {
	for _, rule := range p.Rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}
