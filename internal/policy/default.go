package policy

// DefaultVersion identifies the compiled-in policy.
const DefaultVersion = "1.0.0"

// Default returns the compiled-in guardrails policy. Ten rules spanning
// the network, navigation, ui-feedback, validation, state, and
// view-switch categories. Every rule is mandatory and can only lower
// confidence.
func Default() Policy {
	return Policy{
		Version: DefaultVersion,
		Source:  SourceDefault,
		Rules: []Rule{
			{
				ID:              "NET_SUCCESS_NO_UI",
				Category:        CategoryNetwork,
				Action:          ActionBlock,
				ConfidenceDelta: -0.3,
				AppliesTo:       []string{"silent_failure"},
				Mandatory:       true,
				Trigger:         "network requests succeeded but the UI never changed; the action may have worked without visible feedback",
				Evaluation:      Evaluation{Type: EvalNetworkSuccessNoUIChange},
			},
			{
				ID:              "NET_ANALYTICS_ONLY",
				Category:        CategoryNetwork,
				Action:          ActionDowngrade,
				ConfidenceDelta: -0.25,
				AppliesTo:       []string{"silent_failure", "network_error"},
				Mandatory:       true,
				Trigger:         "only analytics or beacon traffic was observed; it cannot support a network-based claim",
				Evaluation:      Evaluation{Type: EvalAnalyticsTrafficOnly},
			},
			{
				ID:              "NO_OBSERVABLE_SIGNALS",
				Category:        CategoryState,
				Action:          ActionBlock,
				ConfidenceDelta: -0.5,
				AppliesTo:       []string{"*"},
				Mandatory:       true,
				Trigger:         "no sensor produced any signal for this interaction; the claim has nothing to stand on",
				Evaluation:      Evaluation{Type: EvalNoObservableSignals},
			},
			{
				ID:              "NAV_HASH_ONLY",
				Category:        CategoryNavigation,
				Action:          ActionDowngrade,
				ConfidenceDelta: -0.2,
				AppliesTo:       []string{"navigation_failure", "silent_failure"},
				Mandatory:       true,
				Trigger:         "only the URL hash changed; hash-only routing cannot confirm or deny a route change",
				Evaluation:      Evaluation{Type: EvalHashOnlyNavigation},
			},
			{
				ID:              "NAV_SHALLOW_ROUTE",
				Category:        CategoryNavigation,
				Action:          ActionInfo,
				ConfidenceDelta: -0.15,
				AppliesTo:       []string{"navigation_failure"},
				Mandatory:       true,
				Trigger:         "a shallow route change was detected; client-side routing may have handled the navigation",
				Evaluation:      Evaluation{Type: EvalShallowRouteChange},
			},
			{
				ID:              "UI_FEEDBACK_PRESENT",
				Category:        CategoryUIFeedback,
				Action:          ActionBlock,
				ConfidenceDelta: -0.35,
				AppliesTo:       []string{"missing_feedback", "silent_failure"},
				Mandatory:       true,
				Trigger:         "visible UI feedback was detected, contradicting the claim that the action produced none",
				Evaluation:      Evaluation{Type: EvalUIFeedbackPresent},
			},
			{
				ID:              "UI_TARGET_DISABLED",
				Category:        CategoryUIFeedback,
				Action:          ActionInfo,
				ConfidenceDelta: -0.3,
				AppliesTo:       []string{"*"},
				Mandatory:       true,
				Trigger:         "the interaction target was disabled or blocked; producing no effect is expected behavior, not a failure",
				Evaluation:      Evaluation{Type: EvalTargetDisabled},
			},
			{
				ID:              "VALIDATION_FEEDBACK_SHOWN",
				Category:        CategoryValidation,
				Action:          ActionDowngrade,
				ConfidenceDelta: -0.2,
				AppliesTo:       []string{"form_failure", "silent_failure"},
				Mandatory:       true,
				Trigger:         "a validation message was shown to the user; the form did respond visibly",
				Evaluation:      Evaluation{Type: EvalValidationFeedbackPresent},
			},
			{
				ID:              "EVIDENCE_INCOMPLETE",
				Category:        CategoryState,
				Action:          ActionBlock,
				ConfidenceDelta: -0.25,
				AppliesTo:       []string{"*"},
				Mandatory:       true,
				Trigger:         "the evidence package is incomplete; a CONFIRMED claim cannot rest on partial evidence",
				Evaluation:      Evaluation{Type: EvalEvidenceIncomplete},
			},
			{
				ID:              "VIEW_SWITCH_NO_CONTENT",
				Category:        CategoryViewSwitch,
				Action:          ActionDowngrade,
				ConfidenceDelta: -0.2,
				AppliesTo:       []string{"view_switch_failure"},
				Mandatory:       true,
				Trigger:         "the view switched but page content did not change; the target view may render identically",
				Evaluation:      Evaluation{Type: EvalViewContentUnchanged},
			},
		},
	}
}
