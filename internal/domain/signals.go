package domain

// Signals is the structured sensor summary attached to a finding by
// Observation. The truth pipeline reads it; it never writes it.
type Signals struct {
	Network    NetworkSignals    `json:"network"`
	UI         UISignals         `json:"uiSignals"`
	Navigation NavigationSignals `json:"navigation"`
	Console    ConsoleSignals    `json:"console"`
}

// NetworkSignals summarizes traffic observed during the interaction window.
type NetworkSignals struct {
	TotalRequests      int `json:"totalRequests"`
	SuccessfulRequests int `json:"successfulRequests"`
	FailedRequests     int `json:"failedRequests"`
	AnalyticsRequests  int `json:"analyticsRequests"`
}

// UISignals summarizes visible page reaction to the interaction.
type UISignals struct {
	Changed            bool `json:"changed"`
	FeedbackDetected   bool `json:"feedbackDetected"`
	TargetDisabled     bool `json:"targetDisabled"`
	ValidationMessages int  `json:"validationMessages"`
}

// NavigationSignals summarizes routing behavior.
type NavigationSignals struct {
	URLChanged   bool   `json:"urlChanged"`
	HashOnly     bool   `json:"hashOnly"`
	ShallowRoute bool   `json:"shallowRoute"`
	FromURL      string `json:"fromUrl,omitempty"`
	ToURL        string `json:"toUrl,omitempty"`
}

// ConsoleSignals counts console output captured during the window.
type ConsoleSignals struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Empty reports whether no sensor produced any signal at all. A finding
// with empty signals cannot support any claim.
func (s Signals) Empty() bool {
	return s.Network.TotalRequests == 0 &&
		!s.UI.Changed &&
		!s.UI.FeedbackDetected &&
		!s.UI.TargetDisabled &&
		s.UI.ValidationMessages == 0 &&
		!s.Navigation.URLChanged &&
		s.Console.Errors == 0 &&
		s.Console.Warnings == 0
}
