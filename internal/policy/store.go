package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store loads and freezes a guardrails policy for a run. A zero Store is
// usable; BaseDir only affects relative custom-policy paths.
type Store struct {
	BaseDir string
}

// Load returns the policy at path, or the compiled-in default when path
// is empty. Custom policies are validated structurally before they are
// returned; any violation rejects the whole document so a misconfigured
// policy can never be partially applied.
func (s Store) Load(path string) (Policy, error) {
	if path == "" {
		pol := Default()
		if err := pol.Validate(); err != nil {
			// The compiled-in policy failing validation is a programming
			// error, but it still must never be served.
			return Policy{}, fmt.Errorf("default policy: %w", err)
		}
		return pol, nil
	}

	if !filepath.IsAbs(path) && s.BaseDir != "" {
		path = filepath.Join(s.BaseDir, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}

	var pol Policy
	if err := yaml.Unmarshal(raw, &pol); err != nil {
		return Policy{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidPolicy, path, err)
	}
	pol.Source = SourceCustom

	if err := pol.Validate(); err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return pol, nil
}
