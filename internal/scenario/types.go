// Package scenario runs YAML-defined decision assertions through the full
// kernel pipeline (preset → adapter → authority → execution wrapper). Used
// by `sessionguard check` to gate CI on authorization correctness.
package scenario

// ChainStep is one step of a composite chain under test.
type ChainStep struct {
	Reversibility string `yaml:"reversibility"`
	Description   string `yaml:"description,omitempty"`
}

// Case is one decision assertion within a scenario.
type Case struct {
	Name          string      `yaml:"name,omitempty"`
	Op            string      `yaml:"op"`
	Target        string      `yaml:"target,omitempty"`
	Reversibility string      `yaml:"reversibility,omitempty"`
	Class         string      `yaml:"class,omitempty"`
	Jobs          []string    `yaml:"jobs,omitempty"`
	Actions       []ChainStep `yaml:"actions,omitempty"`
	Expect        string      `yaml:"expect"`
}

// Scenario is a named collection of decision assertions evaluated against
// one preset. Each case gets a fresh authority; cases are independent.
type Scenario struct {
	Name       string `yaml:"name"`
	AppID      string `yaml:"app_id"`
	Preset     string `yaml:"preset"`
	TTLSeconds int    `yaml:"ttl_seconds,omitempty"`
	Cases      []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Op       string `json:"op"`
	Target   string `json:"target"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
