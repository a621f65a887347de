package runner

import (
	"time"
)

// Special action values that trigger non-turn steps
const (
	RestartSessionAction = "RESTART_SESSION"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name         string     `json:"name"`
	WorldSetting string     `json:"world_setting,omitempty"`
	GenreKey     string     `json:"genre_key,omitempty"`
	Seed         int64      `json:"seed,omitempty"`
	Steps        []TestStep `json:"steps,omitempty"`
	Cases        []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player action and its expected outcome. The first step of
// a suite is always the prologue and is run before Steps.
// Use action: "RESTART_SESSION" to discard the session and replay the prologue.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Choice       int          `json:"choice,omitempty"` // 1-based; picks a choice from the previous turn instead of Action
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	TurnCount   *int     `json:"turn_count,omitempty"`
	IsEnding    *bool    `json:"is_ending,omitempty"`
	StatusKeys  []string `json:"status_keys,omitempty"` // Genre stats that must be present
	MinHP       *int     `json:"min_hp,omitempty"`
	NoError     bool     `json:"no_error,omitempty"`
	NeedsImage  bool     `json:"needs_image,omitempty"`
	HistoryLen  *int     `json:"history_len,omitempty"`
	BackupModel *bool    `json:"backup_model,omitempty"`

	// Response Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	ModelName    string
	IsRestart    bool // Restart steps do not count toward pass/fail metrics
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
}
