package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jwebster45206/gem-engine/pkg/client"
	"github.com/jwebster45206/gem-engine/pkg/session"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running gem-engine API
type Runner struct {
	BaseURL           string
	Client            *client.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	Images            bool
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            client.New(baseURL, &http.Client{Timeout: client.DefaultTimeout}),
		Timeout:           2 * time.Minute,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite plays the prologue and then every step through a fresh session.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)+1),
	}

	ctrl := session.NewController(r.Client, session.NewMemoryStore(),
		session.Options{Images: r.Images}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	prologue := r.startSession(ctx, ctrl, suite)
	result.Results = append(result.Results, prologue)
	if prologue.Error != nil {
		result.Error = fmt.Errorf("prologue failed: %w", prologue.Error)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)

		var stepResult TestResult
		if step.Action == RestartSessionAction {
			stepResult = r.restart(ctx, ctrl, suite, step)
		} else {
			stepResult = r.runStep(ctx, ctrl, step)
		}
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v, %s)", i+1, len(suite.Steps), step.Name, stepResult.Duration, stepResult.ModelName)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) startSession(ctx context.Context, ctrl *session.Controller, suite TestSuite) TestResult {
	start := time.Now()
	result := TestResult{TestName: suite.Name, StepName: "prologue"}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	s, err := ctrl.Start(stepCtx, suite.WorldSetting, suite.GenreKey, suite.Seed)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	if err := CheckExpectations(Expectations{NoError: true}, s); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	result.ResponseText = s.CurrentResponse.ScenarioText
	result.ModelName = s.CurrentResponse.ModelName
	return result
}

func (r *Runner) restart(ctx context.Context, ctrl *session.Controller, suite TestSuite, step TestStep) TestResult {
	result := TestResult{StepName: step.Name, IsRestart: true}
	if _, err := ctrl.Restart(ctx); err != nil {
		result.Error = fmt.Errorf("failed to restart session: %w", err)
		return result
	}
	prologue := r.startSession(ctx, ctrl, suite)
	prologue.StepName = step.Name
	prologue.IsRestart = true
	if prologue.Error == nil {
		prologue.Error = CheckExpectations(step.Expectations, ctrl.State())
		prologue.Success = prologue.Error == nil
	}
	return prologue
}

// runStep executes a single test step and checks expectations.
// Will retry once when the API reports that every model was exhausted.
func (r *Runner) runStep(ctx context.Context, ctrl *session.Controller, step TestStep) TestResult {
	for attempt := 1; attempt <= 2; attempt++ {
		result := r.executeStep(ctx, ctrl, step)
		if result.Success || result.Error == nil {
			return result
		}

		var apiErr *client.APIError
		if attempt == 1 && errors.As(result.Error, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			r.Logger("    Models exhausted, retrying step: %s", step.Name)
			continue
		}
		return result
	}
	return TestResult{StepName: step.Name, Error: fmt.Errorf("unexpected error in retry logic")}
}

func (r *Runner) executeStep(ctx context.Context, ctrl *session.Controller, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	action := step.Action
	if step.Choice > 0 {
		choices := session.Choices(ctrl.State())
		if step.Choice > len(choices) {
			result.Error = fmt.Errorf("choice %d out of range (%d choices)", step.Choice, len(choices))
			return result
		}
		action = choices[step.Choice-1]
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	s, err := ctrl.SubmitAction(stepCtx, action)
	if err != nil {
		result.Error = fmt.Errorf("turn failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	if step.Expectations.NeedsImage {
		ctrl.Wait()
		s = ctrl.State()
	}

	if s.CurrentResponse != nil {
		result.ResponseText = s.CurrentResponse.ScenarioText
		result.ModelName = s.CurrentResponse.ModelName
	}
	if err := CheckExpectations(step.Expectations, s); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// CheckExpectations validates exp against the session state after a step.
func CheckExpectations(exp Expectations, s session.State) error {
	resp := s.CurrentResponse
	if resp == nil {
		return fmt.Errorf("no current response")
	}
	if exp.NoError && s.Error != "" {
		return fmt.Errorf("unexpected error: %s", s.Error)
	}
	if len(resp.Choices) == 0 && s.Phase != session.PhaseEnding {
		return fmt.Errorf("response has no choices")
	}

	if exp.TurnCount != nil && s.TurnCount != *exp.TurnCount {
		return fmt.Errorf("expected turn count %d, got %d", *exp.TurnCount, s.TurnCount)
	}
	if exp.IsEnding != nil && resp.IsEnding != *exp.IsEnding {
		return fmt.Errorf("expected is_ending %v, got %v", *exp.IsEnding, resp.IsEnding)
	}
	if exp.HistoryLen != nil && len(s.History) != *exp.HistoryLen {
		return fmt.Errorf("expected %d history entries, got %d", *exp.HistoryLen, len(s.History))
	}
	if exp.BackupModel != nil && resp.IsBackup != *exp.BackupModel {
		return fmt.Errorf("expected backup model %v, got %v (%s)", *exp.BackupModel, resp.IsBackup, resp.ModelName)
	}
	for _, key := range exp.StatusKeys {
		if _, ok := resp.Status.Stat(key); !ok {
			return fmt.Errorf("status is missing stat %q", key)
		}
	}
	if exp.MinHP != nil && resp.Status.HP < *exp.MinHP {
		return fmt.Errorf("expected hp >= %d, got %d", *exp.MinHP, resp.Status.HP)
	}
	if exp.NeedsImage && resp.ImageURL == "" {
		return fmt.Errorf("expected an illustration")
	}

	text := resp.ScenarioText
	for _, want := range exp.ResponseContains {
		if !strings.Contains(text, want) {
			return fmt.Errorf("response does not contain %q", want)
		}
	}
	for _, unwanted := range exp.ResponseNotContains {
		if strings.Contains(text, unwanted) {
			return fmt.Errorf("response contains %q", unwanted)
		}
	}
	if exp.ResponseRegex != "" {
		re, err := regexp.Compile(exp.ResponseRegex)
		if err != nil {
			return fmt.Errorf("invalid response_regex: %w", err)
		}
		if !re.MatchString(text) {
			return fmt.Errorf("response does not match %q", exp.ResponseRegex)
		}
	}
	length := utf8.RuneCountInString(text)
	if exp.ResponseMinLength != nil && length < *exp.ResponseMinLength {
		return fmt.Errorf("response too short: %d < %d", length, *exp.ResponseMinLength)
	}
	if exp.ResponseMaxLength != nil && length > *exp.ResponseMaxLength {
		return fmt.Errorf("response too long: %d > %d", length, *exp.ResponseMaxLength)
	}
	return nil
}
