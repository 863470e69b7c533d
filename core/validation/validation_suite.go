// Package validation runs the startup checks behind the -check flag: it
// verifies configuration, credentials and the local and remote services a
// generation run depends on, and prints a colored report.
package validation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"trendmerch/cache"
	"trendmerch/core"
	"trendmerch/db"
	"trendmerch/styles"
)

// ValidationStep represents a single validation step with its status.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of validation suite execution.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite checks a loaded configuration against the environment.
type ValidationSuite struct {
	config       *core.Config
	output       io.Writer
	client       *http.Client
	lookPath     func(file string) (string, error)
	timeout      time.Duration
	showProgress bool
	failFast     bool
}

// NewValidationSuite creates a suite for cfg with default settings.
func NewValidationSuite(cfg *core.Config) *ValidationSuite {
	s := &ValidationSuite{
		config:       cfg,
		output:       os.Stdout,
		lookPath:     exec.LookPath,
		timeout:      10 * time.Second,
		showProgress: true,
	}
	s.client = core.GetHTTPClient(cfg, s.timeout)
	return s
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithTimeout sets the timeout for network checks.
func (s *ValidationSuite) WithTimeout(timeout time.Duration) *ValidationSuite {
	s.timeout = timeout
	s.client = core.GetHTTPClient(s.config, timeout)
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first failure if enabled.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// WithLookPath replaces exec.LookPath for the rembg command check.
func (s *ValidationSuite) WithLookPath(fn func(string) (string, error)) *ValidationSuite {
	s.lookPath = fn
	return s
}

type check struct {
	name     string
	optional bool
	fn       func(ctx context.Context) (StepStatus, string, error)
}

// Validate runs every check in order and prints progress.
func (s *ValidationSuite) Validate(ctx context.Context) SuiteResult {
	startTime := time.Now()

	if s.showProgress {
		s.printHeader("TrendMerch Configuration Check")
	}

	if s.config == nil {
		step := ValidationStep{
			Name:   "Configuration",
			Status: StepFailed,
			Error:  fmt.Errorf("validation: config cannot be nil"),
		}
		if s.showProgress {
			s.printStep(step)
		}
		return s.finish([]ValidationStep{step}, startTime)
	}

	checks := []check{
		{name: "Inference Credentials", fn: s.checkCredentials},
		{name: "Output Directory", fn: s.checkOutputDir},
		{name: "Style Presets", fn: s.checkStyles},
		{name: "Background Removal", fn: s.checkBackgroundRemoval},
		{name: "Topic Cache", fn: s.checkCache},
		{name: "Trends Feed", optional: true, fn: s.checkTrendsFeed},
	}

	steps := make([]ValidationStep, 0, len(checks))
	for _, c := range checks {
		step := s.runStep(ctx, c)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			break
		}
	}
	return s.finish(steps, startTime)
}

func (s *ValidationSuite) finish(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := s.buildResult(steps, startTime)
	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

// runStep executes a check with timing and progress output. Failures of
// optional checks are reported as warnings.
func (s *ValidationSuite) runStep(ctx context.Context, c check) ValidationStep {
	step := ValidationStep{Name: c.name, Status: StepRunning}

	if s.showProgress {
		s.printStepStart(c.name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	status, message, err := c.fn(ctx)
	step.Latency = time.Since(startTime)
	step.Status = status
	step.Message = message
	step.Error = err

	if c.optional && status == StepFailed {
		step.Status = StepWarning
	}

	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) checkCredentials(context.Context) (StepStatus, string, error) {
	if s.config.Credential() == "" {
		return StepFailed, "no credential for " + s.config.Provider, core.ErrMissingAuth(s.config.Provider)
	}
	return StepPassed, s.config.Provider, nil
}

func (s *ValidationSuite) checkOutputDir(context.Context) (StepStatus, string, error) {
	dir := s.config.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return StepFailed, "cannot create " + dir, err
	}
	probe, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return StepFailed, dir + " is not writable", err
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return StepPassed, dir, nil
}

func (s *ValidationSuite) checkStyles(context.Context) (StepStatus, string, error) {
	table, err := styles.NewTableBuilder().WithDefaults().LoadYAML(s.config.StylesFile).Build()
	if err != nil {
		return StepFailed, "invalid presets", err
	}
	if s.config.DefaultStyle != "" && !table.Has(styles.Key(s.config.DefaultStyle)) {
		return StepFailed, "unknown default style", &styles.UnknownStyleError{
			Key:   styles.Key(s.config.DefaultStyle),
			Known: table.Keys(),
		}
	}
	return StepPassed, fmt.Sprintf("%d styles", table.Len()), nil
}

func (s *ValidationSuite) checkBackgroundRemoval(ctx context.Context) (StepStatus, string, error) {
	switch s.config.RembgMode {
	case core.RembgModeHTTP:
		return s.checkReachable(ctx, s.config.RembgURL)
	case core.RembgModeCommand:
		path, err := s.lookPath(s.config.RembgCommand)
		if err != nil {
			return StepFailed, s.config.RembgCommand + " not found", err
		}
		return StepPassed, path, nil
	default:
		return StepSkipped, "mode " + s.config.RembgMode, nil
	}
}

func (s *ValidationSuite) checkCache(ctx context.Context) (StepStatus, string, error) {
	if !s.config.CacheEnabled {
		return StepSkipped, "disabled", nil
	}
	switch s.config.CacheBackend {
	case core.CacheBackendSQLite:
		database, err := db.Open(s.config.DatabasePath)
		if err != nil {
			return StepFailed, "cannot open " + s.config.DatabasePath, err
		}
		defer database.Close()
		if err := database.Ping(ctx); err != nil {
			return StepFailed, "database not responding", err
		}
		return StepPassed, database.Path(), nil
	default:
		path := filepath.Join(s.config.CacheDir, cache.DefaultFileName)
		store, err := cache.OpenFileStore(path, nil)
		if err != nil {
			return StepFailed, "cannot open " + path, err
		}
		store.Close()
		return StepPassed, path, nil
	}
}

func (s *ValidationSuite) checkTrendsFeed(ctx context.Context) (StepStatus, string, error) {
	status, message, err := s.checkReachable(ctx, s.config.TrendsURL)
	if err != nil {
		message += ", fallback topics will be used"
	}
	return status, message, err
}

// checkReachable treats any HTTP response as reachable; status codes only
// matter to the real requests.
func (s *ValidationSuite) checkReachable(ctx context.Context, rawURL string) (StepStatus, string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return StepFailed, "invalid URL", fmt.Errorf("validation: %q is not an http(s) URL", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return StepFailed, "invalid URL", err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return StepFailed, "unreachable", err
	}
	resp.Body.Close()
	return StepPassed, fmt.Sprintf("status %d (latency: %v)", resp.StatusCode, time.Since(start).Round(time.Millisecond)), nil
}

// buildResult creates a SuiteResult from completed steps.
func (s *ValidationSuite) buildResult(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}
	return result
}

func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

func (s *ValidationSuite) printStepStart(name string) {
	fmt.Fprintf(s.output, "  ◌ %s...", name)
}

func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	// Overwrite the "running" line.
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if (step.Status == StepFailed || step.Status == StepWarning) && step.Error != nil {
		clr.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// GetErrors returns the errors of failed steps.
func (r SuiteResult) GetErrors() []error {
	var errs []error
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			errs = append(errs, step.Error)
		}
	}
	return errs
}

// Summary returns a one-line summary.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation Passed: ")
	} else {
		sb.WriteString("Validation Failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d checks passed", r.PassedSteps, r.TotalSteps)
	if r.FailedSteps > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.FailedSteps)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warnings", r.Warnings)
	}
	return sb.String()
}
