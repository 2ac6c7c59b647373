/*
Package validation implements the Validation Layer (SPEC_FULL.md §6,
spec.md §4.2): structural and semantic checks run on a job's configuration
before a worker is ever spawned.

Structural checks (required fields, non-empty model lists and sector
maps) are declared as struct tags on the internal/jobs config types and enforced by
github.com/go-playground/validator/v10, the same direct dependency
jordigilh-kubernaut reaches for on its request/config structs. Semantic
rules the tag vocabulary cannot express — "MLR requires independent
variables", "startYear <= endYear", membership in the fixed sets of
models, methods and solvers — are hand-written functions composed
after the structural pass, matching spec.md §4.2's "minimum rules" list
exactly.

Validation is pure: it never touches the registry, the supervisor, or
disk.
*/
package validation

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cuemby/energyplan-orchestrator/internal/apperr"
	"github.com/cuemby/energyplan-orchestrator/internal/jobs"
)

// Result is the outcome of validating one config, per spec.md §4.2:
// "{valid: true} or {valid: false, errors: [messages]}".
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

var structValidator = validator.New()

var validSectorModels = map[string]bool{
	string(jobs.ModelSLR): true, string(jobs.ModelMLR): true,
	string(jobs.ModelWAM): true, string(jobs.ModelTimeSeries): true,
}

var validLoadProfileMethods = map[string]bool{
	string(jobs.MethodBaseScaling): true, string(jobs.MethodSTLDecomposition): true,
	string(jobs.MethodCustomTemplate): true, string(jobs.MethodStatisticalSampling): true,
}

var validSolvers = map[string]bool{
	"highs": true, "glpk": true, "cbc": true, "gurobi": true,
}

// Forecast validates a ForecastConfig: non-empty scenario name, target
// year within a sane range of the current year, a non-empty sector map
// whose entries each name a known model and carry the fields that model
// requires.
func Forecast(cfg jobs.ForecastConfig) Result {
	var errs []string

	if err := structValidator.Struct(cfg); err != nil {
		errs = append(errs, structErrors(err)...)
	}

	if !isScenarioName(cfg.ScenarioName) {
		errs = append(errs, "scenarioName must contain only letters, digits, '_', '-', or '.'")
	}

	currentYear := time.Now().Year()
	if cfg.TargetYear < currentYear || cfg.TargetYear > currentYear+50 {
		errs = append(errs, fmt.Sprintf("targetYear must be between %d and %d", currentYear, currentYear+50))
	}

	for sector, sc := range cfg.Sectors {
		if len(sc.Models) == 0 {
			errs = append(errs, fmt.Sprintf("sector %q must name at least one model", sector))
			continue
		}
		for _, m := range sc.Models {
			if !validSectorModels[m] {
				errs = append(errs, fmt.Sprintf("sector %q names unknown model %q", sector, m))
				continue
			}
			if m == string(jobs.ModelMLR) && len(sc.IndependentVariables) == 0 {
				errs = append(errs, fmt.Sprintf("sector %q uses MLR and requires independentVariables", sector))
			}
			if m == string(jobs.ModelWAM) && sc.Window <= 0 {
				errs = append(errs, fmt.Sprintf("sector %q uses WAM and requires a positive window", sector))
			}
		}
	}

	return result(errs)
}

// LoadProfile validates a LoadProfileConfig: a known method, a sane year
// range, and method-dependent fields (base_scaling requires baseYear
// within the historical range ending at the current year).
func LoadProfile(cfg jobs.LoadProfileConfig) Result {
	var errs []string

	if err := structValidator.Struct(cfg); err != nil {
		errs = append(errs, structErrors(err)...)
	}

	if !validLoadProfileMethods[cfg.Method] {
		errs = append(errs, fmt.Sprintf("method %q is not one of the known generation methods", cfg.Method))
	}
	if cfg.StartYear > cfg.EndYear {
		errs = append(errs, "startYear must not be after endYear")
	}
	if cfg.Method == string(jobs.MethodBaseScaling) {
		currentYear := time.Now().Year()
		if cfg.BaseYear == nil {
			errs = append(errs, "base_scaling requires baseYear")
		} else if *cfg.BaseYear < 1900 || *cfg.BaseYear > currentYear {
			errs = append(errs, fmt.Sprintf("baseYear must be between 1900 and %d", currentYear))
		}
	}

	return result(errs)
}

// Optimization validates an OptimizationConfig: non-empty scenario name,
// base year, investment mode, and solver options naming a known solver
// with a positive time limit when one is given.
func Optimization(cfg jobs.OptimizationConfig) Result {
	var errs []string

	if err := structValidator.Struct(cfg); err != nil {
		errs = append(errs, structErrors(err)...)
	}

	if !isScenarioName(cfg.ScenarioName) {
		errs = append(errs, "scenarioName must contain only letters, digits, '_', '-', or '.'")
	}
	if !validSolvers[cfg.Solver.Name] {
		errs = append(errs, fmt.Sprintf("solver %q is not a known solver", cfg.Solver.Name))
	}
	if cfg.Solver.TimeLimit < 0 {
		errs = append(errs, "solver timeLimit must be positive when set")
	}

	return result(errs)
}

// AsError converts a failed Result into an apperr.KindValidationFailed,
// or nil when Valid is true.
func (r Result) AsError() error {
	if r.Valid {
		return nil
	}
	return apperr.Validation(r.Errors)
}

func result(errs []string) Result {
	if len(errs) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, Errors: errs}
}

func structErrors(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return out
}

func isScenarioName(name string) bool {
	return IsSafeIdentifier(name)
}

// IsSafeIdentifier reports whether name is built only from letters,
// digits, '_', '-', or '.' — the character class spec.md §4.2 requires
// for scenario names, reused by internal/httpapi to reject path-like
// identifiers (profile ids, scenario names) before they ever reach the
// Artifact Store's own traversal check.
func IsSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}
