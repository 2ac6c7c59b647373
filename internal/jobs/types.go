/*
Package jobs implements the Job Registry: the source of truth for job
lifecycle state, separated by kind. The registry never spawns or kills
processes — that is internal/supervisor's job — it only stores and
transitions state (spec.md §9, "Registry vs. supervisor
responsibilities").
*/
package jobs

import "time"

// Kind identifies which of the three analytical job kinds a job is.
type Kind string

const (
	KindForecast Kind = "forecast"
	KindProfile  Kind = "profile"
	KindPypsa    Kind = "pypsa"
)

// Status is a job's lifecycle state. Transitions are monotonic and
// one-way: queued -> running -> {completed, failed, cancelled}.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is one of the terminal states.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Timings tracks when a job moved through each lifecycle point. Fields are
// zero until the corresponding transition happens.
type Timings struct {
	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
}

// Job is one user-submitted analytical request and its current state.
// Config is immutable after creation. Result and Error are populated at
// most once, in mutually exclusive terminal states.
type Job struct {
	ID            string      `json:"id"`
	Kind          Kind        `json:"kind"`
	Status        Status      `json:"status"`
	Progress      int         `json:"progress"`
	Config        interface{} `json:"config"`
	Result        interface{} `json:"result,omitempty"`
	Error         string      `json:"error,omitempty"`
	CurrentStep   string      `json:"currentStep,omitempty"`
	StatusDetails string      `json:"statusDetails,omitempty"`
	Timings       Timings     `json:"timings"`
}

// Snapshot is a read-only copy of a Job safe to hand to callers outside the
// registry's lock. Get and List return the same shape: Get fills in
// Config and Result, List leaves them nil in its summaries.
type Snapshot = Job

// clone returns a deep-enough copy of j for safe return to callers: every
// scalar field is copied by value, and Config/Result — already immutable
// by convention past construction — are shared by reference since nothing
// in this package mutates them in place after Create/Complete/Fail store
// them.
func (j *Job) clone() *Job {
	cp := *j
	return &cp
}

// SectorModel is one of the fixed set of demand-model algorithms a
// forecast sector may request, per spec.md §4.2.
type SectorModel string

const (
	ModelSLR        SectorModel = "SLR"
	ModelMLR        SectorModel = "MLR"
	ModelWAM        SectorModel = "WAM"
	ModelTimeSeries SectorModel = "TimeSeries"
)

// SectorConfig is one sector's model selection within a ForecastConfig.
// MLR and WAM carry model-specific fields validated semantically rather
// than by struct tag, since their presence is conditional on Models.
type SectorConfig struct {
	Models               []string `json:"models" validate:"required,min=1"`
	IndependentVariables []string `json:"independentVariables,omitempty"`
	Window               int      `json:"window,omitempty"`
}

// ForecastConfig is the Demand job kind's configuration (spec.md §4.2).
type ForecastConfig struct {
	ScenarioName string                  `json:"scenarioName" validate:"required"`
	TargetYear   int                     `json:"targetYear" validate:"required"`
	Sectors      map[string]SectorConfig `json:"sectors" validate:"required,min=1,dive"`
}

// LoadProfileMethod is the fixed set of generation methods spec.md §4.2
// names for the Load Profile job kind.
type LoadProfileMethod string

const (
	MethodBaseScaling         LoadProfileMethod = "base_scaling"
	MethodSTLDecomposition    LoadProfileMethod = "stl_decomposition"
	MethodCustomTemplate      LoadProfileMethod = "custom_template"
	MethodStatisticalSampling LoadProfileMethod = "statistical_sampling"
)

// LoadProfileConfig is the Load Profile job kind's configuration.
type LoadProfileConfig struct {
	Method    string `json:"method" validate:"required"`
	StartYear int    `json:"startYear" validate:"required"`
	EndYear   int    `json:"endYear" validate:"required"`
	// BaseYear is required when Method is base_scaling; nil otherwise.
	BaseYear   *int   `json:"baseYear,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

// SolverOptions configures the optimization solver invoked by a pypsa job.
type SolverOptions struct {
	Name     string `json:"name" validate:"required"`
	TimeLimit int   `json:"timeLimit,omitempty"`
}

// OptimizationConfig is the PyPSA job kind's configuration.
type OptimizationConfig struct {
	ScenarioName   string        `json:"scenarioName" validate:"required"`
	BaseYear       int           `json:"baseYear" validate:"required"`
	InvestmentMode string        `json:"investmentMode" validate:"required"`
	Solver         SolverOptions `json:"solver" validate:"required"`
}
