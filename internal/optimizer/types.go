package optimizer

// Optimization methods
const (
	TypeGrid = "grid"
	TypeAI   = "ai"
)

// Progress phase tags
const (
	PhaseGrid       = "grid"
	PhaseAnalysis   = "analysis"
	PhaseRefinement = "refinement"
)

// ModelGridResult is the outcome of evaluating one parameter combination.
// When Success is false the metric fields carry no meaning and must not be
// used for scoring.
type ModelGridResult struct {
	ModelID    string             `json:"model_id"`
	Parameters map[string]float64 `json:"parameters"`
	Success    bool               `json:"success"`
	Accuracy   float64            `json:"accuracy,omitempty"`
	MAPE       float64            `json:"mape,omitempty"`
	RMSE       float64            `json:"rmse,omitempty"`
	MAE        float64            `json:"mae,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ModelSummary aggregates the results of one model within a run
type ModelSummary struct {
	ModelID         string  `json:"model_id"`
	Combinations    int     `json:"combinations"`
	Successful      int     `json:"successful"`
	BestAccuracy    float64 `json:"best_accuracy"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// ParameterRange is the statistical spread of a parameter across the elite
// subset of an exploratory grid pass.
type ParameterRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// AIInsights carries the refinement layer's findings alongside its results
type AIInsights struct {
	PromisingRanges map[string]map[string]ParameterRange `json:"promising_ranges"`
	Confidence      float64                              `json:"confidence"`
}

// RunResult is the full output of one optimization job
type RunResult struct {
	Type         string                      `json:"type"`
	Results      []ModelGridResult           `json:"results"`
	BestResult   *ModelGridResult            `json:"best_result,omitempty"`
	BestPerModel map[string]*ModelGridResult `json:"best_per_model,omitempty"`
	Summaries    []ModelSummary              `json:"summaries"`
	AIInsights   *AIInsights                 `json:"ai_insights,omitempty"`
}

// ProgressFunc receives a phase tag and a monotonically non-decreasing
// percentage as the search advances. It is invoked synchronously.
type ProgressFunc func(phase string, percent int)
