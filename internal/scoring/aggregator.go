package scoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"go.uber.org/zap"
)

// Entry statuses in the aggregated matrix
const (
	// StatusOptimized marks a winner picked from completed job results
	StatusOptimized = "optimized"
	// StatusIneligible marks a grid model with no completed job for the SKU
	StatusIneligible = "ineligible"
	// StatusDefault marks a synthesized baseline for an opt-out model
	StatusDefault = "default"
)

// Entry is one cell of the model x method x SKU recommendation matrix
type Entry struct {
	ModelID    string             `json:"model_id"`
	Method     models.JobMethod   `json:"method"`
	SKU        string             `json:"sku"`
	Status     string             `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	IsDefault  bool               `json:"is_default,omitempty"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Accuracy   float64            `json:"accuracy,omitempty"`
	MAPE       float64            `json:"mape,omitempty"`
	RMSE       float64            `json:"rmse,omitempty"`
	MAE        float64            `json:"mae,omitempty"`
	Score      float64            `json:"score,omitempty"`
	JobID      uint               `json:"job_id,omitempty"`
}

// Matrix is the aggregator's output: a complete model x method x SKU grid
// with the weights used to rank candidates.
type Matrix struct {
	Entries []Entry `json:"entries"`
	Weights Weights `json:"weights"`
}

// ExportRow is one line of the flat tabular report: one row per (job, model
// result) with raw and normalized metrics plus the composite score.
type ExportRow struct {
	JobID          uint               `json:"job_id"`
	BatchID        string             `json:"batch_id"`
	DatasetID      uint               `json:"dataset_id"`
	SKU            string             `json:"sku"`
	ModelID        string             `json:"model_id"`
	Method         models.JobMethod   `json:"method"`
	Parameters     map[string]float64 `json:"parameters"`
	Success        bool               `json:"success"`
	Error          string             `json:"error,omitempty"`
	MAPE           float64            `json:"mape"`
	RMSE           float64            `json:"rmse"`
	MAE            float64            `json:"mae"`
	Accuracy       float64            `json:"accuracy"`
	NormalizedMAPE float64            `json:"normalized_mape"`
	NormalizedRMSE float64            `json:"normalized_rmse"`
	NormalizedMAE  float64            `json:"normalized_mae"`
	Score          float64            `json:"score"`
	Weights        Weights            `json:"weights"`
}

// groupKey identifies one scoring group
type groupKey struct {
	ModelID string
	Method  models.JobMethod
	SKU     string
	Scope   string
}

// group collects every candidate result contributed to one key
type group struct {
	results   []optimizer.ModelGridResult
	jobIDs    []uint
	latestJob time.Time
}

// Aggregator selects the best result per (model, method, SKU) across the
// completed job history and fills the gaps so callers always see a complete
// matrix.
type Aggregator struct {
	registry *registry.Registry
	weights  Weights
	logger   *utils.Logger
}

// NewAggregator creates a new best-result aggregator
func NewAggregator(reg *registry.Registry, weights Weights, logger *utils.Logger) *Aggregator {
	return &Aggregator{
		registry: reg,
		weights:  weights,
		logger:   logger.Named("aggregator"),
	}
}

// Aggregate builds the recommendation matrix from completed jobs. Jobs with
// malformed result payloads are skipped with a logged reason; they never
// abort aggregation of the remaining groups.
func (a *Aggregator) Aggregate(jobs []models.OptimizationJob, methods []models.JobMethod) (*Matrix, error) {
	if len(methods) == 0 {
		methods = []models.JobMethod{models.JobMethodGrid, models.JobMethodAI}
	}

	groups, skus := a.collectGroups(jobs)

	// Winner per group, then collapse scopes so each (model, method, sku)
	// triple keeps the entry from its most recent batch.
	type triple struct {
		ModelID string
		Method  models.JobMethod
		SKU     string
	}
	winners := make(map[triple]Entry)
	latest := make(map[triple]time.Time)

	for key, g := range groups {
		entry, ok := a.pickWinner(key, g)
		if !ok {
			continue
		}

		t := triple{ModelID: key.ModelID, Method: key.Method, SKU: key.SKU}
		if seen, exists := latest[t]; !exists || g.latestJob.After(seen) {
			winners[t] = entry
			latest[t] = g.latestJob
		}
	}

	// Gap-filling: one entry per registered model x requested method x SKU.
	matrix := &Matrix{Weights: a.weights}
	for _, sku := range skus {
		for _, def := range a.registry.List() {
			for _, method := range methods {
				t := triple{ModelID: def.ID, Method: method, SKU: sku}
				if entry, ok := winners[t]; ok {
					matrix.Entries = append(matrix.Entries, entry)
					continue
				}

				if !def.ParticipatesInGridSearch {
					matrix.Entries = append(matrix.Entries, Entry{
						ModelID:    def.ID,
						Method:     method,
						SKU:        sku,
						Status:     StatusDefault,
						IsDefault:  true,
						Parameters: def.DefaultParameters,
						Reason:     "model does not participate in grid search; default parameters applied",
					})
					continue
				}

				matrix.Entries = append(matrix.Entries, Entry{
					ModelID: def.ID,
					Method:  method,
					SKU:     sku,
					Status:  StatusIneligible,
					Reason:  "no completed optimization job for this model and SKU",
				})
			}
		}
	}

	return matrix, nil
}

// collectGroups parses job results and buckets them by scoring group. It
// also returns the sorted set of SKUs seen in the job history.
func (a *Aggregator) collectGroups(jobs []models.OptimizationJob) (map[groupKey]*group, []string) {
	groups := make(map[groupKey]*group)
	skuSet := make(map[string]bool)

	for _, job := range jobs {
		if job.Status != models.JobStatusCompleted {
			continue
		}
		skuSet[job.SKU] = true

		run, err := parseRunResult(job.ResultJSON)
		if err != nil {
			a.logger.Warn("Skipping job with malformed result payload",
				zap.Uint("job_id", job.ID),
				zap.Error(err))
			continue
		}

		scope := job.BatchID
		if scope == "" {
			scope = fmt.Sprintf("dataset:%d", job.DatasetID)
		}

		for _, r := range run.Results {
			modelID := r.ModelID
			if modelID == "" {
				modelID = job.ModelID
			}

			key := groupKey{ModelID: modelID, Method: job.Method, SKU: job.SKU, Scope: scope}
			g, ok := groups[key]
			if !ok {
				g = &group{}
				groups[key] = g
			}
			g.results = append(g.results, r)
			g.jobIDs = append(g.jobIDs, job.ID)
			if job.CreatedAt.After(g.latestJob) {
				g.latestJob = job.CreatedAt
			}
		}
	}

	skus := make([]string, 0, len(skuSet))
	for sku := range skuSet {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	return groups, skus
}

// pickWinner scores every candidate in a group and returns the entry for
// the highest score. Ties keep the first-seen candidate.
func (a *Aggregator) pickWinner(key groupKey, g *group) (Entry, bool) {
	if len(g.results) == 0 {
		return Entry{}, false
	}

	maxima := maximaFor(g.results)

	bestIdx := -1
	bestScore := -1.0
	for i, r := range g.results {
		score := a.weights.Score(r, maxima)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	winner := g.results[bestIdx]
	entry := Entry{
		ModelID:    key.ModelID,
		Method:     key.Method,
		SKU:        key.SKU,
		Status:     StatusOptimized,
		Parameters: winner.Parameters,
		Accuracy:   winner.Accuracy,
		MAPE:       winner.MAPE,
		RMSE:       winner.RMSE,
		MAE:        winner.MAE,
		Score:      bestScore,
		JobID:      g.jobIDs[bestIdx],
	}

	if !winner.Success {
		entry.Reason = "best available candidate failed to fit"
	}

	return entry, true
}

// ExportRows flattens the completed job history into the tabular report.
// Normalization maxima are computed per scoring group, matching the matrix.
func (a *Aggregator) ExportRows(jobs []models.OptimizationJob) []ExportRow {
	groups, _ := a.collectGroups(jobs)

	// Deterministic row order: sort group keys.
	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		if a.ModelID != b.ModelID {
			return a.ModelID < b.ModelID
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Scope < b.Scope
	})

	jobByID := make(map[uint]models.OptimizationJob, len(jobs))
	for _, job := range jobs {
		jobByID[job.ID] = job
	}

	var rows []ExportRow
	for _, key := range keys {
		g := groups[key]
		maxima := maximaFor(g.results)

		for i, r := range g.results {
			job := jobByID[g.jobIDs[i]]
			n := normalize(r, maxima)

			rows = append(rows, ExportRow{
				JobID:          job.ID,
				BatchID:        job.BatchID,
				DatasetID:      job.DatasetID,
				SKU:            key.SKU,
				ModelID:        key.ModelID,
				Method:         key.Method,
				Parameters:     r.Parameters,
				Success:        r.Success,
				Error:          r.Error,
				MAPE:           r.MAPE,
				RMSE:           r.RMSE,
				MAE:            r.MAE,
				Accuracy:       r.Accuracy,
				NormalizedMAPE: n.MAPE,
				NormalizedRMSE: n.RMSE,
				NormalizedMAE:  n.MAE,
				Score:          a.weights.Score(r, maxima),
				Weights:        a.weights,
			})
		}
	}

	return rows
}

func parseRunResult(resultJSON string) (*optimizer.RunResult, error) {
	if resultJSON == "" {
		return nil, fmt.Errorf("empty result payload")
	}

	var run optimizer.RunResult
	if err := json.Unmarshal([]byte(resultJSON), &run); err != nil {
		return nil, fmt.Errorf("invalid result payload: %w", err)
	}
	if len(run.Results) == 0 {
		return nil, fmt.Errorf("result payload has no grid results")
	}
	return &run, nil
}
