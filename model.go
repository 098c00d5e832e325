package neogds

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ModelCatalog manages the server-side model catalog.
type ModelCatalog struct {
	runner DBRunner
	log    *zap.Logger
}

// Get returns a handle to a stored model, or ErrNotFound when no model with
// that name exists in the catalog.
func (c *ModelCatalog) Get(ctx context.Context, name string) (*Model, error) {
	exists, err := c.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("model '%s': %w", name, ErrNotFound)
	}
	return &Model{name: name, runner: c.runner, log: c.log}, nil
}

// Exists reports whether a model with the given name is in the catalog.
func (c *ModelCatalog) Exists(ctx context.Context, name string) (bool, error) {
	result, err := c.runner.Run(ctx,
		"CALL gds.model.exists($name) YIELD exists",
		map[string]interface{}{"name": name},
	)
	if err != nil {
		return false, fmt.Errorf("could not check model '%s': %w", name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return false, err
	}
	return recordValue[bool](record, "exists")
}

//---

// Model is an opaque handle to a trained model in the server-side model
// catalog. Accessors are fresh round trips; after Drop they return
// ErrNotFound.
type Model struct {
	name   string
	runner DBRunner
	log    *zap.Logger
}

// Name returns the catalog name identifying this model on the server.
func (m *Model) Name() string {
	return m.name
}

// MetricScores holds the computed values of one evaluation metric across the
// data splits used during training.
type MetricScores struct {
	// Train and Validation are averages over the cross-validation folds.
	Train      float64
	Validation float64
	// OuterTrain is the score on the full train set after refit.
	OuterTrain float64
	// Test is the score on the held-out test set.
	Test float64
}

// modelInfo fetches the stored model's info map from the catalog.
func (m *Model) modelInfo(ctx context.Context) (map[string]interface{}, error) {
	result, err := m.runner.Run(ctx,
		"CALL gds.model.list($name) YIELD modelInfo",
		map[string]interface{}{"name": m.name},
	)
	if err != nil {
		return nil, fmt.Errorf("could not list model '%s': %w", m.name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return nil, fmt.Errorf("model '%s': %w", m.name, err)
	}
	return recordMap(record, "modelInfo")
}

// Metrics returns the evaluation scores computed during training, keyed by
// metric name.
func (m *Model) Metrics(ctx context.Context) (map[string]MetricScores, error) {
	info, err := m.modelInfo(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := trainResultFromModelInfo(info)
	if err != nil {
		return nil, fmt.Errorf("model '%s': %w", m.name, err)
	}
	return summary.Metrics, nil
}

// BestParameters returns the winning candidate's resolved hyperparameters.
// For hyperparameters given as a range, the returned value is the concrete
// one the autotuner selected, which always lies within the original range.
func (m *Model) BestParameters(ctx context.Context) (map[string]interface{}, error) {
	info, err := m.modelInfo(ctx)
	if err != nil {
		return nil, err
	}
	params, ok := info["bestParameters"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("model '%s': model info has no best parameters", m.name)
	}
	return params, nil
}

// Drop removes the model from the server-side catalog, freeing its resources.
func (m *Model) Drop(ctx context.Context) error {
	_, err := m.runner.Run(ctx,
		"CALL gds.model.drop($name)",
		map[string]interface{}{"name": m.name},
	)
	if err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("model '%s': %w", m.name, ErrNotFound)
		}
		return fmt.Errorf("could not drop model '%s': %w", m.name, err)
	}
	m.log.Info("dropped model", zap.String("model", m.name))
	return nil
}

//---

// PredictConfig parameterizes a prediction invocation.
type PredictConfig struct {
	// TargetNodeLabels restricts prediction to nodes carrying these labels,
	// typically the unclassified population.
	TargetNodeLabels []string
	// IncludeProbabilities requests per-class probability distributions in
	// addition to the predicted class.
	IncludeProbabilities bool
}

// Prediction is one row of a streamed prediction result.
type Prediction struct {
	// NodeID is the internal node id within the projection.
	NodeID int64
	// Class is the predicted class value.
	Class int64
	// Probabilities holds the predicted per-class probabilities, in class
	// order, when requested. The values sum to 1.
	Probabilities []float64
}

// PredictStream runs the model over the target nodes of a projection and
// streams the predictions back to the caller, one row per target node. The
// result is ephemeral; nothing is written to the graph.
func (m *Model) PredictStream(ctx context.Context, graph *Graph, cfg PredictConfig) ([]Prediction, error) {
	result, err := m.runner.Run(ctx,
		"CALL gds.beta.pipeline.nodeClassification.predict.stream($graphName, $config) "+
			"YIELD nodeId, predictedClass, predictedProbabilities",
		map[string]interface{}{"graphName": graph.Name(), "config": m.predictConfig(cfg, nil)},
	)
	if err != nil {
		return nil, fmt.Errorf("prediction with model '%s' failed: %w", m.name, err)
	}

	predictions := make([]Prediction, 0, len(result.Records))
	for _, record := range result.Records {
		var row Prediction
		if row.NodeID, err = recordValue[int64](record, "nodeId"); err != nil {
			return nil, err
		}
		if row.Class, err = recordValue[int64](record, "predictedClass"); err != nil {
			return nil, err
		}
		if cfg.IncludeProbabilities {
			raw, _ := record.Get("predictedProbabilities")
			probabilities, ok := asFloat64Slice(raw)
			if !ok {
				return nil, fmt.Errorf("model '%s': malformed probabilities for node %d", m.name, row.NodeID)
			}
			row.Probabilities = probabilities
		}
		predictions = append(predictions, row)
	}
	return predictions, nil
}

// MutateResult summarizes an in-place prediction over the projection.
type MutateResult struct {
	NodePropertiesWritten int64
	MutateMillis          int64
}

// PredictMutate runs the model over the target nodes and writes the predicted
// class onto the in-memory projection as a new node property, leaving the
// underlying database untouched.
func (m *Model) PredictMutate(ctx context.Context, graph *Graph, mutateProperty string, cfg PredictConfig) (*MutateResult, error) {
	extra := map[string]interface{}{"mutateProperty": mutateProperty}
	if cfg.IncludeProbabilities {
		extra["predictedProbabilityProperty"] = mutateProperty + "Probabilities"
	}
	result, err := m.runner.Run(ctx,
		"CALL gds.beta.pipeline.nodeClassification.predict.mutate($graphName, $config) "+
			"YIELD nodePropertiesWritten, mutateMillis",
		map[string]interface{}{"graphName": graph.Name(), "config": m.predictConfig(cfg, extra)},
	)
	if err != nil {
		return nil, fmt.Errorf("mutating prediction with model '%s' failed: %w", m.name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return nil, err
	}

	summary := &MutateResult{}
	if summary.NodePropertiesWritten, err = recordValue[int64](record, "nodePropertiesWritten"); err != nil {
		return nil, err
	}
	if summary.MutateMillis, err = recordValue[int64](record, "mutateMillis"); err != nil {
		return nil, err
	}
	return summary, nil
}

// WriteResult summarizes a prediction written back to the database.
type WriteResult struct {
	NodePropertiesWritten int64
	WriteMillis           int64
}

// PredictWrite runs the model over the target nodes and writes the predicted
// class back to the underlying database as a new node property.
func (m *Model) PredictWrite(ctx context.Context, graph *Graph, writeProperty string, cfg PredictConfig) (*WriteResult, error) {
	extra := map[string]interface{}{"writeProperty": writeProperty}
	if cfg.IncludeProbabilities {
		extra["predictedProbabilityProperty"] = writeProperty + "Probabilities"
	}
	result, err := m.runner.Run(ctx,
		"CALL gds.beta.pipeline.nodeClassification.predict.write($graphName, $config) "+
			"YIELD nodePropertiesWritten, writeMillis",
		map[string]interface{}{"graphName": graph.Name(), "config": m.predictConfig(cfg, extra)},
	)
	if err != nil {
		return nil, fmt.Errorf("writing prediction with model '%s' failed: %w", m.name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return nil, err
	}

	summary := &WriteResult{}
	if summary.NodePropertiesWritten, err = recordValue[int64](record, "nodePropertiesWritten"); err != nil {
		return nil, err
	}
	if summary.WriteMillis, err = recordValue[int64](record, "writeMillis"); err != nil {
		return nil, err
	}
	return summary, nil
}

func (m *Model) predictConfig(cfg PredictConfig, extra map[string]interface{}) map[string]interface{} {
	config := map[string]interface{}{
		"modelName": m.name,
	}
	if len(cfg.TargetNodeLabels) > 0 {
		config["targetNodeLabels"] = cfg.TargetNodeLabels
	}
	if cfg.IncludeProbabilities {
		config["includePredictedProbabilities"] = true
	}
	for key, value := range extra {
		config[key] = value
	}
	return config
}

//---

// trainResultFromModelInfo parses the modelInfo map the server returns from
// training (and stores in the model catalog) into a TrainResult.
func trainResultFromModelInfo(info map[string]interface{}) (*TrainResult, error) {
	summary := &TrainResult{}

	name, ok := info["modelName"].(string)
	if !ok {
		return nil, fmt.Errorf("model info has no model name")
	}
	summary.ModelName = name

	if params, ok := info["bestParameters"].(map[string]interface{}); ok {
		summary.BestParameters = params
	}

	rawMetrics, ok := info["metrics"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("model info has no metrics")
	}
	summary.Metrics = make(map[string]MetricScores, len(rawMetrics))
	for metric, raw := range rawMetrics {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("malformed scores for metric '%s'", metric)
		}
		var scores MetricScores
		if v, ok := asFloat64(entry["test"]); ok {
			scores.Test = v
		}
		if v, ok := asFloat64(entry["outerTrain"]); ok {
			scores.OuterTrain = v
		}
		scores.Train = foldAverage(entry["train"])
		scores.Validation = foldAverage(entry["validation"])
		summary.Metrics[metric] = scores
	}

	return summary, nil
}

// foldAverage extracts the avg component of a cross-validation score map.
func foldAverage(raw interface{}) float64 {
	entry, ok := raw.(map[string]interface{})
	if !ok {
		return 0
	}
	avg, _ := asFloat64(entry["avg"])
	return avg
}
