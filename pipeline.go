package neogds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PipelineCatalog manages server-side training pipelines.
type PipelineCatalog struct {
	runner DBRunner
	log    *zap.Logger
}

// CreateNodeClassification creates a new, empty node-classification training
// pipeline with the given name in the server-side pipeline catalog and
// returns a handle to it.
func (c *PipelineCatalog) CreateNodeClassification(ctx context.Context, name string) (*NodeClassificationPipeline, error) {
	_, err := c.runner.Run(ctx,
		"CALL gds.beta.pipeline.nodeClassification.create($name)",
		map[string]interface{}{"name": name},
	)
	if err != nil {
		return nil, fmt.Errorf("could not create pipeline '%s': %w", name, err)
	}
	c.log.Info("created node classification pipeline", zap.String("pipeline", name))
	return &NodeClassificationPipeline{name: name, runner: c.runner, log: c.log}, nil
}

// Exists reports whether a pipeline with the given name is in the catalog.
func (c *PipelineCatalog) Exists(ctx context.Context, name string) (bool, error) {
	result, err := c.runner.Run(ctx,
		"CALL gds.beta.pipeline.exists($name) YIELD exists",
		map[string]interface{}{"name": name},
	)
	if err != nil {
		return false, fmt.Errorf("could not check pipeline '%s': %w", name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return false, err
	}
	return recordValue[bool](record, "exists")
}

// Drop removes a pipeline by name from the server-side catalog.
func (c *PipelineCatalog) Drop(ctx context.Context, name string) error {
	_, err := c.runner.Run(ctx,
		"CALL gds.beta.pipeline.drop($name)",
		map[string]interface{}{"name": name},
	)
	if err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("pipeline '%s': %w", name, ErrNotFound)
		}
		return fmt.Errorf("could not drop pipeline '%s': %w", name, err)
	}
	c.log.Info("dropped pipeline", zap.String("pipeline", name))
	return nil
}

//---

// NodeClassificationPipeline is a handle to a named, server-resident,
// mutable pipeline configuration. Each configuration call mutates the
// server-side object and returns the same handle so calls can be chained.
// The handle only counts features and candidates locally, to reject a
// training request that could never succeed before the round trip.
type NodeClassificationPipeline struct {
	name   string
	runner DBRunner
	log    *zap.Logger

	featureCount   int
	candidateCount int
}

// Name returns the catalog name identifying this pipeline on the server.
func (p *NodeClassificationPipeline) Name() string {
	return p.name
}

// SplitConfig controls how the classified node population is divided during
// training.
type SplitConfig struct {
	// TestFraction is the fraction of the target population held out as the
	// test set. Must be in (0, 1).
	TestFraction float64
	// ValidationFolds is the number of cross-validation folds used on the
	// remaining train set during model selection.
	ValidationFolds int
}

// ConfigureSplit sets the pipeline's train/test split. The server applies the
// fraction to the classified population at training time; the client only
// transmits it.
func (p *NodeClassificationPipeline) ConfigureSplit(ctx context.Context, cfg SplitConfig) (*NodeClassificationPipeline, error) {
	config := map[string]interface{}{
		"testFraction": cfg.TestFraction,
	}
	if cfg.ValidationFolds > 0 {
		config["validationFolds"] = cfg.ValidationFolds
	}
	return p.mutate(ctx, "configureSplit", map[string]interface{}{
		"pipeline": p.name,
		"config":   config,
	}, "CALL gds.beta.pipeline.nodeClassification.configureSplit($pipeline, $config)")
}

// AddNodeProperty appends a node-property-producing step to the pipeline,
// for example the hashGNN embedding:
//
//	pipe.AddNodeProperty(ctx, "hashGNN", map[string]interface{}{
//		"mutateProperty":   "embedding",
//		"iterations":       4,
//		"embeddingDensity": 512,
//		"heterogeneous":    true,
//	})
//
// The step runs against the graph at training (and prediction) time and
// mutates the projection with the property it produces.
func (p *NodeClassificationPipeline) AddNodeProperty(ctx context.Context, procedure string, config map[string]interface{}) (*NodeClassificationPipeline, error) {
	return p.mutate(ctx, "addNodeProperty", map[string]interface{}{
		"pipeline":  p.name,
		"procedure": procedure,
		"config":    config,
	}, "CALL gds.beta.pipeline.nodeClassification.addNodeProperty($pipeline, $procedure, $config)")
}

// SelectFeatures marks node properties as model input features. At least one
// feature must be selected before training.
func (p *NodeClassificationPipeline) SelectFeatures(ctx context.Context, features ...string) (*NodeClassificationPipeline, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("pipeline '%s': at least one feature must be given", p.name)
	}
	pipe, err := p.mutate(ctx, "selectFeatures", map[string]interface{}{
		"pipeline": p.name,
		"features": features,
	}, "CALL gds.beta.pipeline.nodeClassification.selectFeatures($pipeline, $features)")
	if err == nil {
		p.featureCount += len(features)
	}
	return pipe, err
}

// AddLogisticRegression adds a logistic regression candidate to the
// pipeline's model search space. Parameter values may be plain literals or
// ranges built with Between / BetweenInt to request autotuning.
func (p *NodeClassificationPipeline) AddLogisticRegression(ctx context.Context, params map[string]interface{}) (*NodeClassificationPipeline, error) {
	return p.addCandidate(ctx, "addLogisticRegression", params)
}

// AddRandomForest adds a random forest candidate to the pipeline's model
// search space. Parameter values may be plain literals or ranges built with
// Between / BetweenInt to request autotuning.
func (p *NodeClassificationPipeline) AddRandomForest(ctx context.Context, params map[string]interface{}) (*NodeClassificationPipeline, error) {
	return p.addCandidate(ctx, "addRandomForest", params)
}

func (p *NodeClassificationPipeline) addCandidate(ctx context.Context, procedure string, params map[string]interface{}) (*NodeClassificationPipeline, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	pipe, err := p.mutate(ctx, procedure, map[string]interface{}{
		"pipeline": p.name,
		"config":   params,
	}, fmt.Sprintf("CALL gds.beta.pipeline.nodeClassification.%s($pipeline, $config)", procedure))
	if err == nil {
		p.candidateCount++
	}
	return pipe, err
}

// mutate performs one server-side pipeline mutation and returns the handle
// for chaining.
func (p *NodeClassificationPipeline) mutate(ctx context.Context, step string, params map[string]interface{}, query string) (*NodeClassificationPipeline, error) {
	if _, err := p.runner.Run(ctx, query, params); err != nil {
		return nil, fmt.Errorf("pipeline '%s': %s failed: %w", p.name, step, err)
	}
	p.log.Debug("configured pipeline",
		zap.String("pipeline", p.name), zap.String("step", step))
	return p, nil
}

// Between builds a closed numeric range for a hyperparameter, asking the
// server to autotune the value within [low, high].
func Between(low, high float64) map[string]interface{} {
	return map[string]interface{}{"range": []float64{low, high}}
}

// BetweenInt is the integer-valued variant of Between, for hyperparameters
// such as tree counts or depths.
func BetweenInt(low, high int64) map[string]interface{} {
	return map[string]interface{}{"range": []int64{low, high}}
}

//---

// TrainConfig parameterizes a training invocation.
type TrainConfig struct {
	// ModelName names the trained model in the server-side model catalog.
	// Left empty, a unique name is generated.
	ModelName string
	// TargetNodeLabels restricts training to nodes carrying these labels.
	// Only labels whose nodes carry TargetProperty are valid here.
	TargetNodeLabels []string
	// TargetProperty is the class attribute to predict.
	TargetProperty string
	// Metrics lists the evaluation metrics to compute, e.g.
	// "F1_WEIGHTED" or "ACCURACY". The first metric drives model selection.
	Metrics []string
	// RandomSeed fixes the split and search randomness for reproducibility.
	// Zero leaves seeding to the server.
	RandomSeed int64
}

// TrainResult summarizes a completed training invocation.
type TrainResult struct {
	// ModelName is the name under which the winning model was stored.
	ModelName string
	// BestParameters holds the winning candidate's resolved hyperparameters.
	// Ranged values appear here as the concrete value the autotuner picked.
	BestParameters map[string]interface{}
	// Metrics maps each requested metric to its computed scores.
	Metrics map[string]MetricScores
	// TrainMillis is the server-reported training duration.
	TrainMillis int64
}

// Train executes the configured pipeline against a graph projection: node
// property steps, train/test split, candidate search with autotuning, and
// evaluation. The call blocks until the server finishes and returns a handle
// to the winning model together with the training summary.
//
// The pipeline must have at least one selected feature and one candidate
// model; Train rejects the call locally otherwise. Every other failure mode
// (insufficient data, invalid ranges, non-convergence) is reported by the
// server and propagated verbatim.
func (p *NodeClassificationPipeline) Train(ctx context.Context, graph *Graph, cfg TrainConfig) (*Model, *TrainResult, error) {
	if p.featureCount == 0 {
		return nil, nil, fmt.Errorf("pipeline '%s': no features selected, call SelectFeatures before Train", p.name)
	}
	if p.candidateCount == 0 {
		return nil, nil, fmt.Errorf("pipeline '%s': no model candidates added, add at least one before Train", p.name)
	}
	if cfg.TargetProperty == "" {
		return nil, nil, fmt.Errorf("pipeline '%s': a target property is required", p.name)
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "model-" + uuid.NewString()
	}

	config := map[string]interface{}{
		"pipeline":       p.name,
		"modelName":      modelName,
		"targetProperty": cfg.TargetProperty,
	}
	if len(cfg.TargetNodeLabels) > 0 {
		config["targetNodeLabels"] = cfg.TargetNodeLabels
	}
	if len(cfg.Metrics) > 0 {
		config["metrics"] = cfg.Metrics
	}
	if cfg.RandomSeed != 0 {
		config["randomSeed"] = cfg.RandomSeed
	}

	p.log.Info("training started",
		zap.String("pipeline", p.name),
		zap.String("graph", graph.Name()),
		zap.String("model", modelName))

	result, err := p.runner.Run(ctx,
		"CALL gds.beta.pipeline.nodeClassification.train($graphName, $config) "+
			"YIELD modelInfo, trainMillis",
		map[string]interface{}{"graphName": graph.Name(), "config": config},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("training of pipeline '%s' failed: %w", p.name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return nil, nil, err
	}

	modelInfo, err := recordMap(record, "modelInfo")
	if err != nil {
		return nil, nil, err
	}
	summary, err := trainResultFromModelInfo(modelInfo)
	if err != nil {
		return nil, nil, fmt.Errorf("training of pipeline '%s' returned malformed model info: %w", p.name, err)
	}
	if millis, err := recordValue[int64](record, "trainMillis"); err == nil {
		summary.TrainMillis = millis
	}

	p.log.Info("training finished",
		zap.String("model", summary.ModelName),
		zap.Int64("trainMillis", summary.TrainMillis))

	return &Model{name: summary.ModelName, runner: p.runner, log: p.log}, summary, nil
}
