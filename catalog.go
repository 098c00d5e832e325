package neogds

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// GraphCatalog manages the server-side graph catalog: projecting new graphs
// and looking up, listing or dropping existing ones.
type GraphCatalog struct {
	runner DBRunner
	log    *zap.Logger
}

// ProjectResult summarizes a successful graph projection.
type ProjectResult struct {
	GraphName         string
	NodeCount         int64
	RelationshipCount int64
	ProjectMillis     int64
}

// Project creates a named in-memory graph projection from the underlying
// database via gds.graph.project and returns a handle to it.
//
// Parameters:
//   - name: The catalog name for the new projection.
//   - nodeProjection: Node labels to project. Either a list of label strings
//     or a map from label to a projection map (e.g. {"properties": [...]}).
//   - relationshipProjection: Relationship types to project, in the same
//     string-list or map form (maps may set e.g. "orientation").
//   - config: Optional additional configuration; may be nil.
//
// Returns:
//
//	A graph handle, the projection summary, or the server's error verbatim.
func (c *GraphCatalog) Project(
	ctx context.Context,
	name string,
	nodeProjection interface{},
	relationshipProjection interface{},
	config map[string]interface{},
) (*Graph, *ProjectResult, error) {
	if config == nil {
		config = map[string]interface{}{}
	}
	result, err := c.runner.Run(ctx,
		"CALL gds.graph.project($name, $nodeProjection, $relationshipProjection, $config) "+
			"YIELD graphName, nodeCount, relationshipCount, projectMillis",
		map[string]interface{}{
			"name":                   name,
			"nodeProjection":         nodeProjection,
			"relationshipProjection": relationshipProjection,
			"config":                 config,
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("could not project graph '%s': %w", name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return nil, nil, err
	}

	summary := &ProjectResult{GraphName: name}
	if summary.NodeCount, err = recordValue[int64](record, "nodeCount"); err != nil {
		return nil, nil, err
	}
	if summary.RelationshipCount, err = recordValue[int64](record, "relationshipCount"); err != nil {
		return nil, nil, err
	}
	if summary.ProjectMillis, err = recordValue[int64](record, "projectMillis"); err != nil {
		return nil, nil, err
	}

	c.log.Info("projected graph",
		zap.String("graph", name),
		zap.Int64("nodes", summary.NodeCount),
		zap.Int64("relationships", summary.RelationshipCount))

	return c.handle(name), summary, nil
}

// Get returns a handle to an existing projection, or ErrNotFound when no
// graph with that name is in the catalog.
func (c *GraphCatalog) Get(ctx context.Context, name string) (*Graph, error) {
	exists, err := c.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("graph '%s': %w", name, ErrNotFound)
	}
	return c.handle(name), nil
}

// Exists reports whether a projection with the given name is in the catalog.
func (c *GraphCatalog) Exists(ctx context.Context, name string) (bool, error) {
	result, err := c.runner.Run(ctx,
		"CALL gds.graph.exists($name) YIELD exists",
		map[string]interface{}{"name": name},
	)
	if err != nil {
		return false, fmt.Errorf("could not check graph '%s': %w", name, err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return false, err
	}
	return recordValue[bool](record, "exists")
}

// List returns the names of all projections currently in the catalog.
func (c *GraphCatalog) List(ctx context.Context) ([]string, error) {
	result, err := c.runner.Run(ctx, "CALL gds.graph.list() YIELD graphName", nil)
	if err != nil {
		return nil, fmt.Errorf("could not list graphs: %w", err)
	}
	names := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		name, err := recordValue[string](record, "graphName")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Drop removes a projection by name. Equivalent to Get followed by
// Graph.Drop, in one round trip.
func (c *GraphCatalog) Drop(ctx context.Context, name string) error {
	return c.handle(name).Drop(ctx)
}

func (c *GraphCatalog) handle(name string) *Graph {
	return &Graph{name: name, runner: c.runner, log: c.log}
}
