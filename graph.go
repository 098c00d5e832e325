package neogds

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Graph is an opaque handle to a graph projection living in the server-side
// graph catalog. The handle stores only the graph name; every accessor is a
// fresh round trip and reflects whatever the server holds at that moment.
type Graph struct {
	name   string
	runner DBRunner
	log    *zap.Logger
}

// Name returns the catalog name identifying this graph on the server.
func (g *Graph) Name() string {
	return g.name
}

// listRecord fetches this graph's catalog entry. A dropped or never-projected
// graph yields an empty result, which surfaces as ErrNotFound.
func (g *Graph) listRecord(ctx context.Context) (*neo4j.Record, error) {
	result, err := g.runner.Run(ctx,
		"CALL gds.graph.list($name) YIELD graphName, nodeCount, relationshipCount, schemaWithOrientation",
		map[string]interface{}{"name": g.name},
	)
	if err != nil {
		return nil, err
	}
	record, err := singleRecord(result)
	if err != nil {
		return nil, fmt.Errorf("graph '%s': %w", g.name, err)
	}
	return record, nil
}

// NodeCount returns the number of nodes in the projection.
func (g *Graph) NodeCount(ctx context.Context) (int64, error) {
	record, err := g.listRecord(ctx)
	if err != nil {
		return 0, err
	}
	return recordValue[int64](record, "nodeCount")
}

// RelationshipCount returns the number of relationships in the projection.
func (g *Graph) RelationshipCount(ctx context.Context) (int64, error) {
	record, err := g.listRecord(ctx)
	if err != nil {
		return 0, err
	}
	return recordValue[int64](record, "relationshipCount")
}

// NodeLabels returns the sorted set of node labels present in the projection.
// The label set is fixed at projection time.
func (g *Graph) NodeLabels(ctx context.Context) ([]string, error) {
	nodes, err := g.nodeSchema(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(nodes))
	for label := range nodes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

// RelationshipTypes returns the sorted set of relationship types present in
// the projection.
func (g *Graph) RelationshipTypes(ctx context.Context) ([]string, error) {
	record, err := g.listRecord(ctx)
	if err != nil {
		return nil, err
	}
	schema, err := recordMap(record, "schemaWithOrientation")
	if err != nil {
		return nil, err
	}
	relationships, ok := schema["relationships"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("graph '%s': schema has no relationship section", g.name)
	}
	types := make([]string, 0, len(relationships))
	for relType := range relationships {
		types = append(types, relType)
	}
	sort.Strings(types)
	return types, nil
}

// NodeProperties returns, for each node label, the sorted list of property
// names projected for that label. Property presence differs per label; for
// the bundled example dataset only the classified label carries the target
// property.
func (g *Graph) NodeProperties(ctx context.Context) (map[string][]string, error) {
	nodes, err := g.nodeSchema(ctx)
	if err != nil {
		return nil, err
	}
	properties := make(map[string][]string, len(nodes))
	for label, raw := range nodes {
		labelProps, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("graph '%s': unexpected schema entry for label '%s'", g.name, label)
		}
		names := make([]string, 0, len(labelProps))
		for prop := range labelProps {
			names = append(names, prop)
		}
		sort.Strings(names)
		properties[label] = names
	}
	return properties, nil
}

func (g *Graph) nodeSchema(ctx context.Context) (map[string]interface{}, error) {
	record, err := g.listRecord(ctx)
	if err != nil {
		return nil, err
	}
	schema, err := recordMap(record, "schemaWithOrientation")
	if err != nil {
		return nil, err
	}
	nodes, ok := schema["nodes"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("graph '%s': schema has no node section", g.name)
	}
	return nodes, nil
}

// NodePropertyValue is one row of a node property stream.
type NodePropertyValue struct {
	// NodeID is the internal node id within the projection.
	NodeID int64
	// Value is the property value; lists (e.g. embeddings) come back as
	// []interface{} of numbers.
	Value interface{}
}

// StreamNodeProperty streams a single node property back from the projection,
// optionally restricted to a set of labels. Pass no labels to stream the
// property from every label that carries it. This is how mutated properties,
// such as a pipeline-produced embedding or a predicted class, are read back.
func (g *Graph) StreamNodeProperty(ctx context.Context, property string, labels ...string) ([]NodePropertyValue, error) {
	if len(labels) == 0 {
		labels = []string{"*"}
	}
	result, err := g.runner.Run(ctx,
		"CALL gds.graph.nodeProperty.stream($name, $property, $labels) YIELD nodeId, propertyValue",
		map[string]interface{}{"name": g.name, "property": property, "labels": labels},
	)
	if err != nil {
		return nil, fmt.Errorf("could not stream property '%s' of graph '%s': %w", property, g.name, err)
	}

	rows := make([]NodePropertyValue, 0, len(result.Records))
	for _, record := range result.Records {
		nodeID, err := recordValue[int64](record, "nodeId")
		if err != nil {
			return nil, err
		}
		value, _ := record.Get("propertyValue")
		rows = append(rows, NodePropertyValue{NodeID: nodeID, Value: value})
	}
	return rows, nil
}

// Drop removes the projection from the server-side graph catalog, freeing its
// memory. Further accessor calls on this handle will return ErrNotFound.
func (g *Graph) Drop(ctx context.Context) error {
	_, err := g.runner.Run(ctx,
		"CALL gds.graph.drop($name)",
		map[string]interface{}{"name": g.name},
	)
	if err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("graph '%s': %w", g.name, ErrNotFound)
		}
		return fmt.Errorf("could not drop graph '%s': %w", g.name, err)
	}
	g.log.Info("dropped graph", zap.String("graph", g.name))
	return nil
}
