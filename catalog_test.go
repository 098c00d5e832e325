package neogds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCatalogProject(t *testing.T) {
	runner := &mockRunner{}
	runner.respond("gds.graph.project", makeResult(
		[]string{"graphName", "nodeCount", "relationshipCount", "projectMillis"},
		[]interface{}{"imdb", int64(2750), int64(5000), int64(12)},
	))
	catalog := NewSession(runner, nil).Graphs()

	graph, summary, err := catalog.Project(context.Background(), "imdb",
		[]string{"Movie"}, []string{"ACTED_IN"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "imdb", graph.Name())
	assert.Equal(t, int64(2750), summary.NodeCount)
	assert.Equal(t, int64(5000), summary.RelationshipCount)
	assert.Equal(t, int64(12), summary.ProjectMillis)

	params := runner.lastCall().params
	assert.Equal(t, "imdb", params["name"])
	assert.Equal(t, []string{"Movie"}, params["nodeProjection"])
	assert.Equal(t, []string{"ACTED_IN"}, params["relationshipProjection"])
	assert.Equal(t, map[string]interface{}{}, params["config"])
}

func TestGraphCatalogExists(t *testing.T) {
	runner := &mockRunner{}
	runner.respond("gds.graph.exists", makeResult([]string{"exists"}, []interface{}{true}))
	catalog := NewSession(runner, nil).Graphs()

	exists, err := catalog.Exists(context.Background(), "imdb")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "imdb", runner.lastCall().params["name"])
}

func TestGraphCatalogGetMissingGraph(t *testing.T) {
	runner := &mockRunner{}
	runner.respond("gds.graph.exists", makeResult([]string{"exists"}, []interface{}{false}))
	catalog := NewSession(runner, nil).Graphs()

	_, err := catalog.Get(context.Background(), "gone")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGraphCatalogList(t *testing.T) {
	runner := &mockRunner{}
	runner.respond("gds.graph.list", makeResult(
		[]string{"graphName"},
		[]interface{}{"imdb"},
		[]interface{}{"cora"},
	))
	catalog := NewSession(runner, nil).Graphs()

	names, err := catalog.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"imdb", "cora"}, names)
}
