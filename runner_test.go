package neogds

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// errNotFoundFromServer mimics the wording GDS uses for missing catalog
// resources.
var errNotFoundFromServer = errors.New("Model with name `gone` does not exist")

// recordedCall is one query the mock runner received.
type recordedCall struct {
	query  string
	params map[string]interface{}
}

// cannedResponse pairs a query substring with the result (or error) the mock
// runner answers it with.
type cannedResponse struct {
	contains string
	result   *neo4j.EagerResult
	err      error
}

// mockRunner satisfies DBRunner for tests. It records every call and answers
// with the first canned response whose substring matches the query; anything
// unmatched gets an empty result.
type mockRunner struct {
	calls     []recordedCall
	responses []cannedResponse
}

var _ DBRunner = (*mockRunner)(nil)

func (m *mockRunner) Run(_ context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	m.calls = append(m.calls, recordedCall{query: query, params: params})
	for _, response := range m.responses {
		if strings.Contains(query, response.contains) {
			return response.result, response.err
		}
	}
	return emptyResult(), nil
}

func (m *mockRunner) respond(contains string, result *neo4j.EagerResult) {
	m.responses = append(m.responses, cannedResponse{contains: contains, result: result})
}

func (m *mockRunner) fail(contains string, err error) {
	m.responses = append(m.responses, cannedResponse{contains: contains, err: err})
}

func (m *mockRunner) lastCall() recordedCall {
	return m.calls[len(m.calls)-1]
}

func emptyResult() *neo4j.EagerResult {
	return &neo4j.EagerResult{}
}

// makeResult builds an eager result with the given column keys and rows.
func makeResult(keys []string, rows ...[]interface{}) *neo4j.EagerResult {
	records := make([]*neo4j.Record, len(rows))
	for i, row := range rows {
		records[i] = &neo4j.Record{Keys: keys, Values: row}
	}
	return &neo4j.EagerResult{Keys: keys, Records: records}
}
