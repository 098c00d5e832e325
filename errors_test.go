package neogds

import (
	"errors"
	"fmt"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundErrorClassifiesDriverErrors(t *testing.T) {
	missingGraph := &neo4j.Neo4jError{
		Code: "Neo.ClientError.Procedure.ProcedureCallFailed",
		Msg:  "Failed to invoke procedure `gds.graph.drop`: Graph with name `imdb` does not exist on database `neo4j`.",
	}

	assert.True(t, isNotFoundError(missingGraph))
	assert.True(t, isNotFoundError(fmt.Errorf("could not drop graph: %w", missingGraph)))
}

func TestIsNotFoundErrorIgnoresNonClientErrors(t *testing.T) {
	// A transient failure whose message happens to mention a missing
	// resource must not be mistaken for a dropped catalog entry.
	unavailable := &neo4j.Neo4jError{
		Code: "Neo.TransientError.General.DatabaseUnavailable",
		Msg:  "Database `neo4j` is unavailable; graph not found in cache.",
	}

	assert.False(t, isNotFoundError(unavailable))
}

func TestIsNotFoundErrorFallsBackToMessageText(t *testing.T) {
	assert.True(t, isNotFoundError(errors.New("Model with name `gone` does not exist")))
	assert.False(t, isNotFoundError(errors.New("connection reset by peer")))
	assert.False(t, isNotFoundError(nil))
}
