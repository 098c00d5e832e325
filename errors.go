package neogds

import (
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrNotFound is a sentinel error returned when a server-side resource
// (graph, pipeline, or model) does not exist in the corresponding catalog,
// for example after it has been dropped.
var ErrNotFound = errors.New("resource not found")

// ErrIncompatibleServer is a sentinel error returned by the session's version
// gate when the GDS server reports a version below the required minimum.
var ErrIncompatibleServer = errors.New("incompatible server version")

// isNotFoundError reports whether an error returned by the server indicates a
// missing catalog resource. The GDS library reports these as client errors
// whose message names the missing entity, so after narrowing on the driver's
// Neo4jError classification the check is textual.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var serverErr *neo4j.Neo4jError
	if errors.As(err, &serverErr) {
		if serverErr.Classification() != "ClientError" {
			return false
		}
		return mentionsMissingResource(serverErr.Msg)
	}
	return mentionsMissingResource(err.Error())
}

func mentionsMissingResource(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such")
}
