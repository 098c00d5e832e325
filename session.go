package neogds

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// Config holds the connection parameters for a GDS-enabled Neo4j server.
type Config struct {
	// URI is the Bolt connection URI, e.g. "neo4j://localhost:7687".
	URI string
	// Username and Password form the optional credential pair. An empty
	// password disables authentication, which matches servers started with
	// auth disabled.
	Username string
	Password string
	// Database is the logical database all calls are routed to.
	Database string
}

// ConfigFromEnv builds a Config from process environment variables, falling
// back to documented defaults when a variable is unset:
//
//	NEO4J_URI       (default "neo4j://localhost:7687")
//	NEO4J_USER      (default "neo4j")
//	NEO4J_PASSWORD  (default "")
//	NEO4J_DB        (default "neo4j")
func ConfigFromEnv() Config {
	return Config{
		URI:      envOr("NEO4J_URI", "neo4j://localhost:7687"),
		Username: envOr("NEO4J_USER", "neo4j"),
		Password: envOr("NEO4J_PASSWORD", ""),
		Database: envOr("NEO4J_DB", "neo4j"),
	}
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

//---

// Session is the entry point of the client. It wraps a DBRunner and hands out
// the catalogs through which graphs, pipelines and models are managed. The
// session holds no authoritative state: every accessor on every handle is a
// fresh round trip to the server.
type Session struct {
	runner DBRunner
	log    *zap.Logger
}

// NewSession creates a Session on top of an existing DBRunner.
//
// Parameters:
//   - runner: An instance of DBRunner, used to execute all procedure calls.
//   - logger: An optional zap logger. Pass nil to disable logging.
func NewSession(runner DBRunner, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{runner: runner, log: logger.Named("gds")}
}

// Connect is a convenience constructor that creates a Neo4jExecutor from the
// given Config, verifies connectivity, and returns a Session bound to it.
//
// Returns:
//
//	The session, the executor (so the caller can Close it), or an error if
//	the target is unreachable.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, *Neo4jExecutor, error) {
	executor, err := NewNeo4jExecutor(cfg.URI, cfg.Username, cfg.Password, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := executor.Verify(ctx); err != nil {
		return nil, nil, fmt.Errorf("could not connect to '%s': %w", cfg.URI, err)
	}
	return NewSession(executor, logger), executor, nil
}

// Run executes a raw Cypher query through the session's runner. It exists for
// callers (such as dataset loaders) that need plain Cypher next to the typed
// procedure calls.
func (s *Session) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return s.runner.Run(ctx, query, params)
}

// Version returns the version string reported by the GDS server,
// e.g. "2.6.0".
func (s *Session) Version(ctx context.Context) (string, error) {
	result, err := s.runner.Run(ctx, "RETURN gds.version() AS version", nil)
	if err != nil {
		return "", fmt.Errorf("could not query GDS version: %w", err)
	}
	record, err := singleRecord(result)
	if err != nil {
		return "", err
	}
	return recordValue[string](record, "version")
}

// RequireVersion asserts that the server runs at least the given GDS version
// (e.g. "2.5.0"). It returns an error wrapping ErrIncompatibleServer when the
// server is older, and nil when it is compatible.
//
// This is the only local check the client performs; every other failure mode
// is reported by the server and propagated verbatim.
func (s *Session) RequireVersion(ctx context.Context, minimum string) error {
	version, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if compareVersions(version, minimum) < 0 {
		return fmt.Errorf("server reports GDS %s but at least %s is required: %w",
			version, minimum, ErrIncompatibleServer)
	}
	s.log.Debug("version gate passed",
		zap.String("server", version), zap.String("minimum", minimum))
	return nil
}

// compareVersions compares two GDS version strings semver-style, ignoring any
// build suffix the server appends (e.g. "2.6.0+aura").
func compareVersions(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}

func canonicalVersion(v string) string {
	if i := strings.IndexAny(v, "+"); i >= 0 {
		v = v[:i]
	}
	return "v" + strings.TrimPrefix(v, "v")
}

// Graphs returns the graph catalog bound to this session.
func (s *Session) Graphs() *GraphCatalog {
	return &GraphCatalog{runner: s.runner, log: s.log.Named("graphs")}
}

// Pipelines returns the pipeline catalog bound to this session.
func (s *Session) Pipelines() *PipelineCatalog {
	return &PipelineCatalog{runner: s.runner, log: s.log.Named("pipelines")}
}

// Models returns the model catalog bound to this session.
func (s *Session) Models() *ModelCatalog {
	return &ModelCatalog{runner: s.runner, log: s.log.Named("models")}
}
