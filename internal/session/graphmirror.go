// Optional Neo4j graph-mirror component: facts committed to the primary KB
// are best-effort mirrored as graph edges for external graph-query tooling.
// Disabled by default; a mirror failure is logged and never propagates to
// the caller, per spec §5's rule that external collaborator calls never
// block or fail the primary reasoning path.
//
// Construction (driver options, connectivity verification, session-per-call
// write pattern) is grounded on internal/knowledge/neo4j_client.go's
// Neo4jClient.
package session

import (
	"context"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"hdcreasoner/internal/kb"
)

// GraphMirror receives a best-effort copy of every committed fact.
type GraphMirror interface {
	MirrorFact(meta kb.FactMetadata)
}

// Neo4jMirror mirrors facts as "(:Entity)-[:REL {operator}]->(:Entity)"
// edges in a Neo4j database. Two-argument facts become an edge between
// their arguments; any other arity becomes a single "(:Fact)" node carrying
// the operator and its argument list.
type Neo4jMirror struct {
	driver  neo4j.DriverWithContext
	database string
	timeout time.Duration
}

// Neo4jMirrorConfig holds connection parameters, mirroring
// internal/knowledge.Neo4jConfig's shape.
type Neo4jMirrorConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// NewNeo4jMirror connects to Neo4j and verifies connectivity once at
// construction time; callers should treat a non-nil error as "mirroring
// unavailable" and proceed without a mirror rather than failing startup.
func NewNeo4jMirror(cfg Neo4jMirrorConfig) (*Neo4jMirror, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			c.MaxConnectionPoolSize = 20
			c.ConnectionAcquisitionTimeout = cfg.Timeout
			c.SocketConnectTimeout = cfg.Timeout
		},
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	return &Neo4jMirror{driver: driver, database: cfg.Database, timeout: cfg.Timeout}, nil
}

// Close releases the underlying driver.
func (m *Neo4jMirror) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	return m.driver.Close(ctx)
}

// MirrorFact writes meta as a graph edge/node. Failures are logged, never
// returned: this is a secondary index, not the system of record.
func (m *Neo4jMirror) MirrorFact(meta kb.FactMetadata) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	sess := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.database, AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = sess.Close(ctx) }()

	var err error
	if len(meta.Args) == 2 {
		_, err = sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			return tx.Run(ctx,
				`MERGE (a:Entity {name: $a}) MERGE (b:Entity {name: $b}) MERGE (a)-[:REL {operator: $op}]->(b)`,
				map[string]interface{}{"a": meta.Args[0], "b": meta.Args[1], "op": meta.Operator})
		})
	} else {
		_, err = sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			return tx.Run(ctx,
				`CREATE (:Fact {operator: $op, args: $args})`,
				map[string]interface{}{"op": meta.Operator, "args": meta.Args})
		})
	}
	if err != nil {
		log.Printf("session: graph mirror write failed for %q: %v", meta.Operator, err)
	}
}
