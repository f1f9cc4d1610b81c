// Command reasonerd is the entry point for the hybrid symbolic/
// hyperdimensional reasoning engine's MCP server.
//
// It is designed to be spawned as a child process by an MCP client and
// communicates via stdio. It should not be run manually by users.
//
// Configuration is loaded from environment variables (HDC_* prefix, see
// internal/config) with an optional HDC_CONFIG_FILE override, and an
// optional snapshot is loaded at startup if HDC_STORAGE_TYPE=sqlite and the
// configured path already exists.
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"hdcreasoner/internal/config"
	"hdcreasoner/internal/server"
	"hdcreasoner/internal/session"
	"hdcreasoner/internal/vectorrt"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("starting reasonerd in debug mode...")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	vector, err := newVectorRuntime(cfg)
	if err != nil {
		log.Fatalf("failed to initialize vector runtime: %v", err)
	}

	sess := session.New(vector, cfg.Engine.Thresholds)
	sess.ClosedWorldAssumption = cfg.Engine.ClosedWorldAssumption
	sess.CanonicalizationEnabled = cfg.Engine.CanonicalizationEnabled
	sess.HDCStrategy = cfg.Engine.HDCStrategy
	if cfg.Engine.HDCStrategy != config.StrategyExact {
		sess.ReasoningPriority = session.PriorityHolographic
	}

	if cfg.Storage.Type == "sqlite" && cfg.Storage.Path != "" {
		if _, statErr := os.Stat(cfg.Storage.Path); statErr == nil {
			if err := sess.LoadSnapshot(cfg.Storage.Path); err != nil {
				log.Fatalf("failed to load snapshot %q: %v", cfg.Storage.Path, err)
			}
			log.Printf("loaded snapshot from %s", cfg.Storage.Path)
		}
	}

	if cfg.Storage.GraphMirrorEnabled {
		mirror, err := session.NewNeo4jMirror(session.Neo4jMirrorConfig{
			URI:      cfg.Storage.Neo4jURI,
			Username: cfg.Storage.Neo4jUsername,
			Password: cfg.Storage.Neo4jPassword,
		})
		if err != nil {
			log.Printf("warning: graph mirror unavailable, continuing without it: %v", err)
		} else {
			sess.SetGraphMirror(mirror)
			defer mirror.Close()
			log.Println("graph mirror connected")
		}
	}

	srv := server.NewReasonerServer(sess)
	log.Println("created reasoner session")

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)

	srv.RegisterTools(mcpServer)
	log.Println("registered tools: prove, query, abduce, load-theory, add-fact, add-rule, forward-chain, snapshot-save, snapshot-load, stats")

	transport := &mcp.StdioTransport{}
	ctx := context.Background()
	log.Println("starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("HDC_CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// newVectorRuntime selects the vector runtime backing the session's
// holographic engine variant per cfg.Engine.HDCStrategy. StrategyExact
// disables the vector runtime entirely, restricting the session to
// symbolic reasoning.
func newVectorRuntime(cfg *config.Config) (vectorrt.VectorRuntime, error) {
	switch cfg.Engine.HDCStrategy {
	case config.StrategyExact:
		return nil, nil
	case config.StrategyDenseBinary:
		return vectorrt.NewDeterministic(cfg.Engine.VectorDimension), nil
	case config.StrategySparsePolynomial:
		return vectorrt.NewChromemBacked(cfg.Engine.VectorDimension, "")
	default:
		return vectorrt.NewDeterministic(cfg.Engine.VectorDimension), nil
	}
}
