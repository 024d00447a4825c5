package core

import (
	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/core/resolve"
	"github.com/agenthands/snapdiff/internal/core/snapshotdiff"
	"github.com/agenthands/snapdiff/internal/driver"
	"github.com/agenthands/snapdiff/internal/jobclient"
	"github.com/agenthands/snapdiff/internal/observability"
	"github.com/agenthands/snapdiff/internal/provider"
)

// Build wires an Engine from configuration. graph may be nil when no Memgraph
// instance is configured.
func Build(cfg *config.Config, graph driver.GraphDriver, metrics *observability.Metrics) *Engine {
	client := jobclient.NewClient(nil)
	client.PollInterval = cfg.Remote.PollInterval()
	client.Timeout = cfg.Remote.Timeout()

	var local jobclient.Caller
	if cfg.Self.SnapshotDir != "" {
		local = provider.NewDirectory(cfg.Self.SnapshotDir, cfg.Methods)
	}
	resolver := resolve.New(cfg, client, local, graph)

	var collaborator snapshotdiff.Differ
	if cfg.Compare.CollaboratorEndpoint != "" {
		endpoint := resolve.NormalizeEndpoint(cfg.Compare.CollaboratorEndpoint)
		collaborator = snapshotdiff.NewRemote(client, endpoint, cfg.Methods.DiffSnapshots, cfg.Remote.SnapshotTimeout())
	}
	return NewEngine(cfg, resolver, collaborator, metrics)
}
