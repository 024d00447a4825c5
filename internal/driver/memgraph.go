package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(uri, username, password string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	slog.Info("connected to Memgraph", "uri", uri)
	return &MemgraphDriver{Driver: driver}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Snapshot(name);",
		"CREATE INDEX ON :Element(snapshot);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Memgraph errors when the index already exists.
			slog.Warn("failed to create index", "query", q, "error", err)
		}
	}
	return nil
}

// FetchSnapshotRecords loads the archived records of the named snapshot.
// It returns an error when the snapshot does not exist.
func FetchSnapshotRecords(ctx context.Context, d GraphDriver, name string) ([]map[string]interface{}, error) {
	exists, err := d.ExecuteQuery(ctx, SnapshotExistsQuery, map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	if countOf(exists) == 0 {
		return nil, fmt.Errorf("snapshot %q not found", name)
	}

	res, err := d.ExecuteQuery(ctx, SnapshotRecordsQuery, map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}

	records := make([]map[string]interface{}, 0, len(res.Records))
	for _, row := range res.Records {
		if payload, ok := row.Get("payload"); ok {
			if s, ok := payload.(string); ok && s != "" {
				var rec map[string]interface{}
				if err := json.Unmarshal([]byte(s), &rec); err == nil {
					records = append(records, rec)
					continue
				}
			}
		}
		props, _ := row.Get("props")
		if m, ok := props.(map[string]interface{}); ok {
			rec := make(map[string]interface{}, len(m))
			for k, v := range m {
				rec[k] = v
			}
			for _, k := range elementBookkeeping {
				delete(rec, k)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// SaveSnapshot archives records under name in capture order. Elements are appended,
// so archiving the same name twice duplicates them.
func SaveSnapshot(ctx context.Context, d GraphDriver, name, source string, records []map[string]interface{}) error {
	_, err := d.ExecuteQuery(ctx, SaveSnapshotQuery, map[string]interface{}{
		"name":        name,
		"source":      source,
		"captured_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		_, err = d.ExecuteQuery(ctx, SaveElementQuery, map[string]interface{}{
			"name":    name,
			"seq":     i,
			"payload": string(payload),
		})
		if err != nil {
			return fmt.Errorf("failed to save record %d: %w", i, err)
		}
	}
	return nil
}

// DeleteSnapshot removes a snapshot and its elements. Deleting a missing snapshot is not an error.
func DeleteSnapshot(ctx context.Context, d GraphDriver, name string) error {
	if _, err := d.ExecuteQuery(ctx, DeleteSnapshotQuery, map[string]interface{}{"name": name}); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func countOf(res neo4j.EagerResult) int64 {
	if len(res.Records) == 0 {
		return 0
	}
	v, ok := res.Records[0].Get("n")
	if !ok {
		return 0
	}
	n, _ := v.(int64)
	return n
}
