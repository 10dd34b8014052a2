package graph

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"relentless-frontier/internal/models"
)

// ErrIncompleteEvent is returned for events missing the entry key or worker id.
var ErrIncompleteEvent = errors.New("graph: claim event missing entry key or worker id")

// AssignmentWriter writes claim events to Neo4j.
type AssignmentWriter struct {
	driver DriverSessioner
	logger *zap.Logger
}

func NewAssignmentWriter(driver DriverSessioner, logger *zap.Logger) *AssignmentWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentWriter{driver: driver, logger: logger}
}

// WriteClaim records the event. Writing the same event twice is harmless.
func (w *AssignmentWriter) WriteClaim(ctx context.Context, event models.ClaimEvent) error {
	if event.EntryKey == "" || event.WorkerID == "" {
		return ErrIncompleteEvent
	}
	query, params := buildClaimQuery(event)
	return w.runWrite(ctx, query, params)
}

func (w *AssignmentWriter) runWrite(ctx context.Context, query string, params map[string]any) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(ctx); err != nil {
			w.logger.Warn("neo4j session close error", zap.Error(err))
		}
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

func buildClaimQuery(event models.ClaimEvent) (string, map[string]any) {
	query := "MERGE (w:Worker {id: $worker_id}) " +
		"MERGE (e:Entry {key: $entry_key}) " +
		"SET e.id = $entry_id, e.url = coalesce($url, e.url), e.created_at = $created_at " +
		"MERGE (w)-[c:CLAIMED]->(e) " +
		"SET c.claimed_at = $claimed_at"
	var url any
	if event.URL != "" {
		url = event.URL
	}
	params := map[string]any{
		"worker_id":  event.WorkerID,
		"entry_key":  event.EntryKey,
		"entry_id":   int64(event.EntryID),
		"url":        url,
		"created_at": event.CreatedAt,
		"claimed_at": event.ClaimedAt.Unix(),
	}
	return query, params
}
