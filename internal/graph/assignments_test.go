package graph_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"relentless-frontier/internal/graph"
	"relentless-frontier/internal/models"
	"relentless-frontier/mocks"
)

func sampleEvent() models.ClaimEvent {
	return models.ClaimEvent{
		EntryKey:  "NODE_ENTRY:1",
		EntryID:   1,
		URL:       "http://a.com",
		WorkerID:  "worker-a",
		CreatedAt: 100,
		ClaimedAt: time.Unix(160, 0).UTC(),
	}
}

func TestBuildClaimQuery(t *testing.T) {
	query, params := graph.BuildClaimQuery(sampleEvent())
	if !strings.Contains(query, "MERGE (w)-[c:CLAIMED]->(e)") {
		t.Fatalf("unexpected query: %s", query)
	}
	if params["worker_id"] != "worker-a" || params["entry_key"] != "NODE_ENTRY:1" {
		t.Fatalf("unexpected params: %+v", params)
	}
	if params["entry_id"] != int64(1) || params["created_at"] != int64(100) || params["claimed_at"] != int64(160) {
		t.Fatalf("unexpected numeric params: %+v", params)
	}
	if params["url"] != "http://a.com" {
		t.Fatalf("unexpected url param: %v", params["url"])
	}

	event := sampleEvent()
	event.URL = ""
	_, params = graph.BuildClaimQuery(event)
	if params["url"] != nil {
		t.Fatalf("expected nil url for coalesce, got %v", params["url"])
	}
}

func TestWriteClaimRunsWriteSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	driver := mocks.NewMockDriverSessioner(ctrl)
	session := mocks.NewMockSessionRunner(ctrl)

	driver.EXPECT().NewSession(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cfg neo4j.SessionConfig) graph.SessionRunner {
			if cfg.AccessMode != neo4j.AccessModeWrite {
				t.Fatalf("expected write access mode, got %v", cfg.AccessMode)
			}
			return session
		})
	session.EXPECT().ExecuteWrite(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	session.EXPECT().Close(gomock.Any()).Return(nil)

	w := graph.NewAssignmentWriter(driver, nil)
	if err := w.WriteClaim(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("WriteClaim returned error: %v", err)
	}
}

func TestWriteClaimPropagatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	driver := mocks.NewMockDriverSessioner(ctrl)
	session := mocks.NewMockSessionRunner(ctrl)
	driver.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(session)
	session.EXPECT().ExecuteWrite(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("neo4j down"))
	session.EXPECT().Close(gomock.Any()).Return(nil)

	w := graph.NewAssignmentWriter(driver, nil)
	if err := w.WriteClaim(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestWriteClaimRejectsIncompleteEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	driver := mocks.NewMockDriverSessioner(ctrl)
	driver.EXPECT().NewSession(gomock.Any(), gomock.Any()).Times(0)

	w := graph.NewAssignmentWriter(driver, nil)
	event := sampleEvent()
	event.WorkerID = ""
	if err := w.WriteClaim(context.Background(), event); !errors.Is(err, graph.ErrIncompleteEvent) {
		t.Fatalf("expected ErrIncompleteEvent, got %v", err)
	}
}
