package sqlite_test

import (
	"context"
	"testing"

	"github.com/alon-nissan/robotaste-sub000/internal/adapters/sqlite"
	"github.com/alon-nissan/robotaste-sub000/internal/models"
	"github.com/alon-nissan/robotaste-sub000/internal/ports/secondary"
)

func TestOperationLogAppendAndList(t *testing.T) {
	db := setupTestDB(t)
	seedProtocol(t, db, "", "")
	seedSession(t, db, "", "")
	opRepo := sqlite.NewOperationRepository(db)
	logRepo := sqlite.NewOperationLogRepository(db)
	ctx := context.Background()

	opID := enqueueOperation(t, opRepo, "SESS-001", 1, models.OperationTypePositionSpout, "spout", 0)

	exchanges := []*secondary.OperationLogRecord{
		{OperationID: opID, Command: "MOVE_TO_SPOUT", Response: "OK", Success: true},
		{OperationID: opID, Command: "STATUS", Response: "MOVING", Success: true},
		{OperationID: opID, Command: "STATUS", Response: "ERROR: stall detected", Success: false, ErrorMessage: "stall detected"},
	}
	for _, entry := range exchanges {
		if err := logRepo.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := logRepo.ListForOperation(ctx, opID)
	if err != nil {
		t.Fatalf("ListForOperation failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(logs) = %d, want 3", len(got))
	}
	if got[0].Command != "MOVE_TO_SPOUT" || got[0].Response != "OK" || !got[0].Success {
		t.Errorf("first exchange = %+v", got[0])
	}
	if got[2].Success {
		t.Error("third exchange recorded as success")
	}
	if got[2].ErrorMessage != "stall detected" {
		t.Errorf("error_message = %q, want stall detected", got[2].ErrorMessage)
	}
	for _, entry := range got {
		if entry.Timestamp == "" {
			t.Errorf("exchange %d missing timestamp", entry.ID)
		}
	}
}

func TestOperationLogIsolatedPerOperation(t *testing.T) {
	db := setupTestDB(t)
	seedProtocol(t, db, "", "")
	seedSession(t, db, "", "")
	opRepo := sqlite.NewOperationRepository(db)
	logRepo := sqlite.NewOperationLogRepository(db)
	ctx := context.Background()

	opA := enqueueOperation(t, opRepo, "SESS-001", 1, models.OperationTypePositionSpout, "spout", 0)
	opB := enqueueOperation(t, opRepo, "SESS-001", 1, models.OperationTypeMix, "", 5)

	_ = logRepo.Append(ctx, &secondary.OperationLogRecord{OperationID: opA, Command: "MOVE_TO_SPOUT", Response: "OK", Success: true})
	_ = logRepo.Append(ctx, &secondary.OperationLogRecord{OperationID: opB, Command: "MIX 5", Response: "OK", Success: true})

	got, err := logRepo.ListForOperation(ctx, opB)
	if err != nil {
		t.Fatalf("ListForOperation failed: %v", err)
	}
	if len(got) != 1 || got[0].Command != "MIX 5" {
		t.Errorf("logs for opB = %+v, want single MIX 5", got)
	}
}
