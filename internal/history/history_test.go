package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RunRoundTrip(t *testing.T) {
	store := openTestStore(t)
	started := time.Now().Add(-time.Minute)

	if err := store.StartRun("run-1", "offline", started); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun("run-1", "completed", "completed", time.Now()); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs: got %d, want 1", len(runs))
	}
	r := runs[0]
	if r.ID != "run-1" || r.Mode != "offline" || r.Status != "completed" {
		t.Errorf("run: got %+v", r)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Errorf("finished %v before started %v", r.FinishedAt, r.StartedAt)
	}
}

func TestStore_UnfinishedRunScans(t *testing.T) {
	store := openTestStore(t)
	started := time.Now()

	// No FinishRun: finished_at stays NULL and must not break the query.
	if err := store.StartRun("run-1", "live", started); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs: got %d, want 1", len(runs))
	}
	if got := runs[0].FinishedAt; !got.Equal(runs[0].StartedAt) {
		t.Errorf("unfinished FinishedAt: got %v, want StartedAt %v", got, runs[0].StartedAt)
	}
	if runs[0].Status != "running" {
		t.Errorf("status: got %q, want running", runs[0].Status)
	}
}

func TestStore_RecentRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartRun(id, "live", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.RecentRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs: got %d, want 2", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("order: got %s, %s; want c, b", runs[0].ID, runs[1].ID)
	}
}

func TestStore_Anomalies(t *testing.T) {
	store := openTestStore(t)
	if err := store.StartRun("run-1", "offline", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordAnomaly("run-1", "beat_index_clamped", "start beat 10 exceeds available beats 4", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordAnomaly("run-1", "move_dropped", "twist", time.Now()); err != nil {
		t.Fatal(err)
	}

	anomalies, err := store.Anomalies("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(anomalies) != 2 {
		t.Fatalf("anomalies: got %d, want 2", len(anomalies))
	}
	if anomalies[0].Kind != "beat_index_clamped" {
		t.Errorf("first anomaly: got %q", anomalies[0].Kind)
	}

	other, err := store.Anomalies("run-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("foreign run anomalies: got %d, want 0", len(other))
	}
}

func TestStore_NilIsNoOp(t *testing.T) {
	var store *Store
	if err := store.StartRun("x", "offline", time.Now()); err != nil {
		t.Errorf("nil StartRun: %v", err)
	}
	if err := store.FinishRun("x", "completed", "", time.Now()); err != nil {
		t.Errorf("nil FinishRun: %v", err)
	}
	if err := store.RecordAnomaly("x", "k", "d", time.Now()); err != nil {
		t.Errorf("nil RecordAnomaly: %v", err)
	}
	if runs, err := store.RecentRuns(5); err != nil || runs != nil {
		t.Errorf("nil RecentRuns: got %v, %v", runs, err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
