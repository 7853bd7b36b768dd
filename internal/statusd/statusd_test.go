package statusd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gcsync/internal/entry"
)

func TestObserveTallies(t *testing.T) {
	s := NewState()
	s.Observe(entry.Outcome{Status: entry.OutcomeOK, Action: entry.SyncAction{Kind: entry.ActionUpsert}})
	s.Observe(entry.Outcome{Status: entry.OutcomeOK, Action: entry.SyncAction{Kind: entry.ActionSkip}})
	s.Observe(entry.Outcome{Status: entry.OutcomeOK, Action: entry.SyncAction{Kind: entry.ActionDelete}})
	s.Observe(entry.Outcome{Status: entry.OutcomeErr})

	snap := s.Snapshot()
	if snap.Upserted != 1 || snap.Skipped != 1 || snap.Deleted != 1 || snap.Failed != 1 {
		t.Fatalf("got %+v", snap)
	}
	if snap.Done {
		t.Fatal("expected Done=false before Finish")
	}

	s.Finish()
	if !s.Snapshot().Done {
		t.Fatal("expected Done=true after Finish")
	}
}

func TestStatusEndpointServesSnapshot(t *testing.T) {
	state := NewState()
	state.Observe(entry.Outcome{Status: entry.OutcomeOK, Action: entry.SyncAction{Kind: entry.ActionUpsert}})

	srv := NewServer(":0", state)
	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Upserted != 1 {
		t.Fatalf("got %+v", snap)
	}
}
