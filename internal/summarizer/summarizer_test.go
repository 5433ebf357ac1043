package summarizer

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"deskloop/internal/action"
)

type fakeRegistry struct {
	acts []action.Action
}

func (f *fakeRegistry) Recent(time.Duration) []action.Action { return f.acts }

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Ask(ctx context.Context, prompt, agentTag string) (string, error) {
	f.calls++
	return f.response, f.err
}

func threeActions() []action.Action {
	return []action.Action{
		{ID: 1, Type: action.TypeFileModified, Source: action.SourceFileWatcher},
		{ID: 2, Type: action.TypeFileModified, Source: action.SourceFileWatcher},
		{ID: 3, Type: action.TypeFileCreated, Source: action.SourceFileWatcher},
	}
}

func TestMinuteTick_AppendsSummaryWhenWindowMeetsThreshold(t *testing.T) {
	reg := &fakeRegistry{acts: threeActions()}
	client := &fakeClient{response: "You modified a couple of files."}
	s := New(reg, client, nil)

	s.minuteTick(context.Background())

	summaries := s.MinuteSummaries()
	if len(summaries) != 1 {
		t.Fatalf("expected one minute summary, got %d", len(summaries))
	}
	if summaries[0].ActionCount != 3 {
		t.Fatalf("expected action_count 3, got %d", summaries[0].ActionCount)
	}
}

func TestMinuteTick_SkipsWhenBelowThreshold(t *testing.T) {
	reg := &fakeRegistry{acts: threeActions()[:2]}
	client := &fakeClient{response: "summary"}
	s := New(reg, client, nil)

	s.minuteTick(context.Background())

	if len(s.MinuteSummaries()) != 0 {
		t.Fatal("expected no summary below the 3-action threshold")
	}
	if client.calls != 0 {
		t.Fatal("expected no llm call below the threshold")
	}
}

func TestTenMinuteTick_FoldsRecentMinuteSummaries(t *testing.T) {
	reg := &fakeRegistry{acts: threeActions()}
	client := &fakeClient{response: "narrative"}
	s := New(reg, client, nil)

	s.minuteTick(context.Background())
	s.tenMinuteTick(context.Background())

	tens := s.TenMinuteSummaries()
	if len(tens) != 1 {
		t.Fatalf("expected one ten-minute summary, got %d", len(tens))
	}
	if tens[0].TotalActions != 3 {
		t.Fatalf("expected total_actions to equal the folded minute summary's action_count, got %d", tens[0].TotalActions)
	}
}

func TestTenMinuteTick_FallsBackToRawActionsWhenNoMinuteSummaries(t *testing.T) {
	reg := &fakeRegistry{acts: threeActions()}
	client := &fakeClient{response: "narrative"}
	s := New(reg, client, nil)

	s.tenMinuteTick(context.Background())

	tens := s.TenMinuteSummaries()
	if len(tens) != 1 {
		t.Fatalf("expected one ten-minute summary from the raw-action fallback, got %d", len(tens))
	}
	if tens[0].TotalActions != 3 {
		t.Fatalf("expected total_actions 3 from the raw fallback window, got %d", tens[0].TotalActions)
	}
}

func TestDeleteMinuteSummary_RemovesEntry(t *testing.T) {
	reg := &fakeRegistry{acts: threeActions()}
	client := &fakeClient{response: "summary"}
	s := New(reg, client, nil)
	s.minuteTick(context.Background())

	id := s.MinuteSummaries()[0].ID
	if !s.DeleteMinuteSummary(id) {
		t.Fatal("expected delete to report success")
	}
	if len(s.MinuteSummaries()) != 0 {
		t.Fatal("expected summary to be gone after delete")
	}
}

func TestPersist_RoundTripsBothStores(t *testing.T) {
	reg := &fakeRegistry{acts: threeActions()}
	client := &fakeClient{response: "summary"}
	s := New(reg, client, nil)
	s.minuteTick(context.Background())
	s.tenMinuteTick(context.Background())

	fs := afero.NewMemMapFs()
	minutePath := "/var/lib/deskloop/summaries_minute.json"
	tenMinutePath := "/var/lib/deskloop/summaries_ten_minute.json"
	if err := s.Persist(fs, minutePath, tenMinutePath); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := New(reg, client, nil)
	restored.Load(fs, minutePath, tenMinutePath)

	if len(restored.MinuteSummaries()) != 1 || len(restored.TenMinuteSummaries()) != 1 {
		t.Fatalf("expected both stores to round-trip, got %d minute %d ten-minute",
			len(restored.MinuteSummaries()), len(restored.TenMinuteSummaries()))
	}
}

func TestInteractionLog_RecordsAndPersists(t *testing.T) {
	log := NewInteractionLog()
	log.RecordInteraction(time.Now(), "detector", "prompt one", "response one")
	log.RecordInteraction(time.Now(), "detector", "prompt two", "response two")

	all := log.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 interactions, got %d", len(all))
	}

	fs := afero.NewMemMapFs()
	path := "/var/lib/deskloop/ai_interactions.json"
	if err := log.Persist(fs, path); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := NewInteractionLog()
	restored.Load(fs, path)
	if len(restored.All()) != 2 {
		t.Fatalf("expected restored log to carry 2 interactions, got %d", len(restored.All()))
	}
}
