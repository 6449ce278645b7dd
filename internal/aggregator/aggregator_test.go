package aggregator

import (
	"testing"
	"time"

	"github.com/tbgai/match-streamer/internal/domain"
	"github.com/tbgai/match-streamer/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestIngestSnapshot_FirstObservationEmitsGlobalEventAdded(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)

	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 1, MatchID: "m1", TypeID: 1, PeriodID: 1, TimeMin: 3},
	}, now)

	uncommitted := agg.Uncommitted()
	if len(uncommitted) != 1 {
		t.Fatalf("want 1 recorded domain event, got %d", len(uncommitted))
	}
	evt := uncommitted[0]
	if evt.Type != domain.GlobalEventAddedType {
		t.Fatalf("want GlobalEventAdded, got %s", evt.Type)
	}
	if evt.GlobalEventAdded == nil || evt.GlobalEventAdded.FeedEventID != 1 {
		t.Fatalf("want payload carrying feed event 1, got %+v", evt.GlobalEventAdded)
	}

	stored, ok := agg.Event(1)
	if !ok || stored.TimeMin != 3 {
		t.Fatalf("want event 1 stored with TimeMin 3, got %+v ok=%v", stored, ok)
	}
}

func TestIngestSnapshot_UnchangedSnapshotEmitsNothing(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)
	ev := models.MatchEvent{FeedEventID: 1, MatchID: "m1", TypeID: 1, PeriodID: 1}

	agg.IngestSnapshot([]models.MatchEvent{ev}, now)
	agg.ClearUncommitted()

	agg.IngestSnapshot([]models.MatchEvent{ev}, now.Add(time.Minute))

	if len(agg.Uncommitted()) != 0 {
		t.Fatalf("want no domain events for a repeated identical snapshot, got %d", len(agg.Uncommitted()))
	}
}

func TestIngestSnapshot_FieldChangeEmitsEventEditedWithChangedAndOldFields(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)

	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 1, MatchID: "m1", TypeID: 1, PeriodID: 1, TimeMin: 3},
	}, now)
	agg.ClearUncommitted()

	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 1, MatchID: "m1", TypeID: 2, PeriodID: 1, TimeMin: 3},
	}, now.Add(time.Minute))

	uncommitted := agg.Uncommitted()
	if len(uncommitted) != 1 {
		t.Fatalf("want 1 recorded domain event, got %d", len(uncommitted))
	}
	evt := uncommitted[0]
	if evt.Type != domain.EventEditedType {
		t.Fatalf("want EventEdited, got %s", evt.Type)
	}
	if evt.EventEdited.FeedEventID != 1 {
		t.Fatalf("want edit keyed on feed event 1, got %d", evt.EventEdited.FeedEventID)
	}
	if got := evt.EventEdited.ChangedFields["typeId"]; got != 2 {
		t.Fatalf("want changed_fields.typeId=2, got %v", got)
	}
	if got := evt.EventEdited.OldFields["typeId"]; got != 1 {
		t.Fatalf("want old_fields.typeId=1, got %v", got)
	}
	if _, ok := evt.EventEdited.ChangedFields["timeMin"]; ok {
		t.Fatalf("want unchanged field timeMin absent from changed_fields, got %+v", evt.EventEdited.ChangedFields)
	}

	stored, _ := agg.Event(1)
	if stored.TypeID != 2 {
		t.Fatalf("want stored event to reflect the edit, got TypeID=%d", stored.TypeID)
	}
}

func TestIngestSnapshot_QualifierReorderIsNoOp(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)

	agg.IngestSnapshot([]models.MatchEvent{
		{
			FeedEventID: 1, MatchID: "m1", TypeID: 1, PeriodID: 1,
			Qualifiers: []models.Qualifier{
				{QualifierID: 1, Value: strPtr("a")},
				{QualifierID: 2, Value: strPtr("b")},
			},
		},
	}, now)
	agg.ClearUncommitted()

	// Same qualifier set, different order: must not be treated as a change.
	agg.IngestSnapshot([]models.MatchEvent{
		{
			FeedEventID: 1, MatchID: "m1", TypeID: 1, PeriodID: 1,
			Qualifiers: []models.Qualifier{
				{QualifierID: 2, Value: strPtr("b")},
				{QualifierID: 1, Value: strPtr("a")},
			},
		},
	}, now.Add(time.Minute))

	if len(agg.Uncommitted()) != 0 {
		t.Fatalf("want qualifier reorder to be a no-op, got %d domain events", len(agg.Uncommitted()))
	}
}

func TestIngestSnapshot_QualifierSetChangeEmitsEdit(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)

	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 1, MatchID: "m1", Qualifiers: []models.Qualifier{{QualifierID: 1, Value: strPtr("a")}}},
	}, now)
	agg.ClearUncommitted()

	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 1, MatchID: "m1", Qualifiers: []models.Qualifier{{QualifierID: 1, Value: strPtr("a")}, {QualifierID: 3, Value: nil}}},
	}, now.Add(time.Minute))

	if len(agg.Uncommitted()) != 1 {
		t.Fatalf("want 1 edit for an actual qualifier set change, got %d", len(agg.Uncommitted()))
	}
}

func TestIngestSnapshot_EditRequiresPriorGlobalEventAdded(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)

	// An event never seen before is always a GlobalEventAdded, never an
	// EventEdited, regardless of how many fields it carries.
	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 9, MatchID: "m1", TypeID: 5, PeriodID: 1, PlayerID: strPtr("p1"), OutcomeID: intPtr(1)},
	}, now)

	uncommitted := agg.Uncommitted()
	if len(uncommitted) != 1 || uncommitted[0].Type != domain.GlobalEventAddedType {
		t.Fatalf("want exactly one GlobalEventAdded for an unseen feed event, got %+v", uncommitted)
	}
}

func TestIngestSnapshot_MatchEndMarksFinishedStickily(t *testing.T) {
	agg := New("m1")
	now := time.Unix(100, 0)

	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 1, MatchID: "m1", TypeID: matchEndTypeID, PeriodID: matchEndPeriodID},
	}, now)

	if !agg.Finished {
		t.Fatal("want Finished set after the END/period-2 event")
	}

	// A later snapshot lacking the END event must not un-finish the match.
	agg.IngestSnapshot([]models.MatchEvent{
		{FeedEventID: 2, MatchID: "m1", TypeID: 1, PeriodID: 2},
	}, now.Add(time.Minute))

	if !agg.Finished {
		t.Fatal("want Finished to remain sticky")
	}
}

func TestRestore_ReplaysLogToEquivalentState(t *testing.T) {
	now := time.Unix(100, 0)
	live := New("m1")
	live.IngestSnapshot([]models.MatchEvent{{FeedEventID: 1, MatchID: "m1", TypeID: 1, PeriodID: 1}}, now)
	live.IngestSnapshot([]models.MatchEvent{{FeedEventID: 1, MatchID: "m1", TypeID: 2, PeriodID: 1}}, now.Add(time.Minute))
	log := live.Uncommitted()

	restored := Restore("m1", log)

	want, ok := live.Event(1)
	if !ok {
		t.Fatal("want event 1 present in live aggregate")
	}
	got, ok := restored.Event(1)
	if !ok {
		t.Fatal("want event 1 present after restore")
	}
	if got.TypeID != want.TypeID {
		t.Fatalf("want restored TypeID=%d, got %d", want.TypeID, got.TypeID)
	}
}

func TestDiffFields_DetectsEveryScalarAndPointerFieldKind(t *testing.T) {
	old := models.MatchEvent{
		TypeID: 1, PeriodID: 1, TimeMin: 1, TimeSec: 1, TeamID: "a",
		PlayerID: strPtr("p1"), OutcomeID: intPtr(1), X: floatPtr(1), Y: floatPtr(1),
		PlayerName: strPtr("Alice"), TimeStamp: strPtr("t1"), LastModified: 1,
	}
	next := models.MatchEvent{
		TypeID: 2, PeriodID: 1, TimeMin: 1, TimeSec: 1, TeamID: "a",
		PlayerID: strPtr("p2"), OutcomeID: intPtr(2), X: floatPtr(2), Y: floatPtr(1),
		PlayerName: strPtr("Bob"), TimeStamp: strPtr("t2"), LastModified: 2,
	}

	changed, old_ := diffFields(old, next)

	wantChanged := []string{"typeId", "playerId", "outcomeId", "x", "playerName", "timeStamp", "lastModified"}
	for _, name := range wantChanged {
		if _, ok := changed[name]; !ok {
			t.Errorf("want %q present in changed fields, got %+v", name, changed)
		}
		if _, ok := old_[name]; !ok {
			t.Errorf("want %q present in old fields, got %+v", name, old_)
		}
	}
	for _, name := range []string{"periodId", "timeMin", "timeSec", "teamId", "y"} {
		if _, ok := changed[name]; ok {
			t.Errorf("want %q absent from changed fields (unchanged), got %+v", name, changed)
		}
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestApplyChangedFields_UnknownFieldNameReportedAndIgnored(t *testing.T) {
	ev := models.MatchEvent{TypeID: 1}
	unknown := ApplyChangedFields(&ev, map[string]any{"typeId": 5, "bogusField": "x"})

	if ev.TypeID != 5 {
		t.Fatalf("want known field applied, got TypeID=%d", ev.TypeID)
	}
	if len(unknown) != 1 || unknown[0] != "bogusField" {
		t.Fatalf("want bogusField reported as unknown, got %+v", unknown)
	}
}
