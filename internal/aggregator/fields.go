package aggregator

import "github.com/tbgai/match-streamer/internal/models"

// field describes one comparable, editable attribute of a MatchEvent.
// Get reads the current value for diffing or change-map construction;
// Set applies a previously captured value back onto an event (used when
// replaying an EventEdited domain event); Equal decides whether two
// observed values of this field count as a change.
//
// This table is shared by the aggregator (to compute diffs) and the
// projector (to apply them), so the two can never drift apart.
type field struct {
	Name  string
	Get   func(*models.MatchEvent) any
	Set   func(*models.MatchEvent, any)
	Equal func(a, b any) bool
}

func equalScalar(a, b any) bool { return a == b }

func equalIntPtr(a, b any) bool {
	ap, bp := a.(*int), b.(*int)
	if (ap == nil) != (bp == nil) {
		return false
	}
	return ap == nil || *ap == *bp
}

func equalStringPtr(a, b any) bool {
	ap, bp := a.(*string), b.(*string)
	if (ap == nil) != (bp == nil) {
		return false
	}
	return ap == nil || *ap == *bp
}

func equalFloatPtr(a, b any) bool {
	ap, bp := a.(*float64), b.(*float64)
	if (ap == nil) != (bp == nil) {
		return false
	}
	// Bit-identical comparison, no epsilon: the feed is expected to
	// repeat identical floats verbatim when a value has not changed.
	return ap == nil || *ap == *bp
}

func equalQualifiers(a, b any) bool {
	return models.QualifiersEqual(a.([]models.Qualifier), b.([]models.Qualifier))
}

// fieldTable lists every diffable MatchEvent field. FeedEventID and
// MatchID are identifiers, not diffable attributes, and are deliberately
// absent.
var fieldTable = []field{
	{
		Name:  "typeId",
		Get:   func(e *models.MatchEvent) any { return e.TypeID },
		Set:   func(e *models.MatchEvent, v any) { e.TypeID = v.(int) },
		Equal: equalScalar,
	},
	{
		Name:  "periodId",
		Get:   func(e *models.MatchEvent) any { return e.PeriodID },
		Set:   func(e *models.MatchEvent, v any) { e.PeriodID = v.(int) },
		Equal: equalScalar,
	},
	{
		Name:  "timeMin",
		Get:   func(e *models.MatchEvent) any { return e.TimeMin },
		Set:   func(e *models.MatchEvent, v any) { e.TimeMin = v.(int) },
		Equal: equalScalar,
	},
	{
		Name:  "timeSec",
		Get:   func(e *models.MatchEvent) any { return e.TimeSec },
		Set:   func(e *models.MatchEvent, v any) { e.TimeSec = v.(int) },
		Equal: equalScalar,
	},
	{
		Name:  "teamId",
		Get:   func(e *models.MatchEvent) any { return e.TeamID },
		Set:   func(e *models.MatchEvent, v any) { e.TeamID = v.(string) },
		Equal: equalScalar,
	},
	{
		Name:  "playerId",
		Get:   func(e *models.MatchEvent) any { return e.PlayerID },
		Set:   func(e *models.MatchEvent, v any) { e.PlayerID, _ = v.(*string) },
		Equal: equalStringPtr,
	},
	{
		Name:  "playerName",
		Get:   func(e *models.MatchEvent) any { return e.PlayerName },
		Set:   func(e *models.MatchEvent, v any) { e.PlayerName, _ = v.(*string) },
		Equal: equalStringPtr,
	},
	{
		Name:  "outcomeId",
		Get:   func(e *models.MatchEvent) any { return e.OutcomeID },
		Set:   func(e *models.MatchEvent, v any) { e.OutcomeID, _ = v.(*int) },
		Equal: equalIntPtr,
	},
	{
		Name:  "x",
		Get:   func(e *models.MatchEvent) any { return e.X },
		Set:   func(e *models.MatchEvent, v any) { e.X, _ = v.(*float64) },
		Equal: equalFloatPtr,
	},
	{
		Name:  "y",
		Get:   func(e *models.MatchEvent) any { return e.Y },
		Set:   func(e *models.MatchEvent, v any) { e.Y, _ = v.(*float64) },
		Equal: equalFloatPtr,
	},
	{
		Name:  "timeStamp",
		Get:   func(e *models.MatchEvent) any { return e.TimeStamp },
		Set:   func(e *models.MatchEvent, v any) { e.TimeStamp, _ = v.(*string) },
		Equal: equalStringPtr,
	},
	{
		Name:  "lastModified",
		Get:   func(e *models.MatchEvent) any { return e.LastModified },
		Set:   func(e *models.MatchEvent, v any) { e.LastModified = v.(int64) },
		Equal: equalScalar,
	},
	{
		Name:  "qualifiers",
		Get:   func(e *models.MatchEvent) any { return e.Qualifiers },
		Set:   func(e *models.MatchEvent, v any) { e.Qualifiers, _ = v.([]models.Qualifier) },
		Equal: equalQualifiers,
	},
}

// diffFields compares every entry of fieldTable between old and next and
// returns the changed and old values, keyed by field name. An empty map
// means no field changed.
func diffFields(old, next models.MatchEvent) (changed, previous map[string]any) {
	changed = make(map[string]any)
	previous = make(map[string]any)
	for _, f := range fieldTable {
		ov, nv := f.Get(&old), f.Get(&next)
		if !f.Equal(ov, nv) {
			changed[f.Name] = nv
			previous[f.Name] = ov
		}
	}
	return changed, previous
}

// ApplyChangedFields writes every entry of a changed-field map back onto
// ev, using the same field table the aggregator diffs against. This is
// the single source of truth for "what does an edit do to a
// MatchEvent" — both the aggregate and the projector call it so the
// write side and the read side can never disagree about field
// semantics. Unknown field names are skipped and returned; this function
// logs nothing, and neither the aggregate nor the projector logs the
// returned names.
func ApplyChangedFields(ev *models.MatchEvent, changed map[string]any) (unknown []string) {
	return applyFields(ev, changed)
}

func applyFields(ev *models.MatchEvent, changed map[string]any) (unknown []string) {
	byName := make(map[string]field, len(fieldTable))
	for _, f := range fieldTable {
		byName[f.Name] = f
	}
	for name, v := range changed {
		f, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		f.Set(ev, v)
	}
	return unknown
}
