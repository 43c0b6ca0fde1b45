package dayservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/codec"
	"github.com/starford/focusfive/internal/metastore"
	"github.com/starford/focusfive/internal/models"
	"github.com/starford/focusfive/internal/storage"
	"github.com/starford/focusfive/internal/testutil"
)

var (
	jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	jan16 = time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
)

type testEnv struct {
	svc   *Service
	meta  *metastore.Store
	dir   string
	clock *testutil.Clock
}

func setup(t *testing.T, opts ...storage.FSOption) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	clock := testutil.NewClock(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	meta := testutil.TestMeta(t, store, clock)
	return &testEnv{
		svc:   NewService(store, meta, testutil.Logger(), WithClock(clock.Now)),
		meta:  meta,
		dir:   dir,
		clock: clock,
	}
}

func (e *testEnv) readFile(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(e.dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(b)
}

func (e *testEnv) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(e.dir, filepath.FromSlash(rel)))
	return err == nil
}

func sampleDay(date time.Time) models.Day {
	d := models.NewDay(date)
	n := 12
	d.DayNumber = &n
	d.Work.Goal = "Ship v1"
	d.Work.Actions = []models.Action{
		{Text: "Call investors", Completed: true},
		{Text: "Prep deck"},
		{Text: "Team standup"},
	}
	d.Health.Actions = []models.Action{{Text: "Morning run"}}
	return d
}

func hasWarning(ws []apperr.Warning, kind apperr.WarningKind) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func TestLoadDay_DeletedLineKeepsIdentity(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	const header = "# January 15, 2025\n\n## Work\n"
	testutil.WriteFile(t, env.dir, DayPath(jan15), header+"- [ ] A\n- [ ] B\n- [ ] C\n")

	first, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	ids := workIDs(first.Day)

	testutil.WriteFile(t, env.dir, DayPath(jan15), header+"- [ ] A\n- [ ] C\n")
	second, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatalf("LoadDay after edit: %v", err)
	}
	if got := workIDs(second.Day); len(got) != 2 || got[0] != ids[0] || got[1] != ids[2] {
		t.Errorf("ids = %v, want [%s %s]", got, ids[0], ids[2])
	}

	ref, err := env.svc.ActionByID(ctx, jan15, ids[1])
	if err != nil {
		t.Fatalf("ActionByID(removed): %v", err)
	}
	if !ref.Retired || ref.Meta.Text != "B" {
		t.Errorf("ref = %+v, want retired B", ref)
	}
}

func TestLoadDay_InPlaceEditKeepsIdentity(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testutil.WriteFile(t, env.dir, DayPath(jan15), "# January 15, 2025\n\n## Work\n- [ ] Draft memo\n- [ ] Review PR\n")
	first, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, env.dir, DayPath(jan15), "# January 15, 2025\n\n## Work\n- [ ] Draft memo for board\n- [x] Review PR\n")
	second, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatal(err)
	}
	if workIDs(first.Day)[0] != workIDs(second.Day)[0] {
		t.Error("in-place edit minted a new identity")
	}
	if m := second.Day.Work.Actions[1].Meta; m.Status != models.StatusDone || m.CompletedAt == nil {
		t.Errorf("checked action meta = %+v", m)
	}
}

func TestLoadDay_PersistsMetadataOnlyWhenChanged(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testutil.WriteFile(t, env.dir, DayPath(jan15), "# January 15, 2025\n\n## Work\n- [ ] A\n")

	loaded, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatal(err)
	}
	metaPath := metastore.DayMetaPath(jan15)
	before := env.readFile(t, metaPath)
	if !strings.Contains(before, loaded.Checksum) {
		t.Errorf("metadata does not record text checksum %s", loaded.Checksum)
	}

	env.clock.Advance(time.Hour)
	if _, err := env.svc.LoadDay(ctx, jan15); err != nil {
		t.Fatal(err)
	}
	if after := env.readFile(t, metaPath); after != before {
		t.Error("unchanged day rewrote its metadata")
	}
}

func TestSnapshot_DoesNotWrite(t *testing.T) {
	env := setup(t)
	testutil.WriteFile(t, env.dir, DayPath(jan15), "# January 15, 2025\n\n## Work\n- [ ] A\n")
	loaded, err := env.svc.Snapshot(context.Background(), jan15)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Day.Work.Actions[0].ID == "" {
		t.Error("snapshot actions should still carry IDs")
	}
	if env.exists(metastore.DayMetaPath(jan15)) {
		t.Error("snapshot wrote metadata")
	}
}

func TestLoadDay_ParseFallback(t *testing.T) {
	env := setup(t)
	testutil.WriteFile(t, env.dir, DayPath(jan15), "just some notes\nwith no header\n")

	loaded, err := env.svc.LoadDay(context.Background(), jan15)
	if err != nil {
		t.Fatalf("LoadDay: %v", err)
	}
	if !hasWarning(loaded.Warnings, apperr.WarnParseFallback) {
		t.Errorf("warnings = %v, want parse fallback", loaded.Warnings)
	}
	if !loaded.Day.Date.Equal(jan15) || len(loaded.Day.Work.Actions) != models.DefaultActions {
		t.Errorf("fallback day = %+v", loaded.Day)
	}
	if env.exists(metastore.DayMetaPath(jan15)) {
		t.Error("metadata written for unparseable text")
	}
}

func TestLoadDay_FileDateWins(t *testing.T) {
	env := setup(t)
	testutil.WriteFile(t, env.dir, DayPath(jan16), "# January 15, 2025\n\n## Work\n- [ ] A\n")

	loaded, err := env.svc.LoadDay(context.Background(), jan16)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Day.Date.Equal(jan16) {
		t.Errorf("date = %s, want 2025-01-16", loaded.Day.Key())
	}
	if !hasWarning(loaded.Warnings, apperr.WarnDateMismatch) {
		t.Errorf("warnings = %v, want date mismatch", loaded.Warnings)
	}
}

func TestLoadDay_NotFound(t *testing.T) {
	env := setup(t)
	if _, err := env.svc.LoadDay(context.Background(), jan15); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadDay_CorruptMetadataIsNotOverwritten(t *testing.T) {
	env := setup(t)
	testutil.WriteFile(t, env.dir, DayPath(jan15), "# January 15, 2025\n\n## Work\n- [ ] A\n")
	testutil.WriteFile(t, env.dir, metastore.DayMetaPath(jan15), "{not json")

	loaded, err := env.svc.LoadDay(context.Background(), jan15)
	if err != nil {
		t.Fatal(err)
	}
	if !hasWarning(loaded.Warnings, apperr.WarnMetadataDegraded) {
		t.Errorf("warnings = %v, want metadata degraded", loaded.Warnings)
	}
	if loaded.Day.Work.Actions[0].ID == "" {
		t.Error("degraded load should still assign IDs")
	}
	if got := env.readFile(t, metastore.DayMetaPath(jan15)); got != "{not json" {
		t.Errorf("corrupt metadata overwritten: %q", got)
	}
}

func TestSaveDay_DamagedMetadataIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name string
		meta string
		warn apperr.WarningKind
	}{
		{
			name: "truncated json",
			meta: `{"version":1,"date":"2025-01-15","work":[{"id":"keep-me","text":"A"`,
			warn: apperr.WarnMetadataDegraded,
		},
		{
			name: "newer schema",
			meta: `{"version":2,"date":"2025-01-15","work":[{"id":"keep-me","text":"A"}],"future_field":{"x":1}}`,
			warn: apperr.WarnSchemaMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setup(t)
			ctx := context.Background()
			testutil.WriteFile(t, env.dir, DayPath(jan15), "# January 15, 2025\n\n## Work\n- [ ] A\n")
			testutil.WriteFile(t, env.dir, metastore.DayMetaPath(jan15), tt.meta)

			loaded, err := env.svc.LoadDay(ctx, jan15)
			if err != nil {
				t.Fatal(err)
			}
			day := loaded.Day
			day.Work.Actions[0].Completed = true

			saved, err := env.svc.SaveDay(ctx, day, loaded.Checksum)
			if err != nil {
				t.Fatalf("SaveDay: %v", err)
			}
			if !hasWarning(saved.Warnings, tt.warn) {
				t.Errorf("warnings = %v, want %s", saved.Warnings, tt.warn)
			}
			if got := env.readFile(t, metastore.DayMetaPath(jan15)); got != tt.meta {
				t.Errorf("metadata rewritten:\n got %s\nwant %s", got, tt.meta)
			}
			if got := env.readFile(t, DayPath(jan15)); !strings.Contains(got, "- [x] A") {
				t.Errorf("text not saved: %q", got)
			}
		})
	}
}

func TestSaveDay_Idempotent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	saved, err := env.svc.SaveDay(ctx, sampleDay(jan15), "")
	if err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	first := env.readFile(t, DayPath(jan15))
	if first != string(codec.Serialize(saved.Day)) {
		t.Error("file content differs from serialized day")
	}

	loaded, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.SaveDay(ctx, loaded.Day, loaded.Checksum); err != nil {
		t.Fatalf("second SaveDay: %v", err)
	}
	if second := env.readFile(t, DayPath(jan15)); second != first {
		t.Errorf("save of unchanged day changed bytes:\n%s\n---\n%s", first, second)
	}
	for i, a := range loaded.Day.Work.Actions {
		if a.ID != saved.Day.Work.Actions[i].ID {
			t.Errorf("work[%d] id changed across reload", i)
		}
	}
}

func TestSaveDay_WriteFailureLeavesFileUnchanged(t *testing.T) {
	var failing atomic.Bool
	env := setup(t,
		storage.WithRenameRetry(2, 0),
		storage.WithRenameFunc(func(oldpath, newpath string) error {
			if failing.Load() {
				return errors.New("device busy")
			}
			return os.Rename(oldpath, newpath)
		}),
	)
	ctx := context.Background()
	if _, err := env.svc.SaveDay(ctx, sampleDay(jan15), ""); err != nil {
		t.Fatal(err)
	}
	before := env.readFile(t, DayPath(jan15))
	metaBefore := env.readFile(t, metastore.DayMetaPath(jan15))

	failing.Store(true)
	day := sampleDay(jan15)
	day.Work.Actions[1].Text = "Rewrite deck"
	_, err := env.svc.SaveDay(ctx, day, "")
	var wf *apperr.WriteFailure
	if !errors.As(err, &wf) {
		t.Fatalf("err = %v, want WriteFailure", err)
	}
	if wf.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", wf.Attempts)
	}
	if env.readFile(t, DayPath(jan15)) != before {
		t.Error("text file changed after failed write")
	}
	if env.readFile(t, metastore.DayMetaPath(jan15)) != metaBefore {
		t.Error("metadata written after text write failed")
	}
	entries, err := os.ReadDir(filepath.Join(env.dir, DaysDir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("days dir has %d entries, want only the day file", len(entries))
	}
}

func TestSaveDay_IfMatch(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	if _, err := env.svc.SaveDay(ctx, sampleDay(jan15), "abc"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("if-match on missing day: err = %v, want ErrNotFound", err)
	}
	saved, err := env.svc.SaveDay(ctx, sampleDay(jan15), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.SaveDay(ctx, sampleDay(jan15), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale if-match: err = %v, want ErrConflict", err)
	}
	if _, err := env.svc.SaveDay(ctx, sampleDay(jan15), saved.Checksum); err != nil {
		t.Errorf("current if-match: %v", err)
	}
}

func TestSaveDay_Validation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	if _, err := env.svc.SaveDay(ctx, models.Day{}, ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("zero date: err = %v, want ErrInvalid", err)
	}

	day := sampleDay(jan15)
	objective := "missing"
	day.Work.Actions[0].Meta = &models.ActionMeta{ObjectiveID: &objective}
	if _, err := env.svc.SaveDay(ctx, day, ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown objective: err = %v, want ErrInvalid", err)
	}
	if env.exists(DayPath(jan15)) {
		t.Error("rejected day was written")
	}
}

func TestSaveDay_NormalizesOverflow(t *testing.T) {
	env := setup(t)
	day := models.NewDay(jan15)
	day.Work.Actions = make([]models.Action, 7)
	for i := range day.Work.Actions {
		day.Work.Actions[i].Text = strings.Repeat("x", i+1)
	}
	saved, err := env.svc.SaveDay(context.Background(), day, "")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(saved.Day.Work.Actions); n != models.MaxActions {
		t.Errorf("actions = %d, want %d", n, models.MaxActions)
	}
	if !hasWarning(saved.Warnings, apperr.WarnActionOverflow) {
		t.Errorf("warnings = %v, want overflow", saved.Warnings)
	}
}

func TestUpdateAction(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	saved, err := env.svc.SaveDay(ctx, sampleDay(jan15), "")
	if err != nil {
		t.Fatal(err)
	}
	id := saved.Day.Work.Actions[1].ID

	done := true
	effort := 45
	note := "send to Sam"
	env.clock.Advance(time.Hour)
	updated, err := env.svc.UpdateAction(ctx, jan15, id, ActionPatch{Completed: &done, EffortMinutes: &effort, Note: &note})
	if err != nil {
		t.Fatalf("UpdateAction: %v", err)
	}
	a := updated.Day.Work.Actions[1]
	if a.ID != id || !a.Completed {
		t.Errorf("action = %+v", a)
	}
	if a.Meta.Status != models.StatusDone || a.Meta.CompletedAt == nil || *a.Meta.EffortMinutes != 45 || *a.Meta.Note != note {
		t.Errorf("meta = %+v", a.Meta)
	}
	if !strings.Contains(env.readFile(t, DayPath(jan15)), "- [x] Prep deck") {
		t.Error("completion not written to text")
	}

	reloaded, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatal(err)
	}
	if m := reloaded.Day.Work.Actions[1].Meta; m.Note == nil || *m.Note != note || m.Status != models.StatusDone {
		t.Errorf("reloaded meta = %+v", m)
	}

	blocked := models.StatusBlocked
	updated, err = env.svc.UpdateAction(ctx, jan15, id, ActionPatch{Status: &blocked})
	if err != nil {
		t.Fatal(err)
	}
	if a := updated.Day.Work.Actions[1]; a.Completed || a.Meta.Status != models.StatusBlocked || a.Meta.CompletedAt != nil {
		t.Errorf("blocked action = %+v meta %+v", a, a.Meta)
	}
}

func TestSaveDay_ObjectiveLines(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	obj, err := env.meta.PutObjective(models.Objective{Title: "Launch", Category: models.CategoryWork})
	if err != nil {
		t.Fatal(err)
	}

	day := sampleDay(jan15)
	day.Work.Actions[1].ObjectiveIDs = []string{obj.ID, "hiring"}
	saved, err := env.svc.SaveDay(ctx, day, "")
	if err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	text := env.readFile(t, DayPath(jan15))
	if !strings.Contains(text, "- [ ] Prep deck\n  objectives: "+obj.ID+", hiring\n") {
		t.Errorf("objective lines not written:\n%s", text)
	}
	if m := saved.Day.Work.Actions[1].Meta; m.ObjectiveID == nil || *m.ObjectiveID != obj.ID {
		t.Errorf("meta objective = %v, want %s", m.ObjectiveID, obj.ID)
	}

	note := "agenda first"
	id := saved.Day.Work.Actions[1].ID
	updated, err := env.svc.UpdateAction(ctx, jan15, id, ActionPatch{Note: &note})
	if err != nil {
		t.Fatalf("UpdateAction: %v", err)
	}
	if got := updated.Day.Work.Actions[1].ObjectiveIDs; !slices.Equal(got, []string{obj.ID, "hiring"}) {
		t.Errorf("objective lines lost on update: %v", got)
	}

	edited := strings.Replace(env.readFile(t, DayPath(jan15)), "  objectives: "+obj.ID+", hiring\n", "  objective: hiring\n", 1)
	if err := os.WriteFile(filepath.Join(env.dir, DayPath(jan15)), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := env.svc.LoadDay(ctx, jan15)
	if err != nil {
		t.Fatal(err)
	}
	a := loaded.Day.Work.Actions[1]
	if a.ID != id || !slices.Equal(a.ObjectiveIDs, []string{"hiring"}) || a.Meta.ObjectiveID == nil || *a.Meta.ObjectiveID != "hiring" {
		t.Errorf("edited action = %+v meta %+v", a, a.Meta)
	}

	if _, err := env.svc.UpdateAction(ctx, jan15, id, ActionPatch{ObjectiveID: &note}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown objective patch: err = %v, want ErrInvalid", err)
	}
	updated, err = env.svc.UpdateAction(ctx, jan15, id, ActionPatch{ObjectiveID: &obj.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got := updated.Day.Work.Actions[1].ObjectiveIDs; !slices.Equal(got, []string{obj.ID}) {
		t.Errorf("patched objectives = %v", got)
	}
	if !strings.Contains(env.readFile(t, DayPath(jan15)), "- [ ] Prep deck\n  objective: "+obj.ID+"\n") {
		t.Error("patched objective not written to text")
	}
}

func TestUpdateAction_Errors(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	if _, err := env.svc.SaveDay(ctx, sampleDay(jan15), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.UpdateAction(ctx, jan15, "nope", ActionPatch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
	loaded, _ := env.svc.LoadDay(ctx, jan15)
	bogus := models.ActionStatus("later")
	if _, err := env.svc.UpdateAction(ctx, jan15, loaded.Day.Work.Actions[0].ID, ActionPatch{Status: &bogus}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad status: err = %v", err)
	}
}

func TestDeleteDayAndDates(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	for _, d := range []time.Time{jan16, jan15} {
		if _, err := env.svc.SaveDay(ctx, sampleDay(d), ""); err != nil {
			t.Fatal(err)
		}
	}
	dates, err := env.svc.Dates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 || !dates[0].Equal(jan15) || !dates[1].Equal(jan16) {
		t.Errorf("dates = %v", dates)
	}

	if err := env.svc.DeleteDay(ctx, jan15); err != nil {
		t.Fatalf("DeleteDay: %v", err)
	}
	if env.exists(DayPath(jan15)) || env.exists(metastore.DayMetaPath(jan15)) {
		t.Error("day files remain after delete")
	}
	if err := env.svc.DeleteDay(ctx, jan15); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestDateFromPath(t *testing.T) {
	if d, ok := DateFromPath("days/2025-01-15.md"); !ok || !d.Equal(jan15) {
		t.Errorf("DateFromPath = %v, %v", d, ok)
	}
	for _, p := range []string{"days/notes.md", "days/2025-01-15.txt", "days/2025-02-30.md"} {
		if _, ok := DateFromPath(p); ok {
			t.Errorf("DateFromPath(%q) accepted", p)
		}
	}
}
