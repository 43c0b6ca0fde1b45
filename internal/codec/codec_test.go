package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/models"
)

func intPtr(n int) *int { return &n }

func sampleDay() models.Day {
	d := models.NewDay(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	d.DayNumber = intPtr(12)
	d.Work.Goal = "Ship v1"
	d.Work.Actions = []models.Action{
		{Text: "Call investors", Completed: true},
		{Text: "Prep deck"},
		{Text: "Team standup"},
	}
	d.Health.Goal = "Run 5K"
	d.Health.Actions = []models.Action{
		{Text: "Morning run", Completed: true},
		{Text: "Meal prep"},
		{Text: "Sleep by 10pm"},
	}
	d.Family.Actions = []models.Action{
		{Text: "Call parents"},
		{Text: "Plan weekend", Completed: true},
	}
	d.Family.Reflection = "Good talk with mom.\n\nPlan the trip."
	return d
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSerialize_Golden(t *testing.T) {
	golden(t).Assert(t, "full_day", Serialize(sampleDay()))
	golden(t).Assert(t, "empty_day", Serialize(models.NewDay(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))))
}

func TestSerialize_Idempotent(t *testing.T) {
	a := Serialize(sampleDay())
	b := Serialize(sampleDay())
	if string(a) != string(b) {
		t.Fatal("serializing the same day twice produced different bytes")
	}
}

func TestRoundTrip(t *testing.T) {
	one := models.NewDay(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	one.Work.Actions = []models.Action{{Text: "Only one"}}
	one.Health.Actions = []models.Action{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e", Completed: true}}
	one.Family.Goal = "Fix (nested) things"

	unicode := models.NewDay(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	unicode.DayNumber = intPtr(0)
	unicode.Work.Actions = []models.Action{{Text: "Ревью кода 👨‍💻", Completed: true}, {Text: "[x] literal brackets"}}
	unicode.Health.Reflection = "> quoted\nsecond"

	linked := sampleDay()
	linked.Work.Actions[0].ObjectiveIDs = []string{"obj-1"}
	linked.Work.Actions[1].ObjectiveIDs = []string{"obj-1", "obj 2"}
	linked.Family.Actions[1].ObjectiveIDs = []string{"family-q3"}

	cases := map[string]models.Day{
		"sample":     sampleDay(),
		"empty":      models.NewDay(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)),
		"bounds":     one,
		"unicode":    unicode,
		"objectives": linked,
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := Parse(Serialize(d))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(res.Warnings) != 0 {
				t.Errorf("unexpected warnings: %v", res.Warnings)
			}
			if !reflect.DeepEqual(res.Day, d) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", res.Day, d)
			}
		})
	}
}

func TestRoundTrip_TolerantInput(t *testing.T) {
	input := "\ufeffSome preamble\n\n#   JAN 5,2025   day 7\n## health(goal: Sleep  )\n  -   [X]   Stretch  \n\t- [ ]\n## FAMILY\n> note\n- [x] Dinner\n"
	first, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := Parse(Serialize(first.Day))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !reflect.DeepEqual(first.Day, second.Day) {
		t.Errorf("tolerated input did not survive a round trip\n got: %+v\nwant: %+v", second.Day, first.Day)
	}
	d := first.Day
	if d.Key() != "2025-01-05" || d.DayNumber == nil || *d.DayNumber != 7 {
		t.Errorf("header = %s day %v", d.Key(), d.DayNumber)
	}
	if d.Health.Goal != "Sleep" {
		t.Errorf("health goal = %q", d.Health.Goal)
	}
	if len(d.Health.Actions) != 2 || !d.Health.Actions[0].Completed || d.Health.Actions[0].Text != "Stretch" {
		t.Errorf("health actions = %+v", d.Health.Actions)
	}
	if len(d.Work.Actions) != models.DefaultActions {
		t.Errorf("missing work section should keep %d slots, got %d", models.DefaultActions, len(d.Work.Actions))
	}
	if d.Family.Reflection != "note" || len(d.Family.Actions) != 1 {
		t.Errorf("family = %+v", d.Family)
	}
}

func TestParse_HeaderVariants(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		date   string
		dayNum *int
	}{
		{"full month", "# January 15, 2025 - Day 12\n", "2025-01-15", intPtr(12)},
		{"abbrev", "# Feb 3, 2024\n", "2024-02-03", nil},
		{"lowercase", "# march 09, 2025 - DAY 4\n", "2025-03-09", intPtr(4)},
		{"not first line", "\n\nnotes\n# April 1, 2025\n", "2025-04-01", nil},
		{"leap day", "# February 29, 2024\n", "2024-02-29", nil},
		{"zero width", "\u200b# May 5, 2025\n", "2025-05-05", nil},
		{"weekday", "# January 6, 2025 Monday 12\n", "2025-01-06", nil},
		{"weekday then day", "# January 6, 2025 Monday - Day 3\n", "2025-01-06", intPtr(3)},
		{"day glued to word", "# January 6, 2025 today5\n", "2025-01-06", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Parse([]byte(tc.input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := res.Day.Key(); got != tc.date {
				t.Errorf("date = %s, want %s", got, tc.date)
			}
			if !reflect.DeepEqual(res.Day.DayNumber, tc.dayNum) {
				t.Errorf("day number = %v, want %v", res.Day.DayNumber, tc.dayNum)
			}
		})
	}
}

func TestParse_ObjectiveLines(t *testing.T) {
	input := "# January 15, 2025\n## Work\n- [ ] Draft plan\n  objective: q1-launch\n\n  objectives: hiring, q1-launch , ,budget\n- [x] Review\nobjective: after-review\n> thought\n  objective: orphan\n## Health\nobjective: before-any-action\n- [ ] Walk\n  Objective: wrong-case\n"
	res, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	work := res.Day.Work.Actions
	if want := []string{"q1-launch", "hiring", "budget"}; !reflect.DeepEqual(work[0].ObjectiveIDs, want) {
		t.Errorf("first action objectives = %v, want %v", work[0].ObjectiveIDs, want)
	}
	if want := []string{"after-review"}; !reflect.DeepEqual(work[1].ObjectiveIDs, want) {
		t.Errorf("second action objectives = %v, want %v", work[1].ObjectiveIDs, want)
	}
	if res.Day.Work.Reflection != "thought" {
		t.Errorf("reflection = %q", res.Day.Work.Reflection)
	}
	if a := res.Day.Health.Actions; len(a) != 1 || a[0].ObjectiveIDs != nil {
		t.Errorf("health actions = %+v, want no objectives", a)
	}

	out := string(Serialize(res.Day))
	for _, want := range []string{"- [ ] Draft plan\n  objectives: q1-launch, hiring, budget\n", "- [x] Review\n  objective: after-review\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("serialized day lacks %q:\n%s", want, out)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"whitespace":     "  \n\t\n",
		"no header":      "## Work\n- [ ] x\n",
		"feb 30":         "# February 30, 2025\n",
		"missing year":   "# January 15\n",
		"iso date":       "# 2025-01-15\n",
		"header too low": strings.Repeat("filler\n", HeaderScanLines) + "# January 15, 2025\n",
		"oversized":      "# January 15, 2025\n" + strings.Repeat("x", MaxInputBytes),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			var pe *apperr.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *apperr.ParseError", err)
			}
		})
	}
}

func TestParse_TruncatesLongAction(t *testing.T) {
	input := "# January 15, 2025\n## Work\n- [ ] " + strings.Repeat("a", 600) + "\n"
	res, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := len([]rune(res.Day.Work.Actions[0].Text)); got != models.MaxActionLength {
		t.Errorf("text length = %d, want %d", got, models.MaxActionLength)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != apperr.WarnTruncated || res.Warnings[0].Line != 3 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestParse_ActionCeiling(t *testing.T) {
	var b strings.Builder
	b.WriteString("# January 15, 2025\n## Work\n")
	for i := 0; i < 6; i++ {
		b.WriteString("- [ ] task\n")
	}
	res, err := Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n := len(res.Day.Work.Actions); n != models.MaxActions {
		t.Errorf("actions = %d, want %d", n, models.MaxActions)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != apperr.WarnActionOverflow || res.Warnings[0].Line != 8 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestParse_ReenteredCategoryUpdatesByPosition(t *testing.T) {
	input := "# January 15, 2025\n## Work\n- [ ] a\n- [ ] b\n- [ ] c\n## Work (Goal: later)\n- [x] A\n"
	res, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := res.Day.Work
	if got.Goal != "later" || len(got.Actions) != 3 {
		t.Fatalf("work = %+v", got)
	}
	if got.Actions[0].Text != "A" || !got.Actions[0].Completed || got.Actions[2].Text != "c" {
		t.Errorf("actions = %+v", got.Actions)
	}
}

func TestParse_TolerantLines(t *testing.T) {
	input := "# January 15, 2025\n- [x] orphan\n## Workout plan\n## Work Goal: none\n-[x] not a box\n- [x]glued\n- [ ] kept\n"
	res, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Day.Work.Goal != "" {
		t.Errorf("goal without parentheses should be ignored, got %q", res.Day.Work.Goal)
	}
	if len(res.Day.Work.Actions) != 1 || res.Day.Work.Actions[0].Text != "kept" {
		t.Errorf("work actions = %+v", res.Day.Work.Actions)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != apperr.WarnOrphanAction {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestParse_LargeInput(t *testing.T) {
	var b strings.Builder
	b.WriteString("# January 15, 2025\n## Work\n- [ ] first\n")
	for i := 0; i < 100000; i++ {
		b.WriteString("filler line\n")
	}
	res, err := Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Day.Work.Actions[0].Text != "first" {
		t.Errorf("first action = %q", res.Day.Work.Actions[0].Text)
	}
}

func TestParse_CRLF(t *testing.T) {
	res, err := Parse([]byte("# January 15, 2025\r\n## Work\r\n- [x] done\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a := res.Day.Work.Actions[0]; a.Text != "done" || !a.Completed {
		t.Errorf("action = %+v", a)
	}
}

func TestNormalize(t *testing.T) {
	d := models.Day{Date: time.Date(2025, 1, 15, 21, 4, 0, 0, time.FixedZone("x", 3600))}
	d.Work.Actions = make([]models.Action, 7)
	d.Work.Actions[0].Text = "  line\nbreak " + strings.Repeat("z", 600)
	d.Health.Goal = "\u200b Stay hydrated \u200b"
	d.Work.Actions[1].ObjectiveIDs = []string{" a ", "a", "b,c", "", "d\u200be", "f"}
	bad := "x,y"
	d.Work.Actions[2].Meta = &models.ActionMeta{ObjectiveID: &bad}

	warnings := Normalize(&d)
	if !d.Date.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", d.Date)
	}
	if len(d.Work.Actions) != models.MaxActions || len(d.Family.Actions) != models.DefaultActions {
		t.Errorf("action counts = %d/%d", len(d.Work.Actions), len(d.Family.Actions))
	}
	if strings.Contains(d.Work.Actions[0].Text, "\n") || len([]rune(d.Work.Actions[0].Text)) != models.MaxActionLength {
		t.Errorf("text not flattened and capped: %q", d.Work.Actions[0].Text)
	}
	if want := []string{"a", "f"}; !reflect.DeepEqual(d.Work.Actions[1].ObjectiveIDs, want) {
		t.Errorf("objective refs = %q, want %q", d.Work.Actions[1].ObjectiveIDs, want)
	}
	if d.Work.Actions[2].Meta.ObjectiveID != nil {
		t.Errorf("unwritable objective id kept: %q", *d.Work.Actions[2].Meta.ObjectiveID)
	}
	d.Work.Actions[2].Meta = nil
	if d.Health.Goal != "Stay hydrated" {
		t.Errorf("goal = %q", d.Health.Goal)
	}
	if d.Family.Kind != models.CategoryFamily {
		t.Errorf("kind = %q", d.Family.Kind)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v", warnings)
	}

	res, err := Parse(Serialize(d))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(res.Day, d) {
		t.Errorf("normalized day does not round trip")
	}
}
