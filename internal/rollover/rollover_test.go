package rollover

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/models"
	"github.com/starford/focusfive/internal/testutil"
)

var (
	jan15 = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	jan16 = time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*dayservice.Service, *testutil.Clock) {
	t.Helper()
	_, store := testutil.TestData(t)
	clock := testutil.NewClock(jan16.Add(5 * time.Minute))
	meta := testutil.TestMeta(t, store, clock)
	return dayservice.NewService(store, meta, testutil.Logger(), dayservice.WithClock(clock.Now)), clock
}

func TestRun(t *testing.T) {
	days, clock := setup(t)
	ctx := context.Background()

	if _, err := days.Meta().PutTemplate(models.Template{
		Name:    "weekday",
		Actions: map[models.Category][]string{models.CategoryWork: {"Plan the day"}},
	}); err != nil {
		t.Fatal(err)
	}
	prev := models.NewDay(jan15)
	prev.Health.Actions = []models.Action{{Text: "Walk", Completed: true}, {Text: "Stretch"}}
	if _, err := days.SaveDay(ctx, prev, ""); err != nil {
		t.Fatal(err)
	}

	var created []string
	job := New(days, Config{Template: "weekday", CarryOver: true}, testutil.Logger(),
		WithClock(clock.Now),
		WithCreated(func(d time.Time) { created = append(created, models.DateKey(d)) }),
	)

	ok, err := job.Run(ctx)
	if err != nil || !ok {
		t.Fatalf("Run = %v, %v; want true, nil", ok, err)
	}
	loaded, err := days.LoadDay(ctx, jan16)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Day.Work.Actions[0].Text; got != "Plan the day" {
		t.Errorf("work[0] = %q, want template action", got)
	}
	if got := loaded.Day.Health.Actions[0].Text; got != "Stretch" {
		t.Errorf("health[0] = %q, want carried action", got)
	}

	ok, err = job.Run(ctx)
	if err != nil || ok {
		t.Errorf("second Run = %v, %v; want false, nil", ok, err)
	}
	if len(created) != 1 || created[0] != "2025-01-16" {
		t.Errorf("created = %v", created)
	}
}

func TestStart_RunsImmediately(t *testing.T) {
	days, clock := setup(t)

	var mu sync.Mutex
	var created []time.Time
	job := New(days, Config{}, testutil.Logger(),
		WithClock(clock.Now),
		WithCreated(func(d time.Time) {
			mu.Lock()
			created = append(created, d)
			mu.Unlock()
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !days.Exists(jan16) {
		if time.Now().After(deadline) {
			t.Fatal("day was not created at startup")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(created) != 1 {
		t.Errorf("created = %v", created)
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	days, _ := setup(t)
	job := New(days, Config{Schedule: "every tuesday"}, testutil.Logger())
	if err := job.Start(context.Background()); err == nil {
		t.Error("Start accepted an invalid schedule")
	}
}
