package services

import (
	"context"
	"errors"
	"testing"

	"budgeting/internal/core"
	"budgeting/internal/docstore/memory"
	"budgeting/internal/storage"
)

func TestCommitmentCreateInline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCommitmentService(f.repo, f.engine, nil)

	c, err := svc.Create(ctx, loan("u1"))
	if err != nil {
		t.Fatal(err)
	}
	lines, _ := f.engine.ListScheduleLines(ctx, c.ID)
	if len(lines) != 3 {
		t.Fatalf("inline schedule has %d lines, want 3", len(lines))
	}

	list, err := svc.List(ctx, "u1")
	if err != nil || len(list) != 1 || !list[0].Remaining.Equal(d("300")) {
		t.Fatalf("list = %+v, %v", list, err)
	}

	if _, err := svc.Create(ctx, core.Commitment{OwnerID: "u1", Name: "bad"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCommitmentCreatePublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewCommitmentService(f.repo, f.engine, pub)

	c, err := svc.Create(ctx, loan("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.schedules) != 1 || pub.schedules[0] != (scheduleCall{"u1", c.ID, false}) {
		t.Fatalf("schedule requests = %+v", pub.schedules)
	}
	lines, _ := f.engine.ListScheduleLines(ctx, c.ID)
	if len(lines) != 0 {
		t.Fatalf("publisher path should leave generation to the worker, got %d lines", len(lines))
	}

	queued, err := svc.RequestRegeneration(ctx, "u1", c.ID)
	if err != nil || !queued {
		t.Fatalf("regeneration = %v, %v", queued, err)
	}
	if pub.schedules[1] != (scheduleCall{"u1", c.ID, true}) {
		t.Fatalf("regeneration request = %+v", pub.schedules[1])
	}
	if _, err := svc.RequestRegeneration(ctx, "u2", c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign regeneration err = %v", err)
	}
}

func TestCommitmentCreateSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewCommitmentService(f.repo, f.engine, pub)

	c, err := svc.Create(context.Background(), loan("u1"))
	if err != nil {
		t.Fatalf("create should succeed without the broker: %v", err)
	}
	if _, ok, _ := svc.Get(context.Background(), "u1", c.ID); !ok {
		t.Fatal("commitment should be stored")
	}
}

func TestCommitmentUpdateKeepsSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCommitmentService(f.repo, f.engine, nil)
	c, err := svc.Create(ctx, loan("u1"))
	if err != nil {
		t.Fatal(err)
	}

	c.TermMonths = 6
	c.Name = " Renamed "
	updated, err := svc.Update(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed" || !updated.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("updated = %+v", updated)
	}
	lines, _ := f.engine.ListScheduleLines(ctx, c.ID)
	if len(lines) != 3 {
		t.Fatalf("update must not regenerate, got %d lines", len(lines))
	}

	if _, err := svc.RequestRegeneration(ctx, "u1", c.ID); err != nil {
		t.Fatal(err)
	}
	lines, _ = f.engine.ListScheduleLines(ctx, c.ID)
	if len(lines) != 6 {
		t.Fatalf("regenerated %d lines, want 6", len(lines))
	}

	c.OwnerID = "u2"
	if _, err := svc.Update(ctx, c); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update err = %v", err)
	}
}

func TestFinancialStandings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewCommitmentService(f.repo, f.engine, nil)

	for _, day := range []int{1, 15} {
		if _, err := svc.CreateStanding(ctx, core.FinancialStanding{
			OwnerID:      "u1",
			SnapshotDate: core.NewDate(2024, 6, day),
			TotalAssets:  d("1000"),
			Notes:        " snapshot ",
		}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := svc.ListStandings(ctx, "u1")
	if err != nil || len(list) != 2 {
		t.Fatalf("standings = %+v, %v", list, err)
	}
	if list[0].SnapshotDate.Day() != 15 || list[0].Notes != "snapshot" {
		t.Fatalf("newest first expected, got %+v", list[0])
	}
	if _, err := svc.CreateStanding(ctx, core.FinancialStanding{SnapshotDate: core.NewDate(2024, 6, 1)}); !errors.Is(err, core.ErrEmptyOwner) {
		t.Fatalf("missing owner err = %v", err)
	}
}

func TestCommitmentCreateRacingSweeper(t *testing.T) {
	ctx := context.Background()
	hook := &hookStore{Store: memory.New(), collection: storage.Commitments}
	f := newFixtureOn(t, hook.Store, hook)
	sweeper := NewScheduleSweeper(f.repo, f.engine, DefaultScheduleSweeperConfig())
	// the sweep lands between saving the commitment and generating its lines
	hook.afterPut = func() { sweeper.Sweep(ctx) }

	c := loan("u1")
	c.StartDate = core.NewDate(2024, 6, 1)
	created, err := NewCommitmentService(f.repo, f.engine, nil).Create(ctx, c)
	if err != nil {
		t.Fatal(err)
	}

	lines, err := f.engine.ListScheduleLines(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	due, err := f.engine.DueInMonth(ctx, "u1", 2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !due.Equal(d("100")) {
		t.Errorf("due in June = %s, want 100", due)
	}
	remaining, err := f.engine.RemainingPrincipal(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !remaining.Equal(d("300")) {
		t.Errorf("remaining = %s, want 300", remaining)
	}
}

func TestGenerateScheduleTwiceKeepsTermLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := saveCommitment(t, f, loan("u1"))
	for i := 0; i < 2; i++ {
		if _, err := f.engine.GenerateSchedule(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.store.Len(storage.ScheduleLines); n != 3 {
		t.Fatalf("stored %d lines after two generations, want 3", n)
	}
}
