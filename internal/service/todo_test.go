package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Strob0t/nextup/internal/config"
	"github.com/Strob0t/nextup/internal/domain"
	"github.com/Strob0t/nextup/internal/domain/pick"
	"github.com/Strob0t/nextup/internal/domain/position"
	"github.com/Strob0t/nextup/internal/domain/todo"
	"github.com/Strob0t/nextup/internal/port/messagequeue"
)

func testHolder() *config.Holder {
	cfg := config.Defaults()
	return config.NewHolder(&cfg, "")
}

func seededPicker() *pick.Picker {
	return pick.New(rand.New(rand.NewPCG(1, 2)))
}

func newTestTodoService(store *mockStore, queue *mockQueue) *TodoService {
	svc := NewTodoService(store, NewEventPublisher(queue, nil), testHolder())
	svc.newPicker = seededPicker
	return svc
}

func addTodo(t *testing.T, svc *TodoService, ctx context.Context, task string, e *todo.TimeEstimate) *todo.Todo {
	t.Helper()
	td, err := svc.Create(ctx, &todo.CreateRequest{
		Task:         task,
		Importance:   3,
		TimeEstimate: e,
		Position:     position.Position{Type: position.Bottom},
	})
	if err != nil {
		t.Fatalf("create %q: %v", task, err)
	}
	return td
}

func ids(todos []todo.Todo) []string {
	out := make([]string, len(todos))
	for i := range todos {
		out[i] = todos[i].Task
	}
	return out
}

func TestTodoService_CreatePositions(t *testing.T) {
	queue := &mockQueue{}
	svc := newTestTodoService(&mockStore{}, queue)
	ctx := userCtx("u1")

	a := addTodo(t, svc, ctx, "a", nil)
	addTodo(t, svc, ctx, "c", nil)
	if _, err := svc.Create(ctx, &todo.CreateRequest{Task: "top"}); err != nil {
		t.Fatalf("create top: %v", err)
	}
	if _, err := svc.Create(ctx, &todo.CreateRequest{Task: "b", Position: position.Position{Type: position.After, ID: a.ID}}); err != nil {
		t.Fatalf("create after: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := ids(list)
	want := []string{"top", "a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list = %v, want %v", got, want)
		}
	}
	if list[0].Status != todo.StatusTodo || list[0].Kind != todo.KindRegular {
		t.Errorf("defaults: status=%q kind=%q", list[0].Status, list[0].Kind)
	}
	if list[0].UserID != "u1" {
		t.Errorf("owner = %q, want u1", list[0].UserID)
	}

	subjects := queue.subjects()
	if len(subjects) != 4 || subjects[0] != messagequeue.SubjectTodoCreated {
		t.Errorf("published = %v", subjects)
	}
}

func TestTodoService_CreateUnknownAnchor(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	addTodo(t, svc, ctx, "a", nil)

	_, err := svc.Create(ctx, &todo.CreateRequest{Task: "x", Position: position.Position{Type: position.After, ID: "missing"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTodoService_CreateValidation(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	_, err := svc.Create(userCtx("u1"), &todo.CreateRequest{Task: "x", Importance: 9})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTodoService_CreateRetriesOrderConflict(t *testing.T) {
	store := &mockStore{createTodoErr: []error{domain.ErrOrderConflict, domain.ErrOrderConflict}}
	svc := newTestTodoService(store, &mockQueue{})

	if _, err := svc.Create(userCtx("u1"), &todo.CreateRequest{Task: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.createTodoCalls != 3 {
		t.Fatalf("calls = %d, want 3", store.createTodoCalls)
	}
}

func TestTodoService_CreateGivesUpAfterRetries(t *testing.T) {
	conflicts := []error{domain.ErrOrderConflict, domain.ErrOrderConflict, domain.ErrOrderConflict, domain.ErrOrderConflict}
	store := &mockStore{createTodoErr: conflicts}
	svc := newTestTodoService(store, &mockQueue{})

	_, err := svc.Create(userCtx("u1"), &todo.CreateRequest{Task: "x"})
	if !errors.Is(err, domain.ErrOrderConflict) {
		t.Fatalf("err = %v, want ErrOrderConflict", err)
	}
	if store.createTodoCalls != 4 {
		t.Fatalf("calls = %d, want 4", store.createTodoCalls)
	}
}

func TestTodoService_OwnerScoping(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	mine := addTodo(t, svc, userCtx("u1"), "mine", nil)

	other := userCtx("u2")
	if _, err := svc.Get(other, mine.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get: err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(other, mine.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete: err = %v, want ErrNotFound", err)
	}
	list, _ := svc.List(other)
	if len(list) != 0 {
		t.Fatalf("other user sees %d todos", len(list))
	}
}

func TestTodoService_Update(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	td := addTodo(t, svc, ctx, "a", todo.EstimatePtr(todo.OneHour))

	status := todo.StatusComplete
	imp := 5
	got, err := svc.Update(ctx, td.ID, &todo.UpdateRequest{Status: &status, Importance: &imp})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != todo.StatusComplete || got.Importance != 5 {
		t.Fatalf("todo = %+v", got)
	}
	if got.Order != td.Order {
		t.Errorf("order changed from %q to %q", td.Order, got.Order)
	}

	bad := 7
	if _, err := svc.Update(ctx, td.ID, &todo.UpdateRequest{Importance: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, err := svc.Update(ctx, "missing", &todo.UpdateRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTodoService_HabitsAreNotTodos(t *testing.T) {
	store := &mockStore{}
	svc := newTestTodoService(store, &mockQueue{})
	habits := NewHabitService(store, nil, testHolder())
	ctx := userCtx("u1")

	h, err := habits.Create(ctx, &todo.CreateRequest{Task: "run", Frequency: &todo.Frequency{Kind: todo.SpecificDaysPerWeek, DaysOfWeek: []int{0}}})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if _, err := svc.Get(ctx, h.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("todo list holds %d habits", len(list))
	}
}

func TestTodoService_DeleteCascades(t *testing.T) {
	store := &mockStore{}
	queue := &mockQueue{}
	svc := newTestTodoService(store, queue)
	ctx := userCtx("u1")
	big := addTodo(t, svc, ctx, "big", todo.EstimatePtr(todo.OneDay))

	list, err := svc.GenerateBreakUps(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list len = %d, want 2", len(list))
	}

	if err := svc.Delete(ctx, big.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("children survived: %v", ids(list))
	}
}

func TestTodoService_Reorder(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	a := addTodo(t, svc, ctx, "a", nil)
	addTodo(t, svc, ctx, "b", nil)
	c := addTodo(t, svc, ctx, "c", nil)

	if _, err := svc.Reorder(ctx, c.ID, position.Position{Type: position.Top}); err != nil {
		t.Fatalf("reorder top: %v", err)
	}
	if _, err := svc.Reorder(ctx, a.ID, position.Position{Type: position.Bottom}); err != nil {
		t.Fatalf("reorder bottom: %v", err)
	}
	list, _ := svc.List(ctx)
	if got := ids(list); got[0] != "c" || got[1] != "b" || got[2] != "a" {
		t.Fatalf("order = %v, want [c b a]", got)
	}

	if _, err := svc.Reorder(ctx, a.ID, position.Position{Type: position.After, ID: a.ID}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("after itself: err = %v, want ErrValidation", err)
	}
	// Moving to the bottom when already last still yields a fresh key.
	if _, err := svc.Reorder(ctx, a.ID, position.Position{Type: position.Bottom}); err != nil {
		t.Fatalf("reorder last to bottom: %v", err)
	}
}

func TestTodoService_Timer(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	td := addTodo(t, svc, ctx, "a", nil)

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	if _, err := svc.StopTimer(ctx, td.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("stop idle timer: err = %v, want ErrValidation", err)
	}
	if _, err := svc.StartTimer(ctx, td.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.StartTimer(ctx, td.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("double start: err = %v, want ErrValidation", err)
	}

	now = now.Add(90 * time.Second)
	got, err := svc.StopTimer(ctx, td.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got.ElapsedSeconds != 90 {
		t.Fatalf("elapsed = %v, want 90", got.ElapsedSeconds)
	}

	got, err = svc.OverrideTimer(ctx, td.ID, todo.TimerOverrideRequest{Hours: 1, Minutes: 30})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if got.ElapsedSeconds != 5400 {
		t.Fatalf("elapsed = %v, want 5400", got.ElapsedSeconds)
	}
	if _, err := svc.OverrideTimer(ctx, td.ID, todo.TimerOverrideRequest{Minutes: 75}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad override: err = %v, want ErrValidation", err)
	}
}

func TestTodoService_OverrideKeepsTimerRunning(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	td := addTodo(t, svc, ctx, "a", nil)

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }
	if _, err := svc.StartTimer(ctx, td.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	got, err := svc.OverrideTimer(ctx, td.ID, todo.TimerOverrideRequest{Minutes: 10})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if !got.TimerLog.Running() {
		t.Fatal("timer stopped by override")
	}
	now = now.Add(time.Minute)
	got, _ = svc.Get(ctx, td.ID)
	if got.ElapsedSeconds != 660 {
		t.Fatalf("elapsed = %v, want 660", got.ElapsedSeconds)
	}
}

func TestTodoService_GenerateBreakUps(t *testing.T) {
	queue := &mockQueue{}
	svc := newTestTodoService(&mockStore{}, queue)
	ctx := userCtx("u1")
	addTodo(t, svc, ctx, "small", todo.EstimatePtr(todo.FiveMins))
	big := addTodo(t, svc, ctx, "big", todo.EstimatePtr(todo.OneDay))

	list, err := svc.GenerateBreakUps(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := ids(list); len(got) != 3 || got[1] != `break up "big"` || got[2] != "big" {
		t.Fatalf("list = %v", got)
	}
	bu := list[1]
	if bu.Kind != todo.KindBreakUp || bu.ParentID != big.ID || bu.UserID != "u1" || bu.ID == "" {
		t.Fatalf("break-up = %+v", bu)
	}

	found := false
	for _, s := range queue.subjects() {
		if s == messagequeue.SubjectBreakUpsGenerated {
			found = true
		}
	}
	if !found {
		t.Error("no breakups_generated event")
	}

	again, err := svc.GenerateBreakUps(ctx)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if len(again) != 3 {
		t.Fatalf("second pass created more todos: %v", ids(again))
	}
}

func TestTodoService_GenerateBreakUpsRetries(t *testing.T) {
	store := &mockStore{}
	svc := newTestTodoService(store, &mockQueue{})
	ctx := userCtx("u1")
	addTodo(t, svc, ctx, "big", todo.EstimatePtr(todo.Project))

	store.createTodoErr = []error{domain.ErrOrderConflict}
	list, err := svc.GenerateBreakUps(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %v", ids(list))
	}
}

func TestTodoService_Desirabilities(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	first := addTodo(t, svc, ctx, "first", todo.EstimatePtr(todo.FiveMins))
	second := addTodo(t, svc, ctx, "second", todo.EstimatePtr(todo.FiveMins))
	none := addTodo(t, svc, ctx, "no estimate", nil)
	big := addTodo(t, svc, ctx, "big", todo.EstimatePtr(todo.OneDay))
	done := addTodo(t, svc, ctx, "done", todo.EstimatePtr(todo.OneMin))
	status := todo.StatusComplete
	if _, err := svc.Update(ctx, done.ID, &todo.UpdateRequest{Status: &status}); err != nil {
		t.Fatalf("update: %v", err)
	}

	scores, err := svc.Desirabilities(ctx, todo.ThirtyMins)
	if err != nil {
		t.Fatalf("desirabilities: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("scores = %v, want first, second and no estimate", scores)
	}
	if v, ok := scores[none.ID]; !ok || v != nil {
		t.Errorf("no estimate: %v, want nil", v)
	}
	if _, ok := scores[big.ID]; ok {
		t.Error("todo above the limit was scored")
	}
	if *scores[first.ID] <= *scores[second.ID] {
		t.Errorf("first %v should beat second %v", *scores[first.ID], *scores[second.ID])
	}
	for id, v := range scores {
		if v != nil && (*v < 0 || *v > 1) {
			t.Errorf("%s: score %v out of [0,1]", id, *v)
		}
	}
}

func TestTodoService_DesirabilitiesFollowConfig(t *testing.T) {
	store := &mockStore{}
	cfg := config.Defaults()
	cfg.Scoring.ImportanceMultiplier = 0
	cfg.Scoring.AnnoyingnessMultiplier = 0
	cfg.Scoring.TimeEstimateMultiplier = 0
	cfg.Scoring.PriorityMultiplier = 0
	svc := NewTodoService(store, nil, config.NewHolder(&cfg, ""))
	ctx := userCtx("u1")
	td := addTodo(t, svc, ctx, "a", todo.EstimatePtr(todo.OneMin))

	scores, err := svc.Desirabilities(ctx, todo.Project)
	if err != nil {
		t.Fatalf("desirabilities: %v", err)
	}
	if *scores[td.ID] != 0 {
		t.Fatalf("score = %v, want 0 with all multipliers 0", *scores[td.ID])
	}
}

func TestTodoService_WeightedRandom(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")

	if _, err := svc.WeightedRandom(ctx, 1, todo.Project); !errors.Is(err, pick.ErrNothingToSelect) {
		t.Fatalf("empty: err = %v, want ErrNothingToSelect", err)
	}
	if _, err := svc.WeightedRandom(ctx, 0, todo.Project); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("n=0: err = %v, want ErrValidation", err)
	}

	a := addTodo(t, svc, ctx, "a", todo.EstimatePtr(todo.FiveMins))
	b := addTodo(t, svc, ctx, "b", todo.EstimatePtr(todo.FifteenMins))
	addTodo(t, svc, ctx, "no estimate", nil)
	addTodo(t, svc, ctx, "too long", todo.EstimatePtr(todo.TwoHours))
	committed := addTodo(t, svc, ctx, "committed", todo.EstimatePtr(todo.OneMin))
	yes := true
	if _, err := svc.Update(ctx, committed.ID, &todo.UpdateRequest{Committed: &yes}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.WeightedRandom(ctx, 10, todo.ThirtyMins)
	if err != nil {
		t.Fatalf("weighted random: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("picked %d todos, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, p := range got {
		seen[p.ID] = true
		if p.Desirability < 0 || p.Desirability > 1 {
			t.Errorf("desirability %v out of range", p.Desirability)
		}
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("picked %v", got)
	}
}

func TestTodoService_WeightedRandomMatchesScoreMap(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	ctx := userCtx("u1")
	// An unestimated todo ahead of the others still takes an order rank.
	addTodo(t, svc, ctx, "no estimate", nil)
	b := addTodo(t, svc, ctx, "b", todo.EstimatePtr(todo.FiveMins))
	c := addTodo(t, svc, ctx, "c", todo.EstimatePtr(todo.FiveMins))

	scores, err := svc.Desirabilities(ctx, todo.ThirtyMins)
	if err != nil {
		t.Fatalf("desirabilities: %v", err)
	}
	got, err := svc.WeightedRandom(ctx, 10, todo.ThirtyMins)
	if err != nil {
		t.Fatalf("weighted random: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("picked %d todos, want b and c", len(got))
	}
	for _, p := range got {
		if p.ID != b.ID && p.ID != c.ID {
			t.Fatalf("picked %q", p.Task)
		}
		want := scores[p.ID]
		if want == nil || p.Desirability != *want {
			t.Errorf("%s: pick desirability %v, score map %v", p.Task, p.Desirability, want)
		}
	}
}

func TestTodoService_WeightedRandomPrefersDesirable(t *testing.T) {
	svc := newTestTodoService(&mockStore{}, &mockQueue{})
	rng := rand.New(rand.NewPCG(7, 7))
	svc.newPicker = func() *pick.Picker { return pick.New(rng) }
	ctx := userCtx("u1")
	top := addTodo(t, svc, ctx, "top", todo.EstimatePtr(todo.OneMin))
	addTodo(t, svc, ctx, "middle", todo.EstimatePtr(todo.OneMin))
	addTodo(t, svc, ctx, "last", todo.EstimatePtr(todo.OneMin))

	counts := map[string]int{}
	for range 300 {
		got, err := svc.WeightedRandom(ctx, 1, todo.Project)
		if err != nil {
			t.Fatalf("weighted random: %v", err)
		}
		counts[got[0].ID]++
	}
	// The top todo carries about 70% of the weight.
	if counts[top.ID] < 170 {
		t.Fatalf("top picked %d/300 times", counts[top.ID])
	}
}

func TestTodoService_PublishFailureDoesNotFailRequest(t *testing.T) {
	queue := &mockQueue{publishErr: errBoom}
	svc := newTestTodoService(&mockStore{}, queue)
	if _, err := svc.Create(userCtx("u1"), &todo.CreateRequest{Task: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
}
