package plan

import "testing"

func TestTaskSet_SummaryAndPromiseMet(t *testing.T) {
	set := &TaskSet{Tasks: []Task{
		{Number: 0, Done: true},
		{Number: 1, Done: true},
	}}

	sum := set.Summary()
	if sum.Total != 2 || sum.Complete != 2 || sum.Incomplete != 0 {
		t.Fatalf("Summary() = %+v", sum)
	}
	if !set.IsPromiseMet() {
		t.Fatal("expected IsPromiseMet() true when all tasks are done")
	}
	if set.CurrentTask() != nil {
		t.Fatal("expected CurrentTask() nil when all tasks are done")
	}
}

func TestTaskSet_CurrentTaskReturnsFirstUnchecked(t *testing.T) {
	set := &TaskSet{Tasks: []Task{
		{Number: 0, Done: true},
		{Number: 1, Done: false},
		{Number: 2, Done: false},
	}}

	current := set.CurrentTask()
	if current == nil || current.Number != 1 {
		t.Fatalf("CurrentTask() = %v, want task 1", current)
	}
	if set.IsPromiseMet() {
		t.Fatal("expected IsPromiseMet() false with incomplete tasks")
	}
}

func TestTaskSet_EmptySetIsNotPromiseMet(t *testing.T) {
	set := &TaskSet{}
	if set.IsPromiseMet() {
		t.Fatal("expected IsPromiseMet() false for an empty task set")
	}
}
