package document

import "testing"

func TestApplyChangesOpenEditSave(t *testing.T) {
	// Scenario 1 from the testable-properties list: "hello\n" plus
	// [unchanged("hello"), added("!"), removed("\n"), added("\n")]
	// yields "hello!\n".
	current := "hello\n"
	changes := []DiffChange{
		{Value: "hello"},
		{Value: "!", Added: true},
		{Value: "\n", Removed: true},
		{Value: "\n", Added: true},
	}
	got, err := applyChanges(current, changes)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello!\n" {
		t.Fatalf("got %q, want %q", got, "hello!\n")
	}
}

func TestApplyChangesIdentityDiff(t *testing.T) {
	current := "unchanged content\nwith two lines\n"
	changes := []DiffChange{{Value: current}}
	got, err := applyChanges(current, changes)
	if err != nil {
		t.Fatal(err)
	}
	if got != current {
		t.Fatalf("identity diff mismatch: got %q", got)
	}
}

func TestApplyChangesOverrunFails(t *testing.T) {
	current := "short"
	changes := []DiffChange{{Value: "this value is far longer than current"}}
	if _, err := applyChanges(current, changes); err == nil {
		t.Fatal("expected InvalidChange error on overrun")
	}
}
