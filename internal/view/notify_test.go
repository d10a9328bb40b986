package view

import (
	"testing"
	"time"
)

func TestNotifierShowsLatest(t *testing.T) {
	n := NewNotifier(time.Minute)
	n.Success("Recipe saved", "Carrot Soup")

	toast, ok := n.Current()
	if !ok {
		t.Fatal("no toast visible")
	}
	if toast.Title != "Recipe saved" || toast.Severity != SeveritySuccess {
		t.Errorf("toast = %+v", toast)
	}
}

func TestNotifierReplacesCurrent(t *testing.T) {
	n := NewNotifier(time.Minute)
	n.Success("First", "a")
	n.Error("Second", "b")

	toast, ok := n.Current()
	if !ok {
		t.Fatal("no toast visible")
	}
	if toast.Title != "Second" || toast.Severity != SeverityError {
		t.Errorf("toast = %+v, want the replacement", toast)
	}
}

func TestNotifierAutoDismiss(t *testing.T) {
	n := NewNotifier(30 * time.Millisecond)
	n.Success("Short lived", "")

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := n.Current(); !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("toast never auto-dismissed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// A replacement must restart the clock: the old toast's timer firing may
// not clear the newer toast.
func TestReplacementOutlivesOldTimer(t *testing.T) {
	n := NewNotifier(200 * time.Millisecond)
	n.Success("First", "")
	time.Sleep(100 * time.Millisecond)
	n.Success("Second", "")
	time.Sleep(150 * time.Millisecond) // old timer would have fired by now

	toast, ok := n.Current()
	if !ok {
		t.Fatal("replacement dismissed by the old timer")
	}
	if toast.Title != "Second" {
		t.Errorf("toast = %+v", toast)
	}
}
