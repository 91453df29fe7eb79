package file

import (
	"testing"
	"time"
)

func TestShouldProcessDedupe(t *testing.T) {
	m, err := NewFileMonitor(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	mod := time.Now()
	if !m.shouldProcess("results.csv", mod) {
		t.Fatal("first event for a file must fire")
	}
	if m.shouldProcess("results.csv", mod) {
		t.Error("repeated event with the same modtime must be dropped")
	}
	if !m.shouldProcess("results.csv", mod.Add(time.Second)) {
		t.Error("a newer write to the same file must fire")
	}
	if !m.shouldProcess("status.csv", mod) {
		t.Error("a different file must fire regardless of modtime")
	}
}
