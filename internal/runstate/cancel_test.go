package runstate

import "testing"

func TestCancelFlagCrossesInstances(t *testing.T) {
	batchDir := t.TempDir()

	writer := NewCancelFlag(batchDir)
	reader := NewCancelFlag(batchDir) // separate instance, same batch dir

	if reader.IsSet() {
		t.Fatal("flag must start unset")
	}
	if err := writer.Set(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !reader.IsSet() {
		t.Fatal("flag set by one instance must be visible to another")
	}
	if err := writer.Set(); err != nil {
		t.Fatalf("set must be idempotent: %v", err)
	}
}
