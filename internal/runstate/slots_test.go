package runstate

import (
	"testing"
	"time"
)

func TestSlotSemaphoreAdmitsUpToSize(t *testing.T) {
	sem := NewSlotSemaphore(t.TempDir(), 2)

	first, ok, err := sem.Acquire(nil)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	second, ok, err := sem.Acquire(nil)
	if err != nil || !ok {
		t.Fatalf("second acquire: ok=%v err=%v", ok, err)
	}

	acquired := make(chan Slot, 1)
	go func() {
		slot, ok, err := sem.Acquire(nil)
		if err != nil || !ok {
			t.Errorf("third acquire: ok=%v err=%v", ok, err)
			return
		}
		acquired <- slot
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire succeeded while both slots were held")
	case <-time.After(400 * time.Millisecond):
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	select {
	case slot := <-acquired:
		_ = slot.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("third acquire did not proceed after a slot was freed")
	}

	_ = second.Release()
}

func TestSlotSemaphoreAbandonsWaitOnCancel(t *testing.T) {
	batchDir := t.TempDir()
	sem := NewSlotSemaphore(batchDir, 1)

	held, ok, err := sem.Acquire(nil)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	defer func() { _ = held.Release() }()

	cancel := NewCancelFlag(batchDir)
	result := make(chan bool, 1)
	go func() {
		_, ok, err := sem.Acquire(cancel)
		if err != nil {
			t.Errorf("acquire during cancel: %v", err)
		}
		result <- ok
	}()

	time.Sleep(100 * time.Millisecond)
	if err := cancel.Set(); err != nil {
		t.Fatal(err)
	}

	select {
	case ok := <-result:
		if ok {
			t.Fatal("cancelled waiter must not be admitted")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter did not return")
	}
}
