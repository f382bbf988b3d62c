package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/lapse/internal/lifecycle"
)

type fakeTracker struct {
	scans   atomic.Int32
	backups atomic.Int32
}

func (f *fakeTracker) CheckReminders(context.Context) (lifecycle.ReminderSummary, bool) {
	f.scans.Add(1)
	return lifecycle.ReminderSummary{ExpiringSoon: 1}, true
}

func (f *fakeTracker) AutoBackup(context.Context) (bool, error) {
	f.backups.Add(1)
	return true, nil
}

func TestNew_RejectsBadSpec(t *testing.T) {
	if _, err := New(&fakeTracker{}, "every hour", "", nil); err == nil {
		t.Error("expected error for bad reminder spec")
	}
	if _, err := New(&fakeTracker{}, "", "61 * * * *", nil); err == nil {
		t.Error("expected error for bad backup spec")
	}
}

func TestNew_EmptySpecDisablesJob(t *testing.T) {
	s, err := New(&fakeTracker{}, DefaultReminderSpec, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Jobs() != 1 {
		t.Errorf("jobs = %d, want 1", s.Jobs())
	}
}

func TestRun_ScansOnStartAndStops(t *testing.T) {
	ft := &fakeTracker{}
	s, err := New(ft, DefaultReminderSpec, DefaultBackupSpec, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for ft.scans.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ft.scans.Load() != 1 {
		t.Errorf("scans = %d, want 1", ft.scans.Load())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAutoBackupJob(t *testing.T) {
	ft := &fakeTracker{}
	s, _ := New(ft, "", DefaultBackupSpec, nil)
	s.autoBackup()
	if ft.backups.Load() != 1 {
		t.Errorf("backups = %d", ft.backups.Load())
	}
}
