package service

import (
	"sync"
	"testing"
)

func TestStatsService_Snapshot(t *testing.T) {
	t.Parallel()
	s := NewStatsService()

	s.RecordAccepted()
	s.RecordAccepted()
	s.RecordRejected("network")
	s.RecordRejected("network")
	s.RecordRejected("message")
	s.RecordRejected("")
	s.RecordDuplicate()
	s.RecordDelivered()
	s.RecordRetried()
	s.RecordDead()

	snap := s.Snapshot()
	if snap.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", snap.Accepted)
	}
	if snap.Rejected != 4 {
		t.Errorf("Rejected = %d, want 4", snap.Rejected)
	}
	if snap.Duplicates != 1 || snap.Delivered != 1 || snap.Retried != 1 || snap.Dead != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.StageCounts["network"] != 2 || snap.StageCounts["message"] != 1 {
		t.Errorf("stage counts = %v", snap.StageCounts)
	}
	if _, ok := snap.StageCounts[""]; ok {
		t.Error("empty stage must not be counted per stage")
	}
}

func TestStatsService_SnapshotIsCopy(t *testing.T) {
	t.Parallel()
	s := NewStatsService()
	s.RecordRejected("size")

	snap := s.Snapshot()
	snap.StageCounts["size"] = 99

	if got := s.Snapshot().StageCounts["size"]; got != 1 {
		t.Errorf("snapshot mutation leaked into service: %d", got)
	}
}

func TestStatsService_ConcurrentRecording(t *testing.T) {
	t.Parallel()
	s := NewStatsService()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordAccepted()
				s.RecordRejected("format")
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Accepted != 800 {
		t.Errorf("Accepted = %d, want 800", snap.Accepted)
	}
	if snap.StageCounts["format"] != 800 {
		t.Errorf("format stage = %d, want 800", snap.StageCounts["format"])
	}
}
