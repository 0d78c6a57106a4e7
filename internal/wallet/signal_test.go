package wallet

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan ConnectionState) ConnectionState {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for signal state")
		return ConnectionState{}
	}
}

func TestSignal_SubscribeDeliversCurrentState(t *testing.T) {
	s := NewSignal()
	s.Set("0xabcdef0123456789abcdef0123456789abcdef01")

	ch, cancel := s.Subscribe()
	defer cancel()

	st := recv(t, ch)
	if !st.Connected || st.Address != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Errorf("initial state = %+v", st)
	}
}

func TestSignal_PublishesChanges(t *testing.T) {
	s := NewSignal()
	ch, cancel := s.Subscribe()
	defer cancel()

	if st := recv(t, ch); st.Connected {
		t.Fatalf("baseline should be disconnected, got %+v", st)
	}

	s.Set("0x1111111111111111111111111111111111111111")
	st := recv(t, ch)
	if !st.Connected || st.Address != "0x1111111111111111111111111111111111111111" {
		t.Errorf("state after Set = %+v", st)
	}

	s.Clear()
	st = recv(t, ch)
	if st.Connected || st.Address != "" {
		t.Errorf("state after Clear = %+v", st)
	}
}

func TestSignal_UnchangedStateDoesNotWakeReaders(t *testing.T) {
	s := NewSignal()
	s.Set("0x1111111111111111111111111111111111111111")

	ch, cancel := s.Subscribe()
	defer cancel()
	recv(t, ch) // drain baseline

	s.Set("0x1111111111111111111111111111111111111111")
	select {
	case st := <-ch:
		t.Errorf("unexpected delivery for unchanged state: %+v", st)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSignal_SlowReaderKeepsLatest(t *testing.T) {
	s := NewSignal()
	ch, cancel := s.Subscribe()
	defer cancel()
	recv(t, ch) // drain baseline

	s.Set("0x1111111111111111111111111111111111111111")
	s.Clear()
	s.Set("0x2222222222222222222222222222222222222222")

	st := recv(t, ch)
	if st.Address != "0x2222222222222222222222222222222222222222" {
		t.Errorf("slow reader saw %+v, want only the latest state", st)
	}
}

func TestSignal_CancelStopsDelivery(t *testing.T) {
	s := NewSignal()
	ch, cancel := s.Subscribe()
	recv(t, ch)
	cancel()

	// Channel is closed on cancel.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Publishing after cancel must not panic.
	s.Set("0x1111111111111111111111111111111111111111")
}
