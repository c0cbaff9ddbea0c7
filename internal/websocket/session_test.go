package websocket

import "testing"

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateConnecting, "connecting"},
		{StateAuthenticating, "authenticating"},
		{StateAuthorized, "authorized"},
		{StateActive, "active"},
		{StateClosing, "closing"},
		{StateClosed, "closed"},
		{State(99), "unknown"},
	}

	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", c.state, got, c.want)
		}
	}
}

func TestNewSessionDefaults(t *testing.T) {
	s, err := NewSession(nil, 1, "alice", 10, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if s.State() != StateConnecting {
		t.Errorf("initial state = %v, want %v", s.State(), StateConnecting)
	}
	if s.ID == "" {
		t.Error("session ID is empty")
	}
	if cap(s.send) == 0 {
		t.Error("send buffer has zero capacity")
	}

	other, err := NewSession(nil, 1, "alice", 10, nil, nil, nil, 0)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.ID == other.ID {
		t.Error("two sessions share an ID")
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	s, err := NewSession(nil, 1, "alice", 10, nil, nil, nil, 4)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if !s.enqueue([]byte("hello")) {
		t.Fatal("enqueue on open session failed")
	}

	s.closeSend()
	s.closeSend() // closing twice must not panic

	if s.enqueue([]byte("late")) {
		t.Fatal("enqueue after close succeeded")
	}
}

func TestEnqueueFullBufferFails(t *testing.T) {
	s, err := NewSession(nil, 1, "alice", 10, nil, nil, nil, 1)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if !s.enqueue([]byte("first")) {
		t.Fatal("first enqueue failed")
	}
	if s.enqueue([]byte("second")) {
		t.Fatal("enqueue into full buffer succeeded")
	}
}
