package realtime

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateConnecting, true},
		{StateDisconnected, StateConnecting, true},
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateDisconnected, true},
		{StateConnected, StateDisconnected, true},
		{StateIdle, StateConnected, false},
		{StateIdle, StateDisconnected, false},
		{StateConnected, StateConnecting, true},
		{StateConnecting, StateConnecting, false},
		{StateDisconnected, StateConnected, false},
		{StateDisconnected, StateDisconnected, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := canTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStateActive(t *testing.T) {
	if StateIdle.Active() || StateDisconnected.Active() {
		t.Error("idle and disconnected are not active")
	}
	if !StateConnecting.Active() || !StateConnected.Active() {
		t.Error("connecting and connected are active")
	}
}
