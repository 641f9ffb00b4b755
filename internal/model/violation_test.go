package model

import "testing"

func TestViolationSignalClassification(t *testing.T) {
	cases := []struct {
		signal ViolationSignal
		known  bool
		counts bool
	}{
		{SignalFocusLoss, true, true},
		{SignalPrintScreen, true, true},
		{SignalDevtoolsKey, true, true},
		{SignalCopy, true, true},
		{SignalPaste, true, true},
		{SignalContextMenu, true, false},
		{ViolationSignal("screenshot_api"), false, false},
		{ViolationSignal(""), false, false},
	}

	for _, tc := range cases {
		if got := tc.signal.Known(); got != tc.known {
			t.Errorf("%q Known() = %v, want %v", tc.signal, got, tc.known)
		}
		if got := tc.signal.Counts(); got != tc.counts {
			t.Errorf("%q Counts() = %v, want %v", tc.signal, got, tc.counts)
		}
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if SessionStatusOngoing.Terminal() {
		t.Error("ongoing must not be terminal")
	}
	if !SessionStatusCompleted.Terminal() || !SessionStatusTerminated.Terminal() {
		t.Error("completed and terminated must be terminal")
	}
	if SessionStatus("paused").Valid() {
		t.Error("unknown status must not be valid")
	}
}
