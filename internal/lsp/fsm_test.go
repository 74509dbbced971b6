package lsp

import (
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

func TestDeriveSignal(t *testing.T) {
	cases := map[agentcore.LSPStatus]BootstrapSignal{
		agentcore.LSPStatusNoActiveServer: SignalRequired,
		agentcore.LSPStatusFailed:         SignalFailed,
		agentcore.LSPStatusDiagnostics:    SignalActive,
		agentcore.LSPStatusNoErrors:       SignalActive,
		agentcore.LSPStatusNoChangedFiles: SignalNone,
		agentcore.LSPStatusDisabled:       SignalNone,
	}
	for status, want := range cases {
		if got := DeriveSignal(status); got != want {
			t.Errorf("DeriveSignal(%v) = %v, want %v", status, got, want)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		prev         agentcore.BootstrapState
		signal       BootstrapSignal
		reasonChange bool
		wantNext     agentcore.BootstrapState
		wantRequired bool
		wantCleared  bool
	}{
		{agentcore.BootstrapIdle, SignalActive, false, agentcore.BootstrapReady, false, false},
		{agentcore.BootstrapIdle, SignalFailed, false, agentcore.BootstrapFailed, true, false},
		{agentcore.BootstrapIdle, SignalRequired, false, agentcore.BootstrapRequired, true, false},
		{agentcore.BootstrapIdle, SignalNone, false, agentcore.BootstrapIdle, false, false},
		{agentcore.BootstrapRequired, SignalActive, false, agentcore.BootstrapReady, false, true},
		{agentcore.BootstrapRequired, SignalFailed, true, agentcore.BootstrapRequired, true, false},
		{agentcore.BootstrapRequired, SignalFailed, false, agentcore.BootstrapRequired, false, false},
		{agentcore.BootstrapFailed, SignalActive, false, agentcore.BootstrapReady, false, true},
		{agentcore.BootstrapFailed, SignalRequired, false, agentcore.BootstrapRequired, true, false},
		{agentcore.BootstrapReady, SignalFailed, false, agentcore.BootstrapFailed, true, false},
		{agentcore.BootstrapProbing, SignalActive, false, agentcore.BootstrapReady, false, true},
		{agentcore.BootstrapProbing, SignalFailed, false, agentcore.BootstrapFailed, true, false},
		{agentcore.BootstrapProbing, SignalRequired, false, agentcore.BootstrapRequired, true, false},
	}
	for _, c := range cases {
		got := Transition(c.prev, c.signal, c.reasonChange)
		if got.NextState != c.wantNext || got.EmitRequired != c.wantRequired || got.EmitCleared != c.wantCleared {
			t.Errorf("Transition(%v, %v, %v) = %+v, want next=%v required=%v cleared=%v",
				c.prev, c.signal, c.reasonChange, got, c.wantNext, c.wantRequired, c.wantCleared)
		}
	}
}
