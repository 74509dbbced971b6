package lsp

import "github.com/zace-run/zace/internal/agentcore"

// BootstrapSignal is the coarse signal a ToolResult's LSP status reduces to
// before being fed through the FSM transition table.
type BootstrapSignal string

const (
	SignalActive   BootstrapSignal = "active"
	SignalFailed   BootstrapSignal = "failed"
	SignalRequired BootstrapSignal = "required"
	SignalNone     BootstrapSignal = "none"
)

// DeriveSignal reduces an LSPStatus to the coarse signal the bootstrap FSM
// consumes: no_active_server maps to required, failed maps to failed,
// diagnostics/no_errors both map to active, everything else is none.
func DeriveSignal(status agentcore.LSPStatus) BootstrapSignal {
	switch status {
	case agentcore.LSPStatusNoActiveServer:
		return SignalRequired
	case agentcore.LSPStatusFailed:
		return SignalFailed
	case agentcore.LSPStatusDiagnostics, agentcore.LSPStatusNoErrors:
		return SignalActive
	default:
		return SignalNone
	}
}

// TransitionResult is the outcome of applying one signal to the bootstrap
// FSM: the next state and whether a "required" or "cleared" event should be
// emitted to the run's session log.
type TransitionResult struct {
	NextState    agentcore.BootstrapState
	EmitRequired bool
	EmitCleared  bool
}

// Transition implements the bootstrap finite-state-machine's transition
// table: (previous state, signal) -> (next state, event to emit).
func Transition(prev agentcore.BootstrapState, signal BootstrapSignal, reasonChanged bool) TransitionResult {
	switch prev {
	case agentcore.BootstrapIdle:
		switch signal {
		case SignalActive:
			return TransitionResult{NextState: agentcore.BootstrapReady}
		case SignalFailed:
			return TransitionResult{NextState: agentcore.BootstrapFailed, EmitRequired: true}
		case SignalRequired:
			return TransitionResult{NextState: agentcore.BootstrapRequired, EmitRequired: true}
		default:
			return TransitionResult{NextState: prev}
		}

	case agentcore.BootstrapRequired:
		switch signal {
		case SignalActive:
			return TransitionResult{NextState: agentcore.BootstrapReady, EmitCleared: true}
		case SignalFailed:
			return TransitionResult{NextState: agentcore.BootstrapRequired, EmitRequired: reasonChanged}
		default:
			return TransitionResult{NextState: prev}
		}

	case agentcore.BootstrapFailed:
		switch signal {
		case SignalActive:
			return TransitionResult{NextState: agentcore.BootstrapReady, EmitCleared: true}
		case SignalRequired:
			return TransitionResult{NextState: agentcore.BootstrapRequired, EmitRequired: true}
		default:
			return TransitionResult{NextState: prev}
		}

	case agentcore.BootstrapReady:
		switch signal {
		case SignalFailed:
			return TransitionResult{NextState: agentcore.BootstrapFailed, EmitRequired: true}
		case SignalRequired:
			return TransitionResult{NextState: agentcore.BootstrapRequired, EmitRequired: true}
		default:
			return TransitionResult{NextState: prev}
		}

	case agentcore.BootstrapProbing:
		switch signal {
		case SignalActive:
			return TransitionResult{NextState: agentcore.BootstrapReady, EmitCleared: true}
		case SignalFailed:
			return TransitionResult{NextState: agentcore.BootstrapFailed, EmitRequired: true}
		case SignalRequired:
			return TransitionResult{NextState: agentcore.BootstrapRequired, EmitRequired: true}
		default:
			return TransitionResult{NextState: prev}
		}
	}

	return TransitionResult{NextState: prev}
}
