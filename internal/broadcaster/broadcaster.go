// Package broadcaster implements the Event Broadcaster (spec §4.8): a
// best-effort, per-session pub/sub channel the Manager uses to stream
// progress to a visual client without ever blocking on delivery.
package broadcaster

import "context"

// Kind is one of the nine event kinds spec §4.8 names.
type Kind string

// Event kinds.
const (
	KindManagerThinking     Kind = "manager_thinking"
	KindAgentSubstep        Kind = "agent_substep"
	KindBrainAllocation     Kind = "brain_allocation"
	KindWorkflowStateChange Kind = "workflow_state_change"
	KindUserDecisionNeeded  Kind = "user_decision_needed"
	KindErrorRecovery       Kind = "error_recovery"
	KindAgentConversation   Kind = "agent_conversation"
	KindChatMessage         Kind = "chat_message"
	KindTypingIndicator     Kind = "typing_indicator"
)

// Event is one broadcast message (spec §4.8: "{session_id, timestamp, data}").
type Event struct {
	SessionID string
	Timestamp int64
	Kind      Kind
	Data      map[string]any
}

// Broadcaster publishes events to per-session subscribers, best-effort: a
// publish call never blocks on a slow or gone subscriber (spec §4.8).
type Broadcaster interface {
	// Publish delivers evt to every current subscriber of evt.SessionID.
	// Delivery is best-effort: a full subscriber buffer drops its oldest
	// event rather than blocking the publisher.
	Publish(ctx context.Context, evt Event) error
	// Subscribe registers a new subscriber for sessionID and returns a
	// channel of events plus an unsubscribe function. The channel is
	// closed when Unsubscribe is called.
	Subscribe(sessionID string) (events <-chan Event, unsubscribe func())
	// Close releases any resources the broadcaster owns (goroutines,
	// connections). Safe to call once.
	Close() error
}
