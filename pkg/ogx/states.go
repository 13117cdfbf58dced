package ogx

// MessageState tracks the lifecycle of a message at the gateway.
// The numeric values are assigned by the upstream gateway API and must
// not be renumbered.
type MessageState int

const (
	// StateAccepted means the message was accepted by the gateway.
	StateAccepted MessageState = 0
	// StateReceived means the message was acknowledged by the destination.
	StateReceived MessageState = 1
	// StateError means submission failed; check the error code.
	StateError MessageState = 2
	// StateDeliveryFailed means the message could not be delivered.
	StateDeliveryFailed MessageState = 3
	// StateTimedOut means the gateway timed the message out.
	StateTimedOut MessageState = 4
	// StateCancelled means the message was cancelled.
	StateCancelled MessageState = 5
	// StateDelayedSend means the message is queued for delayed send.
	// IDP networks only.
	StateDelayedSend MessageState = 6
	// StateBroadcastSubmitted means a broadcast message was transmitted.
	StateBroadcastSubmitted MessageState = 7
	// StateSendingInProgress means sending is in progress. OGx only.
	StateSendingInProgress MessageState = 8
)

// String returns the state name used in logs and API responses.
func (s MessageState) String() string {
	switch s {
	case StateAccepted:
		return "ACCEPTED"
	case StateReceived:
		return "RECEIVED"
	case StateError:
		return "ERROR"
	case StateDeliveryFailed:
		return "DELIVERY_FAILED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateCancelled:
		return "CANCELLED"
	case StateDelayedSend:
		return "DELAYED_SEND"
	case StateBroadcastSubmitted:
		return "BROADCAST_SUBMITTED"
	case StateSendingInProgress:
		return "SENDING_IN_PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state is final: no further transitions
// are expected from the gateway.
func (s MessageState) Terminal() bool {
	switch s {
	case StateReceived, StateError, StateTimedOut, StateCancelled:
		return true
	default:
		return false
	}
}
