package primitives

// Event is what the engine hands to guards and actions: the decoded event
// name alongside the raw message that produced it.
//
// Msg aliases the producer's buffer. For mutable messages that buffer is
// released once dispatch returns, so actions must copy anything they keep.
type Event struct {
	Type   string
	Signal Signal
	Msg    Msg
}

// NewEvent builds an Event for a named signal.
func NewEvent(eventType string, msg Msg) Event {
	return Event{
		Type:   eventType,
		Signal: msg.Signal(),
		Msg:    msg,
	}
}
