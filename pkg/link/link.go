package link

// Transmitter is the send side of the host link.
type Transmitter interface {
	// TriggerSend starts sending frame. It returns ErrBusy if the previous
	// frame hasn't completed. The frame is copied.
	TriggerSend(frame []byte) error
	// PollComplete tells if the last triggered frame has been sent.
	PollComplete() (bool, error)
}

// Receiver is the receive side of the host link.
type Receiver interface {
	// Latest returns the most recent verified frame received since the last
	// call, false if nothing new arrived.
	Latest() ([]byte, bool)
}

// TransmitReceiver is the full host link.
type TransmitReceiver interface {
	Transmitter
	Receiver
}

// latest is a single slot for received frames; a newer frame overwrites
// an unread one.
type latest struct {
	buf   []byte
	fresh bool
}

func (l *latest) store(frame []byte) {
	if len(l.buf) != len(frame) {
		l.buf = make([]byte, len(frame))
	}
	copy(l.buf, frame)
	l.fresh = true
}

func (l *latest) load() ([]byte, bool) {
	if !l.fresh {
		return nil, false
	}
	l.fresh = false
	frame := make([]byte, len(l.buf))
	copy(frame, l.buf)
	return frame, true
}
