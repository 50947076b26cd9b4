package link

import "sync"

// Loopback is an in-memory host link. Frames sent are handed to Peer and
// frames injected with Deliver are received.
type Loopback struct {
	// FrameSize when non-zero rejects frames of other sizes.
	FrameSize int
	// Peer receives every frame sent. May be nil.
	Peer func([]byte)

	rx   latest
	sent uint64
	err  error
	lock sync.Mutex
}

// Fail makes all following operations return err, nil clears it.
func (l *Loopback) Fail(err error) {
	l.lock.Lock()
	l.err = err
	l.lock.Unlock()
}

// Sent returns the number of frames sent.
func (l *Loopback) Sent() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.sent
}

// TriggerSend implements Transmitter. Sending completes immediately.
func (l *Loopback) TriggerSend(frame []byte) error {
	l.lock.Lock()
	if l.err != nil {
		l.lock.Unlock()
		return l.err
	}
	if l.FrameSize != 0 && len(frame) != l.FrameSize {
		l.lock.Unlock()
		return ErrFrameSize
	}
	l.sent++
	peer := l.Peer
	l.lock.Unlock()
	if peer != nil {
		out := make([]byte, len(frame))
		copy(out, frame)
		peer(out)
	}
	return nil
}

// PollComplete implements Transmitter.
func (l *Loopback) PollComplete() (bool, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.err == nil, l.err
}

// Deliver injects a received frame.
func (l *Loopback) Deliver(frame []byte) {
	l.lock.Lock()
	l.rx.store(frame)
	l.lock.Unlock()
}

// Latest implements Receiver.
func (l *Loopback) Latest() ([]byte, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.rx.load()
}
