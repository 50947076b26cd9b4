package link

import "errors"

var (
	// ErrBusy indicates the previous frame is still being sent.
	ErrBusy = errors.New("transmitter busy")
	// ErrFrameSize indicates the frame doesn't match the link frame size.
	ErrFrameSize = errors.New("invalid frame size")
	// ErrClosed indicates the link is closed.
	ErrClosed = errors.New("link closed")
)
