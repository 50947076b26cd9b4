package link

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/safeio/pkg/framework"
)

// DefaultIdleGap is the default idle time delimiting frames.
const DefaultIdleGap = 2 * time.Millisecond

// Port is a host link over a byte stream. Received frames have a fixed
// size, sent frames may be of any non-zero size (e.g. startup telegrams).
type Port struct {
	ReadWriter io.ReadWriter
	// IdleGap is the idle time delimiting frames.
	IdleGap time.Duration
	// ReadTimeout set to true if ReadWriter.Read returns after IdleGap
	// without data, e.g. a serial port with read timeout configured.
	ReadTimeout bool

	assembler *Assembler
	rx        latest
	txCh      chan []byte
	sending   bool
	err       error
	lock      sync.Mutex
}

// NewPort creates a Port for frames of frameSize bytes.
func NewPort(rw io.ReadWriter, frameSize int, verify VerifyFunc) *Port {
	return &Port{
		ReadWriter: rw,
		IdleGap:    DefaultIdleGap,
		assembler:  NewAssembler(frameSize, verify),
		txCh:       make(chan []byte, 1),
	}
}

// Stats returns the frame assembly counters.
func (p *Port) Stats() AssemblerStats {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.assembler.Stats()
}

func (p *Port) fail(err error) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.err == nil {
		glog.Warningf("host link failed: %v", err)
		p.err = err
	}
	return p.err
}

// TriggerSend implements Transmitter.
func (p *Port) TriggerSend(frame []byte) error {
	if len(frame) == 0 {
		return ErrFrameSize
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.sending {
		return ErrBusy
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	p.sending = true
	p.txCh <- out
	return nil
}

// PollComplete implements Transmitter.
func (p *Port) PollComplete() (bool, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.err != nil {
		return false, p.err
	}
	return !p.sending, nil
}

// Latest implements Receiver.
func (p *Port) Latest() ([]byte, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.rx.load()
}

// Run implements Runnable. It writes triggered frames and assembles
// received ones until the stream fails or ctx is done.
func (p *Port) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.transmit(runCtx)
	fn := p.receiveWithTimer
	if p.ReadTimeout {
		fn = p.receive
	}
	var err error
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		err = fx.RunWithContextCloser(runCtx, closer, fn)
	} else {
		err = fx.RunWithContext(runCtx, fn)
	}
	if err != nil && err != context.Canceled {
		return p.fail(err)
	}
	return err
}

func (p *Port) transmit(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-p.txCh:
			_, err := p.ReadWriter.Write(frame)
			if err != nil {
				p.fail(err)
				return
			}
			p.lock.Lock()
			p.sending = false
			p.lock.Unlock()
		}
	}
}

func (p *Port) push(data []byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, b := range data {
		if frame, ok := p.assembler.Push(b); ok {
			p.rx.store(frame)
		}
	}
}

func (p *Port) gap() {
	p.lock.Lock()
	p.assembler.Gap()
	p.lock.Unlock()
}

// receive relies on Read returning zero bytes after an idle gap.
func (p *Port) receive() error {
	buf := make([]byte, p.assembler.Size())
	for {
		n, err := p.ReadWriter.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				p.gap()
				continue
			}
			return err
		}
		if n == 0 {
			p.gap()
			continue
		}
		p.push(buf[:n])
	}
}

// receiveWithTimer reads in a separate goroutine and detects idle gaps
// with a timer.
func (p *Port) receiveWithTimer() error {
	dataCh, errCh := make(chan []byte), make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			buf := make([]byte, p.assembler.Size())
			n, err := p.ReadWriter.Read(buf)
			if err != nil {
				errCh <- err
				return
			}
			select {
			case dataCh <- buf[:n]:
			case <-done:
				return
			}
		}
	}()
	gapTimer := time.NewTimer(p.IdleGap)
	defer gapTimer.Stop()
	for {
		select {
		case err := <-errCh:
			return err
		case data := <-dataCh:
			p.push(data)
			if !gapTimer.Stop() {
				select {
				case <-gapTimer.C:
				default:
				}
			}
			gapTimer.Reset(p.IdleGap)
		case <-gapTimer.C:
			p.gap()
			gapTimer.Reset(p.IdleGap)
		}
	}
}
