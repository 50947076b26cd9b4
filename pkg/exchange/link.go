package exchange

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/safeio/pkg/framework"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Link implements Exchange over a PacketReadWriter.
type Link struct {
	ReadWriter PacketReadWriter

	slots    Slots
	badWords uint64
	err      error
	lock     sync.Mutex
	sendLock sync.Mutex
	buf      [WordSize]byte
}

// NewLink creates a Link.
func NewLink(rw PacketReadWriter) *Link {
	return &Link{ReadWriter: rw}
}

func (l *Link) latch(err error) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.err == nil && err != nil {
		glog.Warningf("exchange link failed: %v", err)
		l.err = err
	}
	if l.err != nil {
		return &TransportError{Err: l.err}
	}
	return nil
}

// Err returns the latched transport error.
func (l *Link) Err() error {
	return l.latch(nil)
}

// BadWords returns the number of dropped corrupted words.
func (l *Link) BadWords() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.badWords
}

// Send implements Exchange.
func (l *Link) Send(w Word) error {
	if err := l.Err(); err != nil {
		return err
	}
	l.sendLock.Lock()
	defer l.sendLock.Unlock()
	EncodeWord(l.buf[:], &w)
	if err := l.ReadWriter.WritePacket(l.buf[:]); err != nil {
		return l.latch(err)
	}
	return nil
}

// Receive implements Exchange.
func (l *Link) Receive(tag Tag) (Word, error) {
	if err := l.Err(); err != nil {
		return Word{Tag: tag}, err
	}
	return l.slots.Load(tag), nil
}

// Reset implements Exchange.
func (l *Link) Reset() {
	l.slots.Reset()
}

// Run implements Runnable. It pumps received words into the slots until
// the transport fails or ctx is done.
func (l *Link) Run(ctx context.Context) error {
	fn := func() error {
		for {
			pkt, err := l.ReadWriter.ReadPacket()
			if err != nil {
				return l.latch(err)
			}
			w, err := DecodeWord(pkt)
			if err != nil {
				l.lock.Lock()
				l.badWords++
				l.lock.Unlock()
				glog.V(2).Infof("exchange link dropped word: %v", err)
				continue
			}
			l.slots.Store(w)
		}
	}
	if closer, ok := l.ReadWriter.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, fn)
	}
	return fx.RunWithContext(ctx, fn)
}
