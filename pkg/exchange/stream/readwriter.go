// Package stream carries exchange packets over a byte stream such as a TCP
// connection between the two channel processes.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
)

// MaxPacketSize bounds a received packet. Exchange words are fixed-size so
// anything larger means the stream is out of sync.
const MaxPacketSize = 256

// ErrPacketTooLarge indicates a length prefix above MaxPacketSize.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements exchange.PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter

	buf [MaxPacketSize]byte
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// Dial connects to the twin channel listening on addr.
func Dial(addr string) (*ReadWriter, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Accept waits for the twin channel on addr and returns the first connection.
func Accept(addr string) (*ReadWriter, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader. The returned slice is valid until the
// next call.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p.ReadWriter, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	pkt := p.buf[:size]
	_, err := io.ReadFull(p.ReadWriter, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	size := uint32(len(pkt))
	if size > MaxPacketSize {
		return ErrPacketTooLarge
	}
	if err := binary.Write(p.ReadWriter, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := p.ReadWriter.Write(pkt)
	return err
}

// Close implements io.Closer when the underlying stream does.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
