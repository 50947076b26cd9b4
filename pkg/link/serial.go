package link

import (
	"go.bug.st/serial"
)

// OpenSerial opens a serial port as a Port. The read timeout of the port
// is the idle gap delimiting frames.
func OpenSerial(name string, baud, frameSize int, verify VerifyFunc) (*Port, error) {
	sp, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	p := NewPort(sp, frameSize, verify)
	if err := sp.SetReadTimeout(p.IdleGap); err != nil {
		sp.Close()
		return nil, err
	}
	p.ReadTimeout = true
	return p, nil
}

// SerialPorts lists available serial ports.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
