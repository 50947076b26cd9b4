// Package link is the host link carrying telegrams between a channel and
// the network-interface controller.
//
// The transmit side is a black box with two operations: TriggerSend hands a
// complete frame to the driver, PollComplete reports whether the last one
// has left. The receive side assembles fixed-size frames out of a byte
// stream and keeps only the latest verified one.
package link
