// Package msgs defines the diagnostic messages published by a channel.
//
// Messages are protobuf encoded and wrapped in Typed, so a monitor can
// decode them without knowing the topic they arrive on.
package msgs
