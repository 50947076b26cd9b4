// Package fault is the device-wide fail-safe handler for defensive faults.
//
// A defensive fault (invalid internal index, out-of-range fragment counter,
// invalid state-machine input) is not recoverable by the caller. Raise never
// returns: the default handler terminates the process through glog.Fatalf,
// and a custom handler that returns causes Raise to panic.
package fault

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Code classifies a defensive fault.
type Code int

// Fault codes.
const (
	InvalidIndex Code = iota + 1
	FragmentCounter
	InvalidState
	InvalidChannel
	InvalidConfig
)

var codeNames = map[Code]string{
	InvalidIndex:    "invalid index",
	FragmentCounter: "fragment counter out of range",
	InvalidState:    "invalid state",
	InvalidChannel:  "invalid channel",
	InvalidConfig:   "invalid config",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("fault(%d)", int(c))
}

// Error is the value a returning Handler leaves behind as panic.
type Error struct {
	Code    Code
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("fail-safe: %s: %s", e.Code, e.Message)
}

// Handler receives defensive faults.
type Handler interface {
	HandleFault(*Error)
}

// HandleFaultFunc is func form of Handler.
type HandleFaultFunc func(*Error)

// HandleFault implements Handler.
func (f HandleFaultFunc) HandleFault(e *Error) {
	f(e)
}

type fatalHandler struct{}

func (fatalHandler) HandleFault(e *Error) {
	glog.Fatalf("%v", e)
}

var (
	handler     Handler = fatalHandler{}
	handlerLock sync.RWMutex
)

// SetHandler installs h and returns a func restoring the previous handler.
func SetHandler(h Handler) (restore func()) {
	handlerLock.Lock()
	prev := handler
	handler = h
	handlerLock.Unlock()
	return func() {
		handlerLock.Lock()
		handler = prev
		handlerLock.Unlock()
	}
}

// Raise escalates a defensive fault. It never returns.
func Raise(code Code, format string, args ...interface{}) {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	handlerLock.RLock()
	h := handler
	handlerLock.RUnlock()
	h.HandleFault(e)
	panic(e)
}

// Catch runs fn and returns the fault it raised, if any. Faults are
// recovered only while a non-fatal handler is installed.
func Catch(fn func()) (e *Error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*Error); ok {
				e = fe
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}
