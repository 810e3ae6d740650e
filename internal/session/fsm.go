// Package session owns the client-side flow: staging photos, the one
// in-flight analysis call, and the state the UI renders from.
package session

import (
	"errors"
	"fmt"
)

type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Event int

const (
	EventSubmit Event = iota
	EventSucceed
	EventFail
	EventReset
	EventRetry
)

func (e Event) String() string {
	switch e {
	case EventSubmit:
		return "submit"
	case EventSucceed:
		return "succeed"
	case EventFail:
		return "fail"
	case EventReset:
		return "reset"
	case EventRetry:
		return "retry"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ErrBusy answers a submit while a call is already in flight. The flow
// allows exactly one outstanding request.
var ErrBusy = errors.New("analysis already in flight")

// Next is the whole transition graph. Pure: feeding the same state and
// event always yields the same answer, which is what makes it testable
// apart from any I/O.
func Next(s State, e Event) (State, error) {
	switch s {
	case StateIdle:
		if e == EventSubmit {
			return StateAnalyzing, nil
		}
	case StateAnalyzing:
		switch e {
		case EventSucceed:
			return StateSuccess, nil
		case EventFail:
			return StateError, nil
		case EventSubmit:
			return s, ErrBusy
		}
	case StateSuccess:
		if e == EventReset {
			return StateIdle, nil
		}
	case StateError:
		switch e {
		case EventReset:
			return StateIdle, nil
		case EventRetry:
			return StateAnalyzing, nil
		}
	}
	return s, fmt.Errorf("no %s transition from %s", e, s)
}
