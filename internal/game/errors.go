package game

import (
	"fmt"
	"sync"
)

// Error codes, mirrored in translation packs so the UI can format them.
const (
	ErrLoad          = "E_LOAD"
	ErrScript        = "E_SCRIPT"
	ErrTransaction   = "E_TRANSACTION"
	ErrBadCoord      = "E_BAD_COORD"
	ErrSlotOccupied  = "E_SLOT_OCCUPIED"
	ErrSlotEmpty     = "E_SLOT_EMPTY"
	ErrUnknownTile   = "E_UNKNOWN_TILE"
	ErrNotRunning    = "E_NOT_RUNNING"
	ErrBusy          = "E_BUSY"
	ErrIO            = "E_IO"
	ErrUndoExhausted = "E_UNDO_EXHAUSTED"
)

// CommandError is returned to the caller of a scheduler command; it never
// crashes the scheduler.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func cmdErr(code, format string, args ...any) *CommandError {
	return &CommandError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorEntry is one user-visible error: the translation key id plus the
// already formatted message.
type ErrorEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorStack collects non-fatal errors for the UI to peek and pop. It is
// not part of simulation state and never influences a tick.
type ErrorStack struct {
	mu      sync.Mutex
	entries []ErrorEntry
	sink    func(ErrorEntry)
}

func NewErrorStack() *ErrorStack { return &ErrorStack{} }

// SetSink installs an observer invoked for every pushed entry, after it
// lands on the stack. Used for the on-disk error log.
func (s *ErrorStack) SetSink(fn func(ErrorEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = fn
}

func (s *ErrorStack) Push(code, format string, args ...any) {
	e := ErrorEntry{Code: code, Message: fmt.Sprintf(format, args...)}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(e)
	}
}

// Peek returns the top entry without removing it.
func (s *ErrorStack) Peek() (ErrorEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return ErrorEntry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Pop removes and returns the top entry.
func (s *ErrorStack) Pop() (ErrorEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return ErrorEntry{}, false
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e, true
}

func (s *ErrorStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
