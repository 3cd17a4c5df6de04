package dspacex

import (
	"errors"
	"fmt"
)

var (
	// ErrServer marks a response that carried an error payload
	ErrServer = errors.New("dspacex: server error")
	// ErrClosed is returned for calls on a closed or broken connection
	ErrClosed = errors.New("dspacex: connection closed")
	// ErrNoCurves is returned when a decomposition has no regression curves
	ErrNoCurves = errors.New("dspacex: decomposition has no regression curves")
)

// ServerError is an error payload returned for a command
type ServerError struct {
	Command string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dspacex: %s failed", e.Command)
	}
	return fmt.Sprintf("dspacex: %s failed: %s", e.Command, e.Message)
}

func (e *ServerError) Unwrap() error {
	return ErrServer
}
