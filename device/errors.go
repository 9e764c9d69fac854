package device

import (
	"errors"
	"fmt"

	"github.com/modminer/core/serial"
	"github.com/modminer/core/wire"
)

// Error wraps a device-level failure with the path it happened on, so
// logs and host-facing returns can identify which board failed without
// callers needing to thread the path through separately.
type Error struct {
	Path string
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

func wrapErr(path, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Path: path, msg: msg, err: err}
}

// ErrProtocolViolation covers a malformed reply during bring-up (FPGA count
// out of range, no version string) and a caller passing an FPGA index out
// of range or no bitstream for an unprogrammed FPGA. isTransportFault never
// classifies it as a transport fault, so it never triggers a reopen; a bad
// ack is reported separately as wire.ErrBadAck.
var ErrProtocolViolation = errors.New("device: protocol violation")

// isTransportFault reports whether err should trigger a port reopen rather
// than propagate as a hard failure: a true transport error (timeout, short
// write, closed port), or a bad-ack protocol violation observed once the
// device is already running. At bring-up the same ErrBadAck is left to
// propagate as fatal by bringUp, which never calls through withLock.
func isTransportFault(err error) bool {
	if err == nil {
		return false
	}
	var serr serial.Error
	if errors.As(err, &serr) {
		return true
	}
	return errors.Is(err, wire.ErrBadAck)
}
