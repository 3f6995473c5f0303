package hci

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTruncatedEvent is returned for a raw transport buffer shorter than
	// the minimum advertising report framing.
	ErrTruncatedEvent = errors.New("hci: truncated event packet")

	// ErrNotAdvertisement is returned for a well-formed event of a different
	// type. It is a skip signal for the read loop, not a failure.
	ErrNotAdvertisement = errors.New("hci: not an advertising report")
)

// ErrCommand is a non-zero status code returned by the controller for an HCI
// command [Vol 2, Part D, 1.3].
type ErrCommand byte

// Error implements error.
func (e ErrCommand) Error() string {
	if n, ok := errCmdName[e]; ok {
		return n
	}
	return fmt.Sprintf("command error 0x%02X", byte(e))
}

// Busy reports whether the status is the transient condition a controller
// returns for a parameter change while a scan is in progress.
func (e ErrCommand) Busy() bool {
	return e == ErrDisallowed || e == ErrControllerBusy
}

// Subset of controller status codes the scan path encounters.
const (
	ErrUnknownCommand ErrCommand = 0x01 // Unknown HCI Command
	ErrConnID         ErrCommand = 0x02 // Unknown Connection Identifier
	ErrHardware       ErrCommand = 0x03 // Hardware Failure
	ErrAuthFailure    ErrCommand = 0x05 // Authentication Failure
	ErrMemCapacity    ErrCommand = 0x07 // Memory Capacity Exceeded
	ErrDisallowed     ErrCommand = 0x0C // Command Disallowed
	ErrInvalidParams  ErrCommand = 0x12 // Invalid HCI Command Parameters
	ErrUnspecified    ErrCommand = 0x1F // Unspecified Error
	ErrControllerBusy ErrCommand = 0x3A // Controller Busy
)

var errCmdName = map[ErrCommand]string{
	ErrUnknownCommand: "unknown HCI command",
	ErrConnID:         "unknown connection identifier",
	ErrHardware:       "hardware failure",
	ErrAuthFailure:    "authentication failure",
	ErrMemCapacity:    "memory capacity exceeded",
	ErrDisallowed:     "command disallowed",
	ErrInvalidParams:  "invalid HCI command parameters",
	ErrUnspecified:    "unspecified error",
	ErrControllerBusy: "controller busy",
}

func isBusy(err error) bool {
	e, ok := errors.Cause(err).(ErrCommand)
	return ok && e.Busy()
}
