// Package hci assembles BLE advertising reports from raw HCI event frames
// and drives the LE scan state of a controller.
package hci

import (
	"time"

	"github.com/maribu/ble-adv/hci/cmd"
)

// HCI packet type indicators.
const (
	pktTypeCommand uint8 = 0x01
	pktTypeACLData uint8 = 0x02
	pktTypeSCOData uint8 = 0x03
	pktTypeEvent   uint8 = 0x04
	pktTypeVendor  uint8 = 0xFF
)

// Transport is the HCI channel the scan path drives. Implementations are
// synchronous; the caller owns the transport exclusively for the duration of
// any control call so enable/disable sequences never interleave.
type Transport interface {
	// ReadEvent blocks until one event frame is available and returns it,
	// HCI packet indicator included. Interrupted reads are retried
	// transparently by the implementation.
	ReadEvent() ([]byte, error)

	// SubmitCommand sends one command and blocks until the controller
	// acknowledges it or the timeout expires. It returns the command's
	// return parameters; by convention their first byte is the status.
	SubmitCommand(c cmd.Command, timeout time.Duration) ([]byte, error)

	// InstallFilter restricts subsequent ReadEvent results to the given
	// event classes.
	InstallFilter(f EventFilter) error

	Close() error
}

// EventFilter selects the packet types and event codes a Transport delivers.
type EventFilter struct {
	PacketTypes []uint8
	Events      []uint8
}
