// Package adv decodes BLE advertising data payloads into a bounds-checked
// record. Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A.
package adv

import (
	"math"
	"net"
)

// TxPowerUnset marks a Record whose advertisement carried no TX power level.
// It cannot be confused with a power reading in the valid range.
const TxPowerUnset = math.MaxInt8

// Presence records which optional fields were decoded from the wire. It is
// the single source of truth for field presence; the Name placeholder a
// caller may install must never be mistaken for a decoded name.
type Presence uint16

// Presence bits.
const (
	HasUUID16 Presence = 1 << iota
	HasUUID32
	HasUUID128
	HasServiceData
	HasManufacturerData
	HasFlags
	HasName
	HasURI
)

// Record holds the decoded fields of a single advertising event. A Record is
// produced fresh per event and carries no cross-event state.
type Record struct {
	// Addr is the address of the sender in display byte order.
	Addr net.HardwareAddr
	// RSSI is the received signal strength in dBm.
	RSSI int8

	// Name is the shortened or complete local name. Check HasName: when the
	// advertisement carried no name, Name may still hold a display
	// placeholder installed by the caller.
	Name string
	// URI advertised by the sender, empty if absent.
	URI string
	// TxPower is the TX power level the sender claimed, or TxPowerUnset.
	TxPower int8
	// Flags carried by the advertisement, check HasFlags.
	Flags byte

	// ServiceUUID and ServiceData hold the 16-bit service data field,
	// check HasServiceData. ServiceData may be present yet empty.
	ServiceUUID uint16
	ServiceData []byte

	// ManufacturerID and ManufacturerData hold the manufacturer specific
	// data field, check HasManufacturerData.
	ManufacturerID   uint16
	ManufacturerData []byte

	// Advertised service class UUIDs, check the corresponding Has bits.
	// UUID128 is kept in wire (little endian) order.
	UUID16  uint16
	UUID32  uint32
	UUID128 [16]byte

	// Has indicates which of the optional fields above were decoded.
	Has Presence
}

// NameKnown reports whether the local name was decoded from the wire.
func (r *Record) NameKnown() bool { return r.Has&HasName != 0 }
