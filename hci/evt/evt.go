// Package evt provides accessor views over raw HCI event parameters.
package evt

import "encoding/binary"

// Event codes handled by the scan path.
const (
	CommandCompleteCode = 0x0E
	CommandStatusCode   = 0x0F
	LEMetaCode          = 0x3E
)

// LE Meta subevent codes.
const (
	LEConnectionCompleteSubCode = 0x01
	LEAdvertisingReportSubCode  = 0x02
)

// CommandComplete implements Command Complete Event (0x0E) [Vol 2, Part E, 7.7.14].
type CommandComplete []byte

func (e CommandComplete) NumHCICommandPackets() uint8 { return e[0] }
func (e CommandComplete) CommandOpcode() uint16       { return binary.LittleEndian.Uint16(e[1:]) }
func (e CommandComplete) ReturnParameters() []byte    { return e[3:] }

// CommandStatus implements Command Status Event (0x0F) [Vol 2, Part E, 7.7.15].
type CommandStatus []byte

func (e CommandStatus) Status() uint8               { return e[0] }
func (e CommandStatus) NumHCICommandPackets() uint8 { return e[1] }
func (e CommandStatus) CommandOpcode() uint16       { return binary.LittleEndian.Uint16(e[2:]) }

// LEAdvertisingReport implements LE Advertising Report Event (0x3E, subevent
// 0x02) [Vol 2, Part E, 7.7.65.2]. The view starts at the subevent code; the
// per-report fields are packed as parallel arrays.
type LEAdvertisingReport []byte

func (e LEAdvertisingReport) SubeventCode() uint8     { return e[0] }
func (e LEAdvertisingReport) NumReports() uint8       { return e[1] }
func (e LEAdvertisingReport) EventType(i int) uint8   { return e[2+i] }
func (e LEAdvertisingReport) AddressType(i int) uint8 { return e[2+int(e.NumReports())+i] }

// Address returns the i-th reported address in wire (LSB first) order.
func (e LEAdvertisingReport) Address(i int) [6]byte {
	b := [6]byte{}
	copy(b[:], e[2+int(e.NumReports())*2+6*i:])
	return b
}

func (e LEAdvertisingReport) LengthData(i int) uint8 { return e[2+int(e.NumReports())*8+i] }

func (e LEAdvertisingReport) Data(i int) []byte {
	l := 0
	for j := 0; j < i; j++ {
		l += int(e.LengthData(j))
	}
	b := e[2+int(e.NumReports())*9+l:]
	return b[:e.LengthData(i)]
}

func (e LEAdvertisingReport) RSSI(i int) int8 {
	l := 0
	for j := 0; j < int(e.NumReports()); j++ {
		l += int(e.LengthData(j))
	}
	return int8(e[2+int(e.NumReports())*9+l+i])
}
