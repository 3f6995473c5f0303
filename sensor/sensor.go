// Package sensor decodes environment telemetry broadcast by LYWSD03MMC
// thermometers running the ATC custom firmware.
package sensor

import (
	"encoding/binary"
	"net"

	"github.com/pkg/errors"

	"github.com/maribu/ble-adv/adv"
)

// ServiceUUID is the Environmental Sensing service the firmware advertises
// its telemetry frame under.
const ServiceUUID = 0x181A

const frameLen = 13

// ErrFrameLength reports service data that is not a telemetry frame.
var ErrFrameLength = errors.New("sensor: unexpected frame length")

// Telemetry is one advertisement frame. Multi-byte fields are big-endian on
// the wire, unlike the rest of the advertisement.
type Telemetry struct {
	Addr         net.HardwareAddr
	Temperature  int16 // units of 0.1 degrees Celsius
	Humidity     uint8 // percent
	Battery      uint8 // percent
	BatteryMV    uint16
	FrameCounter uint8
}

// Celsius returns the temperature in degrees.
func (t Telemetry) Celsius() float64 {
	return float64(t.Temperature) / 10
}

// Parse decodes a raw telemetry frame.
func Parse(b []byte) (Telemetry, error) {
	if len(b) != frameLen {
		return Telemetry{}, errors.Wrapf(ErrFrameLength, "%d bytes", len(b))
	}
	return Telemetry{
		Addr:         net.HardwareAddr(append([]byte(nil), b[0:6]...)),
		Temperature:  int16(binary.BigEndian.Uint16(b[6:8])),
		Humidity:     b[8],
		Battery:      b[9],
		BatteryMV:    binary.BigEndian.Uint16(b[10:12]),
		FrameCounter: b[12],
	}, nil
}

// Match reports whether r carries a telemetry frame and decodes it if so.
func Match(r *adv.Record) (Telemetry, bool) {
	if r.Has&adv.HasServiceData == 0 || r.ServiceUUID != ServiceUUID {
		return Telemetry{}, false
	}
	t, err := Parse(r.ServiceData)
	if err != nil {
		return Telemetry{}, false
	}
	return t, true
}
