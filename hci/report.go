package hci

import (
	"net"

	"github.com/pkg/errors"

	"github.com/maribu/ble-adv/adv"
	"github.com/maribu/ble-adv/hci/evt"
)

// UnknownName is installed as the display name of a Record whose
// advertisement carried no local name. Record.Has stays authoritative.
const UnknownName = "<unknown>"

// minEventHeaderLen covers the HCI packet indicator, the two-byte event
// header and the LE Meta subevent code.
const minEventHeaderLen = 1 + 2 + 1

// UnmarshalAdvertisingReport validates the framing of one raw event frame
// and decodes its first advertising report. Frames of any other event class
// fail with ErrNotAdvertisement, which callers may treat as a skip signal.
//
// The transport delivers the address LSB first; the returned Record carries
// it in display order. The trailing byte of the frame is the RSSI.
func UnmarshalAdvertisingReport(raw []byte) (*adv.Record, error) {
	if len(raw) < minEventHeaderLen {
		return nil, errors.Wrapf(ErrTruncatedEvent, "%d bytes", len(raw))
	}
	if raw[0] != pktTypeEvent || raw[1] != evt.LEMetaCode {
		return nil, ErrNotAdvertisement
	}

	e := evt.LEAdvertisingReport(raw[3:])
	if e.SubeventCode() != evt.LEAdvertisingReportSubCode {
		return nil, ErrNotAdvertisement
	}
	if len(e) < 2 || e.NumReports() == 0 {
		return nil, errors.Wrap(ErrTruncatedEvent, "no reports")
	}

	// Subevent and report count, then the parallel per-report arrays:
	// event type, address type, address, data length.
	hdr := 2 + 9*int(e.NumReports())
	if len(e) < hdr+1 {
		return nil, errors.Wrap(ErrTruncatedEvent, "report header")
	}
	dlen := int(e.LengthData(0))
	if len(e) < hdr+dlen+1 {
		return nil, errors.Wrap(ErrTruncatedEvent, "report data")
	}

	r := &adv.Record{}
	a := e.Address(0)
	r.Addr = net.HardwareAddr{a[5], a[4], a[3], a[2], a[1], a[0]}
	if err := r.UnmarshalEIR(e.Data(0)); err != nil {
		return nil, err
	}
	r.RSSI = int8(raw[len(raw)-1])

	if !r.NameKnown() {
		r.Name = UnknownName
	}
	return r, nil
}
