package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrMalformed is returned when a field's declared length exceeds the
	// remaining payload.
	ErrMalformed = errors.New("adv: malformed EIR encoding")

	// ErrOverflow is returned when a field's content exceeds the fixed
	// capacity of its Record slot.
	ErrOverflow = errors.New("adv: EIR field exceeds capacity")
)

// UnmarshalEIR decodes the advertising data payload b into r. b starts at
// the first length byte; a zero length byte terminates decoding and any
// bytes after it are ignored. Unknown field types and under-length
// fixed-width fields are skipped, not errors.
//
// Optional fields of r are reset first, so r reflects exactly the payload.
func (r *Record) UnmarshalEIR(b []byte) error {
	r.Name = ""
	r.URI = ""
	r.TxPower = TxPowerUnset
	r.Has = 0

	for len(b) > 0 {
		l := int(b[0])
		if l == 0 {
			// Reached the end of significant data.
			return nil
		}
		b = b[1:]
		if l > len(b) {
			return errors.Wrapf(ErrMalformed, "field length %d exceeds %d remaining bytes", l, len(b))
		}
		typ, v := b[0], b[1:l]

		switch typ {
		case Flags:
			if len(v) >= 1 {
				r.Flags = v[0]
				r.Has |= HasFlags
			}
		case ShortName, CompleteName:
			if len(v) > 0 {
				if len(v) > MaxNameLen {
					return errors.Wrapf(ErrOverflow, "name of %d bytes", len(v))
				}
				r.Name = string(v)
				r.Has |= HasName
			}
		case TxPower:
			if len(v) == 1 {
				r.TxPower = int8(v[0])
			}
		case ServiceData16:
			// At least the UUID16 must be present; the payload may be empty.
			if len(v) >= 2 {
				if len(v)-2 > MaxServiceLen {
					return errors.Wrapf(ErrOverflow, "service data of %d bytes", len(v)-2)
				}
				r.ServiceUUID = binary.LittleEndian.Uint16(v)
				r.ServiceData = append([]byte(nil), v[2:]...)
				r.Has |= HasServiceData
			}
		case ManufacturerData:
			if len(v) >= 2 {
				if len(v)-2 > MaxVendorLen {
					return errors.Wrapf(ErrOverflow, "manufacturer data of %d bytes", len(v)-2)
				}
				r.ManufacturerID = binary.LittleEndian.Uint16(v)
				r.ManufacturerData = append([]byte(nil), v[2:]...)
				r.Has |= HasManufacturerData
			}
		case URI:
			if len(v) > 0 {
				if len(v) > MaxURILen {
					return errors.Wrapf(ErrOverflow, "URI of %d bytes", len(v))
				}
				r.URI = string(v)
				r.Has |= HasURI
			}
		case SomeUUID16, AllUUID16:
			if len(v) >= 2 {
				r.UUID16 = binary.LittleEndian.Uint16(v)
				r.Has |= HasUUID16
			}
		case SomeUUID32, AllUUID32:
			if len(v) >= 4 {
				r.UUID32 = binary.LittleEndian.Uint32(v)
				r.Has |= HasUUID32
			}
		case SomeUUID128, AllUUID128:
			if len(v) >= 16 {
				copy(r.UUID128[:], v)
				r.Has |= HasUUID128
			}
		}
		b = b[l:]
	}
	return nil
}
