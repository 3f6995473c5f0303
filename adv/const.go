package adv

// MaxEIRPacketLength is the maximum allowed advertising data payload length.
const MaxEIRPacketLength = 31

// Advertising data field types.
const (
	Flags            = 0x01 // Flags
	SomeUUID16       = 0x02 // Incomplete List of 16-bit Service Class UUIDs
	AllUUID16        = 0x03 // Complete List of 16-bit Service Class UUIDs
	SomeUUID32       = 0x04 // Incomplete List of 32-bit Service Class UUIDs
	AllUUID32        = 0x05 // Complete List of 32-bit Service Class UUIDs
	SomeUUID128      = 0x06 // Incomplete List of 128-bit Service Class UUIDs
	AllUUID128       = 0x07 // Complete List of 128-bit Service Class UUIDs
	ShortName        = 0x08 // Shortened Local Name
	CompleteName     = 0x09 // Complete Local Name
	TxPower          = 0x0A // Tx Power Level
	ServiceData16    = 0x16 // Service Data - 16-bit UUID
	URI              = 0x24 // Uniform Resource Identifier
	ManufacturerData = 0xFF // Manufacturer Specific Data
)

// Advertising flags
const (
	FlagLimitedDiscoverable = 0x01 // LE Limited Discoverable Mode
	FlagGeneralDiscoverable = 0x02 // LE General Discoverable Mode
	FlagLEOnly              = 0x04 // BR/EDR Not Supported. Bit 37 of LMP Feature Mask Definitions (Page 0)
	FlagBothController      = 0x08 // Simultaneous LE and BR/EDR to Same Device Capable (Controller).
	FlagBothHost            = 0x10 // Simultaneous LE and BR/EDR to Same Device Capable (Host).
)

// Fixed capacities of the bounded Record fields.
const (
	MaxNameLen    = 28 // local name content
	MaxURILen     = 29 // URI content
	MaxServiceLen = 27 // service data payload, excluding its UUID16
	MaxVendorLen  = 27 // manufacturer data payload, excluding its company ID
)
