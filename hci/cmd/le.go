package cmd

// LESetScanParameters implements LE Set Scan Parameters (0x08|0x000B) [Vol 2, Part E, 7.8.10].
type LESetScanParameters struct {
	LEScanType           uint8
	LEScanInterval       uint16
	LEScanWindow         uint16
	OwnAddressType       uint8
	ScanningFilterPolicy uint8
}

// OpCode returns the opcode of the command.
func (c *LESetScanParameters) OpCode() int { return 0x08<<10 | 0x000B }

// Len returns the length of the command.
func (c *LESetScanParameters) Len() int { return 7 }

// Marshal serializes the command parameters into binary wire format.
func (c *LESetScanParameters) Marshal(b []byte) error { return marshal(c, b) }

// LESetScanParametersRP returns the status of the command.
type LESetScanParametersRP struct {
	Status uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *LESetScanParametersRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LESetScanEnable implements LE Set Scan Enable (0x08|0x000C) [Vol 2, Part E, 7.8.11].
type LESetScanEnable struct {
	LEScanEnable     uint8
	FilterDuplicates uint8
}

// OpCode returns the opcode of the command.
func (c *LESetScanEnable) OpCode() int { return 0x08<<10 | 0x000C }

// Len returns the length of the command.
func (c *LESetScanEnable) Len() int { return 2 }

// Marshal serializes the command parameters into binary wire format.
func (c *LESetScanEnable) Marshal(b []byte) error { return marshal(c, b) }

// LESetScanEnableRP returns the status of the command.
type LESetScanEnableRP struct {
	Status uint8
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (c *LESetScanEnableRP) Unmarshal(b []byte) error { return unmarshal(c, b) }
