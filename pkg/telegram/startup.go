package telegram

// Identity is the content of the startup telegram.
type Identity struct {
	VendorID uint16
	ModuleID uint16
	Firmware [3]byte // major, minor, patch
	Serial   uint32

	SafeOutputPDUSize byte
	OutputDataSize    byte
	SafeInputPDUSize  byte
	InputDataSize     byte
}

// Startup is the wire form of the startup telegram.
type Startup [StartupSize]byte

// BuildStartup populates s from id and appends its CRC.
func BuildStartup(s *Startup, id *Identity) {
	b := s[:]
	putUint16(b[startupVendorOffset:], id.VendorID)
	putUint16(b[startupModuleOffset:], id.ModuleID)
	copy(b[startupFirmwareOffset:startupSerialOffset], id.Firmware[:])
	putUint32(b[startupSerialOffset:], id.Serial)
	sizes := b[startupSizesOffset:]
	sizes[0], sizes[1], sizes[2], sizes[3] = id.SafeOutputPDUSize, id.OutputDataSize, id.SafeInputPDUSize, id.InputDataSize
	putCRC(b)
}

// ParseStartup reads the identity out of s. It doesn't verify the CRC.
func ParseStartup(s *Startup) (id Identity) {
	b := s[:]
	id.VendorID = getUint16(b[startupVendorOffset:])
	id.ModuleID = getUint16(b[startupModuleOffset:])
	copy(id.Firmware[:], b[startupFirmwareOffset:startupSerialOffset])
	id.Serial = getUint32(b[startupSerialOffset:])
	sizes := b[startupSizesOffset:]
	id.SafeOutputPDUSize, id.OutputDataSize, id.SafeInputPDUSize, id.InputDataSize = sizes[0], sizes[1], sizes[2], sizes[3]
	return
}

// Verify checks the CRC.
func (s *Startup) Verify() bool {
	return checkCRC(s[:])
}

// SetLayoutSizes fills the PDU size fields from the layout.
func (id *Identity) SetLayoutSizes() {
	id.SafeOutputPDUSize = SPDUSize
	id.OutputDataSize = IODataPayloadSize
	id.SafeInputPDUSize = SPDUSize
	id.InputDataSize = IODataPayloadSize
}
