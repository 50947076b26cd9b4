package telegram

// Telegram layout. All multi-byte fields are little-endian and the check
// field is always the last two bytes.
const (
	CRCSize = 2

	ControlOffset = 0

	NonSafetyOffset     = ControlOffset + 1
	NonSafetyHeaderSize = 4
	NonSafetyDataSize   = 24
	NonSafetySize       = NonSafetyHeaderSize + NonSafetyDataSize

	SPDUOffset           = NonSafetyOffset + NonSafetySize
	IODataPayloadSize    = 16
	IODataBlockSize      = 2 + 2 + IODataPayloadSize // length, address, payload
	TimeCoordPayloadSize = 6
	TimeCoordBlockSize   = 2 + TimeCoordPayloadSize // address, payload
	SPDUSize             = IODataBlockSize + TimeCoordBlockSize + 2

	SideIOOffset = SPDUOffset + SPDUSize
	SideIOSize   = 4

	CRCOffset = SideIOOffset + SideIOSize
	Size      = CRCOffset + CRCSize
)

// Field offsets inside the SPDU block.
const (
	ioDataLengthOffset     = SPDUOffset
	ioDataAddressOffset    = ioDataLengthOffset + 2
	ioDataPayloadOffset    = ioDataAddressOffset + 2
	timeCoordAddressOffset = ioDataPayloadOffset + IODataPayloadSize
	timeCoordPayloadOffset = timeCoordAddressOffset + 2
	ioDataDUIOffset        = timeCoordPayloadOffset + TimeCoordPayloadSize
	timeCoordDUIOffset     = ioDataDUIOffset + 1
)

// Startup telegram layout.
const (
	startupVendorOffset   = 0
	startupModuleOffset   = 2
	startupFirmwareOffset = 4
	startupSerialOffset   = 7
	startupSizesOffset    = 11
	StartupCRCOffset      = startupSizesOffset + 4
	StartupSize           = StartupCRCOffset + CRCSize
)

// Control byte bits.
const (
	ControlRunning byte = 0x01
	ControlStartup byte = 0x02
	ControlFault   byte = 0x04
	ControlToggle  byte = 0x80
)

// Non-safety commands.
const (
	CmdNone           byte = 0x00
	CmdConfigFragment byte = 0x01
	CmdStatus         byte = 0x02
)
