package env

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/safeio/pkg/channel"
	"github.com/robotalks/safeio/pkg/device"
	"github.com/robotalks/safeio/pkg/diag/modbus"
	"github.com/robotalks/safeio/pkg/mixing"
	"github.com/robotalks/safeio/pkg/output"
	"github.com/robotalks/safeio/pkg/telegram"
)

// DeviceFile is the YAML device file.
type DeviceFile struct {
	Identity         IdentityConfig `yaml:"identity"`
	Scheme           string         `yaml:"scheme"`
	Outputs          []OutputConfig `yaml:"outputs"`
	StartupSyncTicks int            `yaml:"startup_sync_ticks"`
	StallTicks       int            `yaml:"stall_ticks"`
	Modbus           ModbusConfig   `yaml:"modbus"`
}

// IdentityConfig is announced in the startup telegram.
type IdentityConfig struct {
	VendorID uint16  `yaml:"vendor_id"`
	ModuleID uint16  `yaml:"module_id"`
	Firmware [3]byte `yaml:"firmware"`
	// Serial 0 derives the serial number from the machine ID.
	Serial uint32 `yaml:"serial"`
}

// OutputConfig is one output pair.
type OutputConfig struct {
	// Pins are the physical output indices, one for a single-channel
	// output, two for a dual-channel one.
	Pins []int `yaml:"pins"`
	// DelayTicks is the SS1-t ramp-down delay.
	DelayTicks uint16 `yaml:"delay_ticks"`
	// Guards are the input indices whose health gates the output.
	Guards []int `yaml:"guards"`
}

// ModbusConfig configures the status mirror.
type ModbusConfig struct {
	UnitID       uint8  `yaml:"unit_id"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	CoilBase     uint16 `yaml:"coil_base"`
	RegisterBase uint16 `yaml:"register_base"`
	EveryTicks   uint64 `yaml:"every_ticks"`
}

// MirrorConfig builds the status mirror configuration.
func (m *ModbusConfig) MirrorConfig(endpoint string) modbus.Config {
	return modbus.Config{
		Endpoint:     endpoint,
		UnitID:       m.UnitID,
		Timeout:      time.Duration(m.TimeoutMs) * time.Millisecond,
		CoilBase:     m.CoilBase,
		RegisterBase: m.RegisterBase,
		Every:        m.EveryTicks,
	}
}

// DefaultDeviceFile is a module with one dual-channel output.
func DefaultDeviceFile() *DeviceFile {
	return &DeviceFile{
		Identity: IdentityConfig{VendorID: 0x0001, ModuleID: 0x0100, Firmware: [3]byte{1, 0, 0}},
		Scheme:   mixing.SortedOddEven.String(),
		Outputs: []OutputConfig{
			{Pins: []int{0, 1}},
		},
		StartupSyncTicks: device.DefaultStartupSyncTicks,
		StallTicks:       device.DefaultStallTicks,
		Modbus:           ModbusConfig{UnitID: 1, TimeoutMs: 1000, EveryTicks: 250},
	}
}

// Load reads and validates a device file.
func Load(path string) (*DeviceFile, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a device file.
func Parse(data []byte) (*DeviceFile, error) {
	f := DefaultDeviceFile()
	f.Outputs = nil
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the device file.
func (f *DeviceFile) Validate() error {
	if _, err := mixing.ParseScheme(f.Scheme); err != nil {
		return err
	}
	if f.StartupSyncTicks < 0 || f.StallTicks < 0 {
		return fmt.Errorf("negative tick counts")
	}
	if len(f.Outputs) > output.MaxOutputs {
		return fmt.Errorf("%d outputs, at most %d", len(f.Outputs), output.MaxOutputs)
	}
	for n, o := range f.Outputs {
		if len(o.Pins) != 1 && len(o.Pins) != 2 {
			return fmt.Errorf("output %d: 1 or 2 pins expected, got %d", n, len(o.Pins))
		}
		for _, in := range o.Guards {
			if in < 0 || in >= 8 {
				return fmt.Errorf("output %d: guard input %d out of range", n, in)
			}
		}
	}
	conf := f.outputConfig()
	return conf.Validate()
}

func (f *DeviceFile) outputConfig() (conf output.Config) {
	for _, o := range f.Outputs {
		p := channel.Single(o.Pins[0])
		if len(o.Pins) > 1 {
			p.Second = o.Pins[1]
		}
		conf.Pairs = append(conf.Pairs, p)
		conf.Delays = append(conf.Delays, o.DelayTicks)
		var mask byte
		for _, in := range o.Guards {
			mask |= 1 << uint(in)
		}
		for _, idx := range []int{p.First, p.Second} {
			if idx >= 0 && idx < output.MaxOutputs {
				conf.Guards[idx] = mask
			}
		}
	}
	return
}

// DeviceConfig builds the configuration of channel ch. The file must have
// been validated.
func (f *DeviceFile) DeviceConfig(ch channel.ID) device.Config {
	conf := device.DefaultConfig(ch)
	conf.Scheme, _ = mixing.ParseScheme(f.Scheme)
	conf.Identity = telegram.Identity{
		VendorID: f.Identity.VendorID,
		ModuleID: f.Identity.ModuleID,
		Firmware: f.Identity.Firmware,
		Serial:   f.Identity.Serial,
	}
	if conf.Identity.Serial == 0 {
		conf.Identity.Serial = SerialNumber()
	}
	conf.Identity.SetLayoutSizes()
	conf.Outputs = f.outputConfig()
	conf.StartupSyncTicks = f.StartupSyncTicks
	conf.StallTicks = f.StallTicks
	return conf
}
