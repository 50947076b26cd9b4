// Package env provides the common configuration of safeio binaries from
// defaults, environment variables, flags and the YAML device file.
package env

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/safeio/pkg/channel"
	fx "github.com/robotalks/safeio/pkg/framework"
)

// Config is the process configuration.
type Config struct {
	// Channel is the channel this process runs, 1 or 2.
	Channel int
	// DeviceFile is the path of the YAML device file.
	DeviceFile string
	// MQTTBrokerURL specifies the MQTT broker for diagnostics,
	// e.g. mqtt://host:port/topic-prefix. Empty disables MQTT.
	MQTTBrokerURL string
	// SerialPort is the serial device of the host link.
	SerialPort string
	SerialBaud int
	// Exchange is the address of the exchange link. Channel 1 listens on
	// it and channel 2 dials it. A ws:// URL selects websocket.
	Exchange string
	// ModbusEndpoint is the Modbus TCP server mirroring the status.
	// Empty disables the mirror.
	ModbusEndpoint string
	// Interval is the tick period.
	Interval time.Duration
}

var defaultConfig = Config{
	Channel:       int(channel.Ch1),
	MQTTBrokerURL: "mqtt://localhost:1883/safeio/",
	SerialPort:    "/dev/ttyS0",
	SerialBaud:    115200,
	Exchange:      "localhost:7120",
	Interval:      fx.DefaultInterval,
}

func init() {
	if val := os.Getenv("SAFEIO_CHANNEL"); val != "" {
		if ch, err := strconv.Atoi(val); err == nil {
			defaultConfig.Channel = ch
		}
	}
	if val := os.Getenv("SAFEIO_CONFIG"); val != "" {
		defaultConfig.DeviceFile = val
	}
	if val, ok := os.LookupEnv("SAFEIO_MQTT_URL"); ok {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("SAFEIO_SERIAL"); val != "" {
		defaultConfig.SerialPort = val
	}
	if val := os.Getenv("SAFEIO_EXCHANGE"); val != "" {
		defaultConfig.Exchange = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.Channel, "channel", defaultConfig.Channel, "Channel 1 or 2")
	flag.StringVar(&defaultConfig.DeviceFile, "config", defaultConfig.DeviceFile, "YAML device file")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.SerialPort, "serial", defaultConfig.SerialPort, "Serial port of the host link")
	flag.IntVar(&defaultConfig.SerialBaud, "baud", defaultConfig.SerialBaud, "Baud rate of the host link")
	flag.StringVar(&defaultConfig.Exchange, "exchange", defaultConfig.Exchange, "Exchange link address, ws:// for websocket")
	flag.StringVar(&defaultConfig.ModbusEndpoint, "modbus", defaultConfig.ModbusEndpoint, "Modbus TCP endpoint for the status mirror")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Tick period")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ChannelID returns the configured channel.
func (c *Config) ChannelID() channel.ID {
	return channel.ID(c.Channel)
}

// LoadDevice loads the device file, or returns the built-in defaults when
// no file is configured.
func (c *Config) LoadDevice() (*DeviceFile, error) {
	if c.DeviceFile == "" {
		return DefaultDeviceFile(), nil
	}
	return Load(c.DeviceFile)
}
