package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"ppgd/pkg/max30102"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config defines the struct of the global config and of the configuration
// file.
type Config struct {
	Sensor    SensorConfig    `yaml:"sensor"`
	Gpio      GpioConfig      `yaml:"gpio"`
	Flag      FlagConfig      `yaml:"-"`
	Log       LogConfig       `yaml:"log"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters).
type FlagConfig struct {
	LogLevel   string
	ConfigFile string
}

// SensorConfig defines the sensor bus address and acquisition settings.
type SensorConfig struct {
	// Bus selects the I2C bus ("/dev/i2c-1", "I2C1", "1"; empty for the
	// first available).
	Bus string `yaml:"bus"`
	// Address is the device address, 0x57 unless remapped.
	Address uint16 `yaml:"address"`
	// Mode is "hr", "spo2" or "multi-led".
	Mode string `yaml:"mode"`
	// SampleAveraging is 1, 2, 4, 8, 16 or 32 adjacent samples per FIFO
	// entry.
	SampleAveraging int `yaml:"sampleaveraging"`
	// Rollover lets the FIFO overwrite unread samples.
	Rollover bool `yaml:"rollover"`
	// AlmostFull is the free-slot threshold of the FIFO-ready interrupt.
	AlmostFull int `yaml:"almostfull"`
	// SampleRate is in samples per second: 50, 100, 200, 400, 800, 1000,
	// 1600 or 3200.
	SampleRate int `yaml:"samplerate"`
	// PulseWidth is in microseconds: 69, 118, 215 or 411.
	PulseWidth int `yaml:"pulsewidth"`
	// ADCRange is the full-scale range in nA: 2048, 4096, 8192 or 16384.
	ADCRange int `yaml:"adcrange"`
	// RedAmplitude and IRAmplitude are the LED currents in register steps
	// of 0.2mA (0..255).
	RedAmplitude int `yaml:"redamplitude"`
	IRAmplitude  int `yaml:"iramplitude"`
	// MaxDrainFailures is the consecutive-failure budget before the engine
	// reports a fatal fault.
	MaxDrainFailures int `yaml:"maxdrainfailures"`
}

// GpioConfig defines the interrupt and reset wiring.
type GpioConfig struct {
	// Chip is the gpio character device, "gpiochip0" by default.
	Chip string `yaml:"chip"`
	// InterruptPin is the BCM number of the sensor's INT line.
	InterruptPin int `yaml:"interruptpin"`
	// ResetPin is the BCM number of the reset line; negative disables the
	// hardware reset pulse.
	ResetPin int `yaml:"resetpin"`
	// Terminator is the bias of the interrupt line: pullup, pulldown, none.
	Terminator    string        `yaml:"terminator"`
	BounceTimeInt int           `yaml:"bouncetime"`
	BounceTime    time.Duration `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice
// configuration.
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration.
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	Topic       string        `yaml:"topic"`
	// TempIntervalInt is the period of the periodic die temperature
	// publication in seconds; zero disables it.
	TempInterval    time.Duration `yaml:"-"`
	TempIntervalInt int           `yaml:"tempinterval"`
}

// LogConfig defines the struct of the log configuration.
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Sensor: SensorConfig{
			Address:         max30102.Addr,
			Mode:            "spo2",
			SampleAveraging: 4,
			Rollover:        true,
			AlmostFull:      0,
			SampleRate:      100,
			PulseWidth:      411,
			ADCRange:        16384,
			RedAmplitude:    0x1F,
			IRAmplitude:     0x1F,
		},
		Gpio: GpioConfig{
			Chip:         "gpiochip0",
			InterruptPin: 17,
			ResetPin:     -1,
			Terminator:   "pullup",
		},
		Flag: FlagConfig{},
		Log: LogConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version":     true,
				"health":      true,
				"data":        true,
				"config":      true,
				"temperature": true,
			},
		},
		MQTT: MQTTConfig{
			Connection:      "tcp://127.0.0.1:1883",
			IntervalInt:     5,
			Topic:           "/home/ppg",
			TempIntervalInt: 60,
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.LogLevel != "" {
		c.Log.FlagString = c.Flag.LogLevel
	}
	if err := c.setLogConfig(); err != nil {
		return fmt.Errorf("unable to open log file %q: %w", c.Log.FileString, err)
	}

	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second
	c.MQTT.TempInterval = time.Duration(c.MQTT.TempIntervalInt) * time.Second
	c.Gpio.BounceTime = time.Duration(c.Gpio.BounceTimeInt) * time.Millisecond

	if _, err := c.Settings(); err != nil {
		return err
	}

	return nil
}

// Settings translates the sensor section into device settings.
func (c *Config) Settings() (max30102.Settings, error) {
	s := max30102.Settings{
		SampleAveraging:  c.Sensor.SampleAveraging,
		Rollover:         c.Sensor.Rollover,
		AlmostFull:       byte(c.Sensor.AlmostFull),
		RedAmplitude:     byte(c.Sensor.RedAmplitude),
		IRAmplitude:      byte(c.Sensor.IRAmplitude),
		Interrupts:       []max30102.Interrupt{max30102.IntAlmostFull, max30102.IntDieTempReady},
		MaxDrainFailures: c.Sensor.MaxDrainFailures,
	}

	switch c.Sensor.Mode {
	case "hr":
		s.Mode = max30102.ModeHR
	case "spo2":
		s.Mode = max30102.ModeSpO2
	case "multi-led":
		s.Mode = max30102.ModeMultiLed
	default:
		return s, fmt.Errorf("unknown sensor mode %q", c.Sensor.Mode)
	}

	switch c.Sensor.SampleRate {
	case 50:
		s.SampleRate = max30102.SR50
	case 100:
		s.SampleRate = max30102.SR100
	case 200:
		s.SampleRate = max30102.SR200
	case 400:
		s.SampleRate = max30102.SR400
	case 800:
		s.SampleRate = max30102.SR800
	case 1000:
		s.SampleRate = max30102.SR1000
	case 1600:
		s.SampleRate = max30102.SR1600
	case 3200:
		s.SampleRate = max30102.SR3200
	default:
		return s, fmt.Errorf("unsupported sample rate %d", c.Sensor.SampleRate)
	}

	switch c.Sensor.PulseWidth {
	case 69:
		s.PulseWidth = max30102.PW69
	case 118:
		s.PulseWidth = max30102.PW118
	case 215:
		s.PulseWidth = max30102.PW215
	case 411:
		s.PulseWidth = max30102.PW411
	default:
		return s, fmt.Errorf("unsupported pulse width %d", c.Sensor.PulseWidth)
	}

	switch c.Sensor.ADCRange {
	case 2048:
		s.ADCRange = max30102.ADC2048
	case 4096:
		s.ADCRange = max30102.ADC4096
	case 8192:
		s.ADCRange = max30102.ADC8192
	case 16384:
		s.ADCRange = max30102.ADC16384
	default:
		return s, fmt.Errorf("unsupported adc range %d", c.Sensor.ADCRange)
	}

	return s, nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setLogConfig() (err error) {
	switch c.Log.FlagString {
	case "trace", "full":
		c.Log.Flag = debug.Full
	case "debug":
		c.Log.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Log.Flag = debug.Standard
	}

	switch c.Log.FileString {
	case "stderr":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		if c.Log.File, err = os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
