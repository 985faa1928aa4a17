package app

import (
	"net/url"
	"sync"

	"ppgd/pkg/app/config"
	"ppgd/pkg/i2cbus"
	"ppgd/pkg/max30102"
	"ppgd/pkg/mqtt"
	"ppgd/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Webserver.URL parameter
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// chip is the gpio character device
	chip *raspberry.Chip
	// line is the sensor's interrupt line
	line *raspberry.Line
	// reset is the sensor's hardware reset pin (nil when not wired)
	reset *raspberry.ResetPin

	// bus is the register transport to the sensor
	bus *i2cbus.Bus
	// sensor is the acquisition engine
	sensor *max30102.Device

	// lastBatch caches the most recent sample batch for the web layer
	lastBatch struct {
		sync.Mutex
		data max30102.Batch
	}
	// lastTemp caches the most recent die temperature for the web layer
	lastTemp struct {
		sync.Mutex
		celsius float64
	}

	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the web server URL and initializes the main app structure.
func New(cfg *config.Config) (*App, error) {
	u, err := url.Parse(cfg.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", cfg.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    cfg,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),

		shutdown: make(chan struct{}),
	}, nil
}

// Run starts the application: mqtt service, web server and the acquisition
// services.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.watchInterrupts()
	go app.publishBatches()
	if app.config.MQTT.TempInterval > 0 {
		go app.publishTemperature()
	}

	return nil
}

// init opens the bus and gpio resources, initializes the sensor and arms
// the acquisition engine.
func (app *App) init() (err error) {
	settings, err := app.config.Settings()
	if err != nil {
		return err
	}

	if app.bus, err = i2cbus.Open(app.config.Sensor.Bus, app.config.Sensor.Address); err != nil {
		debug.ErrorLog.Printf("can't open i2c bus: %v", err)
		return err
	}

	if app.config.Gpio.ResetPin >= 0 {
		if app.reset, err = raspberry.OpenReset(app.config.Gpio.ResetPin); err != nil {
			debug.ErrorLog.Printf("can't open reset pin: %v", err)
			return err
		}
	}

	if app.chip, err = raspberry.Open(app.config.Gpio.Chip); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	if app.line, err = app.chip.Watch(app.config.Gpio.InterruptPin, app.config.Gpio.Terminator, app.config.Gpio.BounceTime); err != nil {
		debug.ErrorLog.Printf("can't watch interrupt line: %v", err)
		return err
	}

	var reset max30102.ResetLine
	if app.reset != nil {
		reset = app.reset
	}
	app.sensor = max30102.New(app.bus, reset)

	if err = app.sensor.Initialize(settings); err != nil {
		debug.ErrorLog.Printf("can't initialize sensor: %v", err)
		return err
	}
	if err = app.sensor.Start(); err != nil {
		debug.ErrorLog.Printf("can't arm sensor: %v", err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should always be called last because it may access
	// things which must be initialized before.
	app.initDefaultRoutes()

	return nil
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/ppgd.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

func (app *App) Close() error {
	// New returns a bare struct on error, the deferred Close in cmd must
	// still be safe to call.
	if app.shutdown != nil {
		close(app.shutdown)
	}

	if app.sensor != nil {
		_ = app.sensor.Close()
	}
	if app.line != nil {
		_ = app.line.Close()
	}
	if app.chip != nil {
		_ = app.chip.Close()
	}
	if app.reset != nil {
		_ = app.reset.Close()
	}
	if app.bus != nil {
		_ = app.bus.Close()
	}
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}
	return nil
}
