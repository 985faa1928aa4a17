package app

import (
	"errors"
	"time"

	"ppgd/pkg/max30102"

	"github.com/womat/debug"
)

// batchPollTimeout bounds each blocking batch read so the service loop can
// notice application shutdown.
const batchPollTimeout = time.Second

// watchInterrupts forwards falling edges on the sensor's INT line to the
// acquisition engine. The engine drains the FIFO on its own worker; this
// loop must stay free of bus I/O.
func (app *App) watchInterrupts() {
	for range app.line.C {
		app.sensor.Notify()
	}
}

// publishBatches waits for sample batches, keeps the latest one for the web
// layer and forwards it to the mqtt broker. Publication is gated by the
// configured interval; overflowed batches always go out.
func (app *App) publishBatches() {
	var lastSent time.Time

	for {
		select {
		case <-app.shutdown:
			return
		default:
		}

		batch, err := app.sensor.ReadBatch(batchPollTimeout)
		if errors.Is(err, max30102.ErrTimeout) {
			continue
		}
		if err != nil {
			debug.ErrorLog.Println(err)
			time.Sleep(time.Second)
			continue
		}

		debug.TraceLog.Printf("batch: %d samples, overflowed=%v", batch.Length(), batch.Overflowed)

		app.lastBatch.Lock()
		app.lastBatch.data = batch
		app.lastBatch.Unlock()

		if batch.Overflowed || batch.Time.Sub(lastSent) >= app.config.MQTT.Interval {
			if err := app.mqtt.Publish(app.config.MQTT.Topic+"/samples", true, batch); err != nil {
				debug.ErrorLog.Println(err)
				continue
			}
			lastSent = batch.Time
		}
	}
}

// publishTemperature periodically runs a die temperature conversion and
// publishes the reading.
func (app *App) publishTemperature() {
	ticker := time.NewTicker(app.config.MQTT.TempInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.shutdown:
			return
		case <-ticker.C:
		}

		celsius, err := app.sensor.Temperature()
		if err != nil {
			debug.ErrorLog.Println(err)
			continue
		}

		app.lastTemp.Lock()
		app.lastTemp.celsius = celsius
		app.lastTemp.Unlock()

		msg := struct {
			Time    time.Time `json:"time"`
			Celsius float64   `json:"celsius"`
		}{time.Now(), celsius}
		if err := app.mqtt.Publish(app.config.MQTT.Topic+"/temperature", true, msg); err != nil {
			debug.ErrorLog.Println(err)
		}
	}
}
