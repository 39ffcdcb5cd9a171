package bridge

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"sync"

	"github.com/jgulick48/hc/accessory"
	"github.com/jgulick48/hc/service"

	"github.com/maxstorage/maxstorage-bridge/internal/metrics"
	"github.com/maxstorage/maxstorage-bridge/internal/models"
	"github.com/maxstorage/maxstorage-bridge/internal/sensors"
)

// UpdateSource is the slice of the coordinator the bridge consumes. The
// bridge holds one subscription for all of its surfaces; the sensors it is
// handed read the same source on demand.
type UpdateSource interface {
	Subscribe(listener func()) func()
	Healthy() bool
	DeviceIdent() string
	Metadata() models.DeviceMetadata
}

type Client interface {
	GetAccessories() []*accessory.Accessory
	Close()
}

type client struct {
	config      models.Config
	source      UpdateSource
	sensors     []*sensors.Sensor
	updaters    []func()
	unsubscribe func()
}

// HomeKit reports StatusLowBattery once the state of charge drops below
// this percentage.
const lowBatteryThreshold = 10

var registerMetricsOnce sync.Once

func LoadClientConfig(filename string) models.Config {
	if filename == "" {
		filename = "./config.json"
	}
	configFile, err := ioutil.ReadFile(filename)
	if err != nil {
		log.Printf("No config file found at %s", filename)
		panic(err)
	}
	var config models.Config
	err = json.Unmarshal(configFile, &config)
	if err != nil {
		log.Printf("Invalid config file provided")
		panic(err)
	}
	return config
}

func NewClient(config models.Config, source UpdateSource, sensorList []*sensors.Sensor) Client {
	registerMetricsOnce.Do(registerPrometheusMetrics)
	c := &client{
		config:  config,
		source:  source,
		sensors: sensorList,
	}
	c.unsubscribe = source.Subscribe(c.handleUpdate)
	return c
}

func (c *client) handleUpdate() {
	c.recordMetrics()
	for _, update := range c.updaters {
		update()
	}
}

func (c *client) recordMetrics() {
	ident := c.source.DeviceIdent()
	healthy := float64(0)
	if c.source.Healthy() {
		healthy = 1
	}
	pollHealthy.WithLabelValues(ident).Set(healthy)
	tags := []string{metrics.FormatTag("ident", ident)}
	for _, sensor := range c.sensors {
		value, err := sensor.CurrentValue()
		if err != nil || value == sensors.Unknown {
			continue
		}
		descriptor := sensor.Descriptor()
		switch v := value.(type) {
		case bool:
			state := float64(0)
			if v {
				state = 1
			}
			flagState.WithLabelValues(ident, descriptor.Key).Set(state)
			metrics.SendGaugeMetric(descriptor.Key, tags, state)
		default:
			number, ok := toFloat(value)
			if !ok {
				continue
			}
			if gauge, ok := numericGauges[descriptor.Key]; ok {
				gauge.WithLabelValues(ident).Set(number)
			}
			metrics.SendGaugeMetric(descriptor.Key, tags, number)
		}
	}
}

// GetAccessories builds the HomeKit surface: a battery level accessory for
// the state of charge and a read-only switch per boolean sensor. Values are
// refreshed from the bridge's coordinator subscription, so call this before
// the coordinator starts polling.
func (c *client) GetAccessories() []*accessory.Accessory {
	accessories := make([]*accessory.Accessory, 0, len(c.sensors))
	id := uint64(2)
	for _, sensor := range c.sensors {
		descriptor := sensor.Descriptor()
		switch {
		case descriptor.Key == "batterySoC":
			accessories = c.registerBatteryLevel(id, sensor, accessories)
		case descriptor.Binary:
			accessories = c.registerFlagSwitch(id, sensor, accessories)
		default:
			continue
		}
		id++
	}
	log.Printf("Built %v HomeKit accessories", len(accessories))
	return accessories
}

func (c *client) registerBatteryLevel(id uint64, sensor *sensors.Sensor, accessories []*accessory.Accessory) []*accessory.Accessory {
	ac := accessory.NewHumiditySensor(accessory.Info{
		Name: sensor.Descriptor().Name,
		ID:   id,
	})
	battery := service.NewBatteryService()
	ac.AddService(battery.Service)
	powerSensor := c.findSensor("batteryPower")
	update := func() {
		if value, err := sensor.CurrentValue(); err == nil && value != sensors.Unknown {
			if soc, ok := toFloat(value); ok {
				ac.HumiditySensor.CurrentRelativeHumidity.SetValue(soc)
				battery.BatteryLevel.SetValue(int(soc))
				if soc < lowBatteryThreshold {
					battery.StatusLowBattery.SetValue(1)
				} else {
					battery.StatusLowBattery.SetValue(0)
				}
			}
		}
		if powerSensor == nil {
			return
		}
		if value, err := powerSensor.CurrentValue(); err == nil && value != sensors.Unknown {
			if power, ok := toFloat(value); ok {
				chargeState := 0
				if power > 0 {
					chargeState = 1
				}
				battery.ChargingState.SetValue(chargeState)
			}
		}
	}
	c.updaters = append(c.updaters, update)
	update()
	ac.HumiditySensor.CurrentRelativeHumidity.SetMinValue(0)
	ac.HumiditySensor.CurrentRelativeHumidity.SetMaxValue(100)
	accessories = append(accessories, ac.Accessory)
	return accessories
}

func (c *client) findSensor(key string) *sensors.Sensor {
	for _, sensor := range c.sensors {
		if sensor.Descriptor().Key == key {
			return sensor
		}
	}
	return nil
}

func (c *client) registerFlagSwitch(id uint64, sensor *sensors.Sensor, accessories []*accessory.Accessory) []*accessory.Accessory {
	ac := accessory.NewSwitch(accessory.Info{
		Name: sensor.Descriptor().Name,
		ID:   id,
	})
	update := func() {
		value, err := sensor.CurrentValue()
		if err != nil || value == sensors.Unknown {
			return
		}
		if on, ok := value.(bool); ok {
			ac.Switch.On.SetValue(on)
		}
	}
	c.updaters = append(c.updaters, update)
	update()
	accessories = append(accessories, ac.Accessory)
	return accessories
}

func (c *client) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		number, err := v.Float64()
		return number, err == nil
	default:
		return 0, false
	}
}
