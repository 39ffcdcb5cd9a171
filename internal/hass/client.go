package hass

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/maxstorage/maxstorage-bridge/internal/maxstorage"
	"github.com/maxstorage/maxstorage-bridge/internal/models"
	"github.com/maxstorage/maxstorage-bridge/internal/sensors"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadOn      = "ON"
	payloadOff     = "OFF"

	// Home Assistant maps this state string to the unknown state.
	payloadUnknown = "None"
)

// DeviceSource is the slice of the coordinator the publisher needs to
// describe the device in discovery payloads.
type DeviceSource interface {
	DeviceIdent() string
	Metadata() models.DeviceMetadata
}

type Client interface {
	Connect() error
	Close()
	IsEnabled() bool
	RegisterSensors(sensorList []*sensors.Sensor) error
}

type client struct {
	config     models.MQTTConfiguration
	device     DeviceSource
	mqttClient mqtt.Client
	bound      []*sensors.Sensor
	debug      bool
}

func NewClient(config models.MQTTConfiguration, device DeviceSource, debug bool) Client {
	if config.DiscoveryPrefix == "" {
		config.DiscoveryPrefix = "homeassistant"
	}
	if config.TopicPrefix == "" {
		config.TopicPrefix = "maxstorage"
	}
	return &client{
		config: config,
		device: device,
		debug:  debug,
	}
}

func (c *client) IsEnabled() bool {
	return c.config.Host != ""
}

func (c *client) Connect() error {
	log.Printf("Connecting to %s", fmt.Sprintf("tcp://%s:%d", c.config.Host, c.config.Port))
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.config.Host, c.config.Port))
	opts.SetClientID("maxstorage_bridge")
	if c.config.Username != "" && c.config.Password != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}
	opts.SetWill(c.bridgeAvailabilityTopic(), payloadOffline, 0, true)
	opts.OnConnect = func(mqttClient mqtt.Client) {
		log.Println("Connected")
		mqttClient.Publish(c.bridgeAvailabilityTopic(), 0, true, payloadOnline)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("Connect lost: %v", err)
	}
	c.mqttClient = mqtt.NewClient(opts)
	if token := c.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("hass: error connecting to mqtt broker: %w", token.Error())
	}
	return nil
}

// RegisterSensors announces every sensor via MQTT discovery and binds each
// one so its state republishes on every coordinator update. Registration is
// all or nothing: payloads are built for the whole batch before anything is
// published or bound.
func (c *client) RegisterSensors(sensorList []*sensors.Sensor) error {
	type registration struct {
		sensor  *sensors.Sensor
		topic   string
		payload []byte
	}
	registrations := make([]registration, 0, len(sensorList))
	for _, sensor := range sensorList {
		payload, err := json.Marshal(c.discoveryConfig(sensor))
		if err != nil {
			return fmt.Errorf("hass: error building discovery payload for %s: %w", sensor.UniqueID(), err)
		}
		registrations = append(registrations, registration{
			sensor:  sensor,
			topic:   c.discoveryTopic(sensor),
			payload: payload,
		})
	}
	for _, r := range registrations {
		c.publish(r.topic, string(r.payload), true)
		r.sensor.Bind(c.publishState)
		c.bound = append(c.bound, r.sensor)
	}
	log.Printf("Registered %v sensors with Home Assistant", len(registrations))
	return nil
}

func (c *client) publishState(sensor *sensors.Sensor) {
	value, err := sensor.CurrentValue()
	if err != nil {
		if maxstorage.IsMissingField(err) {
			log.Printf("Sensor %s missing field in snapshot: %s", sensor.UniqueID(), err)
			c.publish(c.availabilityTopic(sensor), payloadOffline, true)
			return
		}
		log.Printf("Error reading sensor %s: %s", sensor.UniqueID(), err)
		return
	}
	c.publish(c.availabilityTopic(sensor), payloadOnline, true)
	c.publish(c.stateTopic(sensor), formatValue(value), false)
	if attributes := sensor.CurrentAttributes(); len(attributes) > 0 {
		payload, err := json.Marshal(attributes)
		if err != nil {
			log.Printf("Error building attributes for %s: %s", sensor.UniqueID(), err)
			return
		}
		c.publish(c.attributesTopic(sensor), string(payload), false)
	}
}

func (c *client) publish(topic, payload string, retained bool) {
	if c.mqttClient == nil {
		return
	}
	if c.debug {
		log.Printf("Publishing to %s: %s", topic, payload)
	}
	token := c.mqttClient.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Error publishing to %s: %s", topic, token.Error())
	}
}

func (c *client) Close() {
	for _, sensor := range c.bound {
		sensor.Close()
	}
	c.bound = nil
	if c.mqttClient != nil {
		c.publish(c.bridgeAvailabilityTopic(), payloadOffline, true)
		c.mqttClient.Disconnect(250)
	}
}

func (c *client) discoveryConfig(sensor *sensors.Sensor) DiscoveryConfig {
	descriptor := sensor.Descriptor()
	metadata := c.device.Metadata()
	config := DiscoveryConfig{
		UniqueID:          sensor.UniqueID(),
		Name:              descriptor.Name,
		StateTopic:        c.stateTopic(sensor),
		AvailabilityTopic: c.availabilityTopic(sensor),
		StateClass:        descriptor.StateClass,
		DeviceClass:       descriptor.DeviceClass,
		EntityCategory:    descriptor.EntityCategory,
		UnitOfMeasurement: descriptor.Unit,
		Icon:              descriptor.Icon,
		Device: Device{
			Manufacturer: metadata.Manufacturer,
			Model:        metadata.Model,
			Name:         metadata.Name,
			SwVersion:    metadata.SwVersion,
			HwVersion:    metadata.HwVersion,
			Identifiers:  []string{c.device.DeviceIdent()},
		},
	}
	if descriptor.AttrFn != nil {
		config.AttributesTopic = c.attributesTopic(sensor)
	}
	if descriptor.Binary {
		config.PayloadOn = payloadOn
		config.PayloadOff = payloadOff
	}
	return config
}

func (c *client) discoveryTopic(sensor *sensors.Sensor) string {
	return fmt.Sprintf("%s/%s/%s/config", c.config.DiscoveryPrefix, component(sensor.Descriptor()), sensor.UniqueID())
}

func (c *client) stateTopic(sensor *sensors.Sensor) string {
	return fmt.Sprintf("%s/%s/%s/state", c.config.TopicPrefix, c.device.DeviceIdent(), sensor.Descriptor().Key)
}

func (c *client) availabilityTopic(sensor *sensors.Sensor) string {
	return fmt.Sprintf("%s/%s/%s/availability", c.config.TopicPrefix, c.device.DeviceIdent(), sensor.Descriptor().Key)
}

func (c *client) attributesTopic(sensor *sensors.Sensor) string {
	return fmt.Sprintf("%s/%s/%s/attributes", c.config.TopicPrefix, c.device.DeviceIdent(), sensor.Descriptor().Key)
}

func (c *client) bridgeAvailabilityTopic() string {
	return fmt.Sprintf("%s/%s/availability", c.config.TopicPrefix, c.device.DeviceIdent())
}

func component(descriptor sensors.Descriptor) string {
	if descriptor.Binary {
		return "binary_sensor"
	}
	return "sensor"
}

func formatValue(value interface{}) string {
	if value == sensors.Unknown {
		return payloadUnknown
	}
	switch v := value.(type) {
	case bool:
		if v {
			return payloadOn
		}
		return payloadOff
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
