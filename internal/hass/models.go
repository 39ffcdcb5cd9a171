package hass

// DiscoveryConfig is the Home Assistant MQTT discovery payload published,
// retained, for every sensor.
type DiscoveryConfig struct {
	UniqueID          string `json:"unique_id"`
	Name              string `json:"name"`
	StateTopic        string `json:"state_topic"`
	AvailabilityTopic string `json:"availability_topic"`
	AttributesTopic   string `json:"json_attributes_topic,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
	EntityCategory    string `json:"entity_category,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	Icon              string `json:"icon,omitempty"`
	PayloadOn         string `json:"payload_on,omitempty"`
	PayloadOff        string `json:"payload_off,omitempty"`
	Device            Device `json:"device"`
}

type Device struct {
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SwVersion    string   `json:"sw_version,omitempty"`
	HwVersion    string   `json:"hw_version,omitempty"`
	Identifiers  []string `json:"identifiers"`
}
