package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/guregu/null"
)

type Config struct {
	BridgeName  string            `json:"bridgeName"`
	MaxStorage  MaxStorageConfig  `json:"maxStorage"`
	MQTT        MQTTConfiguration `json:"mqtt"`
	PIN         string            `json:"pin"`
	Port        string            `json:"port"`
	StatsServer string            `json:"statsServer"`
	MetricsPort string            `json:"metricsPort"`
	Debug       bool              `json:"debug"`
}

type MaxStorageConfig struct {
	Host         string   `json:"host"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	PollInterval Duration `json:"pollInterval"`
}

type MQTTConfiguration struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	DiscoveryPrefix string `json:"discoveryPrefix"`
	TopicPrefix     string `json:"topicPrefix"`
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DeviceInfo is the static information block reported by the MaxStorage
// master controller. Field names follow the device's own JSON keys.
type DeviceInfo struct {
	Ident           string      `json:"Ident"`
	SerialNumber    string      `json:"MasterController-Nummer"`
	FirmwareVersion string      `json:"Firmware-Version"`
	HardwareVersion string      `json:"Hardware-Version"`
	Mac             null.String `json:"MAC"`
}

// DeviceMetadata is the display metadata attached to every entity built for
// a device.
type DeviceMetadata struct {
	Name         string
	Manufacturer string
	Model        string
	SerialNumber string
	SwVersion    string
	HwVersion    string
}

func (d DeviceInfo) Metadata() DeviceMetadata {
	return DeviceMetadata{
		Name:         "MaxStorage Ultimate",
		Manufacturer: "SolarMax",
		Model:        "MaxStorage Ultimate",
		SerialNumber: d.SerialNumber,
		SwVersion:    d.FirmwareVersion,
		HwVersion:    d.HardwareVersion,
	}
}
