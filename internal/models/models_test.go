package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/guregu/null"
	"github.com/stretchr/testify/assert"
)

var configString = `{
  "bridgeName": "MaxStorage",
  "maxStorage": {
    "host": "192.168.1.20",
    "username": "admin",
    "password": "secret",
    "pollInterval": "6s"
  },
  "mqtt": {
    "host": "192.168.1.4",
    "port": 1883,
    "username": "bridge",
    "password": "hunter2",
    "discoveryPrefix": "homeassistant",
    "topicPrefix": "maxstorage"
  },
  "pin": "00102003",
  "port": "12321",
  "statsServer": "192.168.1.5:8125",
  "metricsPort": "9101"
}`

var expectedConfig = Config{
	BridgeName: "MaxStorage",
	MaxStorage: MaxStorageConfig{
		Host:         "192.168.1.20",
		Username:     "admin",
		Password:     "secret",
		PollInterval: Duration{6 * time.Second},
	},
	MQTT: MQTTConfiguration{
		Host:            "192.168.1.4",
		Port:            1883,
		Username:        "bridge",
		Password:        "hunter2",
		DiscoveryPrefix: "homeassistant",
		TopicPrefix:     "maxstorage",
	},
	PIN:         "00102003",
	Port:        "12321",
	StatsServer: "192.168.1.5:8125",
	MetricsPort: "9101",
}

func Test_ConfigParse(t *testing.T) {
	var actualConfig Config
	err := json.Unmarshal([]byte(configString), &actualConfig)
	assert.NoError(t, err)
	assert.Equal(t, expectedConfig, actualConfig)
}

func Test_ConfigParse_InvalidDuration(t *testing.T) {
	var actualConfig Config
	err := json.Unmarshal([]byte(`{"maxStorage":{"pollInterval":"soon"}}`), &actualConfig)
	assert.Error(t, err)
}

func Test_DeviceInfoParse(t *testing.T) {
	payload := `{
      "Ident": "MXU-00231",
      "MasterController-Nummer": "102-445",
      "Firmware-Version": "2.14.1",
      "Hardware-Version": "B",
      "MAC": "aa:bb:cc:dd:ee:ff"
    }`
	var info DeviceInfo
	err := json.Unmarshal([]byte(payload), &info)
	assert.NoError(t, err)
	assert.Equal(t, "MXU-00231", info.Ident)
	assert.Equal(t, null.StringFrom("aa:bb:cc:dd:ee:ff"), info.Mac)

	metadata := info.Metadata()
	assert.Equal(t, "SolarMax", metadata.Manufacturer)
	assert.Equal(t, "102-445", metadata.SerialNumber)
	assert.Equal(t, "2.14.1", metadata.SwVersion)
}

func Test_DeviceInfoParse_NoMac(t *testing.T) {
	var info DeviceInfo
	err := json.Unmarshal([]byte(`{"Ident": "MXU-00231"}`), &info)
	assert.NoError(t, err)
	assert.False(t, info.Mac.Valid)
}
