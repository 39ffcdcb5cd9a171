package sensors

import (
	"fmt"

	"github.com/maxstorage/maxstorage-bridge/internal/maxstorage"
)

const (
	StateClassMeasurement = "measurement"

	DeviceClassBattery       = "battery"
	DeviceClassEnergyStorage = "energy_storage"
	DeviceClassPower         = "power"
	DeviceClassRunning       = "running"

	CategoryDiagnostic = "diagnostic"

	UnitPercent  = "%"
	UnitWatt     = "W"
	UnitWattHour = "Wh"
)

type ValueFunc func(maxstorage.Snapshot) (interface{}, error)
type AttrFunc func(maxstorage.Snapshot) (map[string]interface{}, error)

// Descriptor declares one sensor: its identity, display metadata and the
// pure projections that derive its value and extra attributes from a
// snapshot. Descriptors are built once at process start and never mutated.
type Descriptor struct {
	Key            string
	Name           string
	Icon           string
	Unit           string
	StateClass     string
	DeviceClass    string
	EntityCategory string
	Binary         bool
	ValueFn        ValueFunc
	AttrFn         AttrFunc
}

func valueOf(key string) ValueFunc {
	return func(s maxstorage.Snapshot) (interface{}, error) {
		return s.Value(key)
	}
}

func flagOf(block, key string) ValueFunc {
	return func(s maxstorage.Snapshot) (interface{}, error) {
		return s.Flag(block, key)
	}
}

// SensorTypes enumerates every numeric sensor exposed for the device. Values
// pass through exactly as transmitted; the unit tags only label them.
var SensorTypes = []Descriptor{
	{
		Key:         "batterySoC",
		Name:        "Battery State of Charge",
		Icon:        "mdi:battery",
		Unit:        UnitPercent,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassBattery,
		ValueFn:     valueOf("batterySoC"),
	},
	{
		Key:         "batteryCapacity",
		Name:        "Battery Capacity",
		Icon:        "mdi:battery",
		Unit:        UnitWattHour,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassEnergyStorage,
		ValueFn:     valueOf("batteryCapacity"),
	},
	{
		Key:         "batteryPower",
		Name:        "Battery Power",
		Icon:        "mdi:battery",
		Unit:        UnitWatt,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassPower,
		ValueFn:     valueOf("batteryPower"),
	},
	{
		Key:         "gridPower",
		Name:        "Grid Power",
		Icon:        "mdi:transmission-tower",
		Unit:        UnitWatt,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassPower,
		ValueFn:     valueOf("gridPower"),
	},
	{
		Key:         "usagePower",
		Name:        "Usage Power",
		Icon:        "mdi:transmission-tower",
		Unit:        UnitWatt,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassPower,
		ValueFn:     valueOf("usagePower"),
	},
	{
		Key:         "plantPower",
		Name:        "Plant Power",
		Icon:        "mdi:solar-power",
		Unit:        UnitWatt,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassPower,
		ValueFn:     valueOf("plantPower"),
	},
	{
		Key:         "storageDCPower",
		Name:        "Storage DC Power",
		Icon:        "mdi:solar-power",
		Unit:        UnitWatt,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassPower,
		ValueFn:     valueOf("storageDCPower"),
	},
}

// FlagTypes enumerates the boolean sensors projected from the SpecialState
// block.
var FlagTypes = []Descriptor{
	{
		Key:            "islandActive",
		Name:           "Island Active",
		Icon:           "mdi:island",
		DeviceClass:    DeviceClassRunning,
		EntityCategory: CategoryDiagnostic,
		Binary:         true,
		ValueFn:        flagOf("SpecialState", "islandActive"),
		AttrFn: func(s maxstorage.Snapshot) (map[string]interface{}, error) {
			raw, err := s.RawFlag("SpecialState", "islandActive")
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"reported": raw}, nil
		},
	},
}

// RelayDescriptors builds one binary descriptor per named relay in the
// snapshot's Relais block. Unnamed slots are skipped. Keys are index based
// so that two relays configured with the same label cannot collide.
func RelayDescriptors(s maxstorage.Snapshot) []Descriptor {
	relais, err := s.SubMap("Relais")
	if err != nil {
		return nil
	}
	names, _ := relais["name"].([]interface{})
	descriptors := make([]Descriptor, 0, len(names))
	for index, raw := range names {
		name, _ := raw.(string)
		if name == "" {
			continue
		}
		idx := index
		descriptors = append(descriptors, Descriptor{
			Key:         fmt.Sprintf("relais_%d", idx),
			Name:        name,
			Icon:        "mdi:power-plug",
			DeviceClass: DeviceClassPower,
			Binary:      true,
			ValueFn: func(s maxstorage.Snapshot) (interface{}, error) {
				return relayValue(s, idx)
			},
		})
	}
	return descriptors
}

func relayValue(s maxstorage.Snapshot, index int) (interface{}, error) {
	relais, err := s.SubMap("Relais")
	if err != nil {
		return nil, err
	}
	values, _ := relais["value"].([]interface{})
	if index >= len(values) {
		return nil, &maxstorage.MissingFieldError{Field: fmt.Sprintf("Relais.value[%d]", index)}
	}
	switch value := values[index].(type) {
	case bool:
		return value, nil
	case float64:
		return value != 0, nil
	default:
		return false, nil
	}
}
