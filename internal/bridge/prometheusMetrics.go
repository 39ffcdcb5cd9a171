package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	batteryStateOfCharge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "batterySoC",
			Help: "Battery state of charge in percent.",
		},
		[]string{
			"ident",
		},
	)
	batteryCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "batteryCapacity",
			Help: "Usable battery capacity in watt hours.",
		},
		[]string{
			"ident",
		},
	)
	batteryPower = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "batteryPower",
			Help: "Battery charge/discharge power in watts.",
		},
		[]string{
			"ident",
		},
	)
	gridPower = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridPower",
			Help: "Grid import/export power in watts.",
		},
		[]string{
			"ident",
		},
	)
	usagePower = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "usagePower",
			Help: "Household consumption in watts.",
		},
		[]string{
			"ident",
		},
	)
	plantPower = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantPower",
			Help: "Plant production in watts.",
		},
		[]string{
			"ident",
		},
	)
	storageDCPower = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storageDCPower",
			Help: "Storage DC side power in watts.",
		},
		[]string{
			"ident",
		},
	)
	flagState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flagState",
			Help: "Boolean sensor states, 1 when on.",
		},
		[]string{
			"ident",
			"flag",
		},
	)
	pollHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pollHealthy",
			Help: "Whether the last poll cycle against the device succeeded.",
		},
		[]string{
			"ident",
		},
	)
)

var numericGauges = map[string]*prometheus.GaugeVec{
	"batterySoC":      batteryStateOfCharge,
	"batteryCapacity": batteryCapacity,
	"batteryPower":    batteryPower,
	"gridPower":       gridPower,
	"usagePower":      usagePower,
	"plantPower":      plantPower,
	"storageDCPower":  storageDCPower,
}

func registerPrometheusMetrics() {
	for _, gauge := range numericGauges {
		prometheus.MustRegister(gauge)
	}
	prometheus.MustRegister(flagState)
	prometheus.MustRegister(pollHealthy)
}
