package metrics

import (
	"fmt"
	"log"

	"github.com/DataDog/datadog-go/v5/statsd"
)

var Metrics *statsd.Client
var StatsEnabled bool

// Configure points the package at a DogStatsD server. Metrics stay disabled
// when no server is configured.
func Configure(statsServer string) {
	if statsServer == "" {
		return
	}
	client, err := statsd.New(statsServer, statsd.WithNamespace("maxstorage."))
	if err != nil {
		log.Printf("Got error creating stats client %s", err.Error())
		return
	}
	Metrics = client
	StatsEnabled = true
}

func FormatTag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

func SendGaugeMetric(name string, tags []string, value float64) {
	if StatsEnabled {
		err := Metrics.Gauge(name, value, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}

func SendCountMetric(name string, tags []string) {
	if StatsEnabled {
		err := Metrics.Incr(name, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}
