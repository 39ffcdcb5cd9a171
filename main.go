package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jgulick48/hc"
	"github.com/jgulick48/hc/accessory"
	"github.com/mitchellh/panicwrap"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxstorage/maxstorage-bridge/internal/bridge"
	"github.com/maxstorage/maxstorage-bridge/internal/coordinator"
	"github.com/maxstorage/maxstorage-bridge/internal/hass"
	"github.com/maxstorage/maxstorage-bridge/internal/maxstorage"
	"github.com/maxstorage/maxstorage-bridge/internal/metrics"
	"github.com/maxstorage/maxstorage-bridge/internal/sensors"
)

func main() {
	exitStatus, err := panicwrap.BasicWrap(panicHandler)
	if err != nil {
		panic(err)
	}
	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	configLocation := flag.String("configFile", "./config.json", "Location for the configuration file.")
	flag.Parse()
	config := bridge.LoadClientConfig(*configLocation)
	metrics.Configure(config.StatsServer)

	storageClient := maxstorage.NewClient(config.MaxStorage)
	if err := storageClient.Setup(); err != nil {
		log.Panicf("Unable to set up MaxStorage client: %s", err)
	}
	coord := coordinator.New(storageClient, config.MaxStorage.PollInterval.Duration)
	if err := coord.Refresh(); err != nil {
		log.Printf("Initial fetch from MaxStorage failed, continuing without a snapshot: %s", err)
	}

	sensorList, err := sensors.Build(coord)
	if err != nil {
		log.Panicf("Invalid sensor table: %s", err)
	}
	log.Printf("Built %v sensors for device %s", len(sensorList), coord.DeviceIdent())

	hassClient := hass.NewClient(config.MQTT, coord, config.Debug)
	if hassClient.IsEnabled() {
		if err := hassClient.Connect(); err != nil {
			log.Printf("Error connecting to mqtt broker: %s", err)
		} else if err := hassClient.RegisterSensors(sensorList); err != nil {
			log.Printf("Error registering sensors with Home Assistant: %s", err)
		}
	}

	bridgeClient := bridge.NewClient(config, coord, sensorList)
	accessories := bridgeClient.GetAccessories()

	coord.Start()

	if config.MetricsPort != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Printf("Starting metrics endpoint on port %s", config.MetricsPort)
			log.Println(http.ListenAndServe(fmt.Sprintf(":%s", config.MetricsPort), nil))
		}()
	}

	metadata := coord.Metadata()
	bridgeAccessory := accessory.NewBridge(accessory.Info{
		Name:         config.BridgeName,
		Manufacturer: metadata.Manufacturer,
		Model:        metadata.Model,
		SerialNumber: metadata.SerialNumber,
		ID:           1,
	})
	hcConfig := hc.Config{
		Pin:  config.PIN,
		Port: config.Port,
	}
	t, err := hc.NewIPTransport(hcConfig, bridgeAccessory.Accessory, accessories...)
	if err != nil {
		log.Panic(err)
	}

	hc.OnTermination(func() {
		hassClient.Close()
		bridgeClient.Close()
		coord.Close()
		storageClient.Close()
		<-t.Stop()
	})
	t.Start()
}

func panicHandler(output string) {
	log.Printf("The child panicked:\n\n%s\n", output)
	os.Exit(1)
}
