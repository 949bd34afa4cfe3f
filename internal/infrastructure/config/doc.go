// Package config loads and validates Hearth Core configuration.
//
// Configuration is sourced from a YAML file and can be overridden by
// HEARTH_* environment variables. Defaults are chosen for a local
// single-house deployment with an unauthenticated Mosquitto broker.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
