package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/switchbridge/cmd"
	"github.com/anicoll/switchbridge/internal/pkg/remote/sim"
)

func main() {
	app := &cli.App{
		Name:   "switchbridge",
		Usage:  "bridges cloud-managed switch devices into a host accessory registry",
		Action: cmd.BridgeCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "device-id",
				EnvVars:  []string{"DEVICE_ID"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "access-token",
				EnvVars: []string{"ACCESS_TOKEN"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "remote-driver",
				EnvVars: []string{"REMOTE_DRIVER"},
				Value:   sim.DriverName,
			},
			&cli.StringFlag{
				Name:    "excluded-switches",
				EnvVars: []string{"EXCLUDED_SWITCHES"},
				Value:   "",
				Usage:   "comma-separated switch indexes to hide from the registry",
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "discovery-prefix",
				EnvVars: []string{"DISCOVERY_PREFIX"},
				Value:   "homeassistant",
			},
			&cli.StringFlag{
				Name:    "cache-path",
				EnvVars: []string{"CACHE_PATH"},
				Value:   "switchbridge.db",
			},
			&cli.StringFlag{
				Name:    "listen-addr",
				EnvVars: []string{"LISTEN_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "resync-schedule",
				EnvVars: []string{"RESYNC_SCHEDULE"},
				Value:   "",
				Usage:   "optional cron spec for periodic full resyncs",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
