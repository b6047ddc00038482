package cmd

import (
	"context"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/switchbridge/internal/pkg/bridge"
	"github.com/anicoll/switchbridge/internal/pkg/config"
	"github.com/anicoll/switchbridge/internal/pkg/contxt"
	"github.com/anicoll/switchbridge/internal/pkg/registry"
	"github.com/anicoll/switchbridge/internal/pkg/registry/cache"
	"github.com/anicoll/switchbridge/internal/pkg/registry/hass"
	"github.com/anicoll/switchbridge/internal/pkg/remote"
	"github.com/anicoll/switchbridge/internal/pkg/server"
)

func BridgeCommand(ctx *cli.Context) error {
	cfg := &config.Config{
		RemoteCfg: &config.RemoteConfig{
			Driver:           ctx.String("remote-driver"),
			DeviceID:         ctx.String("device-id"),
			AccessToken:      ctx.String("access-token"),
			ExcludedSwitches: ctx.String("excluded-switches"),
		},
		MqttCfg: &config.MqttConfig{
			Host:            ctx.String("mqtt-host"),
			Username:        ctx.String("mqtt-user"),
			Password:        ctx.String("mqtt-pass"),
			DiscoveryPrefix: ctx.String("discovery-prefix"),
		},
		ServerCfg: &config.ServerConfig{
			ListenAddr: ctx.String("listen-addr"),
		},
		CachePath:      ctx.String("cache-path"),
		ResyncSchedule: ctx.String("resync-schedule"),
		LogLevel:       ctx.String("log-level"),
	}

	logCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	client, err := remote.Connect(ctx.Context, cfg.RemoteCfg.Driver, cfg.RemoteCfg.DeviceID, cfg.RemoteCfg.AccessToken)
	if err != nil {
		return err
	}

	return run(ctx.Context, cfg, client)
}

func run(ctx context.Context, cfg *config.Config, client remote.Client) error {
	errorChan := make(chan error, 1000)
	logger := zap.L()

	excluded, err := config.ParseExcludedSwitches(cfg.RemoteCfg.ExcludedSwitches)
	if err != nil {
		return err
	}

	store, err := cache.Open(ctx, cfg.CachePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	reg := registry.New(store)
	svc := bridge.New(client, reg, excluded, errorChan)

	if cfg.MqttCfg != nil && cfg.MqttCfg.Host != "" {
		opts := paho_mqtt.NewClientOptions().
			AddBroker(cfg.MqttCfg.Host).
			SetUsername(cfg.MqttCfg.Username).
			SetPassword(cfg.MqttCfg.Password).
			SetClientID("switchbridge-" + cfg.RemoteCfg.DeviceID).
			SetAutoReconnect(true)

		hassOpts := []hass.Option{}
		if cfg.MqttCfg.DiscoveryPrefix != "" {
			hassOpts = append(hassOpts, hass.WithDiscoveryPrefix(cfg.MqttCfg.DiscoveryPrefix))
		}
		announcer := hass.New(paho_mqtt.NewClient(opts), svc, hassOpts...)
		if err := announcer.Connect(); err != nil {
			return err
		}
		if err := reg.AddAnnouncer("hass", announcer); err != nil {
			return err
		}
	}

	hub := server.NewHub()
	svc.SetEventHook(hub.BroadcastEvent)
	srv := server.New(cfg.ServerCfg.ListenAddr, svc, hub)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return hub.Run(ctx)
	})

	eg.Go(func() error {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		_ = svc.Close()
		return ctx.Err()
	})

	eg.Go(func() error {
		return srv.Start()
	})

	eg.Go(func() error {
		<-ctx.Done()
		return srv.Stop(contxt.NewContext(10 * time.Second))
	})

	if cfg.ResyncSchedule != "" {
		eg.Go(func() error {
			return cronResync(ctx, svc, cfg.ResyncSchedule)
		})
	}

	eg.Go(func() error {
		// handle any async errors from the bridge
		for {
			select {
			case err := <-errorChan:
				logger.Error("bridge error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

// cronResync runs a full reconciliation pass on the configured schedule, as
// a safety net for missed config pushes.
func cronResync(ctx context.Context, svc resyncService, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := svc.Reconcile(contxt.NewContext(time.Minute)); err != nil {
			zap.L().Error("scheduled resync failed", zap.Error(err))
			return
		}
		zap.L().Info("scheduled resync completed")
	}); err != nil {
		return err
	}

	c.Start()
	<-ctx.Done()
	c.Stop()
	return ctx.Err()
}
