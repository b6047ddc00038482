package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

type Config struct {
	RemoteCfg *RemoteConfig
	MqttCfg   *MqttConfig
	ServerCfg *ServerConfig
	CachePath string
	// ResyncSchedule is an optional cron spec for periodic full resyncs.
	ResyncSchedule string
	LogLevel       string
}

type RemoteConfig struct {
	Driver      string
	DeviceID    string
	AccessToken string
	// ExcludedSwitches is a comma-separated list of indexes to hide.
	ExcludedSwitches string
}

type MqttConfig struct {
	Host            string
	Username        string
	Password        string
	DiscoveryPrefix string
}

type ServerConfig struct {
	ListenAddr string
}

// ParseExcludedSwitches turns the comma-separated index list into a set.
func ParseExcludedSwitches(raw string) (model.ExclusionSet, error) {
	set := model.NewExclusionSet()
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		index, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid excluded switch index %q: %w", field, err)
		}
		set[index] = struct{}{}
	}
	return set, nil
}
