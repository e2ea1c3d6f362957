package config

import (
	"fmt"

	"github.com/jpalmerr/paperless"
)

// ConfigEntries converts parsed entries into config entries. The unique id
// of each entry is its token.
func ConfigEntries(cfg *Config) []paperless.ConfigEntry {
	entries := make([]paperless.ConfigEntry, 0, len(cfg.Entries))
	for _, ec := range cfg.Entries {
		entries = append(entries, paperless.ConfigEntry{
			EntryID:  ec.EntryID,
			UniqueID: ec.APIToken,
			Title:    ec.Title,
			Data: paperless.EntryData{
				Host:     ec.Host,
				Port:     ec.Port,
				SSL:      ec.SSL,
				APIToken: ec.APIToken,
				TodoTag:  ec.TodoTag,
			},
		})
	}
	return entries
}

// BuildSensors converts parsed configuration into one sensor per entry.
//
// Entries for the same host and port (one per user token) would share the
// default entity name; the second and later ones get a "_2", "_3", ...
// suffix in config order.
func BuildSensors(cfg *Config) ([]paperless.Sensor, error) {
	var sensors []paperless.Sensor
	used := make(map[string]bool, len(cfg.Entries))
	for i, entry := range ConfigEntries(cfg) {
		name := uniqueName(entry.Session().EntityName(), used)
		s, err := paperless.SensorFromEntry(entry, paperless.WithSensorName(name))
		if err != nil {
			return nil, fmt.Errorf("entries[%d] (%s): %w", i, entry.Title, err)
		}
		sensors = append(sensors, s)
	}
	return sensors, nil
}

func uniqueName(base string, used map[string]bool) string {
	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
	}
	used[name] = true
	return name
}

// HubOptions returns the hub options described by cfg, sensors included.
func HubOptions(cfg *Config) ([]paperless.Option, error) {
	sensors, err := BuildSensors(cfg)
	if err != nil {
		return nil, err
	}

	opts := []paperless.Option{
		paperless.WithSensors(sensors...),
		paperless.WithPort(cfg.Port),
		paperless.WithPollingInterval(cfg.PollInterval.Duration()),
	}
	if cfg.RequestTimeout != 0 {
		opts = append(opts, paperless.WithRequestTimeout(cfg.RequestTimeout.Duration()))
	}
	return opts, nil
}
