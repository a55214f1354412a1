package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/xhhao/redisconnector/cmd/connector/models"
	"github.com/xhhao/redisconnector/common/config"
	"github.com/xhhao/redisconnector/common/logger"
	commonmodels "github.com/xhhao/redisconnector/common/models"
	"github.com/xhhao/redisconnector/common/redis"
	"github.com/xhhao/redisconnector/common/repository"
)

const (
	// RedisGroup is the ConfigMap data entry holding the plugin settings
	RedisGroup = "redis"

	defaultPort     = "6379"
	defaultDatabase = "0"

	// maxWriteAttempts bounds optimistic-lock retries when saving settings
	maxWriteAttempts = 3
)

var (
	// ErrNoConfiguration means neither the host nor the plugin settings name a host
	ErrNoConfiguration = errors.New("no redis connection configured")
	// ErrInvalidSettings means a settings document could not be decoded
	ErrInvalidSettings = errors.New("invalid redis settings")
)

// Resolution is the outcome of choosing between the two configuration sources
type Resolution struct {
	Source models.ConfigSource
	Config redis.ConnectionConfig
}

// ConfigService reconciles the host environment settings with the stored
// plugin settings and drives facade (re)initialization
type ConfigService struct {
	host          config.HostRedisConfig
	redisCfg      config.RedisConfig
	store         repository.ConfigMapStore
	configMapName string
	client        *redis.Client
	log           *logger.Logger
}

// NewConfigService creates a new configuration service
func NewConfigService(cfg *config.Config, store repository.ConfigMapStore, client *redis.Client, log *logger.Logger) *ConfigService {
	return &ConfigService{
		host:          cfg.HostRedis,
		redisCfg:      cfg.Redis,
		store:         store,
		configMapName: cfg.Store.ConfigMapName,
		client:        client,
		log:           log.WithComponent("config-service"),
	}
}

// Resolve picks the authoritative connection settings. The host settings win
// when enabled with a non-empty host; otherwise the stored plugin settings
// are used when they name a host. ErrNoConfiguration is returned when neither does.
func (s *ConfigService) Resolve(ctx context.Context) (Resolution, error) {
	if s.host.Configured() {
		cfg := redis.NewConnectionConfig(s.host.Host, uint16(s.host.Port), s.host.Password, uint32(s.host.Database))
		return Resolution{Source: models.SourceHost, Config: s.withTimeouts(cfg)}, nil
	}

	plugin, err := s.GetPluginConfig(ctx)
	if err != nil {
		return Resolution{}, err
	}

	cfg, err := pluginConnectionConfig(plugin)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Source: models.SourcePlugin, Config: s.withTimeouts(cfg)}, nil
}

func (s *ConfigService) withTimeouts(cfg redis.ConnectionConfig) redis.ConnectionConfig {
	if s.redisCfg.ConnectTimeout > 0 {
		cfg.ConnectTimeout = s.redisCfg.ConnectTimeout
	}
	if s.redisCfg.SocketTimeout > 0 {
		cfg.SocketTimeout = s.redisCfg.SocketTimeout
	}
	return cfg
}

func pluginConnectionConfig(plugin map[string]string) (redis.ConnectionConfig, error) {
	host := plugin["host"]
	if host == "" {
		return redis.ConnectionConfig{}, ErrNoConfiguration
	}

	port, err := strconv.ParseUint(valueOr(plugin, "port", defaultPort), 10, 16)
	if err != nil || port == 0 {
		return redis.ConnectionConfig{}, fmt.Errorf("%w: port %q", ErrInvalidSettings, plugin["port"])
	}

	database, err := strconv.ParseUint(valueOr(plugin, "database", defaultDatabase), 10, 32)
	if err != nil {
		return redis.ConnectionConfig{}, fmt.Errorf("%w: database %q", ErrInvalidSettings, plugin["database"])
	}

	return redis.NewConnectionConfig(host, uint16(port), plugin["password"], uint32(database)), nil
}

// Status reports both sources, the winning one and the facade state
func (s *ConfigService) Status(ctx context.Context) (*models.Status, error) {
	plugin, err := s.GetPluginConfig(ctx)
	if err != nil {
		return nil, err
	}

	status := &models.Status{
		HostRedisEnabled: s.host.Enabled,
		HostConfigured:   s.host.Configured(),
		HostHost:         s.host.Host,
		HostPort:         strconv.Itoa(s.host.Port),
		HostDatabase:     strconv.Itoa(s.host.Database),

		PluginConfigured: plugin["host"] != "",
		PluginHost:       plugin["host"],
		PluginPort:       valueOr(plugin, "port", defaultPort),
		PluginDatabase:   valueOr(plugin, "database", defaultDatabase),

		Available: s.client.IsAvailable(),
		State:     s.client.State().String(),
	}

	switch {
	case status.HostConfigured:
		status.ConfigSource = models.SourceHost
		status.ActiveHost = status.HostHost
		status.ActivePort = status.HostPort
		status.ActiveDatabase = status.HostDatabase
	case status.PluginConfigured:
		status.ConfigSource = models.SourcePlugin
		status.ActiveHost = status.PluginHost
		status.ActivePort = status.PluginPort
		status.ActiveDatabase = status.PluginDatabase
	default:
		status.ConfigSource = models.SourceNone
	}

	return status, nil
}

// GetPluginConfig returns the stored plugin settings. A missing document,
// group or unreadable group yields an empty map; only store failures are errors.
func (s *ConfigService) GetPluginConfig(ctx context.Context) (map[string]string, error) {
	cm, err := s.store.Fetch(ctx, s.configMapName)
	if errors.Is(err, repository.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plugin config: %w", err)
	}

	raw, ok := cm.Data[RedisGroup]
	if !ok || raw == "" {
		return map[string]string{}, nil
	}

	settings, err := DecodeSettings([]byte(raw))
	if err != nil {
		s.log.Error("failed to parse redis config", "config_map", s.configMapName, "error", err)
		return map[string]string{}, nil
	}
	return settings, nil
}

// SavePluginConfig replaces the stored plugin settings, creating the
// document when missing. The facade is not touched; callers reconnect to apply.
func (s *ConfigService) SavePluginConfig(ctx context.Context, settings map[string]string) models.OperationResult {
	err := s.writePluginConfig(ctx, func(map[string]string) (map[string]string, error) {
		return settings, nil
	})
	if err != nil {
		s.log.Error("failed to save redis config", "error", err)
		return models.OperationResult{Success: false, Message: "save failed: " + err.Error()}
	}

	s.log.Info("redis config saved", "config_map", s.configMapName, "host", settings["host"])
	return models.OperationResult{Success: true, Message: "configuration saved, reconnect to apply"}
}

// PatchPluginConfig applies an RFC 7386 merge patch to the stored plugin
// settings. A patch that is not a JSON object yields ErrInvalidSettings.
func (s *ConfigService) PatchPluginConfig(ctx context.Context, patch []byte) (models.OperationResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(patch, &probe); err != nil || probe == nil {
		return models.OperationResult{}, fmt.Errorf("%w: merge patch must be a JSON object", ErrInvalidSettings)
	}

	err := s.writePluginConfig(ctx, func(current map[string]string) (map[string]string, error) {
		doc, err := json.Marshal(current)
		if err != nil {
			return nil, err
		}
		merged, err := jsonpatch.MergePatch(doc, patch)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
		return DecodeSettings(merged)
	})
	if errors.Is(err, ErrInvalidSettings) {
		return models.OperationResult{}, err
	}
	if err != nil {
		s.log.Error("failed to patch redis config", "error", err)
		return models.OperationResult{Success: false, Message: "save failed: " + err.Error()}, nil
	}

	s.log.Info("redis config patched", "config_map", s.configMapName)
	return models.OperationResult{Success: true, Message: "configuration saved, reconnect to apply"}, nil
}

// writePluginConfig applies mutate to the current settings and stores the
// result, retrying when another writer wins the version race
func (s *ConfigService) writePluginConfig(ctx context.Context, mutate func(map[string]string) (map[string]string, error)) error {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cm, err := s.store.Fetch(ctx, s.configMapName)
		create := errors.Is(err, repository.ErrNotFound)
		if create {
			cm = commonmodels.NewConfigMap(s.configMapName)
		} else if err != nil {
			return fmt.Errorf("failed to fetch plugin config: %w", err)
		}

		current := map[string]string{}
		if raw := cm.Data[RedisGroup]; raw != "" {
			if decoded, err := DecodeSettings([]byte(raw)); err == nil {
				current = decoded
			}
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode redis settings: %w", err)
		}
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		cm.Data[RedisGroup] = string(encoded)

		if create {
			err = s.store.Create(ctx, cm)
		} else {
			err = s.store.Update(ctx, cm)
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}

		s.log.Debug("config map write conflict, retrying", "attempt", attempt+1)
		lastErr = err
	}
	return lastErr
}

// Reconnect closes the current pool, resolves the settings again and
// reinitializes the facade with them
func (s *ConfigService) Reconnect(ctx context.Context) models.ReconnectResult {
	s.client.Shutdown()

	res, err := s.Resolve(ctx)
	if errors.Is(err, ErrNoConfiguration) {
		s.log.Warn("reconnect skipped, no redis connection configured")
		return models.ReconnectResult{
			Success:      false,
			Available:    false,
			ConfigSource: models.SourceNone,
			Message:      ErrNoConfiguration.Error(),
		}
	}
	if err != nil {
		s.log.Error("reconnect failed to resolve configuration", "error", err)
		return models.ReconnectResult{
			Success: false,
			Message: err.Error(),
		}
	}

	s.client.Reinitialize(ctx, res.Config)

	available := s.client.IsAvailable()
	message := "connection failed"
	if available {
		message = "connected"
	}

	s.log.Info("redis reconnect finished",
		"source", res.Source,
		"target", res.Config.String(),
		"available", available,
	)

	return models.ReconnectResult{
		Success:      available,
		Available:    available,
		ConfigSource: res.Source,
		Message:      message,
	}
}

// DecodeSettings parses a flat JSON object of settings. Numbers and booleans
// are kept in their textual form; null entries are dropped.
func DecodeSettings(data []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: settings must be a JSON object", ErrInvalidSettings)
	}

	settings := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			settings[k] = val
		case json.Number:
			settings[k] = val.String()
		case bool:
			settings[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("%w: %q must be a string, number or boolean", ErrInvalidSettings, k)
		}
	}
	return settings, nil
}

func valueOr(m map[string]string, key, def string) string {
	if v := m[key]; v != "" {
		return v
	}
	return def
}
