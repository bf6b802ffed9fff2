package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StaticConfigLoader serves a fixed raw configuration map.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// TOMLFileLoader reads raw configuration from a TOML file. A missing file
// yields an empty map so defaults apply.
type TOMLFileLoader struct {
	Path string
}

func (l TOMLFileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: stat config %s: %w", path, err)
	}
	raw := map[string]any{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("core: decode config %s: %w", path, err)
	}
	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded < runtime, where zero values in
// the loaded and runtime layers do not override lower layers.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	client := map[string]any{}
	if includeZero || cfg.Client.RequestTimeoutSeconds != 0 {
		client["request_timeout_seconds"] = cfg.Client.RequestTimeoutSeconds
	}
	if includeZero || cfg.Client.MaxResponseBodyBytes != 0 {
		client["max_response_body_bytes"] = cfg.Client.MaxResponseBodyBytes
	}
	if includeZero || len(cfg.Client.Scopes) > 0 {
		client["scopes"] = append([]string(nil), cfg.Client.Scopes...)
	}
	if len(client) > 0 {
		layer["client"] = client
	}

	if includeZero || cfg.Install.CapabilitiesTimeoutSeconds != 0 {
		layer["install"] = map[string]any{
			"capabilities_timeout_seconds": cfg.Install.CapabilitiesTimeoutSeconds,
		}
	}

	descriptor := map[string]any{}
	for key, value := range map[string]string{
		"key":            cfg.Descriptor.Key,
		"name":           cfg.Descriptor.Name,
		"description":    cfg.Descriptor.Description,
		"vendor_name":    cfg.Descriptor.VendorName,
		"vendor_url":     cfg.Descriptor.VendorURL,
		"homepage_url":   cfg.Descriptor.HomepageURL,
		"sender_name":    cfg.Descriptor.SenderName,
		"message_filter": cfg.Descriptor.MessageFilter,
	} {
		if includeZero || strings.TrimSpace(value) != "" {
			descriptor[key] = value
		}
	}
	if includeZero || cfg.Descriptor.DisableGlobal {
		descriptor["disable_global"] = cfg.Descriptor.DisableGlobal
	}
	if includeZero || cfg.Descriptor.DisableRoom {
		descriptor["disable_room"] = cfg.Descriptor.DisableRoom
	}
	if len(descriptor) > 0 {
		layer["descriptor"] = descriptor
	}
	return layer
}
