package core

import (
	"fmt"
	"strings"
	"time"
)

var DefaultScopes = []string{"send_notification", "send_message", "admin_room", "view_group"}

type ClientConfig struct {
	RequestTimeoutSeconds int      `koanf:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	MaxResponseBodyBytes  int64    `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	Scopes                []string `koanf:"scopes" mapstructure:"scopes"`
}

type InstallConfig struct {
	CapabilitiesTimeoutSeconds int `koanf:"capabilities_timeout_seconds" mapstructure:"capabilities_timeout_seconds"`
}

// DescriptorConfig feeds the add-on capability descriptor served to the
// platform. It is optional for the core and only required by the web handler.
type DescriptorConfig struct {
	Key           string `koanf:"key" mapstructure:"key"`
	Name          string `koanf:"name" mapstructure:"name"`
	Description   string `koanf:"description" mapstructure:"description"`
	VendorName    string `koanf:"vendor_name" mapstructure:"vendor_name"`
	VendorURL     string `koanf:"vendor_url" mapstructure:"vendor_url"`
	HomepageURL   string `koanf:"homepage_url" mapstructure:"homepage_url"`
	SenderName    string `koanf:"sender_name" mapstructure:"sender_name"`
	DisableGlobal bool   `koanf:"disable_global" mapstructure:"disable_global"`
	DisableRoom   bool   `koanf:"disable_room" mapstructure:"disable_room"`
	MessageFilter string `koanf:"message_filter" mapstructure:"message_filter"`
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Client      ClientConfig     `koanf:"client" mapstructure:"client"`
	Install     InstallConfig    `koanf:"install" mapstructure:"install"`
	Descriptor  DescriptorConfig `koanf:"descriptor" mapstructure:"descriptor"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "chat-addons",
		Client: ClientConfig{
			RequestTimeoutSeconds: 30,
			MaxResponseBodyBytes:  10 << 20,
			Scopes:                append([]string(nil), DefaultScopes...),
		},
		Install: InstallConfig{
			CapabilitiesTimeoutSeconds: 10,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Client.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("core: client.request_timeout_seconds must not be negative")
	}
	if c.Client.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: client.max_response_body_bytes must not be negative")
	}
	if c.Install.CapabilitiesTimeoutSeconds < 0 {
		return fmt.Errorf("core: install.capabilities_timeout_seconds must not be negative")
	}
	return nil
}

func (c ClientConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ResolvedScopes falls back to DefaultScopes when none are configured.
func (c ClientConfig) ResolvedScopes() []string {
	scopes := make([]string, 0, len(c.Scopes))
	for _, scope := range c.Scopes {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	if len(scopes) == 0 {
		return append([]string(nil), DefaultScopes...)
	}
	return scopes
}

func (c InstallConfig) CapabilitiesTimeout() time.Duration {
	if c.CapabilitiesTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.CapabilitiesTimeoutSeconds) * time.Second
}
