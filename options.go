package addons

import (
	"net/http"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/hooks"
)

type managerBuilder struct {
	runtimeConfig   core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	credentialStore core.CredentialStore
	registry        *hooks.Registry
	httpClient      *http.Client
	now             func() time.Time
}

type Option func(*managerBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *managerBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *managerBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *managerBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *managerBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *managerBuilder) {
		b.optionsResolver = resolver
	}
}

// WithCredentialStore replaces the in-memory store.
func WithCredentialStore(store core.CredentialStore) Option {
	return func(b *managerBuilder) {
		b.credentialStore = store
	}
}

// WithRegistry shares a hook registry between managers.
func WithRegistry(registry *hooks.Registry) Option {
	return func(b *managerBuilder) {
		b.registry = registry
	}
}

// WithHTTPClient is used for capability fetches, token requests, and API
// calls.
func WithHTTPClient(client *http.Client) Option {
	return func(b *managerBuilder) {
		b.httpClient = client
	}
}

func WithNow(now func() time.Time) Option {
	return func(b *managerBuilder) {
		b.now = now
	}
}

func defaultManagerBuilder(cfg core.Config) managerBuilder {
	return managerBuilder{runtimeConfig: cfg}
}
