package addons

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-chat-addons/capability"
	"github.com/goliatone/go-chat-addons/client"
	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/events"
	"github.com/goliatone/go-chat-addons/hooks"
)

const loggerName = "addons"

// Manager is the installation lifecycle controller. It owns the credential
// store, the hook registry, and one API client per installation.
type Manager struct {
	config          core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	store           core.CredentialStore
	registry        *hooks.Registry
	fetcher         *capability.Fetcher
	httpClient      *http.Client
	now             func() time.Time
	observer        core.Observer

	mu          sync.Mutex
	clients     map[string]*client.Client
	generations map[string]uint64
}

func NewManager(cfg core.Config, opts ...Option) (*Manager, error) {
	builder := defaultManagerBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := core.ResolveLogger(loggerName, builder.loggerProvider, builder.logger)
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}
	if builder.credentialStore == nil {
		builder.credentialStore = core.NewMemoryCredentialStore()
	}
	if builder.registry == nil {
		builder.registry = hooks.NewRegistry()
	}
	if builder.httpClient == nil {
		builder.httpClient = &http.Client{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}

	return &Manager{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		store:           builder.credentialStore,
		registry:        builder.registry,
		fetcher:         capability.NewFetcher(builder.httpClient, finalConfig.Install.CapabilitiesTimeout()),
		httpClient:      builder.httpClient,
		now:             builder.now,
		observer: core.Observer{
			Logger:  logger,
			Metrics: builder.metricsRecorder,
			Prefix:  loggerName,
		},
		clients:     map[string]*client.Client{},
		generations: map[string]uint64{},
	}, nil
}

func (m *Manager) Config() core.Config {
	if m == nil {
		return core.Config{}
	}
	return m.config
}

func (m *Manager) Registry() *hooks.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Manager) CredentialStore() core.CredentialStore {
	if m == nil {
		return nil
	}
	return m.store
}

// On registers a handler; see hooks.Registry.Register.
func (m *Manager) On(category hooks.Category, handler hooks.Handler, opts ...hooks.RegisterOption) (hooks.HandlerID, error) {
	if m == nil || m.registry == nil {
		return "", core.Internal("addons: manager is not configured", nil)
	}
	return m.registry.Register(category, handler, opts...)
}

func (m *Manager) Off(category hooks.Category, id hooks.HandlerID) bool {
	if m == nil || m.registry == nil {
		return false
	}
	return m.registry.Unregister(category, id)
}

// HandleInstall fetches the capability document, persists the credential,
// and fires the install hooks. Nothing is persisted when the document cannot
// be fetched.
func (m *Manager) HandleInstall(ctx context.Context, payload core.InstallPayload) (cred core.Credential, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"installation_id": payload.InstallationID(),
		"event_type":      string(events.KindInstalled),
	}
	defer func() {
		m.observer.Observe(ctx, startedAt, "install", err, fields)
	}()

	if err = payload.Validate(); err != nil {
		return core.Credential{}, err
	}

	doc, err := m.fetcher.Fetch(ctx, payload.CapabilitiesURL)
	if err != nil {
		return core.Credential{}, err
	}

	cred = core.Credential{
		InstallationID:   payload.InstallationID(),
		ClientID:         payload.InstallationID(),
		ClientSecret:     payload.OAuthSecret,
		AuthorizationURL: doc.Capabilities.OAuth2Provider.AuthorizationURL,
		TokenURL:         doc.Capabilities.OAuth2Provider.TokenURL,
		APIBaseURL:       doc.Links.API,
		RoomID:           payload.RoomID,
		GroupID:          payload.GroupID,
		CreatedAt:        m.now(),
	}.Normalize()
	if err = cred.Validate(); err != nil {
		return core.Credential{}, core.InstallationSetupFailed(err, "addons: capability document produced an invalid credential", map[string]any{
			"installation_id": cred.InstallationID,
		})
	}
	fields["scope"] = scopeLabel(cred)

	if err = m.store.Put(ctx, cred.InstallationID, cred); err != nil {
		return core.Credential{}, err
	}
	m.evictClient(cred.InstallationID)

	stored := cred.Clone()
	if err = m.registry.Fire(ctx, hooks.CategoryInstall, &stored, events.NewLifecycle(events.KindInstalled, cred.InstallationID)); err != nil {
		return cred, err
	}
	return cred, nil
}

// HandleUninstall fires the uninstall hooks with whatever credential is
// stored, then removes it. Unknown ids fire with a nil credential and succeed.
func (m *Manager) HandleUninstall(ctx context.Context, installationID string) (err error) {
	startedAt := time.Now()
	installationID = strings.TrimSpace(installationID)
	fields := map[string]any{
		"installation_id": installationID,
		"event_type":      string(events.KindUninstalled),
	}
	defer func() {
		m.observer.Observe(ctx, startedAt, "uninstall", err, fields)
	}()

	if installationID == "" {
		err = core.BadInput("addons: installation id is required", nil)
		return err
	}

	cred, err := m.store.Get(ctx, installationID)
	if err != nil {
		return err
	}
	fields["known"] = cred != nil

	if err = m.registry.Fire(ctx, hooks.CategoryUninstall, cred, events.NewLifecycle(events.KindUninstalled, installationID)); err != nil {
		return err
	}
	if err = m.store.Delete(ctx, installationID); err != nil {
		return err
	}
	m.evictClient(installationID)
	return nil
}

// HandleEvent classifies a webhook body and dispatches it with the credential
// of the addressed installation, which may be nil.
func (m *Manager) HandleEvent(ctx context.Context, raw []byte) (err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer func() {
		m.observer.Observe(ctx, startedAt, "event", err, fields)
	}()

	event, err := events.Parse(raw)
	if err != nil {
		return err
	}
	fields["event_type"] = event.Type()
	fields["installation_id"] = event.InstallationID()
	if webhookID := event.WebhookID(); webhookID != "" {
		fields["webhook_id"] = webhookID
	}

	var cred *core.Credential
	if installationID := event.InstallationID(); installationID != "" {
		cred, err = m.store.Get(ctx, installationID)
		if err != nil {
			return err
		}
	}
	fields["known"] = cred != nil

	return m.registry.Dispatch(ctx, cred, event)
}

// Client returns the cached API client of an installation, building it from
// the stored credential on first use. A client built from a read that raced
// an install or uninstall is returned but not cached.
func (m *Manager) Client(ctx context.Context, installationID string) (*client.Client, error) {
	installationID = strings.TrimSpace(installationID)
	m.mu.Lock()
	cached := m.clients[installationID]
	generation := m.generations[installationID]
	m.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	cred, err := m.store.Get(ctx, installationID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, core.InstallationNotFound(installationID)
	}
	return m.cacheClient(*cred, generation)
}

// ClientFor returns the cached client for cred, building one when none is
// cached or the cached one was built from a different credential.
func (m *Manager) ClientFor(cred core.Credential) (*client.Client, error) {
	installationID := strings.TrimSpace(cred.InstallationID)
	m.mu.Lock()
	generation := m.generations[installationID]
	m.mu.Unlock()
	return m.cacheClient(cred, generation)
}

func (m *Manager) cacheClient(cred core.Credential, generation uint64) (*client.Client, error) {
	installationID := strings.TrimSpace(cred.InstallationID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached := m.clients[installationID]; cached != nil && sameCredential(cached.Credential(), cred) {
		return cached, nil
	}
	built, err := client.New(cred, m.clientOptions()...)
	if err != nil {
		return nil, err
	}
	if m.generations[installationID] == generation {
		m.clients[installationID] = built
	}
	return built, nil
}

func (m *Manager) clientOptions() []client.Option {
	_, clientLogger := core.ResolveLogger(loggerName+".client", m.loggerProvider, m.logger)
	return []client.Option{
		client.WithHTTPClient(m.httpClient),
		client.WithScopes(m.config.Client.ResolvedScopes()...),
		client.WithRequestTimeout(m.config.Client.RequestTimeout()),
		client.WithMaxResponseBodyBytes(m.config.Client.MaxResponseBodyBytes),
		client.WithNow(m.now),
		client.WithLogger(clientLogger),
		client.WithMetricsRecorder(m.metricsRecorder),
	}
}

func (m *Manager) evictClient(installationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[installationID]++
	delete(m.clients, installationID)
}

func sameCredential(a, b core.Credential) bool {
	a, b = a.Normalize(), b.Normalize()
	return a.InstallationID == b.InstallationID &&
		a.ClientID == b.ClientID &&
		a.ClientSecret == b.ClientSecret &&
		a.AuthorizationURL == b.AuthorizationURL &&
		a.TokenURL == b.TokenURL &&
		a.APIBaseURL == b.APIBaseURL &&
		sameID(a.RoomID, b.RoomID) &&
		sameID(a.GroupID, b.GroupID)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func scopeLabel(cred core.Credential) string {
	if cred.IsRoomScoped() {
		return "room"
	}
	return "global"
}
