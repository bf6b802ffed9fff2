// Package web mounts the add-on lifecycle on an echo server: the capability
// descriptor, the install and uninstall callbacks and the event webhook.
package web

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-chat-addons/capability"
	addonscommand "github.com/goliatone/go-chat-addons/command"
	"github.com/goliatone/go-chat-addons/core"
	gocmd "github.com/goliatone/go-command"
	"github.com/labstack/echo/v4"
)

const (
	loggerName = "addons.web"

	defaultMaxBodyBytes = 1 << 20

	// maxCachedDescriptors caps the per-origin descriptor cache. The key comes
	// from the request Host, so a full cache stops admitting new origins.
	maxCachedDescriptors = 16
)

// Paths are resolved below Base. The uninstall route is Installed plus
// "/:installation_id".
type Paths struct {
	Base         string
	Capabilities string
	Event        string
	Installed    string
}

func DefaultPaths() Paths {
	return Paths{
		Base:         "/",
		Capabilities: "/capabilities",
		Event:        "/event",
		Installed:    "/installed",
	}
}

type Handler struct {
	install      *addonscommand.InstallCommand
	uninstall    *addonscommand.UninstallCommand
	event        *addonscommand.EventCommand
	descriptor   core.DescriptorConfig
	scopes       []string
	paths        Paths
	maxBodyBytes int64
	logger       core.Logger

	mu          sync.Mutex
	descriptors map[string]capability.Descriptor
}

type Option func(*Handler)

func WithPaths(paths Paths) Option {
	return func(h *Handler) {
		defaults := DefaultPaths()
		h.paths = Paths{
			Base:         firstNonEmpty(paths.Base, defaults.Base),
			Capabilities: firstNonEmpty(paths.Capabilities, defaults.Capabilities),
			Event:        firstNonEmpty(paths.Event, defaults.Event),
			Installed:    firstNonEmpty(paths.Installed, defaults.Installed),
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			_, h.logger = core.ResolveLogger(loggerName, nil, logger)
		}
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(h *Handler) {
		if provider != nil {
			_, h.logger = core.ResolveLogger(loggerName, provider, nil)
		}
	}
}

func WithMaxBodyBytes(limit int64) Option {
	return func(h *Handler) {
		if limit > 0 {
			h.maxBodyBytes = limit
		}
	}
}

// NewHandler wires the lifecycle service behind go-command handlers. cfg
// supplies the descriptor settings and the requested API scopes.
func NewHandler(service addonscommand.LifecycleService, cfg core.Config, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, core.Internal("web: lifecycle service is required", nil)
	}
	_, logger := core.ResolveLogger(loggerName, nil, nil)
	h := &Handler{
		install:      addonscommand.NewInstallCommand(service),
		uninstall:    addonscommand.NewUninstallCommand(service),
		event:        addonscommand.NewEventCommand(service),
		descriptor:   cfg.Descriptor,
		scopes:       cfg.Client.ResolvedScopes(),
		paths:        DefaultPaths(),
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger,
		descriptors:  map[string]capability.Descriptor{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *Handler) Register(e *echo.Echo) {
	installed := h.route(h.paths.Installed)
	e.GET(h.route(h.paths.Capabilities), h.Capabilities)
	e.POST(h.route(h.paths.Event), h.Event)
	e.POST(installed, h.Install)
	e.DELETE(strings.TrimSuffix(installed, "/")+"/:installation_id", h.Uninstall)
}

// Capabilities serves the add-on descriptor. Absolute URLs are derived from
// the request so the same binary works behind any host; descriptors are
// cached per capabilities URL up to maxCachedDescriptors origins.
func (h *Handler) Capabilities(c echo.Context) error {
	req := c.Request()
	origin := c.Scheme() + "://" + req.Host
	capabilitiesURL := origin + req.URL.Path

	h.mu.Lock()
	cached, ok := h.descriptors[capabilitiesURL]
	h.mu.Unlock()
	if ok {
		return c.JSON(http.StatusOK, cached)
	}

	baseURL := origin + ensureTrailingSlash(h.route(h.paths.Base))
	in := capability.InputFromConfig(h.descriptor, h.scopes)
	in.BaseURL = baseURL
	in.CapabilitiesURL = capabilitiesURL
	in.WebhookURL = origin + h.route(h.paths.Event)
	in.InstalledURL = origin + h.route(h.paths.Installed)

	descriptor, err := capability.BuildDescriptor(in)
	if err != nil {
		h.logger.Error("descriptor build failed", "error", err)
		return h.fail(c, core.Internal("web: add-on descriptor is misconfigured", map[string]any{
			"error": err.Error(),
		}))
	}

	h.mu.Lock()
	if len(h.descriptors) < maxCachedDescriptors {
		h.descriptors[capabilitiesURL] = descriptor
	}
	h.mu.Unlock()
	return c.JSON(http.StatusOK, descriptor)
}

func (h *Handler) cachedDescriptors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.descriptors)
}

func (h *Handler) Install(c echo.Context) error {
	body, err := h.readBody(c)
	if err != nil {
		return h.fail(c, err)
	}
	payload, err := core.ParseInstallPayload(body)
	if err != nil {
		return h.fail(c, err)
	}

	collector := gocmd.NewResult[core.Credential]()
	ctx := gocmd.ContextWithResult(c.Request().Context(), collector)
	if err := h.install.Execute(ctx, addonscommand.InstallMessage{Payload: payload}); err != nil {
		return h.fail(c, err)
	}

	installationID := payload.InstallationID()
	if cred, ok := collector.Load(); ok {
		installationID = cred.InstallationID
	}
	return c.JSON(http.StatusOK, map[string]any{"installation_id": installationID})
}

func (h *Handler) Uninstall(c echo.Context) error {
	installationID := strings.TrimSpace(c.Param("installation_id"))
	if err := h.uninstall.Execute(c.Request().Context(), addonscommand.UninstallMessage{
		InstallationID: installationID,
	}); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *Handler) Event(c echo.Context) error {
	body, err := h.readBody(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.event.Execute(c.Request().Context(), addonscommand.EventMessage{Payload: body}); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *Handler) readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxBodyBytes+1))
	if err != nil {
		return nil, core.WrapBadInput(err, "web: read request body", nil)
	}
	if int64(len(body)) > h.maxBodyBytes {
		return nil, core.BadInput("web: request body exceeds limit", map[string]any{
			"limit_bytes": h.maxBodyBytes,
		})
	}
	return bytes.TrimSpace(body), nil
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := core.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithContext(contextOf(c)).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return c.JSON(status, errorBody(err))
}

func (h *Handler) route(path string) string {
	base := strings.TrimSuffix(strings.TrimSpace(h.paths.Base), "/")
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + "/" + strings.TrimPrefix(path, "/")
}

func contextOf(c echo.Context) context.Context {
	if c == nil || c.Request() == nil {
		return context.Background()
	}
	return c.Request().Context()
}

func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
