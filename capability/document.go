package capability

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/transport"
)

const defaultFetchTimeout = 10 * time.Second

type OAuth2Provider struct {
	AuthorizationURL string `json:"authorizationUrl"`
	TokenURL         string `json:"tokenUrl"`
}

type DocumentCapabilities struct {
	OAuth2Provider OAuth2Provider `json:"oauth2Provider"`
}

type DocumentLinks struct {
	API  string `json:"api"`
	Self string `json:"self"`
}

// Document is the platform capability document advertised at install time.
type Document struct {
	Capabilities DocumentCapabilities `json:"capabilities"`
	Links        DocumentLinks        `json:"links"`
}

func (d Document) Validate() error {
	missing := make([]string, 0, 2)
	if strings.TrimSpace(d.Capabilities.OAuth2Provider.TokenURL) == "" {
		missing = append(missing, "capabilities.oauth2Provider.tokenUrl")
	}
	if strings.TrimSpace(d.Links.API) == "" {
		missing = append(missing, "links.api")
	}
	if len(missing) > 0 {
		return core.BadInput("capability: document is missing "+strings.Join(missing, ", "), map[string]any{
			"missing": missing,
		})
	}
	return nil
}

type Fetcher struct {
	rest    *transport.RESTAdapter
	timeout time.Duration
}

func NewFetcher(httpClient transport.HTTPDoer, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	rest := transport.NewRESTAdapter(httpClient)
	rest.DefaultHeaders["Accept"] = "application/json"
	return &Fetcher{rest: rest, timeout: timeout}
}

// Fetch retrieves and validates the capability document. Every failure is
// reported as an installation setup failure.
func (f *Fetcher) Fetch(ctx context.Context, capabilitiesURL string) (Document, error) {
	capabilitiesURL = strings.TrimSpace(capabilitiesURL)
	metadata := map[string]any{"capabilities_url": capabilitiesURL}
	if f == nil || f.rest == nil {
		return Document{}, core.InstallationSetupFailed(nil, "capability: fetcher is not configured", metadata)
	}
	if capabilitiesURL == "" {
		return Document{}, core.InstallationSetupFailed(nil, "capability: capabilities url is required", metadata)
	}

	res, err := f.rest.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     capabilitiesURL,
		Timeout: f.timeout,
	})
	if err != nil {
		return Document{}, core.InstallationSetupFailed(err, "capability: fetch capability document", metadata)
	}
	if !res.IsSuccess() {
		metadata["status_code"] = res.StatusCode
		return Document{}, core.InstallationSetupFailed(nil, "capability: capability document request was rejected", metadata)
	}

	var doc Document
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		return Document{}, core.InstallationSetupFailed(err, "capability: decode capability document", metadata)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, core.InstallationSetupFailed(err, "capability: capability document is incomplete", metadata)
	}
	return doc, nil
}
