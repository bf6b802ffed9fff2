package capability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-chat-addons/core"
)

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "capabilities": {"oauth2Provider": {"authorizationUrl": "https://chat.test/users/authorize", "tokenUrl": "https://api.chat.test/v2/oauth/token"}},
		  "links": {"api": "https://api.chat.test/v2", "self": "https://api.chat.test/v2/capabilities"}
		}`))
	}))
	defer server.Close()

	doc, err := NewFetcher(server.Client(), 0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc.Capabilities.OAuth2Provider.TokenURL != "https://api.chat.test/v2/oauth/token" {
		t.Fatalf("unexpected token url %q", doc.Capabilities.OAuth2Provider.TokenURL)
	}
	if doc.Links.API != "https://api.chat.test/v2" {
		t.Fatalf("unexpected api link %q", doc.Links.API)
	}
}

func TestFetcher_FailuresAreInstallationSetupFailed(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		},
		"incomplete": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"capabilities":{"oauth2Provider":{}},"links":{}}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			_, err := NewFetcher(server.Client(), 0).Fetch(context.Background(), server.URL)
			if !core.HasTextCode(err, core.ErrorInstallationSetupFailed) {
				t.Fatalf("expected installation setup failure, got %v", err)
			}
		})
	}

	_, err := NewFetcher(nil, 0).Fetch(context.Background(), " ")
	if !core.HasTextCode(err, core.ErrorInstallationSetupFailed) {
		t.Fatalf("expected installation setup failure for empty url, got %v", err)
	}
}

func TestBuildDescriptor(t *testing.T) {
	input := InputFromConfig(core.DescriptorConfig{
		Key:           "com.example.echo",
		Name:          "Echo",
		MessageFilter: "^/echo",
		DisableGlobal: true,
	}, nil)
	input.BaseURL = "https://addon.test/"
	input.CapabilitiesURL = "https://addon.test/capabilities"
	input.WebhookURL = "https://addon.test/event"
	input.InstalledURL = "https://addon.test/installed"

	descriptor, err := BuildDescriptor(input)
	if err != nil {
		t.Fatalf("build descriptor: %v", err)
	}
	if descriptor.Description != "Echo" || descriptor.Vendor.Name != "Echo" || descriptor.Capabilities.HipchatAPIConsumer.FromName != "Echo" {
		t.Fatalf("expected name fallbacks, got %+v", descriptor)
	}
	if descriptor.Vendor.URL != "https://addon.test/" || descriptor.Links.Homepage != "https://addon.test/" {
		t.Fatalf("expected base url fallbacks, got %+v", descriptor)
	}
	if descriptor.Links.Self != "https://addon.test/capabilities" {
		t.Fatalf("unexpected self link %q", descriptor.Links.Self)
	}
	installable := descriptor.Capabilities.Installable
	if installable.AllowGlobal || !installable.AllowRoom || installable.CallbackURL != "https://addon.test/installed" {
		t.Fatalf("unexpected installable %+v", installable)
	}
	webhooks := descriptor.Capabilities.Webhook
	if len(webhooks) != 5 {
		t.Fatalf("expected 5 webhooks, got %d", len(webhooks))
	}
	last := webhooks[len(webhooks)-1]
	if last.Event != "room_message" || last.Pattern != "^/echo" || last.URL != "https://addon.test/event" {
		t.Fatalf("unexpected message webhook %+v", last)
	}
	if len(descriptor.Capabilities.HipchatAPIConsumer.Scopes) != len(core.DefaultScopes) {
		t.Fatalf("expected default scopes, got %v", descriptor.Capabilities.HipchatAPIConsumer.Scopes)
	}
}

func TestBuildDescriptor_RequiresParameters(t *testing.T) {
	_, err := BuildDescriptor(DescriptorInput{Name: "Echo"})
	if !core.HasTextCode(err, core.ErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}
