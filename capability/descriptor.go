package capability

import (
	"strings"

	"github.com/goliatone/go-chat-addons/core"
)

// WebhookEvents are subscribed for every add-on; room_message is appended
// separately because it may carry a pattern.
var WebhookEvents = []string{"room_notification", "room_topic_change", "room_enter", "room_exit"}

type DescriptorInput struct {
	Key           string
	Name          string
	Description   string
	VendorName    string
	VendorURL     string
	HomepageURL   string
	SenderName    string
	MessageFilter string
	AllowGlobal   bool
	AllowRoom     bool
	Scopes        []string

	BaseURL         string
	CapabilitiesURL string
	WebhookURL      string
	InstalledURL    string
}

// InputFromConfig maps configuration onto a descriptor input. The URL fields
// are left for the caller, which knows where it is served.
func InputFromConfig(cfg core.DescriptorConfig, scopes []string) DescriptorInput {
	return DescriptorInput{
		Key:           cfg.Key,
		Name:          cfg.Name,
		Description:   cfg.Description,
		VendorName:    cfg.VendorName,
		VendorURL:     cfg.VendorURL,
		HomepageURL:   cfg.HomepageURL,
		SenderName:    cfg.SenderName,
		MessageFilter: cfg.MessageFilter,
		AllowGlobal:   !cfg.DisableGlobal,
		AllowRoom:     !cfg.DisableRoom,
		Scopes:        append([]string(nil), scopes...),
	}
}

type Vendor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Links struct {
	Self     string `json:"self"`
	Homepage string `json:"homepage"`
}

type Webhook struct {
	Name    string `json:"name"`
	Event   string `json:"event"`
	URL     string `json:"url"`
	Pattern string `json:"pattern,omitempty"`
}

type APIConsumer struct {
	Scopes   []string `json:"scopes"`
	FromName string   `json:"fromName"`
}

type Installable struct {
	AllowGlobal bool   `json:"allowGlobal"`
	AllowRoom   bool   `json:"allowRoom"`
	CallbackURL string `json:"callbackUrl"`
}

type Capabilities struct {
	Webhook            []Webhook   `json:"webhook"`
	HipchatAPIConsumer APIConsumer `json:"hipchatApiConsumer"`
	Installable        Installable `json:"installable"`
}

// Descriptor is the add-on capability descriptor served to the platform.
type Descriptor struct {
	Key          string       `json:"key"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Vendor       Vendor       `json:"vendor"`
	Links        Links        `json:"links"`
	Capabilities Capabilities `json:"capabilities"`
}

func BuildDescriptor(in DescriptorInput) (Descriptor, error) {
	required := []struct {
		name  string
		value string
	}{
		{"key", in.Key},
		{"name", in.Name},
		{"base_url", in.BaseURL},
		{"capabilities_url", in.CapabilitiesURL},
		{"webhook_url", in.WebhookURL},
		{"installed_url", in.InstalledURL},
	}
	missing := make([]string, 0, len(required))
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return Descriptor{}, core.BadInput("capability: descriptor parameters are required: "+strings.Join(missing, ", "), map[string]any{
			"missing": missing,
		})
	}

	name := strings.TrimSpace(in.Name)
	scopes := make([]string, 0, len(in.Scopes))
	for _, scope := range in.Scopes {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	if len(scopes) == 0 {
		scopes = append(scopes, core.DefaultScopes...)
	}

	webhookURL := strings.TrimSpace(in.WebhookURL)
	webhooks := make([]Webhook, 0, len(WebhookEvents)+1)
	for _, event := range WebhookEvents {
		webhooks = append(webhooks, Webhook{Name: event, Event: event, URL: webhookURL})
	}
	webhooks = append(webhooks, Webhook{
		Name:    "room_message",
		Event:   "room_message",
		URL:     webhookURL,
		Pattern: strings.TrimSpace(in.MessageFilter),
	})

	return Descriptor{
		Key:         strings.TrimSpace(in.Key),
		Name:        name,
		Description: firstNonEmpty(in.Description, name),
		Vendor: Vendor{
			Name: firstNonEmpty(in.VendorName, name),
			URL:  firstNonEmpty(in.VendorURL, in.BaseURL),
		},
		Links: Links{
			Self:     strings.TrimSpace(in.CapabilitiesURL),
			Homepage: firstNonEmpty(in.HomepageURL, in.BaseURL),
		},
		Capabilities: Capabilities{
			Webhook: webhooks,
			HipchatAPIConsumer: APIConsumer{
				Scopes:   scopes,
				FromName: firstNonEmpty(in.SenderName, name),
			},
			Installable: Installable{
				AllowGlobal: in.AllowGlobal,
				AllowRoom:   in.AllowRoom,
				CallbackURL: strings.TrimSpace(in.InstalledURL),
			},
		},
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
