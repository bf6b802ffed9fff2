package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/transport"
)

const jsonContentType = "application/json; charset=UTF-8"

// Call issues an authenticated request against a path relative to the API
// base. Query values replace same-named parameters embedded in path, and
// auth_token is always set last. A JSON response is decoded into out; other
// or empty responses leave out untouched.
func (c *Client) Call(ctx context.Context, method string, path string, query url.Values, body any, out any) (err error) {
	startedAt := time.Now()
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	fields := map[string]any{
		"installation_id": c.cred.InstallationID,
		"method":          method,
	}
	defer func() {
		c.observer.Observe(ctx, startedAt, "client.call", err, fields)
	}()

	target, err := c.resolve(path)
	if err != nil {
		return err
	}
	fields["path"] = target.Path

	var payload []byte
	var headers map[string]string
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return core.WrapBadInput(err, "client: encode request body", map[string]any{"path": target.Path})
		}
		headers = map[string]string{"Content-Type": jsonContentType}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	values := transport.MergeQuery(query, nil)
	values.Set("auth_token", token)

	res, err := c.rest.Do(ctx, transport.Request{
		Method:  method,
		URL:     target.String(),
		Query:   values,
		Headers: headers,
		Body:    payload,
		Timeout: c.timeout,
	})
	if err != nil {
		return err
	}
	fields["status_code"] = res.StatusCode
	if !res.IsSuccess() {
		return core.APICallFailed(nil, "client: platform api returned "+http.StatusText(res.StatusCode), map[string]any{
			"installation_id": c.cred.InstallationID,
			"method":          method,
			"path":            target.Path,
			"status_code":     res.StatusCode,
			"body":            string(res.Body),
		})
	}

	if out == nil || len(strings.TrimSpace(string(res.Body))) == 0 || !isJSON(res.Headers.Get("Content-Type")) {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return core.APICallFailed(err, "client: decode response body", map[string]any{
			"installation_id": c.cred.InstallationID,
			"path":            target.Path,
			"status_code":     res.StatusCode,
		})
	}
	return nil
}

func (c *Client) resolve(path string) (*url.URL, error) {
	relative, err := url.Parse(strings.TrimLeft(strings.TrimSpace(path), "/"))
	if err != nil {
		return nil, core.WrapBadInput(err, "client: invalid api path", map[string]any{"path": path})
	}
	if relative.IsAbs() || relative.Host != "" {
		return nil, core.BadInput("client: api path must be relative to the api base", map[string]any{"path": relative.Path})
	}
	return c.baseURL.ResolveReference(relative), nil
}

func isJSON(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
