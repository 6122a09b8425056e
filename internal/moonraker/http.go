package moonraker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// maxResponseSize bounds the body read from a single request
const maxResponseSize = 1 << 20

// HTTPCaller calls Moonraker over its REST API
type HTTPCaller struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPCaller creates a caller for the API at endpoint. A nil client gets a fresh http.Client.
func NewHTTPCaller(endpoint string, client *http.Client) (*HTTPCaller, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPCaller{base: u, client: client}, nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

// Call implements Caller. printer.objects.query maps to GET /printer/objects/query and so on;
// methods that change state are sent as POST.
func (h *HTTPCaller) Call(ctx context.Context, method string, params Params, result any) error {
	verb := http.MethodGet
	if strings.HasSuffix(method, ".off") || strings.HasSuffix(method, ".on") {
		verb = http.MethodPost
	}

	u := *h.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.ReplaceAll(method, ".", "/")
	u.RawQuery = encodeQuery(params)

	req, err := http.NewRequestWithContext(ctx, verb, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%w: %d %s", ErrAPI, env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
	}
	return decodeResult(env.Result, result)
}

// Close implements Caller
func (h *HTTPCaller) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// encodeQuery renders params the way Moonraker expects, e.g. "heater_bed&extruder".
// An "objects" map is flattened into bare keys.
func encodeQuery(params Params) string {
	var parts []string
	for k, v := range params {
		if objects, ok := v.(map[string]any); ok && k == "objects" {
			for name := range objects {
				parts = append(parts, url.QueryEscape(name))
			}
			continue
		}
		if v == nil {
			parts = append(parts, url.QueryEscape(k))
			continue
		}
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(fmt.Sprint(v)))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

func decodeResult(raw json.RawMessage, result any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing result", ErrMalformed)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
