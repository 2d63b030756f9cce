package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
)

// APIResponse is a response from the probe server that can be printed.
type APIResponse interface {
	Print() error
	Err() error
}

var _ APIResponse = &TypedAPIResponse[struct{}]{}

type TypedAPIResponse[TBody any] struct {
	StatusCode int   `json:"statusCode"`
	Body       TBody `json:"body"`
	Error      error `json:"error"`
	raw        []byte
}

// NewTypedAPIResponse decodes JSON bodies into TBody. Non-2xx JSON
// responses are decoded as well; the server reports DOWN as 503 with a
// regular body. Plain text bodies are turned into errors.
func NewTypedAPIResponse[TBody any](resp *http.Response, err error) *TypedAPIResponse[TBody] {
	apiRes := TypedAPIResponse[TBody]{Error: err}
	if resp == nil {
		return &apiRes
	}
	defer resp.Body.Close()

	apiRes.StatusCode = resp.StatusCode

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		apiRes.Error = errors.Wrap(err, "failed to read body")
		return &apiRes
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch contentType {
	case "application/json":
		if err := json.Unmarshal(out, &apiRes.Body); err != nil {
			apiRes.Error = errors.Wrap(err, "failed to parse body as JSON")
			return &apiRes
		}
		apiRes.raw = out
	case "text/plain":
		apiRes.Error = errors.New(strings.TrimSpace(string(out)))
	default:
		apiRes.Error = fmt.Errorf("unknown content type %q (status %d)", contentType, resp.StatusCode)
	}

	return &apiRes
}

func (resp *TypedAPIResponse[TBody]) Err() error {
	return resp.Error
}

// Print writes the response body as colored, indented JSON.
func (resp *TypedAPIResponse[TBody]) Print() error {
	if resp.Error != nil {
		return resp.Error
	}

	body := resp.raw
	if body == nil {
		var err error
		if body, err = json.Marshal(resp.Body); err != nil {
			return errors.Wrap(err, "failed to marshal body as JSON")
		}
	}

	fmt.Print(string(pretty.Color(pretty.Pretty(body), nil)))
	return nil
}
