// Package upstream holds the request plumbing shared by the third-party API
// clients.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
)

// maxErrorBody caps how much of a failed response is kept as error detail.
const maxErrorBody = 64 << 10

// NewJSONRequest builds a request with body marshalled as JSON.
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Unexpected("no se pudo serializar la solicitud", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, apperrors.Unexpected("no se pudo crear la solicitud", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req and returns the response when the status is 2xx; the caller
// must close its body. Any other status becomes a Downstream error carrying
// the status and body, and transport failures are classified so deadlines
// surface as Timeout.
func Do(client *http.Client, req *http.Request, service string) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.Classify(err, fmt.Sprintf("error al llamar a %s", service))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.Downstream(
			fmt.Sprintf("%s respondió con estado %d", service, resp.StatusCode),
			resp.StatusCode,
			string(body),
		)
	}
	return resp, nil
}

// DoJSON sends req and decodes a successful response into out.
func DoJSON(client *http.Client, req *http.Request, service string, out any) error {
	resp, err := Do(client, req, service)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Classify(err, fmt.Sprintf("respuesta inválida de %s", service))
	}
	return nil
}
