// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Response is a decoded success envelope.
type Response[T any] struct {
	OK   bool `json:"ok"`
	Data T    `json:"data"`
}

type successEnvelope struct {
	OK   *bool           `json:"ok"`
	Data json.RawMessage `json:"data"`
}

// Request performs method on path and decodes the envelope's data into
// T. body, when non-nil, is sent as JSON.
//
// A 204, or a 2xx with an empty body, yields OK with the zero T. A 2xx
// whose body is not JSON fails with MessageUnexpectedResponse. A 2xx
// envelope with "ok": false is treated as the failure it reports.
func Request[T any](ctx context.Context, client *Client, method, path string, body any) (*Response[T], error) {
	raw, err := client.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	result := &Response[T]{OK: true}
	if raw.status == http.StatusNoContent || len(bytes.TrimSpace(raw.body)) == 0 {
		return result, nil
	}

	var envelope successEnvelope
	if err := json.Unmarshal(raw.body, &envelope); err != nil {
		return nil, &APIError{
			Message:    MessageUnexpectedResponse,
			StatusCode: raw.status,
			Err:        err,
		}
	}
	if envelope.OK != nil && !*envelope.OK {
		apiErr := errorFromBody(raw.status, raw.body)
		if apiErr.Message == strings.TrimSpace(string(raw.body)) {
			apiErr.Message = MessageRequestFailed
		}
		return nil, apiErr
	}

	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &result.Data); err != nil {
			return nil, fmt.Errorf("console: decoding %s %s response: %w", method, path, err)
		}
	}
	return result, nil
}

// get, send and do are the shapes the typed endpoint methods use.

func get[T any](ctx context.Context, client *Client, path string) (*T, error) {
	response, err := Request[T](ctx, client, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return &response.Data, nil
}

func send[T any](ctx context.Context, client *Client, method, path string, body any) (*T, error) {
	response, err := Request[T](ctx, client, method, path, body)
	if err != nil {
		return nil, err
	}
	return &response.Data, nil
}

// do performs a request whose response carries no data.
func do(ctx context.Context, client *Client, method, path string, body any) error {
	_, err := Request[json.RawMessage](ctx, client, method, path, body)
	return err
}
