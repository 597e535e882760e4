// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc/codes"
)

type fooRequest struct {
	Foo string `json:"foo"`
}

func (r fooRequest) Validate() error {
	if r.Foo == "" {
		return errors.New("foo is required")
	}
	return nil
}

type fooResponse struct {
	Bar string `json:"bar"`
}

func TestNoDepsInit(t *testing.T) {
	deps, err := NoDepsInit(context.Background())
	if err != nil {
		t.Fatalf("NoDepsInit() returned an error: %v", err)
	}
	if deps == nil {
		t.Fatal("NoDepsInit() returned nil deps")
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		handlerErr   error
		wantStatus   int
		wantBody     map[string]any
		wantHandled  bool
		wantFooValue string
	}{
		{
			name:         "success",
			body:         `{"foo":"foo"}`,
			wantStatus:   http.StatusOK,
			wantBody:     map[string]any{"bar": "Bar"},
			wantHandled:  true,
			wantFooValue: "foo",
		},
		{
			name:       "missing required field fails validation",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"errors": []any{map[string]any{"detail": "foo is required"}}},
		},
		{
			name:       "malformed json",
			body:       `{"foo":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "handler error maps through grpcToHTTP",
			body:       `{"foo":"foo"}`,
			handlerErr: AsStatus(codes.NotFound, errors.New("crate not found")),
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]any{"errors": []any{map[string]any{"detail": "crate not found"}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotFoo string
			handler := func(ctx context.Context, req fooRequest, _ *NoDeps) (*fooResponse, error) {
				gotFoo = req.Foo
				if tc.handlerErr != nil {
					return nil, tc.handlerErr
				}
				return &fooResponse{Bar: "Bar"}, nil
			}
			srv := httptest.NewServer(Handler(NoDepsInit, handler))
			defer srv.Close()
			resp, err := http.Post(srv.URL, "application/json", bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if tc.wantHandled && gotFoo != tc.wantFooValue {
				t.Errorf("handler saw Foo = %q, want %q", gotFoo, tc.wantFooValue)
			}
			if tc.wantBody != nil {
				var got map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
					t.Fatalf("decoding response: %v", err)
				}
				if diff := cmp.Diff(tc.wantBody, got); diff != "" {
					t.Errorf("response body mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestCompatHandler(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		wantBody   map[string]any
	}{
		{
			name:     "success",
			wantBody: map[string]any{},
		},
		{
			name:       "error still answers HTTP 200",
			handlerErr: AsStatus(codes.AlreadyExists, errors.New("version too low")),
			wantBody:   map[string]any{"errors": []any{map[string]any{"detail": "version too low"}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(ctx context.Context, req fooRequest, _ *NoDeps) (*NoReturn, error) {
				if tc.handlerErr != nil {
					return nil, tc.handlerErr
				}
				return nil, nil
			}
			srv := httptest.NewServer(CompatHandler(NoDepsInit, handler))
			defer srv.Close()
			resp, err := http.Post(srv.URL, "application/json", bytes.NewBufferString(`{"foo":"foo"}`))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200 (compatibility contract)", resp.StatusCode)
			}
			var got map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if diff := cmp.Diff(tc.wantBody, got); diff != "" {
				t.Errorf("response body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAsStatus(t *testing.T) {
	err := AsStatus(codes.PermissionDenied, errors.New("not an owner"))
	status, msg := httpStatusFor(err)
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want %d", status, http.StatusForbidden)
	}
	if msg.Error() != "not an owner" {
		t.Errorf("msg = %q, want %q", msg.Error(), "not an owner")
	}
}
