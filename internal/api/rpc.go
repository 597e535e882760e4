// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Dependencies is the set of collaborators a handler needs to do its work
// (store handles, the index engine, the search engine, and so on).
type Dependencies any

type InitT[D Dependencies] func(context.Context) (D, error)
type HandlerT[I Message, O any, D Dependencies] func(context.Context, I, D) (*O, error)

type NoDeps struct{}

func NoDepsInit(context.Context) (*NoDeps, error) { return &NoDeps{}, nil }

// NoReturn marks an operation that only reports success or failure.
type NoReturn struct{}

// AsStatus attaches a gRPC status code to err so Handler can recover it and
// map it onto the matching HTTP status.
func AsStatus(code codes.Code, err error) error {
	return status.New(code, err.Error()).Err()
}

var grpcToHTTP = map[codes.Code]int{
	codes.OK:                 http.StatusOK,
	codes.Canceled:           499, // Client Closed Request
	codes.Unknown:            http.StatusInternalServerError,
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.FailedPrecondition: http.StatusBadRequest,
	codes.Aborted:            http.StatusConflict,
	codes.OutOfRange:         http.StatusBadRequest,
	codes.Unimplemented:      http.StatusNotImplemented,
	codes.Internal:           http.StatusInternalServerError,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.DataLoss:           http.StatusInternalServerError,
	codes.Unauthenticated:    http.StatusUnauthorized,
}

// errorEnvelope is the registry protocol's compatibility error body:
// {"errors":[{"detail": msg}]}.
type errorEnvelope struct {
	Errors []errorDetail `json:"errors"`
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func writeErrorEnvelope(rw http.ResponseWriter, httpStatus int, err error) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(httpStatus)
	json.NewEncoder(rw).Encode(errorEnvelope{Errors: []errorDetail{{Detail: err.Error()}}})
}

// maxRawBodyBytes bounds the raw-body decode path (publish uploads); the
// configured per-deployment max upload size is enforced later, once
// dependencies carrying that config are available.
const maxRawBodyBytes = 64 << 20

func decodeRequest[I Message](r *http.Request) (I, error) {
	var req I
	if rb, ok := any(&req).(RawBody); ok {
		if err := rb.DecodeBody(io.LimitReader(r.Body, maxRawBodyBytes+1)); err != nil {
			return req, errors.Wrap(err, "decoding request body")
		}
	} else if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			return req, errors.Wrap(err, "decoding request")
		}
	}
	if rb, ok := any(&req).(RequestBinder); ok {
		if err := rb.BindRequest(r); err != nil {
			return req, errors.Wrap(err, "binding request")
		}
	}
	return req, nil
}

func httpStatusFor(err error) (int, error) {
	s := status.Convert(err)
	httpStatus, ok := grpcToHTTP[s.Code()]
	if !ok {
		log.Printf("unknown error code: %s\n", s.Code())
		httpStatus = http.StatusInternalServerError
	}
	return httpStatus, errors.New(s.Message())
}

// Handler wires a domain operation into an http.HandlerFunc: it decodes a
// JSON request body, validates it, initializes D, invokes the handler, and
// maps the returned error onto the matching HTTP status using grpcToHTTP.
func Handler[I Message, O any, D Dependencies](initDeps InitT[D], handler HandlerT[I, O, D]) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := decodeRequest[I](r)
		if err != nil {
			log.Println(err)
			writeErrorEnvelope(rw, http.StatusBadRequest, err)
			return
		}
		if err := req.Validate(); err != nil {
			log.Println(errors.Wrap(err, "validating request"))
			writeErrorEnvelope(rw, http.StatusBadRequest, err)
			return
		}
		deps, err := initDeps(ctx)
		if err != nil {
			log.Println(errors.Wrap(err, "initializing dependencies"))
			writeErrorEnvelope(rw, http.StatusInternalServerError, err)
			return
		}
		o, err := handler(ctx, req, deps)
		if err != nil {
			httpStatus, msg := httpStatusFor(err)
			log.Println(err)
			writeErrorEnvelope(rw, httpStatus, msg)
			return
		}
		if rr, ok := any(o).(RawResponder); ok {
			if err := rr.WriteResponse(rw); err != nil {
				log.Println(errors.Wrap(err, "writing raw response"))
			}
			return
		}
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		if o == nil {
			rw.Write([]byte("{}"))
			return
		}
		if err := json.NewEncoder(rw).Encode(o); err != nil {
			log.Println(errors.Wrap(err, "encoding response"))
		}
	}
}

// CompatHandler behaves like Handler but always answers with HTTP 200, even
// on failure, rendering the error as the compatibility envelope instead. This
// matches the publish endpoint's contract with older client tooling that does
// not inspect the status line.
func CompatHandler[I Message, O any, D Dependencies](initDeps InitT[D], handler HandlerT[I, O, D]) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := decodeRequest[I](r)
		if err != nil {
			log.Println(err)
			writeErrorEnvelope(rw, http.StatusOK, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeErrorEnvelope(rw, http.StatusOK, err)
			return
		}
		deps, err := initDeps(ctx)
		if err != nil {
			log.Println(errors.Wrap(err, "initializing dependencies"))
			writeErrorEnvelope(rw, http.StatusOK, err)
			return
		}
		o, err := handler(ctx, req, deps)
		if err != nil {
			_, msg := httpStatusFor(err)
			log.Println(err)
			writeErrorEnvelope(rw, http.StatusOK, msg)
			return
		}
		if rr, ok := any(o).(RawResponder); ok {
			rw.WriteHeader(http.StatusOK)
			if err := rr.WriteResponse(rw); err != nil {
				log.Println(errors.Wrap(err, "writing raw response"))
			}
			return
		}
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		rw.WriteHeader(http.StatusOK)
		if o == nil {
			rw.Write([]byte("{}"))
			return
		}
		if err := json.NewEncoder(rw).Encode(o); err != nil {
			log.Println(errors.Wrap(err, "encoding response"))
		}
	}
}
