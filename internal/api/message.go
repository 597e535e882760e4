// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"io"
	"net/http"
)

// Message is a request/response type, used in api.Handler and
// api.CompatHandler.
type Message interface {
	Validate() error
}

// RequestBinder lets a request type pull data off the inbound HTTP
// request that a JSON body decode can't reach: path values, query
// parameters, headers. Implemented on *I; decodeRequest calls it, if
// present, after decoding the body.
type RequestBinder interface {
	BindRequest(r *http.Request) error
}

// RawBody lets a request type consume the request body itself instead of
// being JSON-decoded, for wire formats that aren't JSON (the publish
// upload frame). Implemented on *I; decodeRequest calls it, if present,
// instead of the default JSON decode.
type RawBody interface {
	DecodeBody(r io.Reader) error
}

// RawResponder lets a response type write itself directly to the
// http.ResponseWriter instead of being JSON-encoded, for binary payloads
// (crate tarball downloads). Implemented on *O; Handler and CompatHandler
// call it, if present, instead of the default JSON encode.
type RawResponder interface {
	WriteResponse(rw http.ResponseWriter) error
}
