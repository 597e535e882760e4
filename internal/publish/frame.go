// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package publish implements the publication pipeline: parsing the
// upload frame, then authorizing the caller and checking ownership and
// version ordering within one relational transaction, and, once that
// transaction has committed, writing the blob/index/search side effects
// and committing the index.
package publish

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Frame is the parsed upload body: u32-LE length | metadata JSON | u32-LE
// length | tarball bytes.
type Frame struct {
	Meta    []byte
	Tarball []byte
}

// ParseFrame slices the two length-prefixed sections out of body. Any
// shortage (truncated prefix or truncated payload) is a hard error.
func ParseFrame(body []byte) (Frame, error) {
	meta, rest, err := readSection(body)
	if err != nil {
		return Frame{}, errors.Wrap(err, "parsing metadata section")
	}
	tarball, rest, err := readSection(rest)
	if err != nil {
		return Frame{}, errors.Wrap(err, "parsing tarball section")
	}
	if len(rest) != 0 {
		return Frame{}, errors.New("trailing bytes after tarball section")
	}
	return Frame{Meta: meta, Tarball: tarball}, nil
}

func readSection(body []byte) (section, rest []byte, err error) {
	if len(body) < 4 {
		return nil, nil, errors.New("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(body[:4])
	body = body[4:]
	if uint64(len(body)) < uint64(n) {
		return nil, nil, errors.New("truncated section body")
	}
	return body[:n], body[n:], nil
}
