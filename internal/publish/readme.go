// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// extractReadme opens tarball as a gzip-compressed tar and returns the
// UTF-8 text of the single entry at "{name}-{vers}/README.md", if
// present. A missing README is a normal state (found=false), not an
// error; so is a tarball that does not open as a gzip stream.
func extractReadme(tarball []byte, name, vers string) (text string, found bool, err error) {
	gz, err := gzip.NewReader(bytes.NewReader(tarball))
	if err != nil {
		return "", false, nil
	}
	defer gz.Close()

	want := fmt.Sprintf("%s-%s/README.md", name, vers)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return "", false, nil
		}
		if err != nil {
			return "", false, errors.Wrap(err, "reading tarball entries")
		}
		if hdr.Name != want {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return "", false, errors.Wrap(err, "reading README entry")
		}
		return string(body), true, nil
	}
}
