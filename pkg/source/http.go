package source

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vorpal-build/vorpal/pkg/archive"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// sniffLen is the number of leading bytes inspected to identify a
// compressed-archive format by magic bytes (spec.md §4.4's "MIME type …
// inferrable from magic bytes").
const sniffLen = 6

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	zipMagic   = []byte("PK\x03\x04")
)

// materializeHTTP fetches src.Path and either unpacks a recognized archive
// format into sandboxDir or stores the body as a single file named after
// the source, per spec.md §4.4.
func materializeHTTP(ctx context.Context, src artifact.ArtifactSource, sandboxDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Path, nil)
	if err != nil {
		return vorpalerr.New(vorpalerr.Network, "build request for %q: %v", src.Path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return vorpalerr.New(vorpalerr.Network, "fetch %q: %v", src.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return vorpalerr.New(vorpalerr.Network, "fetch %q: unexpected status %d", src.Path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return vorpalerr.New(vorpalerr.Network, "read body of %q: %v", src.Path, err)
	}

	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return archive.UnpackGzip(bytes.NewReader(body), sandboxDir)
	case bytes.HasPrefix(head, bzip2Magic):
		return archive.UnpackBzip2(bytes.NewReader(body), sandboxDir)
	case bytes.HasPrefix(head, xzMagic):
		return archive.UnpackXz(bytes.NewReader(body), sandboxDir)
	case bytes.HasPrefix(head, zipMagic):
		return unpackZipBody(body, sandboxDir)
	default:
		return storeSingleFile(src, body, sandboxDir)
	}
}

// unpackZipBody spills body to a temp file since archive.UnpackZip needs
// random access (zip's central directory sits at the end of the stream).
func unpackZipBody(body []byte, sandboxDir string) error {
	tmp, err := os.CreateTemp("", "vorpal-http-*.zip")
	if err != nil {
		return vorpalerr.New(vorpalerr.IO, "create temp zip: %v", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := tmp.Write(body); err != nil {
		return vorpalerr.New(vorpalerr.IO, "write temp zip: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return vorpalerr.New(vorpalerr.IO, "close temp zip: %v", err)
	}
	return archive.UnpackZip(tmp.Name(), sandboxDir)
}

func storeSingleFile(src artifact.ArtifactSource, body []byte, sandboxDir string) error {
	name := src.Name
	if name == "" {
		name = filepath.Base(src.Path)
	}
	dest := filepath.Join(sandboxDir, name)
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return vorpalerr.New(vorpalerr.IO, "write %q: %v", dest, err)
	}
	return nil
}
