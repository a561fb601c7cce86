// Package digest provides the content digest type used as the identity of
// every archive, artifact config, and source tree in the store.
//
// Adapted from distribution/digest: the algorithm-prefixed string type and
// its parse/validate routines survive, narrowed to the single SHA-256
// algorithm spec.md fixes (the teacher's pluggable-algorithm and tarsum
// support are dropped; nothing in this system ever disagrees on algorithm).
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Algorithm is always "sha256" in this system.
const Algorithm = "sha256"

var (
	// ErrDigestInvalidFormat is returned when a digest string is not of the
	// form "sha256:<64 hex chars>".
	ErrDigestInvalidFormat = errors.New("digest: invalid format")

	// ErrDigestUnsupported is returned when a digest string names an
	// algorithm other than sha256.
	ErrDigestUnsupported = errors.New("digest: unsupported algorithm")
)

var hexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Digest is an opaque, algorithm-prefixed content identity, e.g.
//
//	sha256:7173b809ca12ec5dee4506cd86be934c4596dd234ee82c0662eac04a8c2c71dc
type Digest string

// FromBytes computes the digest of b.
func FromBytes(b []byte) Digest {
	sum := sha256.Sum256(b)
	return Digest(fmt.Sprintf("%s:%s", Algorithm, hex.EncodeToString(sum[:])))
}

// FromReader computes the digest of the entirety of r.
func FromReader(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return NewDigest(h), nil
}

// NewDigest constructs a Digest from a hash.Hash that has already consumed
// its input.
func NewDigest(h hash.Hash) Digest {
	return Digest(fmt.Sprintf("%s:%s", Algorithm, hex.EncodeToString(h.Sum(nil))))
}

// FromDigests digests the concatenation of the hex portion of each digest in
// sorted order. Used to combine per-file digests into a single source or
// tree digest (spec.md §4.4 step 3).
func FromDigests(digests []Digest) Digest {
	sorted := make([]string, len(digests))
	for i, d := range digests {
		sorted[i] = d.Hex()
	}
	sort.Strings(sorted)
	return FromBytes([]byte(strings.Join(sorted, "")))
}

// Parse validates s and returns it as a Digest.
func Parse(s string) (Digest, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", ErrDigestInvalidFormat
	}
	algorithm, hexPart := s[:i], s[i+1:]
	if algorithm != Algorithm {
		return "", ErrDigestUnsupported
	}
	if !hexPattern.MatchString(hexPart) {
		return "", ErrDigestInvalidFormat
	}
	return Digest(s), nil
}

// Validate reports whether d is well-formed.
func (d Digest) Validate() error {
	_, err := Parse(string(d))
	return err
}

// Algorithm returns the algorithm component, always "sha256" for a valid
// Digest.
func (d Digest) Algorithm() string {
	i := strings.IndexByte(string(d), ':')
	if i < 0 {
		return ""
	}
	return string(d)[:i]
}

// Hex returns the hex-encoded hash component.
func (d Digest) Hex() string {
	i := strings.IndexByte(string(d), ':')
	if i < 0 {
		return string(d)
	}
	return string(d)[i+1:]
}

// String returns the canonical "algorithm:hex" form.
func (d Digest) String() string {
	return string(d)
}
