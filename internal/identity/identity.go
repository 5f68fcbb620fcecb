// Package identity canonicalizes recipe URLs and derives stable
// content-addressed cache keys from them.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidURL is returned when the input is not a syntactically valid
// absolute http(s) URL.
var ErrInvalidURL = eris.New("identity: invalid url")

// Identity pairs a canonical URL with its derived cache key. The ID is a pure
// function of the canonical URL: equal canonical URLs always yield equal IDs,
// across runs and across machines.
type Identity struct {
	URL string // canonical form
	ID  string // hex SHA-256 of URL
}

// Derive canonicalizes a raw URL string and computes its identity key.
//
// Canonicalization collapses the variance that produces duplicate cache
// entries: surrounding whitespace, a missing scheme (http is assumed, matching
// how URLs are pasted from address bars), scheme and host case, query strings,
// fragments and trailing slashes.
func Derive(raw string) (Identity, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return Identity{}, err
	}
	sum := sha256.Sum256([]byte(canonical))
	return Identity{URL: canonical, ID: hex.EncodeToString(sum[:])}, nil
}

// Canonicalize returns the canonical form of a raw URL string, or
// ErrInvalidURL if it cannot represent an absolute http(s) URL.
func Canonicalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", eris.Wrap(ErrInvalidURL, "empty input")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidURL, "parse %q: %v", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", eris.Wrapf(ErrInvalidURL, "unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Host)
	if host == "" || !strings.ContainsAny(host, ".:") {
		return "", eris.Wrapf(ErrInvalidURL, "no host in %q", raw)
	}

	canonical := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   strings.TrimRight(u.Path, "/"),
	}
	return canonical.String(), nil
}
