package remoting

import (
	"fmt"
	"net/url"
)

// Target is an immutable endpoint reference: a base URL plus path segments.
type Target struct {
	u *url.URL
}

// NewTarget parses rawURL as the base of a target. Only http and https are accepted.
func NewTarget(rawURL string) (*Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("target %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("target %q: missing host", rawURL)
	}
	return &Target{u: u}, nil
}

// Path returns a new target with segment appended to the path. The receiver is unchanged.
func (t *Target) Path(segment string) *Target {
	return &Target{u: t.u.JoinPath(segment)}
}

// URL returns the absolute URL of the target.
func (t *Target) URL() string {
	return t.u.String()
}

func (t *Target) String() string {
	return t.u.String()
}
