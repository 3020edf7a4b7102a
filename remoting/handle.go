package remoting

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// ErrArgumentMismatch is returned by Handle.Invoke when the argument type and
// value lists differ in length.
var ErrArgumentMismatch = errors.New("remoting: argTypes and argValues differ in length")

// Handle holds the per-proxy state shared by every method of one bound
// service. It is read-only after Bind returns and safe for concurrent use.
type Handle struct {
	id        uuid.UUID
	target    *Target
	iface     string
	lookup    string
	header    http.Header
	cookies   []*http.Cookie
	aux       map[string]any
	transport Transport
	logger    *slog.Logger

	proxy   any
	methods map[string]*method
}

// ID returns the identity token generated for this proxy.
func (h *Handle) ID() uuid.UUID { return h.id }

// Target returns the interface-level target, {base}/{interface}.
func (h *Handle) Target() *Target { return h.target }

// Lookup returns the lookup identifier sent with every call.
func (h *Handle) Lookup() string { return h.lookup }

// Interface returns the interface simple name used as a path segment.
func (h *Handle) Interface() string { return h.iface }

// Proxy returns the bound service value.
func (h *Handle) Proxy() any { return h.proxy }

// String returns the string form of the bound target.
func (h *Handle) String() string { return h.target.String() }

// HashCode returns a hash of the identity token. It is stable for the
// lifetime of the proxy and differs between proxies with high probability.
func (h *Handle) HashCode() int32 {
	f := fnv.New32a()
	_, _ = f.Write(h.id[:])
	return int32(f.Sum32())
}

// Equals reports whether other is this proxy, either as the bound service
// value or as its Handle.
func (h *Handle) Equals(other any) bool {
	switch o := other.(type) {
	case nil:
		return false
	case *Handle:
		return o == h
	}
	return other == h.proxy
}

// Invoke performs a synchronous call of method with caller-supplied argument
// type names and decodes the response into out, which may be nil.
func (h *Handle) Invoke(ctx context.Context, method string, argTypes []string, argValues []any, out any) error {
	if len(argTypes) != len(argValues) {
		return fmt.Errorf("%w: %d types, %d values", ErrArgumentMismatch, len(argTypes), len(argValues))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ex, err := h.exchange(h.target.Path(method).URL(), method, argTypes, argValues, ShapeSynchronous)
	if err != nil {
		return err
	}
	return h.transport.Invoke(ctx, ex, out)
}

// exchange assembles one POST on fresh copies of the header and cookie snapshots.
func (h *Handle) exchange(url, method string, argTypes []string, argValues []any, shape ReturnShape) (*Exchange, error) {
	payload, err := newRequest(h.lookup, method, argTypes, argValues, h.aux)
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, len(h.cookies))
	for i, c := range h.cookies {
		cp := *c
		cookies[i] = &cp
	}
	return &Exchange{
		Method:  http.MethodPost,
		URL:     url,
		Header:  h.header.Clone(),
		Cookies: cookies,
		Payload: payload,
		Shape:   shape,
	}, nil
}
