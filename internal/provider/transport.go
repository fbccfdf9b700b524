package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"stockfeed/internal/httpx"
)

// WrapTransport converts a transport-level error from an outbound call into
// an UnavailableError with a stable reason string. Adapters route every
// network failure through here so the orchestrator sees one error shape.
func WrapTransport(providerName string, err error) error {
	var se *httpx.StatusError
	var de *httpx.DecodeError
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Unavailable(providerName, "timeout", err)
	case errors.As(err, &ne) && ne.Timeout():
		return Unavailable(providerName, "timeout", err)
	case errors.As(err, &de):
		return Unavailable(providerName, "parse error", err)
	case errors.As(err, &se):
		return Unavailable(providerName, fmt.Sprintf("http %d", se.Code), err)
	default:
		return Unavailable(providerName, "network error", err)
	}
}
