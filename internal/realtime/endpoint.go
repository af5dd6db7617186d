package realtime

import (
	"fmt"
	"net/url"
)

// EndpointURL derives the realtime endpoint from the REST base URL by
// protocol substitution (http→ws, https→wss) and appends the identity as the
// final path segment.
func EndpointURL(baseURL, identity string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q in base URL", u.Scheme)
	}
	return u.JoinPath(url.PathEscape(identity)).String(), nil
}
