package preview

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrBlockedTarget is returned for URLs that point at private networks.
var ErrBlockedTarget = errors.New("preview target not allowed")

var metadataIP = net.ParseIP("169.254.169.254")

func isPrivateOrReservedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsMulticast() ||
		ip.Equal(metadataIP)
}

// validateURL checks scheme and host. Address checks happen at dial time so
// redirects and DNS answers are covered too.
func validateURL(raw string, allowPrivate bool) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, errors.New("URL must have a hostname")
	}
	if !allowPrivate && (host == "localhost" || strings.HasSuffix(host, ".localhost")) {
		return nil, ErrBlockedTarget
	}
	return parsed, nil
}

// dialControl rejects connections to private or reserved addresses.
func dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if isPrivateOrReservedIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s", ErrBlockedTarget, host)
	}
	return nil
}
