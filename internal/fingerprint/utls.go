// Package fingerprint builds HTTP transports whose TLS ClientHello
// matches a real browser. Search engines fingerprint the handshake, so
// fetching their result pages with the stock Go TLS stack gets blocked
// quickly even with a browser User-Agent.
package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS fingerprint to present.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go" // stock Go TLS, no mimicry
)

// Transport returns a RoundTripper presenting the given fingerprint.
// ProfileGo returns a plain cloned http.Transport. The caller may set
// Proxy on the returned *http.Transport before use.
func Transport(p Profile) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p == ProfileGo {
		return transport, nil
	}

	var hello utls.ClientHelloID
	switch p {
	case ProfileChrome:
		hello = utls.HelloChrome_Auto
	case ProfileFirefox:
		hello = utls.HelloFirefox_Auto
	case ProfileSafari:
		hello = utls.HelloIOS_Auto
	default:
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		conn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, hello)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: handshake: %w", err)
		}
		return conn, nil
	}

	return transport, nil
}
