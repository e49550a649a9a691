// Package proxy builds the HTTP client used for every outbound API call.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	log "log/slog"

	"golang.org/x/net/proxy"
)

const Timeout = 120 * time.Second

// NewSocksClient routes requests through a SOCKS5 proxy. An empty address
// gives a direct client.
func NewSocksClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		log.Debug("No proxy, dialing direct")
		return &http.Client{Timeout: Timeout}, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", socksAddr, err)
	}

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		dial = cd.DialContext
	}

	transport := &http.Transport{
		DialContext:         dial,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   Timeout,
	}, nil
}
