package util

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/flistgo/flistapi/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy configures the provided HTTP client with proxy settings from the configuration.
// It supports SOCKS5, HTTP, and HTTPS proxies. An empty or unparseable proxy URL leaves the
// client untouched.
func SetProxy(cfg *config.Config, httpClient *http.Client) *http.Client {
	if cfg == nil || cfg.ProxyURL == "" {
		return httpClient
	}
	proxyURL, errParse := url.Parse(cfg.ProxyURL)
	if errParse != nil {
		log.Errorf("parse proxy url failed: %v", errParse)
		return httpClient
	}

	var transport *http.Transport
	switch proxyURL.Scheme {
	case "socks5", "socks5h":
		var proxyAuth *proxy.Auth
		if proxyURL.User != nil {
			password, _ := proxyURL.User.Password()
			proxyAuth = &proxy.Auth{User: proxyURL.User.Username(), Password: password}
		}
		dialer, errSOCKS5 := proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return httpClient
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			},
		}
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	default:
		log.Warnf("unsupported proxy scheme %q, connecting directly", proxyURL.Scheme)
	}

	if transport != nil {
		httpClient.Transport = transport
	}
	return httpClient
}
