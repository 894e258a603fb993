package http

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// HTTPClientConfig holds HTTP client configuration
type HTTPClientConfig struct {
	// Connection pooling
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	// Timeouts
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration

	KeepAlive          time.Duration
	DisableCompression bool

	// TLS
	MinTLSVersion     uint16
	ClientCertificate *tls.Certificate // mutual TLS, nil for none
}

// OpenBankingClientConfig returns config for the bank API.
// Two hosts (auth and api); polling keeps a handful of connections busy per flow.
func OpenBankingClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxIdleConns:        40,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     64,
		IdleConnTimeout:     90 * time.Second,

		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		KeepAlive:          60 * time.Second,
		DisableCompression: false,

		MinTLSVersion: tls.VersionTLS12,
	}
}

// NotificationClientConfig returns config for webhook pushes to the UI relay
func NotificationClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     30 * time.Second,

		DialTimeout:           5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		KeepAlive: 30 * time.Second,

		MinTLSVersion: tls.VersionTLS12,
	}
}

// WithClientCertificate returns a copy of cfg that presents cert during the TLS handshake
func (cfg HTTPClientConfig) WithClientCertificate(cert *tls.Certificate) *HTTPClientConfig {
	cfg.ClientCertificate = cert
	return &cfg
}

// NewHTTPClient creates an HTTP client with the given configuration
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	tlsConfig := &tls.Config{
		MinVersion: cfg.MinTLSVersion,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		},
	}
	if cfg.ClientCertificate != nil {
		tlsConfig.Certificates = []tls.Certificate{*cfg.ClientCertificate}
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: cfg.ExpectContinueTimeout,

		DisableCompression: cfg.DisableCompression,
		TLSClientConfig:    tlsConfig,
		ForceAttemptHTTP2:  true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// LoadPKCS12Certificate decodes a base64 encoded PFX/PKCS#12 bundle into a TLS client certificate.
// Whitespace in the encoded text is ignored.
func LoadPKCS12Certificate(base64PFX, password string) (*tls.Certificate, error) {
	cleaned := strings.Join(strings.Fields(base64PFX), "")
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode certificate base64: %w", err)
	}

	blocks, err := pkcs12.ToPEM(raw, password)
	if err != nil {
		return nil, fmt.Errorf("decode PKCS#12 certificate: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return nil, fmt.Errorf("build client certificate: %w", err)
	}
	return &cert, nil
}
