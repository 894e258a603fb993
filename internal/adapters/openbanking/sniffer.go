package openbanking

import (
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// Sniffer receives a copy of all bank API traffic. It must not modify what it is given.
type Sniffer interface {
	Request(method, url string, header http.Header, body []byte)
	Response(method, url string, status int, body []byte, elapsed time.Duration)
	Failure(method, url string, err error)
}

type noopSniffer struct{}

func (noopSniffer) Request(string, string, http.Header, []byte)         {}
func (noopSniffer) Response(string, string, int, []byte, time.Duration) {}
func (noopSniffer) Failure(string, string, error)                       {}

var (
	bearerPattern = regexp.MustCompile(`"access_token"\s*:\s*"[^"]*"`)
	maxSniffBody  = 4096
)

// LogSniffer writes bank API traffic to a logger at debug level.
// Credentials are masked: the Authorization header, form client_secret and issued access tokens.
type LogSniffer struct {
	logger ports.Logger
}

// NewLogSniffer creates a sniffer that logs through logger
func NewLogSniffer(logger ports.Logger) *LogSniffer {
	return &LogSniffer{logger: logger}
}

func (s *LogSniffer) Request(method, url string, header http.Header, body []byte) {
	s.logger.Debug("bank api request",
		ports.String("method", method),
		ports.String("url", url),
		ports.String("request_id", header.Get("X-Request-ID")),
		ports.Bool("authorized", header.Get("Authorization") != ""),
		ports.String("body", maskBody(header.Get("Content-Type"), body)),
	)
}

func (s *LogSniffer) Response(method, url string, status int, body []byte, elapsed time.Duration) {
	s.logger.Debug("bank api response",
		ports.String("method", method),
		ports.String("url", url),
		ports.Int("status", status),
		ports.Duration("elapsed", elapsed),
		ports.String("body", maskBody("application/json", body)),
	)
}

func (s *LogSniffer) Failure(method, url string, err error) {
	s.logger.Debug("bank api failure",
		ports.String("method", method),
		ports.String("url", url),
		ports.Err(err),
	)
}

func maskBody(contentType string, body []byte) string {
	if len(body) == 0 {
		return ""
	}

	text := string(body)
	if contentType == formContentType {
		if values, err := url.ParseQuery(text); err == nil {
			if values.Has("client_secret") {
				values.Set("client_secret", "***")
			}
			text = values.Encode()
		}
	}
	text = bearerPattern.ReplaceAllString(text, `"access_token":"***"`)

	if len(text) > maxSniffBody {
		text = text[:maxSniffBody] + "...(truncated)"
	}
	return text
}
