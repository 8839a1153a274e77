package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultHTTPSPort = 8443
	DefaultHTTPPort  = 8080
)

// NefProxyConfig describes one appliance endpoint and how to talk to it.
type NefProxyConfig struct {
	Scheme   string `json:"scheme" yaml:"scheme" validate:"oneof=http https"`
	Host     string `json:"host" yaml:"host" validate:"required"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty" validate:"min=0,max=65535"`
	Username string `json:"username" yaml:"username" validate:"required"`
	Password string `json:"-" yaml:"password"`
	// Pool logical resource scope, only used for URL namespacing by callers
	Pool string `json:"pool,omitempty" yaml:"pool,omitempty"`
	// Verify TLS certificates of the appliance
	Verify         bool          `json:"verify" yaml:"verify"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" validate:"gte=0"`
	// PollInterval wait between hops when following a 202 continuation
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"gte=0"`
	// MaxPollHops bound on continuation hops before giving up
	MaxPollHops  int               `json:"max_poll_hops" yaml:"max_poll_hops" validate:"min=1"`
	ExtraHeaders dto.ExtraHeaders  `json:"extra_headers,omitempty" yaml:"extra_headers,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Transport    dto.TransportType `json:"transport" yaml:"transport" validate:"oneof=nef.transport.http nef.transport.resty"`
	relay        relayDTO.RelayInterface
	registerer   prometheus.Registerer
}

func DefaultNefProxyConfig() NefProxyConfig {
	return NefProxyConfig{
		Scheme:         "https",
		Verify:         true,
		RequestTimeout: 60 * time.Second,
		PollInterval:   1 * time.Second,
		MaxPollHops:    600,
		ExtraHeaders:   make(dto.ExtraHeaders),
		UserAgent:      "nefproxy",
		Transport:      dto.TransportHTTP,
	}
}

func (c *NefProxyConfig) WithScheme(scheme string) *NefProxyConfig {
	c.Scheme = strings.ToLower(strings.TrimSpace(scheme))
	return c
}

func (c *NefProxyConfig) WithHost(host string) *NefProxyConfig {
	c.Host = strings.TrimSpace(host)
	return c
}

func (c *NefProxyConfig) WithPort(port int) *NefProxyConfig {
	c.Port = port
	return c
}

func (c *NefProxyConfig) WithCredentials(username, password string) *NefProxyConfig {
	c.Username = username
	c.Password = password
	return c
}

func (c *NefProxyConfig) WithPool(pool string) *NefProxyConfig {
	c.Pool = pool
	return c
}

func (c *NefProxyConfig) WithVerify(verify bool) *NefProxyConfig {
	c.Verify = verify
	return c
}

func (c *NefProxyConfig) WithRequestTimeout(d time.Duration) *NefProxyConfig {
	c.RequestTimeout = d
	return c
}

func (c *NefProxyConfig) WithPollInterval(d time.Duration) *NefProxyConfig {
	c.PollInterval = d
	return c
}

func (c *NefProxyConfig) WithMaxPollHops(n int) *NefProxyConfig {
	c.MaxPollHops = n
	return c
}

func (c *NefProxyConfig) WithExtraHeaders(headers dto.ExtraHeaders) *NefProxyConfig {
	if c.ExtraHeaders == nil {
		c.ExtraHeaders = make(dto.ExtraHeaders, len(headers))
	}
	for k, v := range headers {
		c.ExtraHeaders[k] = v
	}
	return c
}

func (c *NefProxyConfig) WithUserAgent(ua string) *NefProxyConfig {
	c.UserAgent = ua
	return c
}

func (c *NefProxyConfig) WithTransport(t dto.TransportType) *NefProxyConfig {
	c.Transport = t
	return c
}

func (c *NefProxyConfig) WithRelay(relay relayDTO.RelayInterface) *NefProxyConfig {
	c.relay = relay
	return c
}

// WithMetricsRegisterer registers the proxy collectors on reg when the proxy is built.
func (c *NefProxyConfig) WithMetricsRegisterer(reg prometheus.Registerer) *NefProxyConfig {
	c.registerer = reg
	return c
}

// Relay never returns nil.
func (c *NefProxyConfig) Relay() relayDTO.RelayInterface {
	if c.relay == nil {
		return relays.NoopRelay{}
	}
	return c.relay
}

func (c *NefProxyConfig) MetricsRegisterer() prometheus.Registerer {
	return c.registerer
}

// EffectivePort falls back to the appliance defaults when Port is unset.
func (c *NefProxyConfig) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Scheme == "http" {
		return DefaultHTTPPort
	}
	return DefaultHTTPSPort
}

func (c *NefProxyConfig) BaseURL() string {
	u := url.URL{
		Scheme: c.Scheme,
		Host:   c.Host + ":" + strconv.Itoa(c.EffectivePort()),
	}
	return u.String()
}

// PoolPath namespaces a relative path under the configured pool.
func (c *NefProxyConfig) PoolPath(elem ...string) string {
	parts := append([]string{"storage", "pools", url.PathEscape(c.Pool)}, elem...)
	return path.Join(parts...)
}

// Clone returns a copy that does not share the header map.
func (c *NefProxyConfig) Clone() NefProxyConfig {
	cp := *c
	cp.ExtraHeaders = make(dto.ExtraHeaders, len(c.ExtraHeaders))
	for k, v := range c.ExtraHeaders {
		cp.ExtraHeaders[k] = v
	}
	return cp
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]string{
	"Scheme":         "scheme must be http or https",
	"Host":           "host must be set",
	"Port":           "port must be between 0 and 65535",
	"Username":       "username must be set",
	"RequestTimeout": "requestTimeout must be non-negative",
	"PollInterval":   "pollInterval must be non-negative",
	"MaxPollHops":    "maxPollHops must be at least 1",
	"Transport":      "unknown transport",
}

// Validate returns the first configuration problem, in field order.
func (c *NefProxyConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := verrs[0]
	msg, ok := fieldMessages[fe.StructField()]
	if !ok {
		msg = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
	if fe.Tag() == "required" {
		return errors.New(msg)
	}
	return fmt.Errorf("%s, got %v", msg, fe.Value())
}
