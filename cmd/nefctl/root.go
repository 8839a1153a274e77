package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/joy-dx/nefproxy"
	"github.com/joy-dx/nefproxy/client/httpclient"
	"github.com/joy-dx/nefproxy/config"
	"github.com/joy-dx/nefproxy/dto"
	"github.com/joy-dx/nefproxy/relays"
	"github.com/spf13/cobra"
)

const envPrefix = "NEF_"

type rootOptions struct {
	configFile   string
	envFile      string
	scheme       string
	host         string
	port         int
	username     string
	password     string
	pool         string
	insecure     bool
	timeout      time.Duration
	pollInterval time.Duration
	maxPollHops  int
	transport    string
	headers      dto.ExtraHeaders
	output       string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{headers: make(dto.ExtraHeaders)}

	cmd := &cobra.Command{
		Use:   "nefctl",
		Short: "Call the NexentaStor management API through nefproxy",
		Long: `nefctl issues authenticated requests against a NexentaStor appliance and
prints the "data" payload of the terminal response. Accepted (202) operations
are followed until they complete.

Connection settings come from, in increasing precedence: --config YAML file,
NEF_* environment variables (also read from --env-file) and flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "YAML config file")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with NEF_* variables")
	f.StringVar(&opts.scheme, "scheme", "https", "http or https (NEF_SCHEME)")
	f.StringVar(&opts.host, "host", "", "appliance host (NEF_HOST)")
	f.IntVar(&opts.port, "port", 0, "appliance port, 0 for the scheme default (NEF_PORT)")
	f.StringVar(&opts.username, "username", "", "user name (NEF_USERNAME)")
	f.StringVar(&opts.password, "password", "", "password (NEF_PASSWORD)")
	f.StringVar(&opts.pool, "pool", "", "pool used to namespace relative paths starting with ./ (NEF_POOL)")
	f.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	f.DurationVar(&opts.timeout, "timeout", 0, "per request timeout")
	f.DurationVar(&opts.pollInterval, "poll-interval", 0, "wait between polls of accepted operations")
	f.IntVar(&opts.maxPollHops, "max-poll-hops", 0, "give up on an accepted operation after this many polls")
	f.StringVar(&opts.transport, "transport", "http", "transport implementation: http or resty")
	f.Var(opts.headers, "header", "extra request headers as key=value, repeatable")
	f.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request to stderr")

	cmd.AddCommand(
		newBodylessCmd(opts, "get", "GET"),
		newBodylessCmd(opts, "delete", "DELETE"),
		newBodyCmd(opts, "post", "POST"),
		newBodyCmd(opts, "put", "PUT"),
		newLoginCmd(opts),
	)
	return cmd
}

// buildConfig layers config file, environment and explicitly set flags.
func (o *rootOptions) buildConfig(cmd *cobra.Command) (*config.NefProxyConfig, error) {
	if o.envFile != "" {
		_ = godotenv.Load(o.envFile) // a missing .env is fine
	}

	cfg := config.DefaultNefProxyConfig()
	if o.configFile != "" {
		loaded, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v, ok := os.LookupEnv(envPrefix + "SCHEME"); ok {
		cfg.WithScheme(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "HOST"); ok {
		cfg.WithHost(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %sPORT %q: %w", envPrefix, v, err)
		}
		cfg.WithPort(port)
	}
	if v, ok := os.LookupEnv(envPrefix + "USERNAME"); ok {
		cfg.Username = v
	}
	if v, ok := os.LookupEnv(envPrefix + "PASSWORD"); ok {
		cfg.Password = v
	}
	if v, ok := os.LookupEnv(envPrefix + "POOL"); ok {
		cfg.WithPool(v)
	}

	flags := cmd.Flags()
	if flags.Changed("scheme") {
		cfg.WithScheme(o.scheme)
	}
	if flags.Changed("host") {
		cfg.WithHost(o.host)
	}
	if flags.Changed("port") {
		cfg.WithPort(o.port)
	}
	if flags.Changed("username") {
		cfg.Username = o.username
	}
	if flags.Changed("password") {
		cfg.Password = o.password
	}
	if flags.Changed("pool") {
		cfg.WithPool(o.pool)
	}
	if flags.Changed("insecure") {
		cfg.WithVerify(!o.insecure)
	}
	if flags.Changed("timeout") {
		cfg.WithRequestTimeout(o.timeout)
	}
	if flags.Changed("poll-interval") {
		cfg.WithPollInterval(o.pollInterval)
	}
	if flags.Changed("max-poll-hops") {
		cfg.WithMaxPollHops(o.maxPollHops)
	}
	if flags.Changed("transport") {
		switch o.transport {
		case "http":
			cfg.WithTransport(dto.TransportHTTP)
		case "resty":
			cfg.WithTransport(dto.TransportResty)
		default:
			return nil, fmt.Errorf("unknown transport %q, expected http or resty", o.transport)
		}
	}
	cfg.WithExtraHeaders(o.headers)

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	cfg.WithRelay(relays.NewSlogRelay(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))))

	return &cfg, cfg.Validate()
}

func (o *rootOptions) newProxy(cmd *cobra.Command) (*nefproxy.NefProxy, *config.NefProxyConfig, error) {
	cfg, err := o.buildConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	httpCfg := httpclient.DefaultHTTPClientConfig()
	if o.verbose {
		errOut := cmd.ErrOrStderr()
		httpCfg.WithMiddleware(httpclient.LoggingMiddleware(func(msg string) {
			fmt.Fprintln(errOut, msg)
		}))
	}
	p, err := nefproxy.NewNefProxy(cfg, nefproxy.WithHTTPClientConfig(&httpCfg))
	return p, cfg, err
}
