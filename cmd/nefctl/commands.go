package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joy-dx/nefproxy/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newBodylessCmd(opts *rootOptions, use, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <path>",
		Short: method + " an appliance path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, method, args[0], nil)
		},
	}
}

func newBodyCmd(opts *rootOptions, use, method string) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   use + " <path>",
		Short: method + " a JSON body to an appliance path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			return runCall(cmd, opts, method, args[0], body)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, @file to read a file or @- for stdin")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check that the configured credentials are accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := opts.newProxy(cmd)
			if err != nil {
				return err
			}
			if _, err := p.Authenticator().EnsureToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "authenticated to %s\n", p.State().BaseURL)
			return nil
		},
	}
}

func runCall(cmd *cobra.Command, opts *rootOptions, method, path string, body any) error {
	p, cfg, err := opts.newProxy(cmd)
	if err != nil {
		return err
	}

	payload, err := p.Call(cmd.Context(), method, resolvePath(cfg, path), body)
	if err != nil {
		return err
	}
	return writePayload(cmd.OutOrStdout(), opts.output, payload)
}

// resolvePath maps "./x" onto the configured pool.
func resolvePath(cfg *config.NefProxyConfig, path string) string {
	if rest, ok := strings.CutPrefix(path, "./"); ok && cfg.Pool != "" {
		return cfg.PoolPath(rest)
	}
	return path
}

func readBody(stdin io.Reader, data string) (any, error) {
	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	switch {
	case data == "@-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		raw = b
	}

	if !json.Valid(raw) {
		return nil, errors.New("body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func writePayload(out io.Writer, format string, payload json.RawMessage) error {
	if payload == nil {
		return nil
	}

	switch format {
	case "json":
		var v any
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		var v any
		if err := yaml.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q, expected json or yaml", format)
	}
}
