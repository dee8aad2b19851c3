package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultAdminAddr = "http://127.0.0.1:8080"

// adminClient talks to the gateway's scheduler API.
type adminClient struct {
	base  string
	token string
	http  *http.Client
}

func newAdminClient(addr, token string) *adminClient {
	return &adminClient{
		base:  strings.TrimRight(addr, "/"),
		token: token,
		http:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// call issues a request and returns the response body. Non-2xx responses
// become errors carrying the server's error message when present.
func (c *adminClient) call(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *adminClient) status(ctx context.Context) ([]byte, error) {
	return c.call(ctx, http.MethodGet, "/api/scheduler/status")
}

func (c *adminClient) history(ctx context.Context, name string, limit int) ([]byte, error) {
	path := "/api/scheduler/jobs/" + url.PathEscape(name) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return c.call(ctx, http.MethodGet, path)
}

func (c *adminClient) action(ctx context.Context, name, verb string) ([]byte, error) {
	return c.call(ctx, http.MethodPost, "/api/scheduler/jobs/"+url.PathEscape(name)+"/"+verb)
}

// printJSON indents body onto w, falling back to the raw bytes.
func printJSON(w io.Writer, body []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		_, werr := w.Write(body)
		return werr
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func jobsCmd() *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and control jobs on a running scheduler",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", defaultAdminAddr, "Gateway base URL")
	cmd.PersistentFlags().StringVar(&token, "token", os.Getenv("RIDDHI_ADMIN_TOKEN"), "Bearer token (default $RIDDHI_ADMIN_TOKEN)")

	client := func() *adminClient { return newAdminClient(addr, token) }

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scheduler state and every job's last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := client().status(backgroundContext(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history <job>",
		Short: "Show recent executions of a job, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := client().history(backgroundContext(cmd), args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	history.Flags().IntVar(&limit, "limit", 0, "Maximum rows (server default 10, max 100)")
	cmd.AddCommand(history)

	for _, verb := range []struct{ name, short string }{
		{"trigger", "Run a job now and wait for its result"},
		{"enable", "Enable a job's scheduled runs"},
		{"disable", "Disable a job's scheduled runs"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   verb.name + " <job>",
			Short: verb.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				body, err := client().action(backgroundContext(cmd), args[0], verb.name)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), body)
			},
		})
	}
	return cmd
}
