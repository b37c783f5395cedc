package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var baseURL string

func init() {
	for _, c := range []*cobra.Command{stateCmd, requestSnapshotCmd} {
		c.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")
	}
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Fetch live device state from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminRequest(cmd, http.MethodGet, "/admin/v1/state", 5*time.Second)
	},
}

var requestSnapshotCmd = &cobra.Command{
	Use:   "request-snapshot",
	Short: "Ask a running server to write a snapshot now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminRequest(cmd, http.MethodPost, "/admin/v1/snapshot", 10*time.Second)
	},
}

func adminRequest(cmd *cobra.Command, method, path string, timeout time.Duration) error {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequestWithContext(cmd.Context(), method, u, nil)
	if err != nil {
		return err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
