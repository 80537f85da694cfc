package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var gridAddr string

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Operator grid commands against a running service",
}

var gridStressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Mark the grid as stressed",
	RunE:  func(cmd *cobra.Command, _ []string) error { return postGrid(cmd, "stress") },
}

var gridStabilizeCmd = &cobra.Command{
	Use:   "stabilize",
	Short: "Mark the grid as stable",
	RunE:  func(cmd *cobra.Command, _ []string) error { return postGrid(cmd, "stabilize") },
}

func init() {
	gridCmd.PersistentFlags().StringVar(&gridAddr, "addr", "http://localhost:8001", "service base URL")
	gridCmd.AddCommand(gridStressCmd, gridStabilizeCmd)
	rootCmd.AddCommand(gridCmd)
}

func postGrid(cmd *cobra.Command, action string) error {
	url := strings.TrimSuffix(gridAddr, "/") + "/api/grid/" + action
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("grid %s: %w", action, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grid %s: status %d: %s", action, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(body))
	return err
}
