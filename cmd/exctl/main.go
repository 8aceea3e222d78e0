// Package main implements the exctl CLI for manual operations against a
// running extractd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the extractd HTTP server.
	serverURL string
	// paramIDs selects a subset of parameters for extract.
	paramIDs []string
	version  = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "exctl",
	Short: "CLI for extractd HTTP server operations",
	Long: `exctl is a command-line interface for interacting with the extractd HTTP
server. It submits parsed documents for parameter extraction and checks
server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8750", "extractd server URL")
	extractCmd.Flags().StringArrayVar(&paramIDs, "param", nil, "parameter id to extract (repeatable, default all)")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(gstrCmd)
	rootCmd.AddCommand(healthCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract bureau parameters from a parsed-document JSON file",
	Long: `Submit a parsed-document JSON file (or stdin) for parameter extraction.

Examples:
  # Extract every parameter
  exctl extract report.json

  # Extract selected parameters
  exctl extract --param bureau_credit_score report.json

  # Read from stdin
  cat report.json | exctl extract -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

var gstrCmd = &cobra.Command{
	Use:   "gstr [file]",
	Short: "Extract GSTR-3B filing figures from a parsed-document JSON file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGSTR,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check extractd server health",
	Long: `Check the health status of the extractd HTTP server.

Examples:
  exctl health
  exctl health --server http://localhost:9000`,
	RunE: runHealth,
}

// extractRequest matches internal/http ExtractRequest.
type extractRequest struct {
	Document     json.RawMessage `json:"document"`
	ParameterIDs []string        `json:"parameter_ids,omitempty"`
}

// gstrRequest matches internal/http GSTRExtractRequest.
type gstrRequest struct {
	Document json.RawMessage `json:"document"`
}

// healthResponse matches internal/http HealthResponse.
type healthResponse struct {
	Status string `json:"status"`
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}

func postJSON(path string, body any) (*http.Response, error) {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	return resp, nil
}

func printBody(resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("no document content")
	}

	resp, err := postJSON("/api/v1/extract", extractRequest{
		Document:     json.RawMessage(content),
		ParameterIDs: paramIDs,
	})
	if err != nil {
		return err
	}
	return printBody(resp)
}

func runGSTR(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("no document content")
	}

	resp, err := postJSON("/api/v1/gstr/extract", gstrRequest{Document: json.RawMessage(content)})
	if err != nil {
		return err
	}
	return printBody(resp)
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := serverURL + "/health"
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	fmt.Printf("Server Status: %s\n", health.Status)
	return nil
}
