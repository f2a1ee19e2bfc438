package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var adminToken string

type factResponse struct {
	Date        string `json:"date"`
	Fact        string `json:"fact"`
	Source      string `json:"source"`
	GeneratedAt string `json:"generated_at"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	CacheSize      int    `json:"cacheSize"`
	UsedFactsCount int    `json:"usedFactsCount"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Get a historical fact for today's date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp factResponse
		if err := call(cmd.Context(), http.MethodGet, "/api/today", "", &resp); err != nil {
			return err
		}
		printFact(cmd.OutOrStdout(), resp)
		return nil
	},
}

var dateCmd = &cobra.Command{
	Use:   "date [month] [day]",
	Short: "Get a historical fact for a specific date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		month, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid month %q", args[0])
		}
		day, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid day %q", args[1])
		}

		var resp factResponse
		if err := call(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/date/%d/%d", month, day), "", &resp); err != nil {
			return err
		}
		printFact(cmd.OutOrStdout(), resp)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show service health and cache counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp healthResponse
		if err := call(cmd.Context(), http.MethodGet, "/api/health", "", &resp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Status:      %s\nTimestamp:   %s\nCache size:  %d\nUsed facts:  %d\n",
			resp.Status, resp.Timestamp, resp.CacheSize, resp.UsedFactsCount)
		return nil
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clear the used-facts set and the fact cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp messageResponse
		if err := call(cmd.Context(), http.MethodPost, "/api/clear-cache", adminToken, &resp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return nil
	},
}

func init() {
	clearCacheCmd.Flags().StringVar(&adminToken, "token", envOr("FACTS_ADMIN_TOKEN", ""), "bearer JWT for the admin endpoint")

	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(dateCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(clearCacheCmd)
}

func printFact(w io.Writer, resp factResponse) {
	fmt.Fprintf(w, "%s\n\n%s\n\n(%s, %s)\n", resp.Date, resp.Fact, resp.Source, resp.GeneratedAt)
}

// call 发送请求并把 JSON 响应解码到 out。非 2xx 响应转换为错误。
func call(ctx context.Context, method, path, token string, out interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(serverURL, "/")+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("%s (HTTP %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
