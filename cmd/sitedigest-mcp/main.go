package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// discoverResponse mirrors the Sitedigest discover API response.
type discoverResponse struct {
	Success bool `json:"success"`
	Pages   []struct {
		URL    string `json:"url"`
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"pages"`
	Total int `json:"total"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// digestResponse mirrors the Sitedigest digest API response.
type digestResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// digestStatusResponse mirrors the Sitedigest digest status API response.
type digestStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Pages  []struct {
		URL    string `json:"url"`
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"pages"`
	Result *struct {
		Markdown string `json:"markdown"`
		Stats    struct {
			PagesRequested int    `json:"pages_requested"`
			PagesSucceeded int    `json:"pages_succeeded"`
			ErrorCount     int    `json:"error_count"`
			TotalBytes     int    `json:"total_bytes"`
			DataExtracted  string `json:"data_extracted"`
		} `json:"stats"`
	} `json:"result"`
}

func main() {
	apiURL := os.Getenv("DIGEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("DIGEST_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "DIGEST_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"sitedigest",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	discoverTool := mcp.NewTool("discover_site",
		mcp.WithDescription("Fetch a seed page and list it plus its same-host links as digest candidates, without fetching the linked pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The seed URL to discover pages from"),
		),
	)
	s.AddTool(discoverTool, handleDiscoverSite(apiURL, apiKey))

	digestTool := mcp.NewTool("digest_site",
		mcp.WithDescription("Discover a site's pages from a seed URL, fetch them, and return one combined markdown document with per-run statistics."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The seed URL to digest"),
		),
	)
	s.AddTool(digestTool, handleDigestSite(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Sitedigest API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			req.Header.Set("X-API-Key", apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			// Quick check if still processing.
			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

func handleDiscoverSite(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/discover", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("discover request failed: %v", err)), nil
		}

		var discResp discoverResponse
		if err := json.Unmarshal(respBody, &discResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse discover response: %v", err)), nil
		}

		if !discResp.Success {
			errMsg := "discover failed"
			if discResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", discResp.Error.Code, discResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d pages:\n\n", discResp.Total))
		for _, p := range discResp.Pages {
			sb.WriteString(fmt.Sprintf("- %s (%s) [%s]\n", p.Title, p.URL, p.Status))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleDigestSite(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		// POST to create digest job.
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/digest", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("digest request failed: %v", err)), nil
		}

		var digResp digestResponse
		if err := json.Unmarshal(respBody, &digResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse digest response: %v", err)), nil
		}

		if digResp.ID == "" {
			errMsg := "digest job creation failed"
			if digResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", digResp.Error.Code, digResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Poll for completion.
		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/digest/"+digResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling digest job failed: %v", err)), nil
		}

		var statusResp digestStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse digest status: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Digest %s: %s\n", statusResp.ID, statusResp.Status))
		if statusResp.Result != nil {
			st := statusResp.Result.Stats
			sb.WriteString(fmt.Sprintf("Pages: %d requested, %d succeeded, %d errors. Extracted %s.\n\n",
				st.PagesRequested, st.PagesSucceeded, st.ErrorCount, st.DataExtracted))
			sb.WriteString(statusResp.Result.Markdown)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
