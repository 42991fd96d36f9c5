package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "Sitedigest API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per seed URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Seed URLs covering different site shapes.
var testSeeds = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Request / Response types (mirrors models package) ---

type digestRequest struct {
	URL string `json:"url"`
}

type digestResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type digestStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
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

// --- Benchmark result types ---

type runResult struct {
	Run            int    `json:"run"`
	TotalMs        int64  `json:"total_ms"`
	PagesRequested int    `json:"pages_requested"`
	PagesSucceeded int    `json:"pages_succeeded"`
	ErrorCount     int    `json:"error_count"`
	TotalBytes     int    `json:"total_bytes"`
	Status         string `json:"status"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

type seedAverages struct {
	TotalMs        float64 `json:"total_ms"`
	PagesRequested float64 `json:"pages_requested"`
	PagesSucceeded float64 `json:"pages_succeeded"`
	TotalBytes     float64 `json:"total_bytes"`
}

type seedResult struct {
	URL      string        `json:"url"`
	Label    string        `json:"label"`
	Runs     []runResult   `json:"runs"`
	Averages *seedAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string       `json:"timestamp"`
	APIURL     string       `json:"api_url"`
	RunsPerURL int          `json:"runs_per_url"`
	Results    []seedResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Sitedigest Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure sitedigest is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testSeeds {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		sr := seedResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkSeed(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d/%d pages  %d bytes\n",
					rr.TotalMs, rr.PagesSucceeded, rr.PagesRequested, rr.TotalBytes)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			sr.Runs = append(sr.Runs, rr)
		}

		sr.Averages = computeAverages(sr.Runs)
		report.Results = append(report.Results, sr)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkSeed(seedURL string, run int) runResult {
	rr := runResult{Run: run}
	client := &http.Client{Timeout: 90 * time.Second}
	start := time.Now()

	bodyBytes, err := json.Marshal(digestRequest{URL: seedURL})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/digest", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}

	var dr digestResponse
	err = json.NewDecoder(resp.Body).Decode(&dr)
	resp.Body.Close()
	if err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	if dr.ID == "" {
		rr.Error = "no job id returned"
		return rr
	}

	// Poll until the job leaves "processing" or the deadline passes.
	deadline := time.Now().Add(10 * time.Minute)
	var status digestStatusResponse
	for {
		if time.Now().After(deadline) {
			rr.Error = "poll deadline exceeded"
			return rr
		}
		time.Sleep(2 * time.Second)

		pollReq, err := http.NewRequest("GET", *apiURL+"/api/v1/digest/"+dr.ID, nil)
		if err != nil {
			rr.Error = fmt.Sprintf("poll request error: %v", err)
			return rr
		}
		if *apiKey != "" {
			pollReq.Header.Set("Authorization", "Bearer "+*apiKey)
		}

		pollResp, err := client.Do(pollReq)
		if err != nil {
			rr.Error = fmt.Sprintf("poll failed: %v", err)
			return rr
		}
		err = json.NewDecoder(pollResp.Body).Decode(&status)
		pollResp.Body.Close()
		if err != nil {
			rr.Error = fmt.Sprintf("poll decode error: %v", err)
			return rr
		}

		if status.Status != "processing" {
			break
		}
	}

	rr.TotalMs = time.Since(start).Milliseconds()
	rr.Status = status.Status
	rr.Success = status.Status == "completed" || status.Status == "partial"
	if status.Result != nil {
		st := status.Result.Stats
		rr.PagesRequested = st.PagesRequested
		rr.PagesSucceeded = st.PagesSucceeded
		rr.ErrorCount = st.ErrorCount
		rr.TotalBytes = st.TotalBytes
	}
	if !rr.Success && rr.Error == "" {
		rr.Error = "job status: " + status.Status
	}

	return rr
}

func computeAverages(runs []runResult) *seedAverages {
	var successCount int
	var avg seedAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.PagesRequested += float64(r.PagesRequested)
		avg.PagesSucceeded += float64(r.PagesSucceeded)
		avg.TotalBytes += float64(r.TotalBytes)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.PagesRequested /= n
	avg.PagesSucceeded /= n
	avg.TotalBytes /= n
	return &avg
}

func printTable(results []seedResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tURL\tAVG MS\tAVG PAGES\tAVG BYTES")
	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\t%s\tall runs failed\t\t\n", r.Label, r.URL)
			continue
		}
		a := r.Averages
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.1f/%.1f\t%.0f\n",
			r.Label, r.URL, a.TotalMs, a.PagesSucceeded, a.PagesRequested, a.TotalBytes)
	}
	w.Flush()
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
