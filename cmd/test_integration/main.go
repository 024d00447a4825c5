package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

func main() {
	baseURL := os.Getenv("SNAPDIFF_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5300"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test against", baseURL)

	fmt.Println("1. Health...")
	if _, ok := sendRequest(http.MethodGet, baseURL+"/health", nil); !ok {
		fmt.Println("FAILED: Health")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health")

	dir, err := os.MkdirTemp("", "snapdiff-smoke")
	if err != nil {
		fmt.Printf("Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	left := filepath.Join(dir, "left.json")
	right := filepath.Join(dir, "right.jsonl")
	_ = os.WriteFile(left, []byte(`[{"stableId":"A","typeName":"Door"},{"stableId":"B","typeName":"Window"}]`), 0o644)
	_ = os.WriteFile(right, []byte("{\"stableId\":\"A\",\"typeName\":\"Door\"}\n{\"stableId\":\"C\",\"typeName\":\"Window\"}\n"), 0o644)

	fmt.Println("2. Compare...")
	payload := map[string]interface{}{
		"projects": []map[string]string{
			{"sourceKind": "file", "path": left},
			{"sourceKind": "lineDelimitedFile", "path": right},
		},
	}
	body, ok := sendRequest(http.MethodPost, baseURL+"/compare", payload)
	if !ok {
		fmt.Println("FAILED: Compare")
		os.Exit(1)
	}

	var resp struct {
		OK    bool `json:"ok"`
		Items []struct {
			LeftOnlyCount  int `json:"leftOnlyCount"`
			RightOnlyCount int `json:"rightOnlyCount"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || !resp.OK || len(resp.Items) != 1 ||
		resp.Items[0].LeftOnlyCount != 1 || resp.Items[0].RightOnlyCount != 1 {
		fmt.Println("FAILED: Compare returned unexpected counts")
		os.Exit(1)
	}
	fmt.Println("PASSED: Compare")
}

func sendRequest(method, url string, payload interface{}) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return nil, false
	}

	fmt.Printf("Response: %s\n", string(respBody))
	return respBody, true
}
