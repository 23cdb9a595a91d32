// Command smoke probes a running deployment: it authenticates, walks the
// core read endpoints, and exits non-zero if any critical probe fails.
// Intended for post-deploy checks, not load testing.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type probe struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type result struct {
	Probe    probe
	Status   int
	Duration time.Duration
	Err      error
}

func defaultProbes() []probe {
	return []probe{
		{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/auth/me", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/classes", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/students", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/attendance", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/payments/summary", Expect: http.StatusOK, Critical: false},
		{Method: http.MethodGet, Path: "/api/v1/holidays", Expect: http.StatusOK, Critical: false},
	}
}

func main() {
	var (
		base       string
		email      string
		password   string
		probesPath string
		timeout    time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", os.Getenv("SMOKE_EMAIL"), "login email")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "login password")
	flag.StringVar(&probesPath, "probes", "", "optional JSON file overriding the default probe set")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes := defaultProbes()
	if probesPath != "" {
		loaded, err := loadProbes(probesPath)
		if err != nil {
			log.Fatalf("failed to load probes: %v", err)
		}
		probes = loaded
	}

	client := &http.Client{Timeout: timeout}
	token := ""
	if email != "" {
		var err error
		token, err = login(client, base, email, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
	}

	var results []result
	failed := 0
	for _, p := range probes {
		res := run(client, base, token, p)
		if res.Err != nil || res.Status != p.Expect {
			if p.Critical {
				failed++
			}
		}
		results = append(results, res)
	}

	report(results)
	if failed > 0 {
		fmt.Printf("%d critical probe(s) failed\n", failed)
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var probes []probe
	if err := json.Unmarshal(data, &probes); err != nil {
		return nil, err
	}
	if len(probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	return probes, nil
}

func login(client *http.Client, base, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(strings.TrimRight(base, "/")+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base, token string, p probe) result {
	res := result{Probe: p}
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(strings.ToUpper(p.Method), strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		res.Err = err
		return res
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	res.Status = resp.StatusCode
	return res
}

func report(results []result) {
	fmt.Println("Smoke Report")
	fmt.Println("============")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.Status != res.Probe.Expect {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Probe.Method, res.Probe.Path)
		if res.Err != nil {
			fmt.Printf("  error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  status: %d (want %d) in %s | critical: %t\n", res.Status, res.Probe.Expect, res.Duration, res.Probe.Critical)
	}
}
