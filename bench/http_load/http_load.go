package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	svix "github.com/svix/svix-webhooks/go"
)

// loadUser is a provisioned identity with a bearer token.
type loadUser struct {
	Identity string
	Token    string
}

func main() {
	// --- Command-line flags ---
	var server string
	var duration int
	var concurrency int
	var csvFile string
	var trimPercent float64
	var jwtSecret string
	var webhookSecret string
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&duration, "duration", 30, "duration in seconds")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent goroutines / users")
	flag.StringVar(&csvFile, "csv", "latencies.csv", "CSV file to save latencies")
	flag.Float64Var(&trimPercent, "trim", 1.0, "percent of latency to trim from top and bottom for trimmed mean")
	flag.StringVar(&jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret the server verifies tokens with")
	flag.StringVar(&webhookSecret, "webhook-secret", os.Getenv("CLERK_WEBHOOK_SECRET"), "whsec_ secret for provisioning users")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification for self-signed certificates")
	flag.Parse()

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
		},
		Timeout: 10 * time.Second,
	}

	wh, err := svix.NewWebhook(webhookSecret)
	if err != nil {
		panic(fmt.Sprintf("invalid webhook secret: %v", err))
	}

	// --- Provision users through the signed webhook ---
	fmt.Printf("Provisioning %d users...\n", concurrency)
	users := make([]loadUser, concurrency)
	for i := range users {
		identity := fmt.Sprintf("load_user_%d_%d", i, time.Now().UnixNano())
		if err := provision(client, wh, server, identity); err != nil {
			panic(fmt.Sprintf("failed to provision user: %v", err))
		}
		users[i] = loadUser{Identity: identity, Token: mintToken(jwtSecret, identity)}
	}
	fmt.Println("Users provisioned.")

	// Every user likes and unlikes posts by the first user
	postID, err := seedPost(client, server, users[0].Token)
	if err != nil {
		fmt.Printf("No seed post (%v), load will only read the timeline\n", err)
	}

	// --- Prepare concurrency test ---
	stopTime := time.Now().Add(time.Duration(duration) * time.Second)
	var wg sync.WaitGroup

	// Atomic counters for thread-safe tracking
	var requests int64
	var successes int64
	var errors4xx int64
	var errors5xx int64

	latencySlices := make([][]float64, concurrency) // each goroutine records latencies

	// --- Start concurrent goroutines for load test ---
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			user := users[idx]
			var localLatencies []float64

			for n := 0; time.Now().Before(stopTime); n++ {
				method, path := http.MethodGet, "/api/posts"
				if postID != "" && n%2 == 1 {
					method, path = http.MethodPost, "/api/posts/"+postID+"/like"
				}

				start := time.Now()
				req, _ := http.NewRequestWithContext(context.Background(), method, server+path, nil)
				req.Header.Set("Authorization", "Bearer "+user.Token)

				resp, err := client.Do(req)
				lat := time.Since(start).Seconds() * 1000 // latency in ms
				localLatencies = append(localLatencies, lat)
				atomic.AddInt64(&requests, 1)

				if err != nil {
					fmt.Printf("Request error: %v\n", err)
					continue
				}

				// Count success/failure by status code
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&successes, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&errors4xx, 1)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&errors5xx, 1)
				}
				if resp.StatusCode >= 400 {
					bodyBytes, _ := io.ReadAll(resp.Body)
					fmt.Printf("Status %d: %s\n", resp.StatusCode, string(bodyBytes))
				} else {
					_, _ = io.Copy(io.Discard, resp.Body)
				}
				resp.Body.Close()
			}

			latencySlices[idx] = localLatencies
		}(i)
	}

	wg.Wait()

	// --- Merge all latencies ---
	var allLatencies []float64
	for _, slice := range latencySlices {
		allLatencies = append(allLatencies, slice...)
	}
	sort.Float64s(allLatencies)

	// --- Compute statistics ---
	trimmedMeanVal := trimmedMean(allLatencies, trimPercent)
	p50 := percentile(allLatencies, 50)
	p90 := percentile(allLatencies, 90)
	p99 := percentile(allLatencies, 99)

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d\n", requests, successes, errors4xx, errors5xx)
	fmt.Printf("Latency (ms): trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n", trimmedMeanVal, p50, p90, p99)

	// --- Save latencies to CSV ---
	f, err := os.Create(csvFile)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"latency_ms"})
	for _, d := range allLatencies {
		w.Write([]string{fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}

// provision sends a signed user.created event for identity.
func provision(client *http.Client, wh *svix.Webhook, server, identity string) error {
	payload, _ := json.Marshal(map[string]any{
		"type": "user.created",
		"data": map[string]any{
			"id":              identity,
			"first_name":      "Load",
			"last_name":       "User",
			"image_url":       "",
			"email_addresses": []map[string]string{{"email_address": identity + "@load.test"}},
		},
	})

	msgID := "msg_" + identity
	now := time.Now()
	sig, err := wh.Sign(msgID, now, payload)
	if err != nil {
		return err
	}

	req, _ := http.NewRequest(http.MethodPost, server+"/clerk-webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("svix-id", msgID)
	req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("svix-signature", sig)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func mintToken(secret, identity string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identity,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return s
}

// seedPost creates a post from STORAGE_ID, an object already uploaded to the
// bucket, and returns its id.
func seedPost(client *http.Client, server, token string) (string, error) {
	storageID := os.Getenv("STORAGE_ID")
	if storageID == "" {
		return "", fmt.Errorf("STORAGE_ID not set")
	}
	b, _ := json.Marshal(map[string]string{"storage_id": storageID, "caption": "load test"})
	req, _ := http.NewRequest(http.MethodPost, server+"/api/posts", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create post status %d", resp.StatusCode)
	}
	var out struct {
		PostID string `json:"post_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.PostID, nil
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = len(data) / 2
	}
	trimmed := data[trim : len(data)-trim]
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile calculates the p-th percentile from sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	d0 := data[f]*(float64(c)-k) + data[c]*(k-float64(f))
	return d0
}
