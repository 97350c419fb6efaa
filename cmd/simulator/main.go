// Traffic simulator for the fraud scoring API.
//
// Usage:
//   go run cmd/simulator/main.go -url http://localhost:8080 -tps 50 -duration 60s
//
// This tool:
//   1. Generates synthetic transactions with injected fraud patterns
//   2. Sends each transaction to the /predict endpoint
//   3. Tracks decisions per injected pattern
//   4. Prints a summary of how the ensemble handled the traffic
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/simulate"
)

type job struct {
	req     domain.PredictRequest
	pattern string
}

type metrics struct {
	total     int64
	errors    int64
	latencyMs int64

	mu        sync.Mutex
	decisions map[domain.Decision]int64
	// decision counts for transactions carrying an injected fraud pattern
	fraudDecisions map[domain.Decision]int64
	fraudSent      int64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "frauddetector base URL")
	tps := flag.Int("tps", 50, "Transactions per second")
	duration := flag.Duration("duration", 30*time.Second, "How long to run")
	numUsers := flag.Int("users", 500, "Number of synthetic users")
	numMerchants := flag.Int("merchants", 100, "Number of synthetic merchants")
	workers := flag.Int("workers", 10, "Number of concurrent senders")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	verbose := flag.Bool("verbose", false, "Print each scored transaction")
	flag.Parse()

	fmt.Println("frauddetector traffic simulator")
	fmt.Printf("  URL:       %s\n", *baseURL)
	fmt.Printf("  TPS:       %d\n", *tps)
	fmt.Printf("  Duration:  %s\n", *duration)
	fmt.Printf("  Users:     %d\n", *numUsers)
	fmt.Printf("  Merchants: %d\n", *numMerchants)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: frauddetector not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the service is running:")
		fmt.Println("  go run cmd/frauddetector/main.go")
		os.Exit(1)
	}
	fmt.Println("service is healthy, starting traffic")

	gen := simulate.NewGenerator(*numUsers, *numMerchants, *seed)
	m := &metrics{
		decisions:      make(map[domain.Decision]int64),
		fraudDecisions: make(map[domain.Decision]int64),
	}

	work := make(chan job, *tps)
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}
			for j := range work {
				score(client, *baseURL, j, m, *verbose)
			}
		}()
	}

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(*tps))
	deadline := time.After(*duration)

feed:
	for {
		select {
		case <-deadline:
			break feed
		case <-ticker.C:
			req, pattern := gen.Next()
			if pattern != "" {
				atomic.AddInt64(&m.fraudSent, 1)
			}
			work <- job{req: req, pattern: pattern}
		}
	}
	ticker.Stop()
	close(work)
	wg.Wait()

	printResults(m, time.Since(start))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func score(client *http.Client, baseURL string, j job, m *metrics, verbose bool) {
	start := time.Now()

	body, err := json.Marshal(j.req)
	if err != nil {
		atomic.AddInt64(&m.errors, 1)
		return
	}

	resp, err := client.Post(baseURL+"/predict", "application/json", bytes.NewReader(body))
	elapsed := time.Since(start).Milliseconds()
	atomic.AddInt64(&m.total, 1)
	atomic.AddInt64(&m.latencyMs, elapsed)
	if err != nil {
		atomic.AddInt64(&m.errors, 1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&m.errors, 1)
		return
	}

	var result domain.EnsembleResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		atomic.AddInt64(&m.errors, 1)
		return
	}

	m.mu.Lock()
	m.decisions[result.Decision]++
	if j.pattern != "" {
		m.fraudDecisions[result.Decision]++
	}
	m.mu.Unlock()

	if verbose {
		pattern := j.pattern
		if pattern == "" {
			pattern = "-"
		}
		fmt.Printf("%-36s | $%10.2f | %-16s | p=%.3f c=%.3f | %s\n",
			j.req.TransactionID, j.req.Amount, pattern,
			result.FraudProbability, result.Confidence, result.Decision)
	}
}

func printResults(m *metrics, duration time.Duration) {
	fmt.Println("\nSIMULATION RESULTS")
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Sent:          %d\n", m.total)
	fmt.Printf("  Errors:        %d\n", m.errors)
	fmt.Printf("  Fraud Sent:    %d\n", m.fraudSent)
	if m.total > 0 {
		fmt.Printf("  Avg Latency:   %.2f ms\n", float64(m.latencyMs)/float64(m.total))
		fmt.Printf("  Throughput:    %.2f tx/sec\n", float64(m.total)/duration.Seconds())
	}

	fmt.Println("\n  Decisions (all traffic):")
	for _, d := range []domain.Decision{
		domain.DecisionApprove,
		domain.DecisionApproveMonitoring,
		domain.DecisionReview,
		domain.DecisionDecline,
	} {
		fmt.Printf("    %-24s %d\n", d, m.decisions[d])
	}

	fmt.Println("\n  Decisions (injected fraud only):")
	var flagged int64
	for _, d := range []domain.Decision{
		domain.DecisionApprove,
		domain.DecisionApproveMonitoring,
		domain.DecisionReview,
		domain.DecisionDecline,
	} {
		fmt.Printf("    %-24s %d\n", d, m.fraudDecisions[d])
		if d == domain.DecisionReview || d == domain.DecisionDecline {
			flagged += m.fraudDecisions[d]
		}
	}
	if m.fraudSent > 0 {
		fmt.Printf("\n  Injected fraud flagged for review/decline: %d / %d (%.1f%%)\n",
			flagged, m.fraudSent, 100*float64(flagged)/float64(m.fraudSent))
	}
	fmt.Println()
}
