package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

const (
	baseURL      = "http://127.0.0.1:17420"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numSites     = 200
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func siteDomain(i int) string {
	return fmt.Sprintf("site%d.example.com", i)
}

func main() {
	fmt.Println("=== AntiSlack Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Sites: %d\n\n", numWorkers, testDuration, numSites)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Seeding block list (POST /sites) ---")
	seeded, failed := 0, 0
	for i := 0; i < numSites; i++ {
		r := doAddSite(siteDomain(i))
		switch {
		case !r.err:
			seeded++
		case r.status != http.StatusConflict:
			failed++
		}
	}
	fmt.Printf("  Seeded %d sites, %d failures\n", seeded, failed)

	fmt.Println("\n--- Phase 2: Navigation checks (GET /check) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doCheck(rng)
	})

	fmt.Println("\n--- Phase 3: Mixed load (60% check, 20% block page, 10% settings, 10% stats) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.60:
			return doCheck(rng)
		case r < 0.80:
			return doBlockPage(rng)
		case r < 0.90:
			return doGet("/settings")
		default:
			return doGet("/stats")
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, uint64(time.Now().UnixNano())))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Uint64() + uint64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func finish(endpoint string, resp *http.Response, err error, start time.Time, want int) result {
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != want}
}

func doAddSite(domain string) result {
	data, _ := json.Marshal(map[string]string{"pattern": domain})
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/sites", "application/json", bytes.NewReader(data))
	return finish("POST /sites", resp, err, start, http.StatusCreated)
}

// doCheck asks about a seeded site half the time and an unblocked one otherwise.
func doCheck(rng *rand.Rand) result {
	host := siteDomain(rng.IntN(numSites))
	if rng.IntN(2) == 0 {
		host = fmt.Sprintf("free%d.example.org", rng.IntN(numSites))
	}
	target := "https://" + host + "/path?q=" + fmt.Sprint(rng.IntN(1000))
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/check?url=" + url.QueryEscape(target))
	return finish("GET /check", resp, err, start, http.StatusOK)
}

func doBlockPage(rng *rand.Rand) result {
	target := "https://" + siteDomain(rng.IntN(numSites)) + "/"
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/blocked?blocked=" + url.QueryEscape(target))
	return finish("GET /blocked", resp, err, start, http.StatusOK)
}

func doGet(path string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	return finish("GET "+path, resp, err, start, http.StatusOK)
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
