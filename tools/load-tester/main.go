package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

var levels = []string{"Debug", "Information", "Information", "Information", "Warning", "Error"}

func main() {
	targetURL := flag.String("url", "http://localhost:8080/ingest", "Target URL for ingestion")
	apiKey := flag.String("api-key", "", "API key sent in X-API-Key")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	perRequest := flag.Int("events", 50, "Events per NDJSON request")
	compress := flag.Bool("gzip", false, "Gzip request bodies")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Events/request: %d", *concurrency, *duration, *rps, *perRequest)

	var wg sync.WaitGroup
	var successCount, errorCount, eventCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), *concurrency)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}

			for seq := 0; ; seq++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				body, err := buildBody(workerID, seq, *perRequest, *compress)
				if err != nil {
					log.Fatalf("failed to build request body: %v", err)
				}

				req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewReader(body))
				if err != nil {
					continue
				}
				req.Header.Set("Content-Type", "application/x-ndjson")
				if *compress {
					req.Header.Set("Content-Encoding", "gzip")
				}
				if *apiKey != "" {
					req.Header.Set("X-API-Key", *apiKey)
				}

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}
				if resp.StatusCode == http.StatusAccepted {
					successCount.Add(1)
					eventCount.Add(int64(*perRequest))
				} else {
					errorCount.Add(1)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (202 Accepted): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Events accepted: %d (%.2f/s)", eventCount.Load(), float64(eventCount.Load())/duration.Seconds())
}

func buildBody(workerID, seq, n int, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf,
			`{"timestamp":%q,"level":%q,"messageTemplate":"load event {Seq} from worker {Worker}","properties":{"Seq":%d,"Worker":%d,"RequestId":%q}}`+"\n",
			time.Now().Format(time.RFC3339Nano), levels[(seq+i)%len(levels)], seq*n+i, workerID, uuid.NewString())
	}
	if !compress {
		return buf.Bytes(), nil
	}

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
