package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"relentless-frontier/internal/logging"
)

// Seeds holds the URLs to submit to the api.
type Seeds struct {
	URLs []string `json:"urls"`
}

var errNoSeeds = errors.New("seed file has no urls")

type summary struct {
	accepted int64
	rejected int64
}

func main() {
	seedsPath := flag.String("seeds", "seeds.json", "path to JSON file with seed urls")
	apiBase := flag.String("api", "http://localhost:8080", "api base URL")
	concurrency := flag.Int("concurrency", 8, "parallel submissions")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	logger := logging.Must(*dev).Named("loadgen")
	defer func() { _ = logger.Sync() }()

	s, err := run(*seedsPath, *apiBase, *concurrency, nil, logger)
	if err != nil {
		logger.Fatal("loadgen failed", zap.Error(err))
	}
	if s.rejected > 0 {
		os.Exit(1)
	}
}

// run submits every seed to the api with at most concurrency requests in
// flight. A nil client gets a 30s timeout.
func run(seedsPath, apiBase string, concurrency int, client *http.Client, logger *zap.Logger) (summary, error) {
	seeds, err := loadSeeds(seedsPath)
	if err != nil {
		return summary{}, err
	}

	baseURL, err := url.Parse(apiBase)
	if err != nil {
		return summary{}, err
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return summary{}, fmt.Errorf("api base %q must be absolute", apiBase)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var s summary
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	for i, seed := range seeds.URLs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, u string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			key, err := submitSeed(client, baseURL, u)
			if err != nil {
				atomic.AddInt64(&s.rejected, 1)
				logger.Warn("seed rejected", zap.Int("idx", idx), zap.String("url", u), zap.Error(err))
				return
			}
			atomic.AddInt64(&s.accepted, 1)
			logger.Debug("seed accepted", zap.Int("idx", idx), zap.String("url", u), zap.String("entry", key))
		}(i, seed)
	}
	wg.Wait()
	logger.Info("seeds submitted", zap.Int64("accepted", s.accepted), zap.Int64("rejected", s.rejected))
	return s, nil
}

func loadSeeds(path string) (Seeds, error) {
	var seeds Seeds
	data, err := os.ReadFile(path)
	if err != nil {
		return seeds, err
	}
	if err := json.Unmarshal(data, &seeds); err != nil {
		return seeds, err
	}
	if len(seeds.URLs) == 0 {
		return seeds, errNoSeeds
	}
	return seeds, nil
}

// submitSeed posts one URL and returns the created entry key.
func submitSeed(client *http.Client, base *url.URL, seed string) (string, error) {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/entries"
	u.RawQuery = url.Values{"url": {seed}}.Encode()

	resp, err := client.Post(u.String(), "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return created.Key, nil
}
