// Command sse-load holds many board streams open while a writer churns tasks
// through the API, then reports how many board events the readers saw.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

type loadConfig struct {
	BaseURL     string        `env:"BASE_URL" envDefault:"http://localhost:8080/api"`
	Connections int           `env:"SSE_CONNECTIONS" envDefault:"200"`
	Duration    time.Duration `env:"DURATION" envDefault:"2m"`
	WriteEvery  time.Duration `env:"WRITE_EVERY" envDefault:"250ms"`
	MaxFailRate float64       `env:"MAX_FAILURE_RATE" envDefault:"0.01"`
}

type counters struct {
	events   atomic.Uint64
	attempts atomic.Uint64
	failures atomic.Uint64
	writes   atomic.Uint64
}

func main() {
	var cfg loadConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var c counters
	client := &http.Client{}
	var wg sync.WaitGroup
	wg.Add(cfg.Connections)
	for range cfg.Connections {
		go func() {
			defer wg.Done()
			readStream(ctx, client, base+"/stream", &c)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		churn(ctx, client, base, cfg.WriteEvery, &c)
	}()

	go func() {
		select {
		case <-time.After(60 * time.Second):
			if c.events.Load() == 0 {
				log.Error("no board events received in 60s")
				os.Exit(1)
			}
		case <-ctx.Done():
		}
	}()

	wg.Wait()
	events, attempts, failures := c.events.Load(), c.attempts.Load(), c.failures.Load()
	rate := 0.0
	if attempts > 0 {
		rate = float64(failures) / float64(attempts)
	}
	log.WithFields(log.Fields{
		"connections":         cfg.Connections,
		"duration":            cfg.Duration.String(),
		"events_received":     events,
		"connection_failures": failures,
		"writes":              c.writes.Load(),
	}).Info("sse load finished")
	if events == 0 || rate > cfg.MaxFailRate {
		os.Exit(1)
	}
}

func readStream(ctx context.Context, client *http.Client, url string, c *counters) {
	backoff := time.Second
	retry := func() {
		c.failures.Add(1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		backoff = min(backoff*2, 5*time.Second)
	}
	for ctx.Err() == nil {
		c.attempts.Add(1)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			retry()
			continue
		}
		resp, err := client.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			retry()
			continue
		}
		backoff = time.Second
		n, _ := countEvents(resp.Body)
		c.events.Add(n)
		resp.Body.Close()
		if ctx.Err() != nil {
			return
		}
		retry()
	}
}

// countEvents reads an event stream until it ends and returns the number of
// decodable board payloads.
func countEvents(r io.Reader) (uint64, error) {
	var n uint64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var b domain.Board
		if err := sonic.UnmarshalString(payload, &b); err != nil {
			continue
		}
		n++
	}
	return n, scanner.Err()
}

// churn creates a task, walks it across the columns and deletes it, over and
// over, so every open stream keeps receiving boards.
func churn(ctx context.Context, client *http.Client, base string, every time.Duration, c *counters) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var task domain.Task
		err := call(ctx, client, http.MethodPost, base+"/tasks", domain.NewTask{
			Title:    fmt.Sprintf("load task %d", i),
			Status:   domain.StatusTodo,
			Priority: domain.PriorityMedium,
		}, &task)
		if err != nil {
			log.WithError(err).Debug("create failed")
			continue
		}
		c.writes.Add(1)
		from := domain.StatusTodo
		for _, to := range []domain.Status{domain.StatusInProgress, domain.StatusDone} {
			body := map[string]any{"source": from, "destination": to, "newIndex": 0}
			if err := call(ctx, client, http.MethodPost, base+"/tasks/"+task.ID+"/move", body, nil); err != nil {
				log.WithError(err).Debug("move failed")
				break
			}
			c.writes.Add(1)
			from = to
		}
		if err := call(ctx, client, http.MethodDelete, base+"/tasks/"+task.ID, nil, nil); err == nil {
			c.writes.Add(1)
		}
	}
}

func call(ctx context.Context, client *http.Client, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := sonic.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return sonic.Unmarshal(data, out)
}
