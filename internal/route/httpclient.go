package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trajectory-builder/internal/geo"
)

const defaultHTTPTimeout = 30 * time.Second

func defaultClient() *http.Client { return &http.Client{Timeout: defaultHTTPTimeout} }

// doJSON sends the request and decodes a JSON body into out. Non-2xx answers
// and transport errors are reported as ErrProvider.
func doJSON(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrProvider, req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrProvider, req.URL.Path, err)
	}
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return doJSON(client, req, out)
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(client, req, out)
}

// spreadStepTimes converts per-step durations into per-segment times. Step i
// covers path[starts[i]] .. path[starts[i+1]] (the last step runs to the end of
// the path); its duration is spread over its segments by distance.
func spreadStepTimes(path []geo.Location, starts []int, durations []float64) []float64 {
	times := make([]float64, len(path))
	for i, from := range starts {
		to := len(path) - 1
		if i+1 < len(starts) {
			to = starts[i+1]
		}
		if from < 0 || to >= len(path) || to <= from || i >= len(durations) {
			continue
		}
		sub := path[from : to+1]
		st, _, err := Redistribute(sub, durations[i])
		if err != nil {
			// Zero-length step with a duration: split evenly.
			per := durations[i] / float64(to-from)
			for j := from + 1; j <= to; j++ {
				times[j] += per
			}
			continue
		}
		for j := 1; j < len(st); j++ {
			times[from+j] += st[j]
		}
	}
	return times
}
