// Package releasecheck runs the background "is there a newer release"
// check: one HTTP GET with a 1-second timeout, launched alongside list/
// pull/fetch and joined before the operation returns. A failure or
// timeout is logged and never aborts the caller. Generalizes the
// teacher's pending.go worker-pool-overlap pattern from "many branches"
// to "one background call overlapped with the main operation".
package releasecheck

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of a release check.
type Result struct {
	LatestVersion string
	NewerExists   bool
	Err           error
}

// Handle is a fire-and-forget task; call Join to block for its result.
type Handle struct {
	done chan Result
}

// Start launches the background check against endpoint, comparing the
// response's "tag_name" field against currentVersion.
func Start(endpoint, currentVersion string, log *zap.Logger) *Handle {
	h := &Handle{done: make(chan Result, 1)}
	go func() {
		h.done <- check(endpoint, currentVersion, log)
	}()
	return h
}

// Join blocks until the background check completes and returns its result.
func (h *Handle) Join() Result {
	return <-h.done
}

func check(endpoint, currentVersion string, log *zap.Logger) Result {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Warn("release check: build request failed", zap.Error(err))
		return Result{Err: err}
	}

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("release check: request failed", zap.Error(err))
		return Result{Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Warn("release check: decode failed", zap.Error(err))
		return Result{Err: err}
	}

	return Result{
		LatestVersion: payload.TagName,
		NewerExists:   payload.TagName != "" && payload.TagName != currentVersion,
	}
}
