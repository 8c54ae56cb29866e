package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

func newHTTPClient(verifyTLS bool) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !verifyTLS, //nolint:gosec // radios ship self-signed certificates
	}
	return &http.Client{Transport: tr}
}

// probe issues a GET to confirm the radio's web service answers at all.
func probe(ctx context.Context, c *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize)) //nolint:errcheck // draining
	return resp.Body.Close()
}

// exchangeLocked POSTs the pending command and frames the reply body.
func (k *Link) exchangeLocked(timeout time.Duration) []string {
	if k.pending == nil {
		k.failLocked(ErrNoCommand)
		return nil
	}
	body := k.pending
	k.pending = nil

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+k.commandPath, bytes.NewReader(body))
	if err != nil {
		k.failLocked(err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		if IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			k.timeoutLocked()
			return nil
		}
		k.failLocked(err)
		return nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			k.timeoutLocked()
			return nil
		}
		k.failLocked(fmt.Errorf("%w: %w", ErrConnectionLost, err))
		return nil
	}
	k.bytesReceived.Add(uint64(len(data)))
	k.touch()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !json.Valid(data) {
		k.failLocked(fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, strings.TrimSpace(string(data))))
		return nil
	}
	if !ok {
		k.logger.Debug("json reply with failed status", "status", resp.StatusCode)
	}
	return splitLines(strings.ReplaceAll(string(data), "\r", ""))
}
