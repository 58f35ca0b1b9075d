// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package picons

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent mimics a desktop browser; several logo hosts reject
// anything else.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

const acceptImages = "image/png,image/jpeg"

// fetch outcomes that put the URL on the run blocklist.
var (
	errTransport = errors.New("transport failure")
	errStatus    = errors.New("unexpected status")
	errTooLarge  = errors.New("declared size exceeds max_size")
	errEmpty     = errors.New("empty body")
	// errContentType is a skip without blocklisting.
	errContentType = errors.New("unaccepted content type")
)

// widthRewrites shrinks oversized thumbnail variants some CDNs expose in
// the URL path.
var widthRewrites = strings.NewReplacer(
	"728px", "400px",
	"1200px", "400px",
	"1280px", "400px",
	"1920px", "400px",
	"2000px", "400px",
)

// RewriteURL applies the thumbnail width rewrite.
func RewriteURL(u string) string {
	return widthRewrites.Replace(u)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     30 * time.Second,
			// #nosec G402 -- logo hosts frequently use broken certificate chains
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// download performs one attempt. maxSize of zero disables the size check.
func download(ctx context.Context, client *http.Client, userAgent, url string, maxSize int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransport, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptImages)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
	}
	if maxSize > 0 && resp.ContentLength > maxSize {
		return nil, fmt.Errorf("%w: %d", errTooLarge, resp.ContentLength)
	}
	if !acceptedType(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%w: %q", errContentType, resp.Header.Get("Content-Type"))
	}

	r := io.Reader(resp.Body)
	if maxSize > 0 {
		r = io.LimitReader(resp.Body, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransport, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: body over %d bytes", errTooLarge, maxSize)
	}
	if len(data) == 0 {
		return nil, errEmpty
	}
	return data, nil
}

func acceptedType(header string) bool {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mt == "image/png" || mt == "image/jpeg"
}

// blocklisted reports whether err should block the URL for the rest of the run.
func blocklisted(err error) bool {
	return errors.Is(err, errTransport) || errors.Is(err, errStatus) ||
		errors.Is(err, errTooLarge) || errors.Is(err, errEmpty)
}
