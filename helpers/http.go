package helpers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"sjsage522/pricecheckworker/pkg/errors"
)

// Shared HTTP client. A zero timeout leaves the transport defaults in place.
var client = &http.Client{}

// SetTimeout sets the timeout of the shared client
func SetTimeout(timeout time.Duration) {
	client.Timeout = timeout
}

// FetchWithHeaders sends an HTTP GET request with the given headers,
// converts the response body to UTF-8 (if needed), and returns it as an io.Reader.
func FetchWithHeaders(url string, headers map[string]string) (io.Reader, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetwork("fetch", "failed to create request", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork("fetch", "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, errors.NewRateLimit("fetch", resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewNetwork("fetch", fmt.Sprintf("%s unexpected status code: %d", url, resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork("fetch", "failed to read response body", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))
	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, errors.NewParsing("fetch", "failed to read converted UTF-8 body", err)
	}

	return &buf, nil
}
