// Package pdfaudio is a client for the PDF-to-audio conversion server.
//
// The server exposes:
//
//	POST /cleanup         remove uploaded PDFs and generated audio
//	POST /upload          multipart "file" -> {success, temp_filename, total_pages}
//	POST /convert         {filename, page_num, temp_filename} -> {success, already_converted, audio_file}
//	POST /summarize       -> {success, summary}
//	POST /summary-audio   -> {success, audio_file}
//	GET  /audio/{name}    audio bytes once the artifact exists, 404 before
package pdfaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is where the reference server listens
const DefaultBaseURL = "http://localhost:5000"

// Client talks to one conversion server
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout on the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// AudioURL returns the cache-busted URL of an artifact. stamp is usually the
// time the artifact was confirmed, in milliseconds.
func (c *Client) AudioURL(name string, stamp int64) string {
	u := c.endpoint("/audio/" + url.PathEscape(name))
	if stamp != 0 {
		u += "?t=" + strconv.FormatInt(stamp, 10)
	}
	return u
}

// Cleanup asks the server to delete previous uploads and audio
func (c *Client) Cleanup(ctx context.Context) error {
	var resp envelope
	code, err := c.postJSON(ctx, "/cleanup", nil, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return serverError("/cleanup", code, resp.Error)
	}
	return nil
}

// Upload sends a PDF as multipart field "file"
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp uploadResponse
	code, err := c.do(req, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serverError("/upload", code, resp.Error)
	}
	return &resp.UploadResult, nil
}

// Convert requests audio for one page
func (c *Client) Convert(ctx context.Context, in ConvertRequest) (*ConvertResult, error) {
	var resp convertResponse
	code, err := c.postJSON(ctx, "/convert", in, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serverError("/convert", code, resp.Error)
	}
	return &resp.ConvertResult, nil
}

// Summarize asks for a summary of the most recently extracted page text
func (c *Client) Summarize(ctx context.Context, ref SummaryRef) (*SummaryResult, error) {
	var resp summaryResponse
	code, err := c.postJSON(ctx, "/summarize", ref, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serverError("/summarize", code, resp.Error)
	}
	return &resp.SummaryResult, nil
}

// SummaryAudio asks for speech of the most recent summary
func (c *Client) SummaryAudio(ctx context.Context, ref SummaryRef) (*SummaryAudioResult, error) {
	var resp summaryAudioResponse
	code, err := c.postJSON(ctx, "/summary-audio", ref, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, serverError("/summary-audio", code, resp.Error)
	}
	return &resp.SummaryAudioResult, nil
}

const maxDrain = 4 << 10

// AudioExists reports whether the artifact can be fetched yet. A non-2xx
// status is "not yet", not an error.
func (c *Client) AudioExists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AudioURL(name, time.Now().UnixMilli()), nil)
	if err != nil {
		return false, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return false, &TransportError{Endpoint: "/audio", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// Small error bodies are drained so the connection is reused
		_, _ = io.CopyN(io.Discard, res.Body, maxDrain)
		return false, nil
	}
	// The audio itself is left unread; polling stops on the first hit
	return true, nil
}

// FetchAudio streams an artifact into w and returns the byte count
func (c *Client) FetchAudio(ctx context.Context, name string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AudioURL(name, time.Now().UnixMilli()), nil)
	if err != nil {
		return 0, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Endpoint: "/audio", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, &ServerError{Endpoint: "/audio", StatusCode: res.StatusCode, Message: "Audio file not found"}
	}

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return n, &TransportError{Endpoint: "/audio", Err: err}
	}
	return n, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do sends req and decodes a JSON body whatever the status code; the server
// reports failures as JSON with 4xx/5xx. It returns the status code.
func (c *Client) do(req *http.Request, out any) (int, error) {
	endpoint := req.URL.Path

	res, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, &TransportError{Endpoint: endpoint, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return res.StatusCode, &TransportError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("unexpected %d response: %w", res.StatusCode, err),
		}
	}
	return res.StatusCode, nil
}
