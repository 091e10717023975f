package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout = 15 * time.Second

	successStatusCode = "200"
	successStatus     = "Success"
)

var (
	ErrTimeout   = errors.New("sms gateway timed out")
	ErrTransport = errors.New("sms gateway unreachable")
)

// Config holds MiMSMS gateway credentials
type Config struct {
	APIURL          string
	Username        string
	APIKey          string
	SenderName      string
	TransactionType string
	Timeout         time.Duration
}

// Result is the normalized gateway outcome
type Result struct {
	Success          bool
	ProviderResponse string
}

// Client sends SMS through the MiMSMS HTTP gateway
type Client struct {
	config     Config
	httpClient *http.Client
}

type sendRequest struct {
	UserName        string `json:"UserName"`
	Apikey          string `json:"Apikey"`
	MobileNumber    string `json:"MobileNumber"`
	CampaignID      string `json:"CampaignId"`
	SenderName      string `json:"SenderName"`
	TransactionType string `json:"TransactionType"`
	Message         string `json:"Message"`
}

type sendResponse struct {
	StatusCode     string `json:"statusCode"`
	Status         string `json:"status"`
	ResponseResult string `json:"responseResult"`
}

// New creates a new gateway client
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "T"
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// Configured reports whether gateway credentials are present
func (c *Client) Configured() bool {
	return c.config.Username != "" && c.config.APIKey != "" && c.config.SenderName != ""
}

// Send delivers message to number. A provider rejection is reported through
// Result.Success; ErrTimeout and ErrTransport mean the outcome is unknown.
func (c *Client) Send(ctx context.Context, number, message string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(sendRequest{
		UserName:        c.config.Username,
		Apikey:          c.config.APIKey,
		MobileNumber:    strings.TrimPrefix(number, "+"),
		CampaignID:      "null",
		SenderName:      c.config.SenderName,
		TransactionType: c.config.TransactionType,
		Message:         message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	var result sendResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return &Result{
			Success:          false,
			ProviderResponse: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200)),
		}, nil
	}

	return &Result{
		Success:          result.StatusCode == successStatusCode && result.Status == successStatus,
		ProviderResponse: result.ResponseResult,
	}, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.config.Timeout)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
