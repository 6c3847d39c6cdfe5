package http

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientOptions configures an outbound resty client.
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
}

// NewClient returns a resty client with JSON defaults. Retries only fire on
// transport errors and 5xx responses; 4xx are returned to the caller.
func NewClient(opts ClientOptions) *resty.Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "qualification-workers"
	}

	return resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent)
}
