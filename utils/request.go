package utils

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "PixivIOSApp/7.13.3 (iOS 14.6; iPhone13,2)"

// NewRestyClient builds the HTTP client shared by the auth and API layers.
// Transient failures get a single retry; 429 responses honor Retry-After.
func NewRestyClient(timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetLogger(disableLogger{})
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "*/*")
	client.SetHeader("Accept-Language", "zh-CN")
	client.SetRetryCount(1).
		SetRetryWaitTime(0).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return seconds, nil
					}
					if t, err := http.ParseTime(retryAfter); err == nil {
						return time.Until(t), nil
					}
				}
				return 3 * time.Second, nil
			}
			return 0, nil
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests
		})

	return client
}

type disableLogger struct{}

func (d disableLogger) Errorf(string, ...interface{}) {}
func (d disableLogger) Warnf(string, ...interface{})  {}
func (d disableLogger) Debugf(string, ...interface{}) {}
