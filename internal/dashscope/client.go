// Package dashscope 阿里云百炼接口
package dashscope

import (
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL     = "https://dashscope.aliyuncs.com/api/v1"
	DefaultChatBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// APIError 接口返回的非2xx响应
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("dashscope: 状态码=%d", e.StatusCode)
	}
	return fmt.Sprintf("dashscope: 状态码=%d, %s: %s", e.StatusCode, e.Code, e.Message)
}

// newAPIError reads `code`/`message` (native API) or `error.code`/`error.message`
// (compatible mode) from an error body.
func newAPIError(status int, body []byte) *APIError {
	g := gjson.ParseBytes(body)
	e := &APIError{
		StatusCode: status,
		Code:       g.Get("code").String(),
		Message:    g.Get("message").String(),
	}
	if e.Code == "" && e.Message == "" {
		e.Code = g.Get("error.code").String()
		e.Message = g.Get("error.message").String()
	}
	return e
}

func newClient(apiKey string, timeout time.Duration) *req.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return req.C().
		SetTimeout(timeout).
		SetCommonBearerAuthToken(apiKey).
		SetCommonHeader("Content-Type", "application/json")
}

func trimBase(base, fallback string) string {
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/")
}
