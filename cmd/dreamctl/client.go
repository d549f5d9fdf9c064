package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/studio"
)

// APIError 服务端返回的错误响应
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Detail  string `json:"error"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return fmt.Sprintf("%d %s", e.Status, msg)
}

type envelope[T any] struct {
	Success  bool `json:"success"`
	Data     T    `json:"data"`
	Fallback bool `json:"fallback"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type Client struct {
	c *req.Client
}

func NewClient(server string, timeout time.Duration) *Client {
	return &Client{
		c: req.C().
			SetBaseURL(strings.TrimRight(server, "/")).
			SetTimeout(timeout).
			SetUserAgent("dreamctl").
			SetCommonHeader("Accept", "application/json"),
	}
}

func call[T any](ctx context.Context, r *req.Request, method, path string) (*envelope[T], error) {
	var (
		out  envelope[T]
		fail APIError
	)
	resp, err := r.SetContext(ctx).
		SetSuccessResult(&out).
		SetErrorResult(&fail).
		Send(method, path)
	if err != nil {
		return nil, err
	}
	if resp.IsErrorState() {
		fail.Status = resp.StatusCode
		return nil, &fail
	}
	return &out, nil
}

func (c *Client) Generate(ctx context.Context, r studio.GenerateRequest) (*studio.Creation, error) {
	env, err := call[*studio.Creation](ctx, c.c.R().SetBody(r), http.MethodPost, "/api/images")
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) Brainstorm(ctx context.Context, category string, count int) ([]prompt.Idea, bool, error) {
	r := c.c.R()
	if count > 0 {
		r.SetQueryParam("count", strconv.Itoa(count))
	}
	env, err := call[[]prompt.Idea](ctx, r, http.MethodGet, "/api/brainstorm/"+url.PathEscape(category))
	if err != nil {
		return nil, false, err
	}
	return env.Data, env.Fallback, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	env, err := call[[]Category](ctx, c.c.R(), http.MethodGet, "/api/brainstorm/categories")
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) Image(ctx context.Context, id string) (*store.Image, error) {
	env, err := call[*store.Image](ctx, c.c.R(), http.MethodGet, "/api/images/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) UserImages(ctx context.Context, userID string) ([]store.Image, error) {
	env, err := call[[]store.Image](ctx, c.c.R(), http.MethodGet, "/api/images/user/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
