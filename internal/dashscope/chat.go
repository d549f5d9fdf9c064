package dashscope

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
)

const DefaultChatModel = "qwq-32b"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }

// Chat OpenAI 兼容模式的对话接口
type Chat struct {
	Model string

	baseURL string
	client  *req.Client
}

func NewChat(apiKey, baseURL string, timeout time.Duration) *Chat {
	return &Chat{
		Model:   DefaultChatModel,
		baseURL: trimBase(baseURL, DefaultChatBaseURL),
		client:  newClient(apiKey, timeout),
	}
}

// Complete 非流式调用，返回第一条回复
//
// qwq models only answer in stream mode, so those are routed through Stream.
func (c *Chat) Complete(ctx context.Context, messages []Message) (string, error) {
	if strings.HasPrefix(c.Model, "qwq") {
		return c.Stream(ctx, messages, nil)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(map[string]any{
			"model":    c.Model,
			"messages": messages,
		}).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", err
	}
	data, err := resp.ToBytes()
	if err != nil {
		return "", err
	}
	if !resp.IsSuccessState() {
		return "", newAPIError(resp.StatusCode, data)
	}
	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("dashscope: 响应中没有 choices.0.message.content")
	}
	return content.String(), nil
}

// Stream 流式调用，每收到一段内容调用一次 onDelta，返回拼接后的完整回复
func (c *Chat) Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetBodyJsonMarshal(map[string]any{
			"model":    c.Model,
			"messages": messages,
			"stream":   true,
		}).
		DisableAutoReadResponse().
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if !resp.IsSuccessState() {
		data, _ := io.ReadAll(resp.Body)
		return "", newAPIError(resp.StatusCode, data)
	}
	return readStream(resp.Body, onDelta)
}

func readStream(r io.Reader, onDelta func(string)) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		if !gjson.Valid(data) {
			return sb.String(), fmt.Errorf("dashscope: 无法解析的流式数据: %q", data)
		}
		if msg := gjson.Get(data, "error.message"); msg.Exists() {
			return sb.String(), &APIError{Code: gjson.Get(data, "error.code").String(), Message: msg.String()}
		}
		delta := gjson.Get(data, "choices.0.delta.content").String()
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := scanner.Err(); err != nil {
		return sb.String(), err
	}
	return sb.String(), nil
}
