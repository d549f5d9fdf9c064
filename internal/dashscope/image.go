package dashscope

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"

	"github.com/bihua-university/dreamcanvas/internal/task"
)

const (
	DefaultImageModel = "wanx2.1-t2i-turbo"
	DefaultSize       = "1024*1024"
	DefaultCount      = 4
)

var sizes = map[string]string{
	"1:1":  "1024*1024",
	"16:9": "1280*720",
	"9:16": "720*1280",
	"4:3":  "1024*768",
	"3:4":  "768*1024",
}

// SizeForAspect 将宽高比转换为接口需要的尺寸，未知比例返回默认尺寸和 false
func SizeForAspect(aspect string) (string, bool) {
	if s, ok := sizes[aspect]; ok {
		return s, true
	}
	return DefaultSize, false
}

// ImageSynthesis 文生图异步任务，实现 task.Provider
type ImageSynthesis struct {
	Model        string
	PromptExtend bool
	Watermark    bool

	baseURL string
	client  *req.Client
}

var _ task.Provider = (*ImageSynthesis)(nil)

func NewImageSynthesis(apiKey, baseURL string, timeout time.Duration) *ImageSynthesis {
	return &ImageSynthesis{
		Model:        DefaultImageModel,
		PromptExtend: true,
		baseURL:      trimBase(baseURL, DefaultBaseURL),
		client:       newClient(apiKey, timeout),
	}
}

func (s *ImageSynthesis) parameters(r task.Request) map[string]any {
	params := map[string]any{
		"size":          DefaultSize,
		"n":             DefaultCount,
		"prompt_extend": s.PromptExtend,
		"watermark":     s.Watermark,
	}
	if r.Size != "" {
		params["size"] = r.Size
	}
	if r.Count > 0 {
		params["n"] = r.Count
	}
	for k, v := range r.Extra {
		params[k] = v
	}
	return params
}

// Create 提交文生图任务
func (s *ImageSynthesis) Create(ctx context.Context, r task.Request) (string, error) {
	body := map[string]any{
		"model":      s.Model,
		"input":      map[string]any{"prompt": r.Prompt},
		"parameters": s.parameters(r),
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-DashScope-Async", "enable").
		SetBodyJsonMarshal(body).
		Post(s.baseURL + "/services/aigc/text2image/image-synthesis")
	if err != nil {
		return "", &task.SubmissionError{Err: err}
	}
	data, err := resp.ToBytes()
	if err != nil {
		return "", &task.SubmissionError{Err: err}
	}
	if !resp.IsSuccessState() {
		e := newAPIError(resp.StatusCode, data)
		return "", &task.SubmissionError{
			StatusCode: e.StatusCode,
			Code:       e.Code,
			Message:    e.Message,
		}
	}

	id := gjson.GetBytes(data, "output.task_id").String()
	if id == "" {
		return "", &task.SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    "响应中没有 output.task_id",
		}
	}
	return id, nil
}

// Check 查询任务状态
func (s *ImageSynthesis) Check(ctx context.Context, taskID string) (*task.Report, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.baseURL + "/tasks/" + url.PathEscape(taskID))
	if err != nil {
		return nil, err
	}
	data, err := resp.ToBytes()
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessState() {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return parseReport(data)
}

func parseReport(data []byte) (*task.Report, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("dashscope: 任务状态响应不是合法的JSON")
	}
	output := gjson.GetBytes(data, "output")
	status := output.Get("task_status")
	if !status.Exists() {
		return nil, errors.New("dashscope: 响应中没有 output.task_status")
	}

	report := &task.Report{Status: status.String()}
	output.Get("results").ForEach(func(_, v gjson.Result) bool {
		if u := v.Get("url").String(); u != "" {
			report.Results = append(report.Results, u)
		}
		return true
	})
	if report.Status != string(task.StatusSucceeded) {
		report.Detail = json.RawMessage(output.Raw)
	}
	return report, nil
}
