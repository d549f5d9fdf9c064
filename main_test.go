package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/studio"
	"github.com/bihua-university/dreamcanvas/internal/task"
)

type fakeService struct {
	mu       sync.Mutex
	genErr   error
	lastReq  studio.GenerateRequest
	images   map[string]*store.Image
	imageErr error
	db       bool
	block    bool // Generate waits for ctx to end
	canceled chan struct{}
}

func (f *fakeService) Generate(ctx context.Context, req studio.GenerateRequest, obs studio.Observer) (*studio.Creation, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, task.ErrEmptyPrompt
	}
	if f.block {
		<-ctx.Done()
		close(f.canceled)
		return nil, &task.CanceledError{TaskID: "t-1", Err: ctx.Err()}
	}
	if obs.Optimized != nil {
		obs.Optimized("优化后的 " + req.Prompt)
	}
	if obs.Progress != nil {
		obs.Progress(task.Task{ID: "t-1", Status: task.StatusPending})
		obs.Progress(task.Task{ID: "t-1", Status: task.StatusRunning, Attempt: 1})
		obs.Progress(task.Task{ID: "t-1", Status: task.StatusSucceeded, Attempt: 2, Result: []string{"https://a/1.png"}})
	}
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &studio.Creation{
		ID:              uuid.NewString(),
		Prompt:          req.Prompt,
		OptimizedPrompt: "优化后的 " + req.Prompt,
		Images:          []string{"https://a/1.png"},
		BoardName:       studio.DefaultBoardName(req.Prompt),
		AspectRatio:     "1:1",
		TaskID:          "t-1",
	}, nil
}

func (f *fakeService) Brainstorm(_ context.Context, category string, count int) ([]prompt.Idea, bool, error) {
	c, err := prompt.ParseCategory(category)
	if err != nil {
		return nil, false, err
	}
	if count < prompt.MinCount || count > prompt.MaxCount {
		return nil, false, prompt.ErrInvalidCount
	}
	return prompt.Fallbacks(c, count), true, nil
}

func (f *fakeService) Image(_ context.Context, id string) (*store.Image, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	if img, ok := f.images[id]; ok {
		return img, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeService) UserImages(_ context.Context, userID string) ([]store.Image, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	var out []store.Image
	for _, img := range f.images {
		if img.UserID == userID {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (f *fakeService) DBConnected(context.Context) bool { return f.db }

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(svc Service) *gin.Engine {
	return newRouter(&server{
		svc:         svc,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAttempts: 30,
	})
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateImage(t *testing.T) {
	svc := &fakeService{}
	w := do(newTestRouter(svc), http.MethodPost, "/api/images", `{"prompt":"a cat in space","aspectRatio":"16:9","userId":"u1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	g := gjson.Parse(w.Body.String())
	if !g.Get("success").Bool() || g.Get("data.boardName").String() != "A CAT" || g.Get("data.images.#").Int() != 1 {
		t.Errorf("body = %s", w.Body)
	}
	if g.Get("data.optimizedPrompt").String() != "优化后的 a cat in space" || g.Get("data.taskId").String() != "t-1" {
		t.Errorf("body = %s", w.Body)
	}
	if svc.lastReq.AspectRatio != "16:9" || svc.lastReq.UserID != "u1" {
		t.Errorf("request = %+v", svc.lastReq)
	}
}

func TestCreateImageErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{"prompt":`, nil, http.StatusBadRequest},
		{"empty prompt", `{"prompt":""}`, nil, http.StatusBadRequest},
		{"provider rejected", `{"prompt":"x"}`, &task.SubmissionError{StatusCode: 400, Code: "InvalidParameter"}, http.StatusBadRequest},
		{"provider unauthorized", `{"prompt":"x"}`, &task.SubmissionError{StatusCode: 401}, http.StatusBadGateway},
		{"task failed", `{"prompt":"x"}`, &task.TaskFailedError{TaskID: "t"}, http.StatusBadGateway},
		{"empty result", `{"prompt":"x"}`, &task.EmptyResultError{TaskID: "t"}, http.StatusBadGateway},
		{"unavailable", `{"prompt":"x"}`, &task.ProviderUnavailableError{TaskID: "t", Err: errors.New("eof")}, http.StatusBadGateway},
		{"timeout", `{"prompt":"x"}`, &task.TaskTimeoutError{TaskID: "t", Attempt: 30}, http.StatusGatewayTimeout},
		{"canceled", `{"prompt":"x"}`, &task.CanceledError{TaskID: "t", Err: context.Canceled}, StatusClientClosedRequest},
		{"unexpected", `{"prompt":"x"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{genErr: tt.err}
			w := do(newTestRouter(svc), http.MethodPost, "/api/images", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.status, w.Body)
			}
			g := gjson.Parse(w.Body.String())
			if g.Get("success").Bool() || g.Get("message").String() == "" {
				t.Errorf("body = %s", w.Body)
			}
		})
	}
}

func TestWrappedErrorsKeepStatus(t *testing.T) {
	err := toAppError(errors.Join(errors.New("图像生成失败"), &task.TaskTimeoutError{TaskID: "t"}))
	if err.Status != http.StatusGatewayTimeout {
		t.Errorf("Status = %d", err.Status)
	}
}

func TestGetImage(t *testing.T) {
	id := uuid.NewString()
	svc := &fakeService{images: map[string]*store.Image{
		id: {ID: id, UserID: "u1", Prompt: "p", ImageURLs: []string{"https://a/1.png"}},
	}}
	r := newTestRouter(svc)

	w := do(r, http.MethodGet, "/api/images/"+id, "")
	if w.Code != http.StatusOK || gjson.Get(w.Body.String(), "data.id").String() != id {
		t.Errorf("status = %d, body = %s", w.Code, w.Body)
	}
	if w := do(r, http.MethodGet, "/api/images/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/images/"+uuid.NewString(), ""); w.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d", w.Code)
	}

	svc.imageErr = store.ErrUnavailable
	if w := do(r, http.MethodGet, "/api/images/"+id, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no database status = %d", w.Code)
	}
}

func TestUserImages(t *testing.T) {
	svc := &fakeService{images: map[string]*store.Image{
		"a": {ID: "a", UserID: "u1"},
		"b": {ID: "b", UserID: "u1"},
		"c": {ID: "c", UserID: "u2"},
	}}
	w := do(newTestRouter(svc), http.MethodGet, "/api/images/user/u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	g := gjson.Parse(w.Body.String())
	if g.Get("count").Int() != 2 || g.Get("data.#").Int() != 2 {
		t.Errorf("body = %s", w.Body)
	}
}

func TestCategories(t *testing.T) {
	w := do(newTestRouter(&fakeService{}), http.MethodGet, "/api/brainstorm/categories", "")
	g := gjson.Parse(w.Body.String())
	if w.Code != http.StatusOK || g.Get("data.#").Int() != 6 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if g.Get("data.0.id").String() != "landscapes" || g.Get("data.0.displayName").String() != "风景" {
		t.Errorf("body = %s", w.Body)
	}
}

func TestBrainstorm(t *testing.T) {
	r := newTestRouter(&fakeService{})
	tests := []struct {
		path   string
		status int
		count  int64
	}{
		{"/api/brainstorm/fantasy", http.StatusOK, 4},
		{"/api/brainstorm/scifi?count=2", http.StatusOK, 2},
		{"/api/brainstorm/cars", http.StatusBadRequest, 0},
		{"/api/brainstorm/fantasy?count=11", http.StatusBadRequest, 0},
		{"/api/brainstorm/fantasy?count=0", http.StatusBadRequest, 0},
		{"/api/brainstorm/fantasy?count=many", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		w := do(r, http.MethodGet, tt.path, "")
		if w.Code != tt.status {
			t.Errorf("%s status = %d, want %d", tt.path, w.Code, tt.status)
			continue
		}
		if tt.status == http.StatusOK && gjson.Get(w.Body.String(), "data.#").Int() != tt.count {
			t.Errorf("%s body = %s", tt.path, w.Body)
		}
	}
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(&fakeService{db: true}), http.MethodGet, "/health", "")
	g := gjson.Parse(w.Body.String())
	if w.Code != http.StatusOK || g.Get("status").String() != "ok" || !g.Get("dbConnected").Bool() {
		t.Errorf("status = %d, body = %s", w.Code, w.Body)
	}
	if _, err := time.Parse(time.RFC3339, g.Get("timestamp").String()); err != nil {
		t.Errorf("timestamp = %s", g.Get("timestamp"))
	}
}

func TestNotFoundAndCors(t *testing.T) {
	r := newTestRouter(&fakeService{})
	w := do(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || !strings.Contains(gjson.Get(w.Body.String(), "message").String(), "/nope") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	w = do(r, http.MethodOptions, "/api/images", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d", w.Code)
	}
}

func TestMaskIP(t *testing.T) {
	if got := maskIP("192.168.3.4:5678"); got != "192.168.*.*" {
		t.Errorf("maskIP() = %q", got)
	}
}

func dialWS(t *testing.T, svc Service) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(svc))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/images/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial() error = %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readTypes(t *testing.T, conn *websocket.Conn, until string) []gjson.Result {
	t.Helper()
	var msgs []gjson.Result
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v (got %d messages)", err, len(msgs))
		}
		msg := gjson.ParseBytes(data)
		msgs = append(msgs, msg)
		if msg.Get("type").String() == until {
			return msgs
		}
	}
}

func TestProgressStream(t *testing.T) {
	conn, closeFn := dialWS(t, &fakeService{})
	defer closeFn()

	req, _ := json.Marshal(gin.H{"action": "/image/generate", "data": gin.H{"prompt": "red fox"}})
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatal(err)
	}

	msgs := readTypes(t, conn, "done")
	var types []string
	for _, m := range msgs {
		types = append(types, m.Get("type").String())
	}
	if strings.Join(types, ",") != "optimized,progress,progress,progress,done" {
		t.Fatalf("types = %v", types)
	}
	if msgs[2].Get("attempt").Int() != 1 || msgs[2].Get("maxAttempts").Int() != 30 || msgs[2].Get("status").String() != "RUNNING" {
		t.Errorf("progress = %s", msgs[2].Raw)
	}
	if msgs[4].Get("data.images.0").String() != "https://a/1.png" {
		t.Errorf("done = %s", msgs[4].Raw)
	}
}

func TestProgressStreamErrors(t *testing.T) {
	conn, closeFn := dialWS(t, &fakeService{genErr: &task.TaskTimeoutError{TaskID: "t-1", Attempt: 30}})
	defer closeFn()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"/unknown"}`))
	msgs := readTypes(t, conn, "error")
	if msgs[0].Get("status").Int() != http.StatusNotFound {
		t.Errorf("unknown action = %s", msgs[0].Raw)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"/image/generate","data":{"prompt":"x"}}`))
	msgs = readTypes(t, conn, "error")
	last := msgs[len(msgs)-1]
	if last.Get("status").Int() != http.StatusGatewayTimeout {
		t.Errorf("error = %s", last.Raw)
	}
}

func TestProgressBrainstorm(t *testing.T) {
	conn, closeFn := dialWS(t, &fakeService{})
	defer closeFn()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"/brainstorm","data":{"category":"animals","count":2}}`))
	msgs := readTypes(t, conn, "ideas")
	if msgs[0].Get("data.#").Int() != 2 || !msgs[0].Get("fallback").Bool() {
		t.Errorf("ideas = %s", msgs[0].Raw)
	}
}

func TestProgressCancelOnDisconnect(t *testing.T) {
	svc := &fakeService{block: true, canceled: make(chan struct{})}
	conn, closeFn := dialWS(t, svc)
	defer closeFn()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"/image/generate","data":{"prompt":"x"}}`))
	deadline := time.Now().Add(2 * time.Second)
	for {
		svc.mu.Lock()
		started := svc.lastReq.Prompt != ""
		svc.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handler never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	conn.Close()

	select {
	case <-svc.canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("generation was not canceled after disconnect")
	}
}
