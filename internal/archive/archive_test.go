package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bihua-university/dreamcanvas/internal/base"
)

type fakeUploader struct {
	keys     []string
	contents []string
	types    []string
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, filename, key, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.contents = append(f.contents, string(data))
	f.types = append(f.types, contentType)
	return "https://cdn.example.com/" + key, nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func imageServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
			io.WriteString(w, "png-bytes")
		case "/b":
			w.Header().Set("Content-Type", "image/jpeg")
			io.WriteString(w, "jpeg-bytes")
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestArchive(t *testing.T) {
	srv := imageServer()
	defer srv.Close()

	up := &fakeUploader{}
	got, err := New(up, discard).Archive(context.Background(), "img-1", []string{srv.URL + "/a.png", srv.URL + "/b"})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	want := []string{
		"https://cdn.example.com/dream/img-1/0.png",
		"https://cdn.example.com/dream/img-1/1.jpg",
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Archive() = %v, want %v", got, want)
	}
	if up.contents[0] != "png-bytes" || up.contents[1] != "jpeg-bytes" {
		t.Errorf("uploaded contents = %v", up.contents)
	}
	if up.types[1] != "image/jpeg" {
		t.Errorf("content types = %v", up.types)
	}
}

func TestArchiveDownloadFailure(t *testing.T) {
	srv := imageServer()
	defer srv.Close()

	_, err := New(&fakeUploader{}, discard).Archive(context.Background(), "x", []string{srv.URL + "/missing"})
	if err == nil {
		t.Fatal("Archive() should fail on 404")
	}
}

func TestArchiveUploadFailure(t *testing.T) {
	srv := imageServer()
	defer srv.Close()

	boom := errors.New("bucket full")
	_, err := New(&fakeUploader{err: boom}, discard).Archive(context.Background(), "x", []string{srv.URL + "/a.png"})
	if !errors.Is(err, boom) {
		t.Fatalf("Archive() error = %v, want %v", err, boom)
	}
}

func TestNilArchiver(t *testing.T) {
	urls := []string{"https://a/1.png"}
	var a *Archiver
	got, err := a.Archive(context.Background(), "x", urls)
	if err != nil || len(got) != 1 || got[0] != urls[0] {
		t.Errorf("nil Archive() = %v, %v", got, err)
	}
	got, err = New(nil, discard).Archive(context.Background(), "x", urls)
	if err != nil || got[0] != urls[0] {
		t.Errorf("Archive() without uploader = %v, %v", got, err)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct{ ct, src, want string }{
		{"image/png", "https://a/x", ".png"},
		{"image/jpeg; charset=binary", "https://a/x.png", ".jpg"},
		{"image/webp", "", ".webp"},
		{"application/octet-stream", "https://a/x.jpeg?Expires=1", ".jpeg"},
		{"", "https://a/x", ".png"},
	}
	for _, tt := range tests {
		if got := extension(tt.ct, tt.src); got != tt.want {
			t.Errorf("extension(%q, %q) = %q, want %q", tt.ct, tt.src, got, tt.want)
		}
	}
}

func TestNewUploader(t *testing.T) {
	ctx := context.Background()
	if u, err := NewUploader(ctx, base.Settings{}); u != nil || err != nil {
		t.Errorf("NewUploader(empty) = %v, %v", u, err)
	}
	if _, err := NewUploader(ctx, base.Settings{StorageType: "ftp"}); err == nil {
		t.Error("NewUploader(ftp) should fail")
	}
	if _, err := NewUploader(ctx, base.Settings{StorageType: "qiniu"}); err == nil {
		t.Error("NewUploader(qiniu) without keys should fail")
	}
	u, err := NewUploader(ctx, base.Settings{
		StorageType:       "s3",
		S3AccessKeyID:     "ak",
		S3SecretAccessKey: "sk",
		S3Region:          "us-east-1",
		S3Bucket:          "dream",
		S3Endpoint:        "http://minio:9000/",
	})
	if err != nil {
		t.Fatalf("NewUploader(s3) error = %v", err)
	}
	if got := u.(*S3).URL("dream/x/0.png"); got != "http://minio:9000/dream/dream/x/0.png" {
		t.Errorf("URL() = %q", got)
	}
}
