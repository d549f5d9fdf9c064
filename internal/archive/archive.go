// Package archive 将模型返回的临时图片地址转存到对象存储
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

// Archiver 下载并转存图片
//
// Provider image links expire after a day; archived copies do not.
type Archiver struct {
	Prefix string

	uploader Uploader
	client   *req.Client
	logger   *slog.Logger
}

func New(u Uploader, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		Prefix:   "dream",
		uploader: u,
		client:   req.C().SetTimeout(60 * time.Second),
		logger:   logger,
	}
}

// Archive 转存 urls，返回新地址，顺序与输入一致
//
// A nil Archiver returns urls unchanged.
func (a *Archiver) Archive(ctx context.Context, id string, urls []string) ([]string, error) {
	if a == nil || a.uploader == nil {
		return urls, nil
	}

	dir, err := os.MkdirTemp("", "dreamcanvas-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out := make([]string, 0, len(urls))
	for i, u := range urls {
		archived, err := a.archiveOne(ctx, dir, id, i, u)
		if err != nil {
			return nil, fmt.Errorf("转存第%d张图片失败: %w", i+1, err)
		}
		out = append(out, archived)
	}
	a.logger.Info("图片转存完成", "id", id, "count", len(out))
	return out, nil
}

func (a *Archiver) archiveOne(ctx context.Context, dir, id string, i int, src string) (string, error) {
	filename := filepath.Join(dir, fmt.Sprintf("%d", i))
	resp, err := a.client.R().
		SetContext(ctx).
		SetOutputFile(filename).
		Get(src)
	if err != nil {
		return "", fmt.Errorf("下载失败: %w", err)
	}
	if !resp.IsSuccessState() {
		return "", fmt.Errorf("下载失败: 状态码=%d", resp.StatusCode)
	}

	contentType := resp.GetContentType()
	key := fmt.Sprintf("%s/%s/%d%s", a.Prefix, id, i, extension(contentType, src))
	return a.uploader.Upload(ctx, filename, key, contentType)
}

func extension(contentType, src string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		case "image/webp":
			return ".webp"
		}
	}
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	return ".png"
}
