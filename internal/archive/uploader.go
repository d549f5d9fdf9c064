package archive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsCreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/qiniu/go-sdk/v7/storagev2/credentials"
	"github.com/qiniu/go-sdk/v7/storagev2/http_client"
	"github.com/qiniu/go-sdk/v7/storagev2/uploader"

	"github.com/bihua-university/dreamcanvas/internal/base"
)

// Uploader 将本地文件上传到对象存储，返回可访问的地址
type Uploader interface {
	Upload(ctx context.Context, filename, key, contentType string) (string, error)
}

// NewUploader 按 storage.type 创建上传器，未配置时返回 nil
func NewUploader(ctx context.Context, c base.Settings) (Uploader, error) {
	switch c.StorageType {
	case "":
		return nil, nil
	case "qiniu":
		if c.QiniuAK == "" || c.QiniuSK == "" || c.QiniuBucket == "" {
			return nil, fmt.Errorf("七牛云存储配置不完整")
		}
		return NewQiniu(c.QiniuAK, c.QiniuSK, c.QiniuBucket, c.QiniuDomain), nil
	case "s3":
		if c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" || c.S3Bucket == "" {
			return nil, fmt.Errorf("S3存储配置不完整")
		}
		s, err := NewS3(ctx, c.S3AccessKeyID, c.S3SecretAccessKey, c.S3Region, c.S3Bucket, c.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", c.StorageType)
	}
}

// Qiniu 七牛云上传
type Qiniu struct {
	bucket  string
	domain  string
	manager *uploader.UploadManager
}

func NewQiniu(ak, sk, bucket, domain string) *Qiniu {
	mac := credentials.NewCredentials(ak, sk)
	return &Qiniu{
		bucket: bucket,
		domain: strings.TrimRight(domain, "/"),
		manager: uploader.NewUploadManager(&uploader.UploadManagerOptions{
			Options: http_client.Options{
				Credentials: mac,
			},
		}),
	}
}

func (q *Qiniu) Upload(ctx context.Context, filename, key, contentType string) (string, error) {
	err := q.manager.UploadFile(ctx, filename, &uploader.ObjectOptions{
		BucketName:  q.bucket,
		ObjectName:  &key,
		FileName:    key,
		ContentType: contentType,
	}, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", q.domain, key), nil
}

// S3 兼容 AWS S3 与 minio
type S3 struct {
	bucket   string
	region   string
	endpoint string
	client   *s3.Client
}

func NewS3(ctx context.Context, accessKeyID, secretAccessKey, region, bucket, endpoint string) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(awsCreds.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("加载S3配置失败: %w", err)
	}

	endpoint = strings.TrimRight(endpoint, "/")
	var client *s3.Client
	if endpoint != "" {
		// minio
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}
	return &S3{bucket: bucket, region: region, endpoint: endpoint, client: client}, nil
}

func (s *S3) Upload(ctx context.Context, filename, key, contentType string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err = s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

// URL 对象的公开地址
func (s *S3) URL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
