package base

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Settings 服务配置
//
// Each field is read from the dotted `config` path of config.json, then
// overridden by the `env` variable when set, falling back to `default`.
type Settings struct {
	Addr  string `config:"addr" env:"DREAM_ADDR" default:":5001"`
	Debug bool   `config:"debug" env:"DREAM_DEBUG"`
	Pgsql string `config:"db.pgsql" env:"DATABASE_URL" secret:"true"`

	ImageAPIKey   string `config:"image.apiKey" env:"ALIYUN_API_KEY" required:"true" secret:"true"`
	ImageBaseURL  string `config:"image.baseUrl" env:"ALIYUN_BASE_URL" default:"https://dashscope.aliyuncs.com/api/v1"`
	ImageModel    string `config:"image.model" default:"wanx2.1-t2i-turbo"`
	ImageCount    int    `config:"image.count" default:"4"`
	ImageFallback bool   `config:"image.fallback" env:"USE_MOCK_DATA"`

	ChatAPIKey  string `config:"chat.apiKey" env:"QWQ_API_KEY" required:"true" secret:"true"`
	ChatBaseURL string `config:"chat.baseUrl" env:"QWQ_BASE_URL" default:"https://dashscope.aliyuncs.com/compatible-mode/v1"`
	ChatModel   string `config:"chat.model" default:"qwq-32b"`

	PollInterval  time.Duration `config:"task.pollInterval" default:"2s"`
	MaxAttempts   int           `config:"task.maxAttempts" default:"30"`
	SubmitRetries int           `config:"task.submitRetries" default:"2"`
	SubmitBackoff time.Duration `config:"task.submitBackoff" default:"1s"`
	HTTPTimeout   time.Duration `config:"http.timeout" default:"30s"`

	StorageType       string `config:"storage.type" env:"STORAGE_TYPE"` // "qiniu", "s3" or empty
	QiniuAK           string `config:"storage.qiniu.ak" env:"QINIU_AK" secret:"true"`
	QiniuSK           string `config:"storage.qiniu.sk" env:"QINIU_SK" secret:"true"`
	QiniuBucket       string `config:"storage.qiniu.bucket"`
	QiniuDomain       string `config:"storage.qiniu.domain"`
	S3AccessKeyID     string `config:"storage.s3.accessKeyId" env:"AWS_ACCESS_KEY_ID" secret:"true"`
	S3SecretAccessKey string `config:"storage.s3.secretAccessKey" env:"AWS_SECRET_ACCESS_KEY" secret:"true"`
	S3Region          string `config:"storage.s3.region" env:"AWS_REGION"`
	S3Bucket          string `config:"storage.s3.bucket"`
	S3Endpoint        string `config:"storage.s3.endpoint"` // minio
}

var Config Settings

// InitConfig 读取 config.json 与环境变量，结果写入 Config
func InitConfig() {
	c, err := Load("config.json")
	if err != nil {
		log.Fatalf("配置文件读取失败: %v", err)
	}
	Config = c
}

// Load 读取配置文件，文件不存在时只使用环境变量与默认值
func Load(path string) (Settings, error) {
	file, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("无法打开配置文件: %w", err)
	}
	return Parse(file)
}

// Parse 解析 JSON 配置
func Parse(data []byte) (Settings, error) {
	var s Settings
	if len(data) > 0 && !gjson.ValidBytes(data) {
		return s, errors.New("配置文件不是合法的JSON")
	}
	g := gjson.ParseBytes(data)

	var (
		v = reflect.ValueOf(&s).Elem()
		t = v.Type()
	)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("config")
		if name == "" {
			continue
		}

		raw, ok := lookup(g, field)
		if !ok {
			continue
		}
		if err := set(v.Field(i), raw); err != nil {
			return s, fmt.Errorf("配置项 %s: %w", name, err)
		}
	}
	return s, nil
}

// lookup resolves env > file > default. Numbers in the file are kept raw so
// that durations may be written as milliseconds.
func lookup(g gjson.Result, field reflect.StructField) (string, bool) {
	if env := field.Tag.Get("env"); env != "" {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			return v, true
		}
	}
	if r := g.Get(field.Tag.Get("config")); r.Exists() {
		if r.Type == gjson.Number && field.Type == durationType {
			return r.Raw + "ms", true
		}
		return r.String(), true
	}
	return field.Tag.Lookup("default")
}

var durationType = reflect.TypeOf(time.Duration(0))

func set(f reflect.Value, raw string) error {
	if f.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	default:
		panic("unsupported type")
	}
	return nil
}

// Validation 配置检查结果
type Validation struct {
	Missing  []string
	Warnings []string
}

func (v Validation) OK() bool { return len(v.Missing) == 0 }

// Validate 检查必填项与常见格式问题，只给出提示，不阻止启动
func (s Settings) Validate() Validation {
	var res Validation
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			res.Missing = append(res.Missing, field.Tag.Get("config"))
		}
	}

	for _, key := range []struct{ name, value string }{
		{"image.apiKey", s.ImageAPIKey},
		{"chat.apiKey", s.ChatAPIKey},
	} {
		if key.value != "" && !strings.HasPrefix(key.value, "sk-") {
			res.Warnings = append(res.Warnings, key.name+" 格式可能不正确，应以 sk- 开头")
		}
	}
	if s.Pgsql == "" {
		res.Warnings = append(res.Warnings, "db.pgsql 未设置，生成记录不会被保存")
	}
	if s.ImageFallback {
		res.Warnings = append(res.Warnings, "image.fallback 已开启，生成失败时将返回占位图")
	}
	switch s.StorageType {
	case "", "qiniu", "s3":
	default:
		res.Warnings = append(res.Warnings, "不支持的存储类型: "+s.StorageType)
	}
	if s.MaxAttempts <= 0 {
		res.Warnings = append(res.Warnings, "task.maxAttempts 必须大于0")
	}
	return res
}

// MaskSecret 屏蔽敏感信息，只保留前5个字符
func MaskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 5 {
		return strings.Repeat("*", len(value))
	}
	return value[:5] + strings.Repeat("*", min(10, len(value)-5))
}

// LogValue renders the settings with secrets masked.
func (s Settings) LogValue() slog.Value {
	v := reflect.ValueOf(s)
	t := v.Type()
	attrs := make([]slog.Attr, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("config")
		value := v.Field(i).Interface()
		if field.Tag.Get("secret") == "true" {
			value = MaskSecret(v.Field(i).String())
		}
		attrs = append(attrs, slog.Any(name, value))
	}
	return slog.GroupValue(attrs...)
}
