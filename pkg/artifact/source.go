package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxArtifactSize ограничивает размер загружаемого артефакта
const MaxArtifactSize = 16 << 20

// S3Config - доступ к S3-совместимому хранилищу.
// Пустые ключи означают стандартную цепочку учетных данных AWS.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"` // MinIO и другие S3-совместимые хранилища
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Loader получает артефакт по адресу: путь к файлу, http(s):// или s3://bucket/key
type Loader struct {
	httpClient *http.Client
	s3cfg      S3Config
	s3client   manager.DownloadAPIClient
}

// LoaderOption настраивает Loader
type LoaderOption func(*Loader)

// WithHTTPClient задает HTTP-клиент
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.httpClient = c
	}
}

// WithS3Config задает параметры S3
func WithS3Config(cfg S3Config) LoaderOption {
	return func(l *Loader) {
		l.s3cfg = cfg
	}
}

// WithS3Client задает готовый клиент S3
func WithS3Client(c manager.DownloadAPIClient) LoaderOption {
	return func(l *Loader) {
		l.s3client = c
	}
}

// NewLoader создает Loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load получает и разбирает артефакт
func (l *Loader) Load(ctx context.Context, location string) (*Artifact, error) {
	data, baseDir, err := l.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	a.BaseDir = baseDir
	return a, nil
}

// Fetch возвращает содержимое артефакта и каталог для относительных путей
// (только для локальных файлов)
func (l *Loader) Fetch(ctx context.Context, location string) ([]byte, string, error) {
	if location == "" {
		return nil, "", fmt.Errorf("artifact location is empty")
	}

	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		data, err := l.fetchHTTP(ctx, location)
		return data, "", err
	case strings.HasPrefix(location, "s3://"):
		data, err := l.fetchS3(ctx, location)
		return data, "", err
	default:
		path := strings.TrimPrefix(location, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read artifact: %w", err)
		}
		return data, filepath.Dir(path), nil
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact url: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download artifact: %s returned %s", location, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact body: %w", err)
	}
	if len(data) > MaxArtifactSize {
		return nil, fmt.Errorf("artifact exceeds %d bytes", MaxArtifactSize)
	}
	return data, nil
}

// ParseS3URL разбирает s3://bucket/key
func ParseS3URL(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 url '%s': expected s3://bucket/key", location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid s3 url '%s': empty key", location)
	}
	return u.Host, key, nil
}

func (l *Loader) fetchS3(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}

	client := l.s3client
	if client == nil {
		client, err = newS3Client(ctx, l.s3cfg)
		if err != nil {
			return nil, err
		}
	}

	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	n, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	if n > MaxArtifactSize {
		return nil, fmt.Errorf("artifact exceeds %d bytes", MaxArtifactSize)
	}
	return buf.Bytes(), nil
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}
