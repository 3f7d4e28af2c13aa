package transport

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	KeyPrefix string
}

// S3Transport uploads the file behind a local-path content locator to an
// S3 bucket, emitting whole-percent progress as the body is consumed.
type S3Transport struct {
	cfg S3Config
	s3  *s3.Client
}

func NewS3Transport(ctx context.Context, cfg S3Config) (*S3Transport, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if parsed, err := url.Parse(endpoint); err == nil {
			endpoint = parsed.String()
		}
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Transport{cfg: cfg, s3: s3Client}, nil
}

func (t *S3Transport) Send(ctx context.Context, locator string) <-chan Event {
	events := make(chan Event, 8)
	go func() {
		defer close(events)

		file, err := os.Open(locator)
		if err != nil {
			events <- Failed(err.Error())
			return
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			events <- Failed(err.Error())
			return
		}

		events <- Progress(0)

		body := newProgressReader(file, info.Size(), func(percent int) {
			events <- Progress(percent)
		})

		input := &s3.PutObjectInput{
			Bucket: aws.String(t.cfg.Bucket),
			Key:    aws.String(t.buildObjectKey(locator)),
			Body:   body,
		}
		if contentType := mime.TypeByExtension(path.Ext(locator)); contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		if info.Size() > 0 {
			input.ContentLength = aws.Int64(info.Size())
		}

		if _, err := t.s3.PutObject(ctx, input); err != nil {
			events <- Failed(err.Error())
			return
		}

		events <- Progress(100)
		events <- Completed()
	}()
	return events
}

func (t *S3Transport) buildObjectKey(locator string) string {
	base := t.cfg.KeyPrefix
	if base == "" {
		base = "uploads"
	}
	key := base + "/" + uuid.NewString()
	if ext := strings.ToLower(path.Ext(locator)); ext != "" {
		key += ext
	}
	return key
}

// progressReader counts consumed bytes and reports whole-percent steps.
// It never reports 100; the terminal progress event belongs to the caller
// once the remote write has actually succeeded.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	lastPct  int
	onChange func(percent int)
}

func newProgressReader(r io.Reader, total int64, onChange func(int)) *progressReader {
	return &progressReader{r: r, total: total, onChange: onChange}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		if pct > p.lastPct {
			p.lastPct = pct
			p.onChange(pct)
		}
	}
	return n, err
}
