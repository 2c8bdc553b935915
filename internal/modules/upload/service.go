package upload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	appcfg "github.com/trustnet/core/internal/config"
)

var (
	extPattern          = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
	errInvalidExtension = errors.New("invalid file extension")
)

// PresignedUpload is a time-limited, pre-authorized PUT target. The
// client uploads directly to object storage; file bytes never pass
// through this service.
type PresignedUpload struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// Presigner issues upload URLs against the configured bucket.
type Presigner struct {
	client    *s3.PresignClient
	bucket    string
	keyPrefix string
	expiry    time.Duration
}

func NewPresigner(ctx context.Context, opts appcfg.S3Options) (*Presigner, error) {
	if strings.TrimSpace(opts.Bucket) == "" || strings.TrimSpace(opts.Region) == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket and region are required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{
		client:    s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		keyPrefix: strings.Trim(opts.KeyPrefix, "/"),
		expiry:    time.Duration(opts.PresignExpiryMin) * time.Minute,
	}, nil
}

// PresignUpload signs one PUT for a fresh random key. Extension and
// content type are caller hints; an invalid extension is rejected
// rather than sanitized silently.
func (p *Presigner) PresignUpload(ctx context.Context, contentType, extension string) (*PresignedUpload, error) {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
	if ext != "" && !extPattern.MatchString(ext) {
		return nil, fmt.Errorf("%w: %q", errInvalidExtension, extension)
	}

	name := uuid.New().String()
	if ext != "" {
		name += "." + ext
	}
	key := path.Join(p.keyPrefix, time.Now().UTC().Format("2006/01"), name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := p.client.PresignPutObject(ctx, input, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return nil, err
	}

	return &PresignedUpload{
		URL:       req.URL,
		Key:       key,
		ExpiresIn: int(p.expiry.Seconds()),
	}, nil
}
