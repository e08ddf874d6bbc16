package fieldexport

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/formsync/internal/pkg/logger"
)

// Writer stores a serialized inventory.
type Writer interface {
	Write(ctx context.Context, inv *Inventory) (string, error)
}

// FileWriter writes the inventory to a local path.
type FileWriter struct {
	Path string
}

// Write creates parent directories as needed and returns the path written.
func (w FileWriter) Write(_ context.Context, inv *Inventory) (string, error) {
	body, err := inv.JSON()
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(w.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(w.Path, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", w.Path, err)
	}
	return w.Path, nil
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer uploads the inventory to a bucket, one object per run.
type S3Writer struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Writer loads the default AWS credential chain for region.
func NewS3Writer(ctx context.Context, bucket, prefix, region string) (*S3Writer, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 export: bucket is required")
	}
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for S3 export: %w", err)
	}
	return NewS3WriterWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3WriterWithClient uses an existing client.
func NewS3WriterWithClient(client s3API, bucket, prefix string) *S3Writer {
	return &S3Writer{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (w *S3Writer) key(inv *Inventory) string {
	name := fmt.Sprintf("fields-%s.json", inv.GeneratedAt.UTC().Format("20060102T150405Z"))
	if w.prefix == "" {
		return name
	}
	return w.prefix + "/" + name
}

// Write uploads the inventory and returns its s3:// location.
func (w *S3Writer) Write(ctx context.Context, inv *Inventory) (string, error) {
	body, err := inv.JSON()
	if err != nil {
		return "", err
	}
	key := w.key(inv)
	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", w.bucket, key, err)
	}
	logger.Info("fieldexport: inventory uploaded",
		"bucket", w.bucket, "key", key, "fields", len(inv.Fields), "tags", len(inv.Tags))
	return "s3://" + w.bucket + "/" + key, nil
}
