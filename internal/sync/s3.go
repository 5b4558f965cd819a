package sync

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object metadata written with every snapshot. S3 returns these as
// x-amz-meta-* headers, so a reader can check a snapshot without downloading it.
const (
	MetaFormatVersion = "varhub-format-version"
	MetaVariableCount = "varhub-variable-count"
	MetaExportedAt    = "varhub-exported-at"
	MetaChecksum      = "varhub-sha256"
)

// objectPutter is the part of *s3.Client an upload needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads each snapshot over a single object in an
// S3-compatible bucket.
type S3Destination struct {
	client objectPutter
	bucket string
	key    string
}

// NewS3Destination creates an S3 destination. A non-empty endpoint selects
// path-style addressing against that endpoint (MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: bucket, key: key}, nil
}

func (d *S3Destination) Name() string {
	return "s3://" + d.bucket + "/" + d.key
}

func (d *S3Destination) Write(ctx context.Context, snap *Snapshot) error {
	if _, err := d.client.PutObject(ctx, d.putInput(snap)); err != nil {
		return fmt.Errorf("upload %d variables to %s: %w", snap.Header.VariableCount, d.Name(), err)
	}
	return nil
}

func (d *S3Destination) putInput(snap *Snapshot) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.key),
		Body:          bytes.NewReader(snap.Data),
		ContentLength: aws.Int64(int64(len(snap.Data))),
		ContentType:   aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			MetaFormatVersion: snap.Header.Version,
			MetaVariableCount: strconv.Itoa(snap.Header.VariableCount),
			MetaExportedAt:    snap.Header.Timestamp.Format(time.RFC3339),
			MetaChecksum:      snap.Checksum,
		},
	}
}
