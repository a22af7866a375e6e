package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

// S3ObjectRepository reads objects from one S3 bucket.
type S3ObjectRepository struct {
	client     manager.DownloadAPIClient
	bucketName string
}

// GetBucketName returns the bucket name.
func (r *S3ObjectRepository) GetBucketName() string {
	return r.bucketName
}

// GetStorageType returns the object store type.
func (r *S3ObjectRepository) GetStorageType() string {
	return string(S3Type)
}

// Download fetches the whole object into memory with the S3 transfer
// manager. Objects here are small configuration documents.
func (r *S3ObjectRepository) Download(ctx context.Context, key string, quiet bool) (io.ReadCloser, error) {
	buf := manager.NewWriteAtBuffer(nil)

	var w io.WriterAt = buf
	if !quiet {
		log.Debugf("Downloading from S3: s3://%s/%s", r.bucketName, key)
		w = &progressWriterAt{w: buf, bar: progressbar.DefaultBytes(-1, "downloading")}
	}

	downloader := manager.NewDownloader(r.client)
	n, err := downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes()[:n])), nil
}

// progressWriterAt advances a progress bar as parts are written
type progressWriterAt struct {
	w   io.WriterAt
	bar *progressbar.ProgressBar
}

func (pw *progressWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := pw.w.WriteAt(p, off)
	_ = pw.bar.Add(n)
	return n, err
}
