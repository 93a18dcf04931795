// Package upload stores submission file blobs in S3-compatible object
// storage and hands back the path the file store records.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/store"
	"pressroom/api/internal/util"
)

// Uploader writes blobs into a bucket under the journal's path layout.
type Uploader struct {
	client    *minio.Client
	bucket    string
	context   string
	contextID int64
}

// Options configures the object storage connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Context   string
	ContextID int64
}

// New connects to object storage and ensures the bucket exists.
func New(ctx context.Context, opts Options) (*Uploader, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &Uploader{
		client:    client,
		bucket:    opts.Bucket,
		context:   opts.Context,
		contextID: opts.ContextID,
	}, nil
}

// Store writes the blob and returns the upload record the file store
// persists. The original filename only survives as metadata; the stored
// object gets a generated name so collisions cannot happen.
func (u *Uploader) Store(ctx context.Context, submissionID int64, stage filestage.Stage, originalName, mimetype string, uploaderUserID int64, body io.Reader, size int64) (store.FileUpload, error) {
	objectPath := u.ObjectPath(submissionID, stage, originalName)

	_, err := u.client.PutObject(ctx, u.bucket, objectPath, body, size, minio.PutObjectOptions{
		ContentType: mimetype,
	})
	if err != nil {
		return store.FileUpload{}, fmt.Errorf("store blob %s: %w", objectPath, err)
	}

	return store.FileUpload{
		Path:             objectPath,
		Mimetype:         mimetype,
		Size:             size,
		OriginalFileName: originalName,
		UploaderUserID:   uploaderUserID,
	}, nil
}

// Fetch streams a stored blob back.
func (u *Uploader) Fetch(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	obj, err := u.client.GetObject(ctx, u.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch blob %s: %w", objectPath, err)
	}
	return obj, nil
}

// Remove deletes a stored blob.
func (u *Uploader) Remove(ctx context.Context, objectPath string) error {
	if err := u.client.RemoveObject(ctx, u.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove blob %s: %w", objectPath, err)
	}
	return nil
}

// ObjectPath builds the storage path for a new blob:
// {context}/{contextId}/submissions/{submissionId}/{stageDir}/{generated}.
func (u *Uploader) ObjectPath(submissionID int64, stage filestage.Stage, originalName string) string {
	name := util.NewID("")
	if ext := fileExtension(originalName); ext != "" {
		name += ext
	}
	return fmt.Sprintf("%s/%d/submissions/%d/%s/%s",
		u.context, u.contextID, submissionID, filestage.Dir(stage), name)
}

func fileExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) > 8 {
		// An oversized "extension" is just a dotted filename.
		return ""
	}
	return ext
}
