package storage

import (
	"bytes"
	"context"
	"io/ioutil"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// S3Store maps folders to key prefixes in a single bucket. The bucket is
// expected to have versioning enabled so that UploadVersion keeps history.
// File IDs are object keys.
type S3Store struct {
	svc    s3iface.S3API
	bucket string
}

func NewS3Store(svc s3iface.S3API, bucket string) *S3Store {
	return &S3Store{svc: svc, bucket: bucket}
}

func (s *S3Store) key(folderID, name string) string {
	if folderID == "" {
		return name
	}
	return strings.TrimSuffix(folderID, "/") + "/" + name
}

func (s *S3Store) Find(ctx context.Context, folderID, name string) (string, error) {
	key := s.key(folderID, name)
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return "", ErrNoObject
	} else if err != nil {
		return "", errors.Wrapf(err, "head s3://%s/%s", s.bucket, key)
	}
	return key, nil
}

func (s *S3Store) Download(ctx context.Context, id string) ([]byte, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if isNotFound(err) {
		return nil, errors.Wrap(ErrNoObject, id)
	} else if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", s.bucket, id)
	}
	defer out.Body.Close()
	data, err := ioutil.ReadAll(out.Body)
	return data, errors.Wrapf(err, "read s3://%s/%s", s.bucket, id)
}

var contentTypes = map[string]string{
	".txt": "text/plain; charset=utf-8",
	".log": "text/plain; charset=utf-8",
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
}

func contentTypeOf(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *S3Store) put(ctx context.Context, key, name string, data []byte) error {
	contentType := contentTypeOf(name)
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return errors.Wrapf(err, "put s3://%s/%s", s.bucket, key)
}

func (s *S3Store) Upload(ctx context.Context, folderID, name string, data []byte) (string, error) {
	key := s.key(folderID, name)
	if err := s.put(ctx, key, name, data); err != nil {
		return "", err
	}
	return key, nil
}

// UploadVersion overwrites the key; the bucket's versioning retains the
// previous content.
func (s *S3Store) UploadVersion(ctx context.Context, id, name string, data []byte) error {
	return s.put(ctx, id, name, data)
}

func (s *S3Store) Delete(ctx context.Context, id string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	return errors.Wrapf(err, "delete s3://%s/%s", s.bucket, id)
}

// Move copies the object under the destination prefix and removes the
// source key. S3 has no rename, so this is the closest to a parent change.
func (s *S3Store) Move(ctx context.Context, id, folderID string) error {
	dst := s.key(folderID, path.Base(id))
	_, err := s.svc.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(url.PathEscape(s.bucket + "/" + id)),
	})
	if err != nil {
		return errors.Wrapf(err, "copy s3://%s/%s to %s", s.bucket, id, dst)
	}
	return s.Delete(ctx, id)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if rerr, ok := err.(awserr.RequestFailure); ok && rerr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
