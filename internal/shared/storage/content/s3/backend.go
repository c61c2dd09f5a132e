// Package s3 implements the content backend on Amazon S3 using conditional
// writes: the object ETag is the CAS token (If-Match / If-None-Match), and
// object versions on a versioning-enabled bucket serve as historical refs.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"resume-store/internal/shared/storage/content"
)

// Backend implements content.Backend over one S3 bucket. History requires
// bucket versioning; without it ListRevisions only ever sees the live state.
type Backend struct {
	client *awss3.Client
	bucket string
	prefix string
}

// New constructs an S3-backed content store using the default AWS credential
// chain.
func New(ctx context.Context, region, bucket, prefix string) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Backend{
		client: awss3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}, nil
}

// Get downloads the object, optionally at a historical version id, and
// returns its content with the ETag as the CAS revision.
func (b *Backend) Get(ctx context.Context, path, ref string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	input := &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(applyPrefix(b.prefix, path)),
	}
	if ref != "" {
		input.VersionId = aws.String(ref)
	}
	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, "", classify(err, path, ref)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", content.ErrBackendUnavailable, err)
	}
	return data, trimETag(aws.ToString(out.ETag)), nil
}

// Put uploads the object guarded by a conditional write: If-Match against the
// expected ETag, or If-None-Match when the object must not exist yet.
func (b *Backend) Put(ctx context.Context, path string, data []byte, message, expectedRevision string) (content.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return content.PutResult{}, err
	}
	input := &awss3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(applyPrefix(b.prefix, path)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if expectedRevision == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(expectedRevision)
	}
	// S3 has no per-write commit message; the revision listing carries
	// timestamps only.
	_ = message

	out, err := b.client.PutObject(ctx, input)
	if err != nil {
		return content.PutResult{}, classify(err, path, "")
	}

	result := content.PutResult{Revision: trimETag(aws.ToString(out.ETag))}
	if out.VersionId != nil {
		result.CommitID = aws.ToString(out.VersionId)
	} else {
		result.CommitID = result.Revision
	}
	return result, nil
}

// ListRevisions lists the object's versions, newest first. The version id is
// the ref accepted by Get.
func (b *Backend) ListRevisions(ctx context.Context, path string, limit int) ([]content.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := applyPrefix(b.prefix, path)
	out, err := b.client.ListObjectVersions(ctx, &awss3.ListObjectVersionsInput{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(key),
	})
	if err != nil {
		return nil, classify(err, path, "")
	}

	var revs []content.Revision
	for _, v := range out.Versions {
		if aws.ToString(v.Key) != key {
			continue
		}
		rev := content.Revision{SHA: aws.ToString(v.VersionId)}
		if v.LastModified != nil {
			rev.Date = *v.LastModified
		}
		revs = append(revs, rev)
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].Date.After(revs[j].Date) })
	if limit > 0 && len(revs) > limit {
		revs = revs[:limit]
	}
	return revs, nil
}

// List returns the full logical paths of objects directly under dir.
func (b *Backend) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logical := strings.TrimSuffix(dir, "/") + "/"
	keyPrefix := applyPrefix(b.prefix, logical)
	out, err := b.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(keyPrefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, classify(err, dir, "")
	}

	var paths []string
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		paths = append(paths, logical+strings.TrimPrefix(key, keyPrefix))
	}
	sort.Strings(paths)
	return paths, nil
}

// Delete removes the object.
func (b *Backend) Delete(ctx context.Context, path, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(applyPrefix(b.prefix, path)),
	})
	if err != nil {
		return classify(err, path, "")
	}
	return nil
}

// classify maps S3 API failures onto the backend error taxonomy.
func classify(err error, path, ref string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			if ref != "" {
				return fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, path, ref)
			}
			return fmt.Errorf("%w: %s", content.ErrNotFound, path)
		case "NoSuchVersion", "InvalidVersionId", "InvalidArgument":
			if ref != "" {
				return fmt.Errorf("%w: %s@%s", content.ErrRevisionNotFound, path, ref)
			}
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%w: %s", content.ErrConcurrentModification, path)
		}
	}
	return fmt.Errorf("%w: %v", content.ErrBackendUnavailable, err)
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanKey := strings.TrimLeft(key, "/")
	if prefix == "" {
		return cleanKey
	}
	return prefix + "/" + cleanKey
}

var _ content.Backend = (*Backend)(nil)
