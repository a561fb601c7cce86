// Package s3 implements a driver.Backend backed by AWS S3 object storage
// (spec.md §4.6). Grounded on promo-tools' s3SyncFilestore: aws-sdk-go-v2
// config loading, a *s3.Client held on the driver, GetObject/PutObject for
// content transfer, and a HEAD-style existence check, adapted from promo-
// tools' sync-filestore shape to the registry's five-operation Backend
// contract and its fixed "store/<digest>.{tar.zst,json}" key scheme.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vorpal-build/vorpal/internal/registry/driver"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// Driver is a driver.Backend implementation backed by an S3 bucket.
type Driver struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ driver.Backend = (*Driver)(nil)

// New constructs a Driver for the given bucket/region/key-prefix, loading
// AWS credentials the standard SDK way (environment, shared config, or
// instance role).
func New(ctx context.Context, bucket, region, prefix string) (*Driver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, vorpalerr.New(vorpalerr.Network, "load aws config: %v", err)
	}
	return &Driver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (d *Driver) archiveKey(dg digest.Digest) string {
	return d.prefix + "store/" + dg.String() + ".tar.zst"
}

func (d *Driver) configKey(dg digest.Digest) string {
	return d.prefix + "store/" + dg.String() + ".json"
}

func (d *Driver) Check(ctx context.Context, dg digest.Digest) (bool, error) {
	return d.exists(ctx, d.archiveKey(dg))
}

func (d *Driver) exists(ctx context.Context, key string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &d.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, vorpalerr.New(vorpalerr.Network, "head %s: %v", key, err)
}

func (d *Driver) Pull(ctx context.Context, dg digest.Digest, w io.Writer) error {
	key := d.archiveKey(dg)
	obj, err := d.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &d.bucket, Key: &key})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return vorpalerr.New(vorpalerr.NotFound, "archive %s not found", dg)
		}
		return vorpalerr.New(vorpalerr.Network, "get %s: %v", key, err)
	}
	defer obj.Body.Close()
	if _, err := io.Copy(w, obj.Body); err != nil {
		return vorpalerr.New(vorpalerr.Network, "read %s: %v", key, err)
	}
	return nil
}

func (d *Driver) Push(ctx context.Context, dg digest.Digest, body io.Reader) error {
	exists, err := d.Check(ctx, dg)
	if err != nil {
		return err
	}
	if exists {
		// Invariant I5: never overwrite an existing archive.
		return nil
	}
	key := d.archiveKey(dg)
	uploader := manager.NewUploader(d.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &d.bucket,
		Key:    &key,
		Body:   body,
	})
	if err != nil {
		return vorpalerr.New(vorpalerr.Network, "put %s: %v", key, err)
	}
	return nil
}

func (d *Driver) GetArtifact(ctx context.Context, dg digest.Digest) (artifact.Artifact, error) {
	key := d.configKey(dg)
	obj, err := d.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &d.bucket, Key: &key})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return artifact.Artifact{}, vorpalerr.New(vorpalerr.NotFound, "artifact %s not found", dg)
		}
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.Network, "get %s: %v", key, err)
	}
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.Network, "read %s: %v", key, err)
	}
	if recomputed := digest.FromBytes(data); recomputed != dg {
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.CorruptArchive, "artifact %s: stored config digest mismatch (got %s)", dg, recomputed)
	}
	a, err := artifact.Parse(data)
	if err != nil {
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.CorruptArchive, "artifact %s: %v", dg, err)
	}
	return a, nil
}

func (d *Driver) StoreArtifact(ctx context.Context, a artifact.Artifact) (digest.Digest, error) {
	data, err := artifact.Canonicalize(a)
	if err != nil {
		return "", err
	}
	dg := digest.FromBytes(data)
	exists, err := d.exists(ctx, d.configKey(dg))
	if err != nil {
		return "", err
	}
	if exists {
		return dg, nil
	}
	key := d.configKey(dg)
	if _, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &d.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}); err != nil {
		return "", vorpalerr.New(vorpalerr.Network, "put %s: %v", key, err)
	}
	return dg, nil
}
