package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/edvin/clusterplan/internal/metrics"
	"github.com/edvin/clusterplan/internal/model"
)

// markerFile flags a cluster in the bucket independently of its snapshot, so
// a cluster whose snapshot was lost is still listed and can be repaired.
const markerFile = ".cluster"

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Options configures the S3 client of an S3Store.
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// S3Store keeps snapshots in an S3 compatible bucket under
// <prefix><name>/cluster.json.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store creates a store talking to the configured endpoint with path
// style addressing, which works against AWS as well as MinIO and Ceph RGW.
func NewS3Store(opts S3Options) *S3Store {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: true,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	if opts.AccessKey != "" {
		o.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	}
	return newS3Store(s3.New(o), opts.Bucket, opts.Prefix)
}

func newS3Store(client s3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(name, file string) string {
	return s.prefix + name + "/" + file
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name, markerFile)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head cluster %s: %w", name, err)
	}
	return true, nil
}

func (s *S3Store) Load(ctx context.Context, name string) (*model.Cluster, error) {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notExist(name)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name, SnapshotFile)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, noConfFile(name, err)
		}
		return nil, fmt.Errorf("get snapshot %s: %w", name, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, noConfFile(name, err)
	}
	return Decode(name, b)
}

// Save writes the marker and then the snapshot, each in a single PutObject.
func (s *S3Store) Save(ctx context.Context, c *model.Cluster) (err error) {
	defer func() { metrics.ObserveSnapshotWrite("s3", err) }()

	b, err := Encode(c)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(c.Name, markerFile)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("put marker %s: %w", c.Name, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(c.Name, SnapshotFile)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", c.Name, err)
	}
	return nil
}

// Delete removes every object under the cluster prefix.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return notExist(name)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + name + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects of %s: %w", name, err)
		}
		if len(page.Contents) == 0 {
			break
		}
		objects := make([]s3types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			objects[i] = s3types.ObjectIdentifier{Key: obj.Key}
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: objects},
		}); err != nil {
			return fmt.Errorf("delete objects of %s: %w", name, err)
		}
	}
	return nil
}

// List returns the clusters that have a marker object, in name order.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	names := []string{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clusters: %w", err)
		}
		for _, obj := range page.Contents {
			rest := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			name, file, ok := strings.Cut(rest, "/")
			if ok && file == markerFile && name != "" {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
