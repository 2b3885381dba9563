package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store. *s3.Client
// satisfies it.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps batches in an S3 bucket, one object per batch, under
// <prefix>/<journal id>/.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "us-east-1", Credentials: creds})
//	store := journal.NewS3Store(client, "my-bucket", "journals")
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store writing to bucket under prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) journalPrefix(journalID string) string {
	if s.prefix == "" {
		return journalID + "/"
	}
	return s.prefix + "/" + journalID + "/"
}

func (s *S3Store) key(journalID string, firstSeq uint64) string {
	return s.journalPrefix(journalID) + batchName(firstSeq)
}

// Put uploads a batch.
func (s *S3Store) Put(ctx context.Context, journalID string, firstSeq uint64, batch []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(journalID, firstSeq)),
		Body:        bytes.NewReader(batch),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"journal-id": journalID,
		},
	})
	if err != nil {
		return fmt.Errorf("journal: s3 put failed: %w", err)
	}
	return nil
}

// Get downloads a batch.
func (s *S3Store) Get(ctx context.Context, journalID string, firstSeq uint64) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(journalID, firstSeq)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("journal: s3 get failed: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// List pages through the journal's objects.
func (s *S3Store) List(ctx context.Context, journalID string) ([]uint64, error) {
	var seqs []uint64
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.journalPrefix(journalID)),
	}
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("journal: s3 list failed: %w", err)
		}
		for _, obj := range out.Contents {
			if seq, ok := parseBatchName(path.Base(aws.ToString(obj.Key))); ok {
				seqs = append(seqs, seq)
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	slices.Sort(seqs)
	return seqs, nil
}
