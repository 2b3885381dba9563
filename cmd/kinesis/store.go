package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/vango-dev/kinesis/internal/config"
	kerrors "github.com/vango-dev/kinesis/internal/errors"
	"github.com/vango-dev/kinesis/pkg/journal"
)

// loadConfig reads path if given, otherwise the config in the working
// directory, falling back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadOrDefault(".")
}

// storeFlags override the journal section of the config.
type storeFlags struct {
	backend  string
	dir      string
	bucket   string
	prefix   string
	region   string
	endpoint string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "backend", "", "Journal backend: file or s3 (default from config)")
	cmd.Flags().StringVar(&f.dir, "dir", "", "Journal directory for the file backend")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "Bucket for the s3 backend")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Key prefix for the s3 backend")
	cmd.Flags().StringVar(&f.region, "region", "", "Region for the s3 backend")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "Endpoint for S3-compatible stores")
}

func (f *storeFlags) apply(jc *config.JournalConfig) {
	if f.backend != "" {
		jc.Backend = f.backend
	}
	if f.dir != "" {
		jc.Dir = f.dir
		if f.backend == "" {
			jc.Backend = config.BackendFile
		}
	}
	if f.bucket != "" {
		jc.Bucket = f.bucket
		if f.backend == "" {
			jc.Backend = config.BackendS3
		}
	}
	if f.prefix != "" {
		jc.Prefix = f.prefix
	}
	if f.region != "" {
		jc.Region = f.region
	}
	if f.endpoint != "" {
		jc.Endpoint = f.endpoint
	}
}

// openStore builds the journal store the config names.
func openStore(jc config.JournalConfig) (journal.Store, error) {
	switch jc.Backend {
	case config.BackendMemory, "":
		return journal.NewMemoryStore(), nil
	case config.BackendFile:
		store, err := journal.NewFileStore(jc.Dir)
		if err != nil {
			return nil, kerrors.New("K082").WithDetail("journal.dir: " + err.Error()).Wrap(err)
		}
		return store, nil
	case config.BackendS3:
		if jc.Bucket == "" {
			return nil, kerrors.New("K082").WithDetail("journal.bucket is required for the s3 backend")
		}
		return journal.NewS3Store(newS3Client(jc), jc.Bucket, jc.Prefix), nil
	default:
		return nil, kerrors.New("K082").WithDetail("unknown journal backend " + jc.Backend)
	}
}

// newS3Client builds an S3 client from the journal config and the
// standard AWS_* credential variables. Without credentials in the
// environment requests are sent unsigned.
func newS3Client(jc config.JournalConfig) *s3.Client {
	opts := s3.Options{
		Region: jc.Region,
	}
	if id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		creds := aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	if jc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(jc.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}
