// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package storage writes batch results to a local file or to S3, Google Cloud
// Storage or Azure Blob Storage. Cloud clients are created on first use.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"genaikit/shared/config"
	"genaikit/shared/logger"
)

// Options configure the cloud clients.
type Options struct {
	AWSRegion          string
	AWSProfile         string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	S3Endpoint         string // custom endpoint (MinIO, LocalStack); implies path-style

	GCSCredentialsFile string
	GCSEndpoint        string

	AzureAccount          string
	AzureAccountKey       string
	AzureConnectionString string
	AzureServiceURL       string // overrides https://<account>.blob.core.windows.net/
}

// OptionsFromSettings maps the shared settings onto sink options.
func OptionsFromSettings(s *config.Settings) Options {
	return Options{
		AWSRegion:             s.AWSRegion,
		AWSProfile:            s.AWSProfile,
		AWSAccessKeyID:        s.AWSAccessKeyID,
		AWSSecretAccessKey:    s.AWSSecretAccessKey,
		AWSSessionToken:       s.AWSSessionToken,
		S3Endpoint:            s.S3Endpoint,
		GCSCredentialsFile:    s.GCSCredentialsFile,
		AzureAccount:          s.AzureStorageAccount,
		AzureAccountKey:       s.AzureStorageKey,
		AzureConnectionString: s.AzureStorageConnString,
	}
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type gcsAPI interface {
	NewWriter(ctx context.Context, bucket, key string) io.WriteCloser
	Close() error
}

type azblobAPI interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// gcsClient adapts *gcs.Client to gcsAPI.
type gcsClient struct {
	client *gcs.Client
}

func (c gcsClient) NewWriter(ctx context.Context, bucket, key string) io.WriteCloser {
	return c.client.Bucket(bucket).Object(key).NewWriter(ctx)
}

func (c gcsClient) Close() error { return c.client.Close() }

// Sink writes payloads to any supported Location.
type Sink struct {
	opts Options
	log  *logger.Logger

	mu     sync.Mutex
	s3     s3API
	gcs    gcsAPI
	azblob azblobAPI
}

// NewSink creates a sink. No cloud client is built until it is needed.
func NewSink(opts Options, log *logger.Logger) *Sink {
	if log == nil {
		log = logger.New("storage")
	}
	return &Sink{opts: opts, log: log}
}

// Close releases the GCS client if one was created.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gcs != nil {
		return s.gcs.Close()
	}
	return nil
}

// Write stores data at dest (a path or URI) and returns the parsed location.
func (s *Sink) Write(ctx context.Context, dest string, data []byte, contentType string) (Location, error) {
	loc, err := ParseLocation(dest)
	if err != nil {
		return Location{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	switch loc.Scheme {
	case SchemeFile:
		err = writeFile(loc.Path, data)
	case SchemeS3:
		err = s.writeS3(ctx, loc, data, contentType)
	case SchemeGCS:
		err = s.writeGCS(ctx, loc, data, contentType)
	case SchemeAzBlob:
		err = s.writeAzBlob(ctx, loc, data, contentType)
	}
	if err != nil {
		return loc, err
	}

	s.log.InfoWithDuration("", "Wrote output", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"location": loc.String(),
		"bytes":    len(data),
	})
	return loc, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *Sink) writeS3(ctx context.Context, loc Location, data []byte, contentType string) error {
	client, err := s.s3Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", loc, err)
	}
	return nil
}

func (s *Sink) s3Client(ctx context.Context) (s3API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.s3 != nil {
		return s.s3, nil
	}

	region := s.opts.AWSRegion
	if region == "" {
		region = "us-east-1"
	}
	optFns := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if s.opts.AWSProfile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(s.opts.AWSProfile))
	}
	if s.opts.AWSAccessKeyID != "" && s.opts.AWSSecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.opts.AWSAccessKeyID, s.opts.AWSSecretAccessKey, s.opts.AWSSessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for S3: %w", err)
	}

	var s3Options []func(*s3.Options)
	if s.opts.S3Endpoint != "" {
		endpoint := s.opts.S3Endpoint
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	s.s3 = s3.NewFromConfig(awsCfg, s3Options...)
	return s.s3, nil
}

func (s *Sink) writeGCS(ctx context.Context, loc Location, data []byte, contentType string) error {
	client, err := s.gcsClient(ctx)
	if err != nil {
		return err
	}
	w := client.NewWriter(ctx, loc.Bucket, loc.Key)
	if gw, ok := w.(*gcs.Writer); ok {
		gw.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", loc, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload %s: %w", loc, err)
	}
	return nil
}

func (s *Sink) gcsClient(ctx context.Context) (gcsAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gcs != nil {
		return s.gcs, nil
	}

	var opts []option.ClientOption
	if s.opts.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.opts.GCSCredentialsFile))
	}
	if s.opts.GCSEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.opts.GCSEndpoint))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	s.gcs = gcsClient{client: client}
	return s.gcs, nil
}

func (s *Sink) writeAzBlob(ctx context.Context, loc Location, data []byte, contentType string) error {
	client, err := s.azblobClient()
	if err != nil {
		return err
	}
	_, err = client.UploadBuffer(ctx, loc.Bucket, loc.Key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", loc, err)
	}
	return nil
}

// azblobClient authenticates with a connection string, then a shared key,
// then the default Azure credential chain.
func (s *Sink) azblobClient() (azblobAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.azblob != nil {
		return s.azblob, nil
	}

	var (
		client *azblob.Client
		err    error
	)
	serviceURL := s.opts.AzureServiceURL
	if serviceURL == "" && s.opts.AzureAccount != "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", s.opts.AzureAccount)
	}

	switch {
	case s.opts.AzureConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(s.opts.AzureConnectionString, nil)
	case serviceURL == "":
		return nil, fmt.Errorf("azure storage account is not configured (set AZURE_STORAGE_ACCOUNT or AZURE_STORAGE_CONNECTION_STRING)")
	case s.opts.AzureAccountKey != "":
		cred, cerr := azblob.NewSharedKeyCredential(s.opts.AzureAccount, s.opts.AzureAccountKey)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", cerr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	default:
		cred, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", cerr)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}
	s.azblob = client
	return s.azblob, nil
}
