// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genaikit/shared/config"
	"genaikit/shared/logger"
)

func TestSinkWritesLocalFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "nested", "results.json")

	sink := NewSink(Options{}, logger.Nop())
	loc, err := sink.Write(context.Background(), dest, []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, SchemeFile, loc.Scheme)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestSinkRejectsBadLocation(t *testing.T) {
	sink := NewSink(Options{}, logger.Nop())
	_, err := sink.Write(context.Background(), "ftp://x/y", nil, "")
	assert.ErrorContains(t, err, "unsupported output scheme")
}

func TestSinkWritesS3(t *testing.T) {
	var (
		mu        sync.Mutex
		gotMethod string
		gotPath   string
		gotType   string
		gotBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotType, gotBody = r.Method, r.URL.Path, r.Header.Get("Content-Type"), body
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewSink(Options{
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "AKIDEXAMPLE",
		AWSSecretAccessKey: "secret",
		S3Endpoint:         srv.URL,
	}, logger.Nop())

	_, err := sink.Write(context.Background(), "s3://results/batch/out.json", []byte(`{"results":[]}`), "application/json")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/results/batch/out.json", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Contains(t, string(gotBody), `{"results":[]}`)
}

type fakeGCS struct {
	bucket, key string
	buf         bytes.Buffer
	closed      bool
	failWrite   bool
}

type fakeGCSWriter struct{ f *fakeGCS }

func (w fakeGCSWriter) Write(p []byte) (int, error) {
	if w.f.failWrite {
		return 0, errors.New("quota exceeded")
	}
	return w.f.buf.Write(p)
}

func (w fakeGCSWriter) Close() error { return nil }

func (f *fakeGCS) NewWriter(_ context.Context, bucket, key string) io.WriteCloser {
	f.bucket, f.key = bucket, key
	return fakeGCSWriter{f}
}

func (f *fakeGCS) Close() error {
	f.closed = true
	return nil
}

func TestSinkWritesGCS(t *testing.T) {
	fake := &fakeGCS{}
	sink := NewSink(Options{}, logger.Nop())
	sink.gcs = fake

	_, err := sink.Write(context.Background(), "gs://bkt/run/out.json", []byte("payload"), "")
	require.NoError(t, err)
	assert.Equal(t, "bkt", fake.bucket)
	assert.Equal(t, "run/out.json", fake.key)
	assert.Equal(t, "payload", fake.buf.String())

	fake.failWrite = true
	_, err = sink.Write(context.Background(), "gs://bkt/x.json", []byte("payload"), "")
	assert.ErrorContains(t, err, "quota exceeded")

	require.NoError(t, sink.Close())
	assert.True(t, fake.closed)
}

type fakeAzBlob struct {
	container, blob, contentType string
	data                         []byte
	err                          error
}

func (f *fakeAzBlob) UploadBuffer(_ context.Context, container, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.container, f.blob, f.data = container, blobName, buffer
	if o != nil && o.HTTPHeaders != nil && o.HTTPHeaders.BlobContentType != nil {
		f.contentType = *o.HTTPHeaders.BlobContentType
	}
	return azblob.UploadBufferResponse{}, f.err
}

func TestSinkWritesAzBlob(t *testing.T) {
	fake := &fakeAzBlob{}
	sink := NewSink(Options{}, logger.Nop())
	sink.azblob = fake

	_, err := sink.Write(context.Background(), "azblob://batches/out.json", []byte("data"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "batches", fake.container)
	assert.Equal(t, "out.json", fake.blob)
	assert.Equal(t, "application/json", fake.contentType)
	assert.Equal(t, []byte("data"), fake.data)

	fake.err = errors.New("403")
	_, err = sink.Write(context.Background(), "azblob://batches/out.json", []byte("data"), "")
	assert.ErrorContains(t, err, "failed to upload azblob://batches/out.json")
}

func TestSinkAzBlobRequiresAccount(t *testing.T) {
	sink := NewSink(Options{}, logger.Nop())
	_, err := sink.Write(context.Background(), "azblob://c/out.json", []byte("x"), "")
	assert.ErrorContains(t, err, "AZURE_STORAGE_ACCOUNT")
}

func TestSinkAzBlobSharedKeyClient(t *testing.T) {
	sink := NewSink(Options{AzureAccount: "devstoreaccount1", AzureAccountKey: "c2VjcmV0"}, logger.Nop())
	client, err := sink.azblobClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestOptionsFromSettings(t *testing.T) {
	s := config.Default()
	s.S3Endpoint = "http://localhost:9000"
	s.AzureStorageAccount = "acct"
	opts := OptionsFromSettings(s)
	assert.Equal(t, "us-east-1", opts.AWSRegion)
	assert.Equal(t, "http://localhost:9000", opts.S3Endpoint)
	assert.Equal(t, "acct", opts.AzureAccount)
}
