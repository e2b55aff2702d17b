// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme identifies a storage backend.
type Scheme string

const (
	SchemeFile   Scheme = "file"
	SchemeS3     Scheme = "s3"
	SchemeGCS    Scheme = "gs"
	SchemeAzBlob Scheme = "azblob"
)

// Location is a parsed destination. Bucket holds the S3/GCS bucket or the
// Azure container; Key the object or blob name; Path the local file path.
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
	Path   string
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Path
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// ParseLocation accepts s3://bucket/key, gs://bucket/key,
// azblob://container/blob, file:///path or a bare local path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty output location")
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Location{Scheme: SchemeFile, Path: raw}, nil
	}

	switch Scheme(strings.ToLower(scheme)) {
	case SchemeFile:
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, fmt.Errorf("invalid file URI %q: %w", raw, err)
		}
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return Location{}, fmt.Errorf("file URI %q has no path", raw)
		}
		return Location{Scheme: SchemeFile, Path: path}, nil
	case SchemeS3, SchemeGCS, SchemeAzBlob:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, fmt.Errorf("%s URI %q must be %s://<bucket>/<key>", scheme, raw, scheme)
		}
		return Location{Scheme: Scheme(strings.ToLower(scheme)), Bucket: bucket, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("unsupported output scheme %q (expected file, s3, gs or azblob)", scheme)
	}
}
