// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcsupload copies rendered charts and reports to a Google
// Cloud Storage bucket.
package gcsupload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// An Uploader writes files to objects under a common prefix of one
// bucket.
type Uploader struct {
	client *storage.Client
	bucket string
	prefix string
}

// New returns an Uploader that authenticates with the application
// default credentials.
func New(ctx context.Context, bucket, prefix string) (*Uploader, error) {
	ts, err := google.DefaultTokenSource(ctx, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("gcs credentials: %w", err)
	}
	client, err := storage.NewClient(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, bucket, prefix), nil
}

// NewWithClient returns an Uploader that uses client.
func NewWithClient(client *storage.Client, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix}
}

// ObjectName returns the name of the object a local file is uploaded
// to: the file's base name under prefix.
func ObjectName(prefix, file string) string {
	prefix = strings.Trim(prefix, "/")
	base := filepath.Base(file)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// ContentType returns the MIME type an object is stored with, based
// on the extension of file.
func ContentType(file string) string {
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// UploadFile uploads the local file and returns the gs:// URL of the
// new object.
func (u *Uploader) UploadFile(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return u.Upload(ctx, ObjectName(u.prefix, file), ContentType(file), f)
}

// Upload copies r to the named object and returns its gs:// URL.
func (u *Uploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	// Charts are small; upload each in a single request.
	w.ChunkSize = 0
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	return "gs://" + u.bucket + "/" + name, nil
}

// Close closes the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}
