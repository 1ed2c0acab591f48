// Package storage reads documents from an object bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrNotFound = errors.New("object not found")

// MaxObjectSize caps how much of an object is read into memory.
const MaxObjectSize = 20 << 20

type Object struct {
	Body        []byte
	ContentType string
}

type Bucket interface {
	Get(ctx context.Context, key string) (*Object, error)
}

// DirBucket serves objects from a local directory.
type DirBucket struct {
	root string
}

func NewDirBucket(root string) *DirBucket {
	return &DirBucket{root: root}
}

func (b *DirBucket) Get(_ context.Context, key string) (*Object, error) {
	clean := filepath.Clean("/" + key)
	data, err := os.ReadFile(filepath.Join(b.root, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return &Object{Body: data, ContentType: contentType(key, "")}, nil
}

// HTTPBucket reads from a Supabase-style storage API:
// GET {base}/storage/v1/object/{bucket}/{key}.
type HTTPBucket struct {
	baseURL    string
	bucket     string
	serviceKey string
	http       *http.Client
}

func NewHTTPBucket(baseURL, bucket, serviceKey string) *HTTPBucket {
	return &HTTPBucket{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *HTTPBucket) Get(ctx context.Context, key string) (*Object, error) {
	endpoint := b.baseURL + "/storage/v1/object/" + url.PathEscape(b.bucket) + "/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("apikey", b.serviceKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "not_found"):
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("storage API error: status %d", resp.StatusCode)
	}
	return &Object{Body: body, ContentType: contentType(key, resp.Header.Get("Content-Type"))}, nil
}

func contentType(key, header string) string {
	if header != "" && header != "application/octet-stream" {
		return header
	}
	if t := mime.TypeByExtension(filepath.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
