package storage

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal path-style S3 endpoint for a single bucket.
type fakeS3 struct {
	bucket   string
	pageSize int

	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	requestID   map[string]string
	requests    []string
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{
		bucket:      bucket,
		pageSize:    1000,
		objects:     make(map[string][]byte),
		contentType: make(map[string]string),
		requestID:   make(map[string]string),
	}
}

type listResult struct {
	XMLName               xml.Name       `xml:"ListBucketResult"`
	Name                  string         `xml:"Name"`
	Prefix                string         `xml:"Prefix"`
	KeyCount              int            `xml:"KeyCount"`
	MaxKeys               int            `xml:"MaxKeys"`
	IsTruncated           bool           `xml:"IsTruncated"`
	NextContinuationToken string         `xml:"NextContinuationToken,omitempty"`
	Contents              []listContents `xml:"Contents"`
}

type listContents struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	Size         int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch {
	case key == "" && r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodGet:
		f.list(w, r)
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		f.contentType[key] = r.Header.Get("Content-Type")
		f.requestID[key] = r.Header.Get("X-Amz-Meta-Request_id")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", f.contentType[key])
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	start := r.URL.Query().Get("continuation-token")

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > start {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	res := listResult{Name: f.bucket, Prefix: prefix, MaxKeys: f.pageSize}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		res.IsTruncated = true
		res.NextContinuationToken = keys[len(keys)-1]
	}
	for _, k := range keys {
		res.Contents = append(res.Contents, listContents{
			Key:          k,
			LastModified: "2026-10-16T10:00:00.000Z",
			Size:         len(f.objects[k]),
		})
	}
	res.KeyCount = len(res.Contents)

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(res)
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func newTestS3(t *testing.T) (*S3Storage, *fakeS3) {
	t.Helper()

	fake := newFakeS3("letters")
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(Config{
		Bucket:    "letters",
		AccessKey: "key",
		SecretKey: "secret",
		Endpoint:  srv.URL,
		PathStyle: true,
	})
	require.NoError(t, err)
	return store, fake
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{Bucket: "b", AccessKey: "a", SecretKey: "s"})
		require.NoError(t, err)
		require.Equal(t, DefaultRegion, store.cfg.Region)
		require.Equal(t, "b", store.Bucket())
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		store, err := New(Config{})
		require.ErrorIs(t, err, ErrInvalidConfig)
		require.Nil(t, store)
	})
}

func TestNewOCI(t *testing.T) {
	t.Parallel()

	store, err := NewOCI(Config{
		Namespace: "ns1",
		Region:    "us-ashburn-1",
		Bucket:    "letters",
		AccessKey: "a",
		SecretKey: "s",
	})
	require.NoError(t, err)
	require.Equal(t, "https://ns1.compat.objectstorage.us-ashburn-1.oraclecloud.com", store.cfg.Endpoint)
	require.True(t, store.cfg.PathStyle)

	_, err = NewOCI(Config{Region: "us-ashburn-1", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestS3Storage_PutGet(t *testing.T) {
	t.Parallel()

	store, fake := newTestS3(t)
	ctx := context.Background()
	data := []byte("%PDF-1.7 body")

	info, err := store.Put(ctx, "approval-letters/100_Memo.pdf", bytes.NewReader(data), int64(len(data)),
		WithContentType("application/pdf"),
		WithMetadata(map[string]string{"request_id": "100"}))
	require.NoError(t, err)
	require.Equal(t, "approval-letters/100_Memo.pdf", info.Key)
	require.Equal(t, "application/pdf", info.ContentType)
	require.Equal(t, "application/pdf", fake.contentType["approval-letters/100_Memo.pdf"])
	require.Equal(t, "100", fake.requestID["approval-letters/100_Memo.pdf"])

	rc, err := store.Get(ctx, "approval-letters/100_Memo.pdf")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, data, got)

	_, err = store.Get(ctx, "approval-letters/200_Memo.pdf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestS3Storage_Put_DetectsContentType(t *testing.T) {
	t.Parallel()

	store, _ := newTestS3(t)
	data := []byte("%PDF-1.4\n")

	info, err := store.Put(context.Background(), "x.pdf", strings.NewReader(string(data)), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", info.ContentType)
}

func TestS3Storage_Put_EmptyKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestS3(t)
	_, err := store.Put(context.Background(), "", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, ErrUploadFailed)
}

func TestS3Storage_List(t *testing.T) {
	t.Parallel()

	store, fake := newTestS3(t)
	fake.pageSize = 2
	ctx := context.Background()

	for _, key := range []string{
		"approval-letters/441_INNER_BOOK.pdf",
		"approval-letters/441_Memo.pdf",
		"approval-letters/4410_Memo.pdf",
		"approval-letters/442_Memo.pdf",
		"other/441_Memo.pdf",
	} {
		_, err := store.Put(ctx, key, strings.NewReader("pdf"), 3, WithContentType("application/pdf"))
		require.NoError(t, err)
	}

	objects, err := store.List(ctx, "approval-letters/441_")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, "approval-letters/441_INNER_BOOK.pdf", objects[0].Key)
	require.Equal(t, "approval-letters/441_Memo.pdf", objects[1].Key)
	require.Equal(t, int64(3), objects[0].Size)
	require.False(t, objects[0].LastModified.IsZero())

	all, err := store.List(ctx, "approval-letters/")
	require.NoError(t, err)
	require.Len(t, all, 4, "pagination must follow continuation tokens")

	none, err := store.List(ctx, "approval-letters/999_")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestS3Storage_Ping(t *testing.T) {
	t.Parallel()

	store, _ := newTestS3(t)
	require.NoError(t, store.Ping(context.Background()))

	store.cfg.Bucket = "missing"
	require.Error(t, store.Ping(context.Background()))
}
