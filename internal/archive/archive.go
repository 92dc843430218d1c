// Package archive stores generated approval documents in object storage and
// retrieves them by request identifier.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/letterdesk/approvals/pkg/storage"
)

// DefaultFolder is the key prefix under which documents are archived.
const DefaultFolder = "approval-letters"

const (
	documentExt         = ".pdf"
	documentContentType = "application/pdf"
)

var (
	ErrUnavailable = errors.New("archive: storage not configured")
	ErrInvalidID   = errors.New("archive: invalid identifier")
	ErrUpload      = errors.New("archive: upload failed")
	ErrNotFound    = errors.New("archive: document not found")
)

// Download is an archived document copied to local disk.
type Download struct {
	Key  string // full object key
	Name string // object base name
	Path string // local file path
	Size int64
}

// Gateway archives and retrieves documents. A Gateway with a nil store reports
// ErrUnavailable from every operation.
type Gateway struct {
	store   storage.Storage
	folder  string
	workDir string
	logger  *slog.Logger

	live sync.Map // download copy dir -> struct{}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithFolder sets the key prefix.
func WithFolder(folder string) Option {
	return func(g *Gateway) {
		if f := strings.Trim(folder, "/"); f != "" {
			g.folder = f
		}
	}
}

// WithWorkDir sets the parent of the local copies made by Read
// (default: os.TempDir()).
func WithWorkDir(dir string) Option {
	return func(g *Gateway) {
		g.workDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Gateway over store.
func New(store storage.Storage, opts ...Option) *Gateway {
	g := &Gateway{
		store:  store,
		folder: DefaultFolder,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key returns the object key for id and tag: {folder}/{id}_{tag}.pdf with
// spaces in tag replaced by underscores.
func (g *Gateway) Key(id, tag string) string {
	return g.folder + "/" + id + "_" + strings.ReplaceAll(tag, " ", "_") + documentExt
}

// Upload stores the file at localPath under Key(id, tag) and returns the key.
// A later upload with the same id and tag overwrites the earlier object.
func (g *Gateway) Upload(ctx context.Context, localPath, id, tag string) (string, error) {
	log := g.logger.With(slog.String("request_id", id), slog.String("path", localPath))

	if g.store == nil {
		log.WarnContext(ctx, "archive upload skipped", slog.String("reason", "storage not configured"))
		return "", ErrUnavailable
	}
	if err := validateID(id); err != nil {
		log.WarnContext(ctx, "archive upload skipped", slog.String("error", err.Error()))
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		log.ErrorContext(ctx, "archive upload failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		log.ErrorContext(ctx, "archive upload failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	key := g.Key(id, tag)
	_, err = g.store.Put(ctx, key, f, st.Size(),
		storage.WithContentType(documentContentType),
		storage.WithMetadata(map[string]string{
			"request_id":     id,
			"classification": tag,
		}))
	if err != nil {
		log.ErrorContext(ctx, "archive upload failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	log.InfoContext(ctx, "document archived",
		slog.String("key", key),
		slog.Int64("bytes", st.Size()))
	return key, nil
}

// Fetch finds the archived document for id and copies it into dir.
//
// Objects are listed under {folder}/{id}_ and the first one ending in .pdf is
// taken in listing order. Listing and streaming failures are reported as
// ErrNotFound with the cause attached.
func (g *Gateway) Fetch(ctx context.Context, id, dir string) (*Download, error) {
	if g.store == nil {
		return nil, ErrUnavailable
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	log := g.logger.With(slog.String("request_id", id))
	prefix := g.folder + "/" + id + "_"

	objects, err := g.store.List(ctx, prefix)
	if err != nil {
		log.WarnContext(ctx, "archive search failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var match *storage.ObjectInfo
	for i := range objects {
		if strings.HasSuffix(objects[i].Key, documentExt) {
			match = &objects[i]
			break
		}
	}
	if match == nil {
		log.InfoContext(ctx, "archive search found no document", slog.Int("candidates", len(objects)))
		return nil, ErrNotFound
	}

	name := path.Base(match.Key)
	local := filepath.Join(dir, name)

	size, err := g.download(ctx, match.Key, local)
	if err != nil {
		log.WarnContext(ctx, "archive download failed",
			slog.String("key", match.Key),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	log.InfoContext(ctx, "archived document fetched",
		slog.String("key", match.Key),
		slog.Int64("bytes", size))

	return &Download{Key: match.Key, Name: name, Path: local, Size: size}, nil
}

// InUse reports whether path is the local copy of a read still in progress.
func (g *Gateway) InUse(path string) bool {
	_, ok := g.live.Load(filepath.Clean(path))
	return ok
}

// Read returns the name and bytes of the archived document for id. The local
// copy made for the read is removed before returning.
func (g *Gateway) Read(ctx context.Context, id string) (string, []byte, error) {
	dir, err := os.MkdirTemp(g.workDir, "archive-read-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	g.live.Store(filepath.Clean(dir), struct{}{})
	defer func() {
		defer g.live.Delete(filepath.Clean(dir))
		if err := os.RemoveAll(dir); err != nil {
			g.logger.WarnContext(ctx, "failed to remove download copy",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
		}
	}()

	dl, err := g.Fetch(ctx, id, dir)
	if err != nil {
		return "", nil, err
	}

	data, err := os.ReadFile(dl.Path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return dl.Name, data, nil
}

// Ping checks the underlying storage.
func (g *Gateway) Ping(ctx context.Context) error {
	if g.store == nil {
		return ErrUnavailable
	}
	return g.store.Ping(ctx)
}

func (g *Gateway) download(ctx context.Context, key, local string) (int64, error) {
	rc, err := g.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(local)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(local)
		return 0, err
	}
	return n, nil
}

// validateID rejects identifiers that would escape the folder or match other ids.
func validateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
