package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/technoweenie/multipartstreamer"

	"github.com/five82/smashtrack/internal/gateway"
	"github.com/five82/smashtrack/internal/logging"
	"github.com/five82/smashtrack/internal/metrics"
)

// File is the media to upload: either a Path on disk, or a Name with a
// Reader of Size bytes.
type File struct {
	Path   string
	Name   string
	Reader io.Reader
	Size   int64
}

// Stage sends media to the backend and returns its reference.
type Stage struct {
	api     gateway.Doer
	limits  Limits
	metrics *metrics.Manager
}

// Option customizes a Stage.
type Option func(*Stage)

// WithLimits overrides the size and clip limits.
func WithLimits(l Limits) Option {
	return func(s *Stage) { s.limits = l }
}

// WithMetrics counts uploaded bytes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Stage) { s.metrics = m }
}

// NewStage builds an upload stage over api.
func NewStage(api gateway.Doer, opts ...Option) *Stage {
	s := &Stage{api: api, limits: DefaultLimits()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the limits in force.
func (s *Stage) Limits() Limits {
	return s.limits
}

// Upload validates f locally, then streams it to POST /video/upload. Gateway
// failures are returned unchanged apart from wrapping; nothing is retried.
func (s *Stage) Upload(ctx context.Context, f File, trim *TrimWindow) (MediaReference, error) {
	src, err := open(f)
	if err != nil {
		return MediaReference{}, err
	}
	defer src.Close()

	if err := Validate(src.name, src.size, trim, s.limits); err != nil {
		return MediaReference{}, err
	}

	ms := multipartstreamer.New()
	if trim != nil {
		fields := map[string]string{
			"trim_start": strconv.FormatFloat(trim.Start, 'f', -1, 64),
			"trim_end":   strconv.FormatFloat(trim.End, 'f', -1, 64),
		}
		if err := ms.WriteFields(fields); err != nil {
			return MediaReference{}, fmt.Errorf("write form fields: %w", err)
		}
	}
	if err := ms.WriteReader("file", src.name, src.size, src.reader); err != nil {
		return MediaReference{}, fmt.Errorf("write form file: %w", err)
	}

	logger := logging.FromContext(ctx)
	logger.Info("uploading media", "file", src.name, "bytes", src.size, "trim", trimAttr(trim))

	var ref MediaReference
	req := gateway.Request{
		Method:        http.MethodPost,
		Path:          "/video/upload",
		Body:          ms.GetReader(),
		ContentType:   ms.ContentType,
		ContentLength: ms.Len(),
	}
	if err := s.api.Do(ctx, req, &ref); err != nil {
		return MediaReference{}, fmt.Errorf("upload %s: %w", src.name, err)
	}
	if strings.TrimSpace(ref.ID) == "" {
		return MediaReference{}, &gateway.Error{Kind: gateway.KindServer, Method: http.MethodPost, Endpoint: "/video/upload", Detail: "upload response carried no media id"}
	}
	s.metrics.UploadedBytes(src.size)

	if ref.Filename == "" {
		ref.Filename = src.name
	}
	if ref.Size == 0 {
		ref.Size = src.size
	}
	ref.LocalPath = f.Path
	ref.MIMEType = MIMEType(src.name)
	ref.Trim = copyTrim(trim)
	logger.Info("media uploaded", "media_id", ref.ID, "duration", ref.Duration)
	return ref, nil
}

// Prepare validates a file on disk and returns a local reference without
// uploading it. Provider-mode analysis reads the media from LocalPath.
func (s *Stage) Prepare(f File, trim *TrimWindow) (MediaReference, error) {
	if strings.TrimSpace(f.Path) == "" {
		return MediaReference{}, gateway.Validation("a local file path is required")
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return MediaReference{}, gateway.Validation("cannot read %s: %v", f.Path, err)
	}
	name := filepath.Base(f.Path)
	if err := Validate(name, info.Size(), trim, s.limits); err != nil {
		return MediaReference{}, err
	}
	return MediaReference{
		ID:        uuid.NewString(),
		Size:      info.Size(),
		Filename:  name,
		LocalPath: f.Path,
		MIMEType:  MIMEType(name),
		Trim:      copyTrim(trim),
	}, nil
}

type source struct {
	name   string
	size   int64
	reader io.Reader
	closer io.Closer
}

func (s source) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

func open(f File) (source, error) {
	if f.Reader != nil {
		name := f.Name
		if name == "" && f.Path != "" {
			name = filepath.Base(f.Path)
		}
		return source{name: name, size: f.Size, reader: f.Reader}, nil
	}
	if strings.TrimSpace(f.Path) == "" {
		return source{}, gateway.Validation("no file selected")
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return source{}, gateway.Validation("cannot open %s: %v", f.Path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return source{}, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	name := f.Name
	if name == "" {
		name = filepath.Base(f.Path)
	}
	return source{name: name, size: info.Size(), reader: file, closer: file}, nil
}

func copyTrim(trim *TrimWindow) *TrimWindow {
	if trim == nil {
		return nil
	}
	w := *trim
	return &w
}

func trimAttr(trim *TrimWindow) string {
	if trim == nil {
		return "none"
	}
	return trim.String()
}
