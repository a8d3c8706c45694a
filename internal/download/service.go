package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/model"
	"github.com/SuLition/CatParse/internal/platform"
	"github.com/SuLition/CatParse/internal/tasks"
)

// Status texts shown on download tasks
const (
	TextConnecting = "正在连接服务器..."
	TextCompleted  = "下载完成"
)

// Defaults
const (
	DefaultMaxParallel = 3
	DefaultMaxRetries  = 1
	DefaultRetryDelay  = 2 * time.Second
)

// ErrEmptyURL is returned when no URL is given
var ErrEmptyURL = errors.New("download url is empty")

// Input describes one download
type Input struct {
	URL      string
	Title    string
	FileName string
	// Platform is the platform id; detected from URL when empty
	Platform string
	// SaveDir overrides the configured directory
	SaveDir string
}

// Result describes a finished download
type Result struct {
	TaskID    string
	Path      string
	Size      int64
	HistoryID string
}

// Service runs downloads. At most maxParallel transfers run at once; the
// rest wait for a slot or for their context to end.
type Service struct {
	engine  Engine
	tracker TaskTracker
	history HistoryRecorder
	config  SavePathSource
	cookies CookieSource

	slots      chan struct{}
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithHistory records finished downloads in h
func WithHistory(h HistoryRecorder) Option { return func(s *Service) { s.history = h } }

// WithConfig reads the download directory from c
func WithConfig(c SavePathSource) Option { return func(s *Service) { s.config = c } }

// WithCookies sends the stored platform login with every request
func WithCookies(c CookieSource) Option { return func(s *Service) { s.cookies = c } }

// WithMaxParallel limits concurrent transfers
func WithMaxParallel(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		}
	}
}

// WithRetry sets how often and after which delay a failed transfer is retried
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates a download service
func NewService(engine Engine, tracker TaskTracker, opts ...Option) *Service {
	s := &Service{
		engine:     engine,
		tracker:    tracker,
		slots:      make(chan struct{}, DefaultMaxParallel),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("download")
	return s
}

// target holds the request headers for a URL
type target struct {
	platform string
	referer  string
	origin   string
	cookie   string
}

func (s *Service) resolveTarget(url, platformID string) target {
	var p platform.Platform
	var ok bool
	if platformID != "" {
		p, ok = platform.ByID(platformID)
	} else {
		p, ok = platform.DetectByURL(url)
	}
	if !ok {
		return target{platform: platformID}
	}
	t := target{platform: p.ID, referer: p.Referer, origin: p.Origin}
	if s.cookies != nil {
		t.cookie = s.cookies.CookieHeader(p.ID)
	}
	return t
}

// resolveSaveDir picks the explicit dir, then the configured one, then the engine default
func (s *Service) resolveSaveDir(explicit string) (string, error) {
	dir := explicit
	if dir == "" && s.config != nil {
		dir = s.config.SavePath()
	}
	if dir == "" {
		d, err := s.engine.DefaultDownloadDir()
		if err != nil {
			return "", fmt.Errorf("failed to get default download directory: %w", err)
		}
		dir = d
	}
	if err := platform.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// progressTracker turns engine events into task updates and remembers the size
type progressTracker struct {
	mu      sync.Mutex
	taskID  string
	tracker TaskTracker
	size    int64
}

func (p *progressTracker) handle(ev Progress) {
	var percent int
	var text string
	switch ev.Status {
	case StatusConnecting:
		text = TextConnecting
	case StatusDownloading:
		percent = int(ev.Progress + 0.5)
		text = fmt.Sprintf("已下载 %.2fMB / %.2fMB", toMB(ev.Downloaded), toMB(ev.Total))
	case StatusCompleted:
		percent = 100
		text = TextCompleted
	default:
		return
	}

	p.mu.Lock()
	if ev.Total > 0 {
		p.size = ev.Total
	} else if ev.Downloaded > p.size {
		p.size = ev.Downloaded
	}
	p.mu.Unlock()

	p.tracker.Update(p.taskID, tasks.Patch{Progress: &percent, StatusText: &text})
}

func (p *progressTracker) bytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

func toMB(n int64) float64 {
	return float64(n) / 1024 / 1024
}

// acquire waits for a transfer slot
func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() { <-s.slots }

// withRetry runs fn, retrying after a delay while the context is alive
func (s *Service) withRetry(ctx context.Context, taskID string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			s.logger.Info("retrying", zap.String("task", taskID), zap.Int("attempt", attempt+1))
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("attempt failed", zap.String("task", taskID), zap.Int("attempt", attempt+1), zap.Error(err))

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// finish completes the task for err and returns err
func (s *Service) finish(ctx context.Context, taskID string, err error) error {
	if err == nil {
		s.tracker.Complete(taskID, true, "")
		return nil
	}
	if ctx.Err() != nil {
		s.tracker.Cancel(taskID)
	} else {
		s.tracker.Complete(taskID, false, err.Error())
	}
	return err
}

// Download saves in.URL to disk. The download is shown as a task; on success
// it is added to the download history.
func (s *Service) Download(ctx context.Context, in Input) (Result, error) {
	if in.URL == "" {
		return Result{}, ErrEmptyURL
	}

	taskID := s.tracker.Add(model.TaskTypeDownload, in.Title, tasks.WithStatusText(TextConnecting))
	res := Result{TaskID: taskID}

	saveDir, err := s.resolveSaveDir(in.SaveDir)
	if err != nil {
		return res, s.finish(ctx, taskID, err)
	}

	tgt := s.resolveTarget(in.URL, in.Platform)
	req := Request{
		URL:      in.URL,
		FileName: in.FileName,
		SaveDir:  saveDir,
		Referer:  tgt.referer,
		Origin:   tgt.origin,
		Cookie:   tgt.cookie,
	}
	progress := &progressTracker{taskID: taskID, tracker: s.tracker}

	if err := s.acquire(ctx); err != nil {
		return res, s.finish(ctx, taskID, err)
	}
	err = s.withRetry(ctx, taskID, func() error {
		path, err := s.engine.DownloadFile(ctx, req, progress.handle)
		res.Path = path
		return err
	})
	s.release()
	if err != nil {
		return res, s.finish(ctx, taskID, fmt.Errorf("download %s: %w", in.URL, err))
	}

	res.Size = progress.bytes()
	s.finish(ctx, taskID, nil)
	s.logger.Info("downloaded", zap.String("task", taskID), zap.String("path", res.Path), zap.Int64("size", res.Size))

	if s.history != nil {
		id, ok := s.history.Add(model.DownloadRecord{
			Title:    in.Title,
			Platform: tgt.platform,
			URL:      in.URL,
			Size:     model.FormatFileSize(res.Size),
			SavePath: res.Path,
		})
		if ok {
			res.HistoryID = id
		}
	}
	return res, nil
}

// Fetch downloads in.URL into memory. It is tracked as a task like Download
// but not recorded in the history.
func (s *Service) Fetch(ctx context.Context, in Input) ([]byte, error) {
	if in.URL == "" {
		return nil, ErrEmptyURL
	}

	taskID := s.tracker.Add(model.TaskTypeDownload, in.Title, tasks.WithStatusText(TextConnecting))
	tgt := s.resolveTarget(in.URL, in.Platform)
	req := FetchRequest{URL: in.URL, Referer: tgt.referer, Origin: tgt.origin, Cookie: tgt.cookie}
	progress := &progressTracker{taskID: taskID, tracker: s.tracker}

	if err := s.acquire(ctx); err != nil {
		return nil, s.finish(ctx, taskID, err)
	}
	var data []byte
	err := s.withRetry(ctx, taskID, func() error {
		var err error
		data, err = s.engine.FetchBytes(ctx, req, progress.handle)
		return err
	})
	s.release()
	if err != nil {
		return nil, s.finish(ctx, taskID, fmt.Errorf("fetch %s: %w", in.URL, err))
	}

	s.finish(ctx, taskID, nil)
	return data, nil
}
