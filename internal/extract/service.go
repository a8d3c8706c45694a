// Package extract pulls the audio track out of downloaded videos with ffmpeg,
// for transcription.
package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/model"
	"github.com/SuLition/CatParse/internal/tasks"
)

// FFmpeg settings for speech-friendly mp3 output
const (
	AudioCodec      = "libmp3lame"
	AudioBitrate    = "128k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"

	DefaultFFmpeg  = "ffmpeg"
	DefaultFFprobe = "ffprobe"

	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="

	OutputPrefix    = "extracted_"
	OutputExtension = ".mp3"
)

// Status texts shown on extract tasks
const (
	TextExtracting = "正在提取音频..."
)

var (
	// ErrInputMissing is returned when the video file does not exist
	ErrInputMissing = errors.New("input file does not exist")
	// ErrTaskNotFound is returned by Stop for unknown or finished tasks
	ErrTaskNotFound = errors.New("extract task not found")
)

// TaskTracker is the part of the task store the service drives
type TaskTracker interface {
	Add(taskType model.TaskType, title string, opts ...tasks.AddOption) string
	Update(id string, patch tasks.Patch)
	Complete(id string, success bool, errMsg string)
	Cancel(id string)
}

// Result describes a finished extraction
type Result struct {
	TaskID     string
	OutputPath string
}

// Service runs ffmpeg extractions
type Service struct {
	tracker TaskTracker
	tempDir string
	ffmpeg  string
	ffprobe string
	logger  *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// Option configures a Service
type Option func(*Service)

// WithBinaries sets the ffmpeg and ffprobe executables
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(s *Service) {
		if ffmpeg != "" {
			s.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			s.ffprobe = ffprobe
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService creates an extractor writing into tempDir
func NewService(tracker TaskTracker, tempDir string, opts ...Option) *Service {
	s := &Service{
		tracker: tracker,
		tempDir: tempDir,
		ffmpeg:  DefaultFFmpeg,
		ffprobe: DefaultFFprobe,
		logger:  zap.NewNop(),
		running: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("extract")
	return s
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-vn", // drop video
		"-acodec", AudioCodec,
		"-ab", AudioBitrate,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-progress", ProgressPipeTarget,
		"-nostats",
		"-y", outputPath,
	}
}

// OutputPath returns where the audio of extraction id is written
func (s *Service) OutputPath(id string) string {
	return filepath.Join(s.tempDir, OutputPrefix+id+OutputExtension)
}

func newOutputID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ExtractAudio converts videoPath to mp3 and returns the output path. It
// blocks until ffmpeg exits; the extraction is tracked as a task and can be
// stopped through Stop or ctx.
func (s *Service) ExtractAudio(ctx context.Context, videoPath string) (Result, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrInputMissing, videoPath)
	}
	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create temp dir: %w", err)
	}

	taskID := s.tracker.Add(model.TaskTypeExtract, filepath.Base(videoPath), tasks.WithStatusText(TextExtracting))
	res := Result{TaskID: taskID, OutputPath: s.OutputPath(newOutputID())}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.running[taskID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, taskID)
		s.mu.Unlock()
	}()

	duration, err := s.probeDuration(ctx, videoPath)
	if err != nil {
		s.logger.Warn("duration unknown, progress disabled", zap.String("input", videoPath), zap.Error(err))
	}

	err = s.runFFmpeg(ctx, taskID, videoPath, res.OutputPath, duration)
	switch {
	case err == nil:
		s.tracker.Complete(taskID, true, "")
		return res, nil
	case ctx.Err() != nil:
		os.Remove(res.OutputPath)
		s.tracker.Cancel(taskID)
		return res, ctx.Err()
	default:
		os.Remove(res.OutputPath)
		s.tracker.Complete(taskID, false, err.Error())
		return res, err
	}
}

// Stop cancels a running extraction
func (s *Service) Stop(taskID string) error {
	s.mu.Lock()
	cancel, ok := s.running[taskID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	cancel()
	return nil
}

func (s *Service) runFFmpeg(ctx context.Context, taskID, input, output string, duration float64) error {
	cmd := exec.CommandContext(ctx, s.ffmpeg, BuildFFmpegArgs(input, output)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		monitorProgress(stderr, duration, func(percent int) {
			s.tracker.Update(taskID, tasks.Patch{Progress: &percent})
		})
	}()
	<-done

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// probeDuration returns the media duration in seconds
func (s *Service) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobe, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// monitorProgress reads ffmpeg -progress output and reports whole percents
// as they change. Without a duration nothing is reported.
func monitorProgress(r io.Reader, totalDuration float64, report func(percent int)) {
	scanner := bufio.NewScanner(r)
	last := -1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ProgressTimePrefix) || totalDuration <= 0 {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
		if err != nil {
			continue
		}
		percent := model.ClampProgress(int(float64(us) / 1e6 / totalDuration * 100))
		if percent != last {
			last = percent
			report(percent)
		}
	}
}
