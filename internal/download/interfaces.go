package download

import (
	"context"

	"github.com/SuLition/CatParse/internal/model"
	"github.com/SuLition/CatParse/internal/tasks"
)

// ProgressStatus is the phase reported by an Engine
type ProgressStatus string

const (
	StatusConnecting  ProgressStatus = "connecting"
	StatusDownloading ProgressStatus = "downloading"
	StatusCompleted   ProgressStatus = "completed"
)

// Progress is one progress event from an Engine
type Progress struct {
	Progress   float64        `json:"progress"` // 0 to 100
	Downloaded int64          `json:"downloaded"`
	Total      int64          `json:"total"`
	Status     ProgressStatus `json:"status"`
}

// ProgressFunc receives progress events; it may be nil
type ProgressFunc func(Progress)

// Request describes a file download
type Request struct {
	URL      string
	FileName string
	SaveDir  string
	Referer  string
	Origin   string
	Cookie   string
}

// FetchRequest describes an in-memory download
type FetchRequest struct {
	URL     string
	Referer string
	Origin  string
	Cookie  string
}

// Engine performs the actual transfers
type Engine interface {
	// DownloadFile saves the resource and returns the saved file path
	DownloadFile(ctx context.Context, req Request, progress ProgressFunc) (string, error)
	// FetchBytes returns the resource body
	FetchBytes(ctx context.Context, req FetchRequest, progress ProgressFunc) ([]byte, error)
	DefaultDownloadDir() (string, error)
}

// TaskTracker is the part of the task store the service drives
type TaskTracker interface {
	Add(taskType model.TaskType, title string, opts ...tasks.AddOption) string
	Update(id string, patch tasks.Patch)
	Complete(id string, success bool, errMsg string)
	Cancel(id string)
}

// HistoryRecorder stores finished downloads
type HistoryRecorder interface {
	Add(r model.DownloadRecord) (string, bool)
}

// SavePathSource supplies the configured download directory, "" for default
type SavePathSource interface {
	SavePath() string
}

// CookieSource supplies the Cookie header of a logged-in platform
type CookieSource interface {
	CookieHeader(platform string) string
}
