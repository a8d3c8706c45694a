package model

import (
	"time"
)

// TaskType identifies the kind of work a task tracks
type TaskType string

const (
	TaskTypeParse    TaskType = "parse"
	TaskTypeDownload TaskType = "download"
	TaskTypeExtract  TaskType = "extract"
	TaskTypeRewrite  TaskType = "rewrite"
)

// TaskMeta carries presentation hints for a task type
type TaskMeta struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var taskMeta = map[TaskType]TaskMeta{
	TaskTypeParse:    {Icon: "🔍", Label: "解析", Color: "#3b82f6"},
	TaskTypeDownload: {Icon: "⬇️", Label: "下载", Color: "#10b981"},
	TaskTypeExtract:  {Icon: "🎤", Label: "识别", Color: "#8b5cf6"},
	TaskTypeRewrite:  {Icon: "✍️", Label: "改写", Color: "#f59e0b"},
}

// Meta returns the presentation hints for the task type, zero value if unknown
func (tt TaskType) Meta() TaskMeta {
	return taskMeta[tt]
}

// Valid reports whether tt is one of the known task types
func (tt TaskType) Valid() bool {
	_, ok := taskMeta[tt]
	return ok
}

// Task represents a single tracked unit of in-flight work
type Task struct {
	ID         string     `json:"id"`
	Type       TaskType   `json:"type"`
	Title      string     `json:"title"`
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"`   // 0 to 100
	StatusText string     `json:"statusText"` // human readable
	CreatedAt  time.Time  `json:"createdAt"`
	Error      string     `json:"error,omitempty"` // last error message if any
}

// HasError reports whether the task carries an error message
func (t *Task) HasError() bool {
	return t.Error != ""
}

// ClampProgress bounds p to the 0..100 range
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
