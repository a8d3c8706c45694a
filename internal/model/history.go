package model

import (
	"math"
	"strconv"
	"time"
)

// HistoryTimeLayout is the layout of the creation/download time stamped on history records
const HistoryTimeLayout = "2006-01-02 15:04"

// DownloadStatusCompleted is the status stamped on new download history records
const DownloadStatusCompleted = "completed"

// DownloadRecord describes one completed download
type DownloadRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Platform     string `json:"platform"`
	URL          string `json:"url"`
	Size         string `json:"size"`
	SavePath     string `json:"savePath"`
	DownloadTime string `json:"downloadTime"`
	Status       string `json:"status"`
}

// RecordID returns the record identifier
func (r DownloadRecord) RecordID() string { return r.ID }

// ParseRecord describes one completed parse/rewrite operation
type ParseRecord struct {
	ID            string `json:"id"`
	Cover         string `json:"cover"`
	Title         string `json:"title"`
	Platform      string `json:"platform"`
	OriginalURL   string `json:"originalUrl"`
	OriginalText  string `json:"originalText"`
	RewrittenText string `json:"rewrittenText"`
	VideoID       string `json:"videoId"`
	CreateTime    string `json:"createTime"`
}

// RecordID returns the record identifier
func (r ParseRecord) RecordID() string { return r.ID }

// AuthBlob is the persisted login state of a platform account
type AuthBlob struct {
	Cookies map[string]string `json:"cookies"`
	SavedAt int64             `json:"savedAt"` // unix millis
}

// FormatHistoryTime formats t the way history records display it
func FormatHistoryTime(t time.Time) string {
	return t.Format(HistoryTimeLayout)
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders a byte count as e.g. "12.5MB", trimming trailing zeros
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0B"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + sizeUnits[i]
}
