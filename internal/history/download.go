package history

import "github.com/SuLition/CatParse/internal/model"

// StorageKeyDownloads is the key-value key of the download history
const StorageKeyDownloads = "download_history"

// DownloadHistory lists completed downloads
type DownloadHistory = List[model.DownloadRecord]

// NewDownloadHistory creates the download history over storage. New records
// are stamped with a download time and the completed status.
func NewDownloadHistory(storage Storage, opts ...Option) *DownloadHistory {
	l := newList[model.DownloadRecord]("download_history", storage, opts)
	l.idOf = model.DownloadRecord.RecordID
	l.stamp = func(r *model.DownloadRecord, id, at string) {
		r.ID = id
		r.DownloadTime = at
		r.Status = model.DownloadStatusCompleted
	}
	return l
}
