package history

import "github.com/SuLition/CatParse/internal/model"

// ParseHistory lists completed parses, at most one per media item
type ParseHistory = List[model.ParseRecord]

// NewParseHistory creates the parse history over storage. A record with a
// video id replaces any earlier record for the same video and platform.
func NewParseHistory(storage Storage, opts ...Option) *ParseHistory {
	l := newList[model.ParseRecord]("parse_history", storage, opts)
	l.idOf = model.ParseRecord.RecordID
	l.stamp = func(r *model.ParseRecord, id, at string) {
		r.ID = id
		r.CreateTime = at
	}
	l.dedupKey = func(r model.ParseRecord) string {
		if r.VideoID == "" {
			return ""
		}
		return r.Platform + "\x00" + r.VideoID
	}
	return l
}
