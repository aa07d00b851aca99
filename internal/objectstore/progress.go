package objectstore

import (
	"encoding/base64"
	"io"
	"math"

	"github.com/goliatone/go-docshare/pkg/interfaces"
)

type tracker struct {
	fn    interfaces.ProgressFunc
	name  string
	total int64
}

func newTracker(fn interfaces.ProgressFunc, name string, total int64) *tracker {
	return &tracker{fn: fn, name: name, total: total}
}

func (t *tracker) emit(status interfaces.UploadStatus, sent int64, message string) {
	if t == nil || t.fn == nil {
		return
	}
	t.fn(interfaces.UploadProgress{
		FileName:   t.name,
		BytesSent:  sent,
		TotalBytes: t.total,
		Percentage: percentage(sent, t.total, status),
		Status:     status,
		Error:      message,
	})
}

func percentage(sent, total int64, status interfaces.UploadStatus) int {
	if status == interfaces.UploadSuccess {
		return 100
	}
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(sent) * 100 / float64(total)))
}

// countingReader reports uploaded bytes as the transport reads the body.
type countingReader struct {
	reader  io.Reader
	tracker *tracker
	sent    int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.tracker.emit(interfaces.UploadUploading, r.sent, "")
	}
	return n, err
}

func encodePayload(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
