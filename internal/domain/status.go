package domain

// DownloadState is the persisted lifecycle state of a download.
type DownloadState string

const (
	StateDownloading DownloadState = "downloading"
	StatePaused      DownloadState = "paused"
	StateCompleted   DownloadState = "completed"
	StateFailed      DownloadState = "failed"
)

// ClientStatus is a raw progress snapshot reported by the torrent client.
type ClientStatus struct {
	Progress     float64 // 0..100
	DownloadRate int64   // bytes/sec
	UploadRate   int64   // bytes/sec
	ETASeconds   *int64  // nil when the client does not know
	IsComplete   bool
	IsPaused     bool
}

// StateForClientStatus maps a raw snapshot onto a lifecycle state.
// Completion wins over the paused flag: a client may briefly report a
// finished torrent as paused, and that must still read as completed.
func StateForClientStatus(status ClientStatus) DownloadState {
	switch {
	case status.IsComplete:
		return StateCompleted
	case status.IsPaused:
		return StatePaused
	default:
		return StateDownloading
	}
}

// ParseDownloadState validates a state string from an API or store.
func ParseDownloadState(raw string) (DownloadState, bool) {
	switch DownloadState(raw) {
	case StateDownloading, StatePaused, StateCompleted, StateFailed:
		return DownloadState(raw), true
	default:
		return "", false
	}
}
