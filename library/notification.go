package library

import "github.com/unchained-app/unchained/constant"

const (
	EventUploadComplete   = "upload_complete"
	EventDownloadFinished = "download_finished"
	EventInfo             = "info"
)

// ServerEvent is the payload of a backend notification.
type ServerEvent struct {
	Type    string  `json:"type"`
	Message *string `json:"message"`
	TrackID *int    `json:"track_id"`
}

type Notification struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	TrackID *int   `json:"track_id,omitempty"`
}

func (e ServerEvent) Notification() Notification {
	title := constant.AppName
	switch e.Type {
	case EventUploadComplete:
		title = "Upload complete"
	case EventDownloadFinished:
		title = "Download finished"
	}
	body := ""
	if nil != e.Message {
		body = *e.Message
	}
	return Notification{Title: title, Body: body, TrackID: e.TrackID}
}
