package castsession

import (
	"encoding/json"
	"strings"
)

// mimeTable maps a lowercase file extension (without the dot) to its MIME
// type for the LOAD message's contentType field. Unknown extensions fall
// back to audio/mpeg, matching spec.md 4.2's table.
var mimeTable = map[string]string{
	"mp3":  "audio/mpeg",
	"flac": "audio/flac",
	"m4a":  "audio/aac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"opus": "audio/opus",
	"wav":  "audio/wav",
}

// MimeForURL infers the LOAD contentType from a served URL's extension.
func MimeForURL(url string) string {
	ext := strings.ToLower(url)
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		ext = ext[i+1:]
	} else {
		ext = ""
	}
	if mime, ok := mimeTable[ext]; ok {
		return mime
	}
	return "audio/mpeg"
}

type mediaImage struct {
	URL string `json:"url"`
}

type mediaMetadata struct {
	MetadataType int          `json:"metadataType"`
	Title        string       `json:"title,omitempty"`
	Artist       string       `json:"artist,omitempty"`
	AlbumName    string       `json:"albumName,omitempty"`
	Images       []mediaImage `json:"images,omitempty"`
}

type mediaInfo struct {
	ContentID   string         `json:"contentId"`
	ContentType string         `json:"contentType"`
	StreamType  string         `json:"streamType"`
	Metadata    *mediaMetadata `json:"metadata,omitempty"`
}

type loadPayload struct {
	Type        string    `json:"type"`
	RequestID   int       `json:"requestId"`
	Media       mediaInfo `json:"media"`
	Autoplay    bool      `json:"autoplay"`
	CurrentTime float64   `json:"currentTime"`
}

// buildLoad constructs the LOAD payload per spec.md 4.2. Metadata fields
// are omitted when their source is empty.
func buildLoad(requestID int, url, title, artist, album, coverURL string) (string, error) {
	meta := &mediaMetadata{
		MetadataType: 3,
		Title:        title,
		Artist:       artist,
		AlbumName:    album,
	}
	if coverURL != "" {
		meta.Images = []mediaImage{{URL: coverURL}}
	}

	payload := loadPayload{
		Type:      "LOAD",
		RequestID: requestID,
		Media: mediaInfo{
			ContentID:   url,
			ContentType: MimeForURL(url),
			StreamType:  "BUFFERED",
			Metadata:    meta,
		},
		Autoplay:    true,
		CurrentTime: 0,
	}
	b, err := json.Marshal(payload)
	return string(b), err
}

type mediaCommand struct {
	Type           string  `json:"type"`
	RequestID      int     `json:"requestId"`
	MediaSessionID int     `json:"mediaSessionId"`
	CurrentTime    float64 `json:"currentTime,omitempty"`
}

func buildPlay(requestID, mediaSessionID int) (string, error) {
	b, err := json.Marshal(mediaCommand{Type: "PLAY", RequestID: requestID, MediaSessionID: mediaSessionID})
	return string(b), err
}

func buildPause(requestID, mediaSessionID int) (string, error) {
	b, err := json.Marshal(mediaCommand{Type: "PAUSE", RequestID: requestID, MediaSessionID: mediaSessionID})
	return string(b), err
}

func buildStop(requestID, mediaSessionID int) (string, error) {
	b, err := json.Marshal(mediaCommand{Type: "STOP", RequestID: requestID, MediaSessionID: mediaSessionID})
	return string(b), err
}

func buildSeek(requestID, mediaSessionID int, currentTime float64) (string, error) {
	b, err := json.Marshal(mediaCommand{Type: "SEEK", RequestID: requestID, MediaSessionID: mediaSessionID, CurrentTime: currentTime})
	return string(b), err
}

func buildMediaGetStatus(requestID int) (string, error) {
	b, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID int    `json:"requestId"`
	}{"GET_STATUS", requestID})
	return string(b), err
}

func buildReceiverGetStatus(requestID int) (string, error) {
	b, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID int    `json:"requestId"`
	}{"GET_STATUS", requestID})
	return string(b), err
}

func buildLaunch(requestID int, appID string) (string, error) {
	b, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID int    `json:"requestId"`
		AppID     string `json:"appId"`
	}{"LAUNCH", requestID, appID})
	return string(b), err
}

func buildSetVolume(requestID int, level float64) (string, error) {
	b, err := json.Marshal(struct {
		Type      string `json:"type"`
		RequestID int    `json:"requestId"`
		Volume    struct {
			Level float64 `json:"level"`
			Muted bool    `json:"muted"`
		} `json:"volume"`
	}{Type: "SET_VOLUME", RequestID: requestID, Volume: struct {
		Level float64 `json:"level"`
		Muted bool    `json:"muted"`
	}{Level: level, Muted: false}})
	return string(b), err
}

func buildConnect() (string, error) {
	b, err := json.Marshal(struct {
		Type string `json:"type"`
	}{"CONNECT"})
	return string(b), err
}

func buildClose() (string, error) {
	b, err := json.Marshal(struct {
		Type string `json:"type"`
	}{"CLOSE"})
	return string(b), err
}

func buildPing() (string, error) {
	b, err := json.Marshal(struct {
		Type string `json:"type"`
	}{"PING"})
	return string(b), err
}

func buildPong() (string, error) {
	b, err := json.Marshal(struct {
		Type string `json:"type"`
	}{"PONG"})
	return string(b), err
}

// inboundEnvelope extracts just the "type" field shared by every inbound
// media/receiver payload, for dispatch inside a namespace handler.
type inboundEnvelope struct {
	Type string `json:"type"`
}

// receiverStatusPayload is the subset of RECEIVER_STATUS we act on.
type receiverStatusPayload struct {
	Type   string `json:"type"`
	Status struct {
		Applications []struct {
			AppID       string `json:"appId"`
			SessionID   string `json:"sessionId"`
			TransportID string `json:"transportId"`
		} `json:"applications"`
	} `json:"status"`
}

// mediaStatusPayload is the subset of MEDIA_STATUS we act on.
type mediaStatusPayload struct {
	Type   string `json:"type"`
	Status []struct {
		MediaSessionID int     `json:"mediaSessionId"`
		PlayerState    string  `json:"playerState"`
		CurrentTime    float64 `json:"currentTime"`
	} `json:"status"`
}
