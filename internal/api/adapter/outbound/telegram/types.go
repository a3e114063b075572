package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
)

// apiResponse is the Bot API envelope shared by every method.
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result"`
	ErrorCode   int                 `json:"error_code"`
	Description string              `json:"description"`
	Parameters  *responseParameters `json:"parameters"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after"`
}

type chat struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type fileObject struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
	FilePath string `json:"file_path"`
}

type photoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type message struct {
	MessageID int64       `json:"message_id"`
	Date      int64       `json:"date"`
	Chat      chat        `json:"chat"`
	Document  *fileObject `json:"document"`
	Video     *fileObject `json:"video"`
	Audio     *fileObject `json:"audio"`
	Photo     []photoSize `json:"photo"`
}

type update struct {
	UpdateID    int64    `json:"update_id"`
	ChannelPost *message `json:"channel_post"`
}

// attachment picks document, video, audio, then the largest photo size.
func (m *message) attachment() *port.Attachment {
	switch {
	case m.Document != nil:
		return fromFileObject(m.Document, fmt.Sprintf("document_%d", m.MessageID))
	case m.Video != nil:
		return fromFileObject(m.Video, fmt.Sprintf("video_%d.mp4", m.MessageID))
	case m.Audio != nil:
		return fromFileObject(m.Audio, fmt.Sprintf("audio_%d.mp3", m.MessageID))
	case len(m.Photo) > 0:
		best := m.Photo[0]
		for _, p := range m.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return &port.Attachment{
			FileID:   best.FileID,
			FileName: fmt.Sprintf("photo_%d.jpg", m.MessageID),
			MimeType: "image/jpeg",
			FileSize: best.FileSize,
		}
	default:
		return nil
	}
}

func fromFileObject(f *fileObject, fallbackName string) *port.Attachment {
	name := f.FileName
	if name == "" {
		name = fallbackName
	}
	return &port.Attachment{
		FileID:   f.FileID,
		FileName: name,
		MimeType: f.MimeType,
		FileSize: f.FileSize,
	}
}

func (m *message) toPort() port.Message {
	return port.Message{
		MessageID:  m.MessageID,
		ChannelID:  strconv.FormatInt(m.Chat.ID, 10),
		Date:       time.Unix(m.Date, 0).UTC(),
		Attachment: m.attachment(),
	}
}

// belongsTo matches a numeric id or an @username channel reference.
func (c chat) belongsTo(channelID string) bool {
	if strconv.FormatInt(c.ID, 10) == channelID {
		return true
	}
	return c.Username != "" && "@"+c.Username == channelID
}
