package domain

import "time"

// MaxTransferSize is the largest file the messaging gateway accepts.
const MaxTransferSize = 50 * 1024 * 1024

type Attachment struct {
	FileID   string
	FileName string
	MimeType string
	Size     int64
	IsPhoto  bool
}

type IncomingMessage struct {
	UpdateID    int
	ChatID      int64
	UserID      int64
	MessageID   int
	SentAt      time.Time
	Text        string
	Command     string
	CommandArgs string
	Attachment  *Attachment
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type CallbackEvent struct {
	UpdateID int
	ID       string
	ChatID   int64
	UserID   int64
	Message  MessageRef
	Data     string
}

// Button is either a callback button (Data) or a link button (URL).
type Button struct {
	Text string
	Data string
	URL  string
}

type Keyboard [][]Button

type OutgoingMessage struct {
	Text     string
	HTML     bool
	Keyboard Keyboard
}

// BotCommand is an entry of the command menu shown by the messaging client.
type BotCommand struct {
	Command     string
	Description string
}
