// internal/types/models.go
package types

import (
	"time"
)

// InteractionKind distinguishes inbound text messages from button presses.
type InteractionKind string

const (
	KindMessage InteractionKind = "message"
	KindAction  InteractionKind = "action"
)

// Interaction is one inbound event in transport-neutral form. The live
// transport and the intent replayer both produce it.
type Interaction struct {
	Kind       InteractionKind
	ChatID     ChatID
	Private    bool
	UserID     UserID
	FromBot    bool
	MessageID  int
	Text       string
	Action     string
	CallbackID string
	At         time.Time
	Replayed   bool
}

// Ref returns a reference to the message the interaction arrived on. For
// actions this is the message carrying the pressed button.
func (in *Interaction) Ref() MessageRef {
	return MessageRef{ChatID: in.ChatID, MessageID: in.MessageID}
}

// IntentKind tags an Intent.
type IntentKind string

const (
	IntentText   IntentKind = "text"
	IntentAction IntentKind = "action"
)

// Intent is the one action a gated user tried to perform.
type Intent struct {
	Kind    IntentKind
	Payload string
}

// IntentOf captures the payload of an interaction. ok is false when the
// interaction carries nothing worth replaying.
func IntentOf(in *Interaction) (Intent, bool) {
	switch {
	case in.Kind == KindMessage && in.Text != "":
		return Intent{Kind: IntentText, Payload: in.Text}, true
	case in.Kind == KindAction && in.Action != "":
		return Intent{Kind: IntentAction, Payload: in.Action}, true
	}
	return Intent{}, false
}

// MediaKind is the rendition type of a variant.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaOther MediaKind = "other"
)

// ParseMediaKind maps a downloader API type string onto a MediaKind.
func ParseMediaKind(s string) MediaKind {
	switch MediaKind(s) {
	case MediaVideo, MediaAudio:
		return MediaKind(s)
	}
	return MediaOther
}

// Extension returns the file extension used for artifacts of this kind.
func (k MediaKind) Extension() string {
	switch k {
	case MediaVideo:
		return ".mp4"
	case MediaAudio:
		return ".mp3"
	}
	return ""
}

// MediaVariant is one downloadable rendition.
type MediaVariant struct {
	Kind      MediaKind
	RawType   string
	Quality   string
	SourceURL string
}

// MediaSet is the result of resolving one URL.
type MediaSet struct {
	Token           SetToken
	Variants        []MediaVariant
	Title           string
	Source          string
	Author          string
	DurationSeconds float64
	ThumbnailURL    string
	ResolvedAt      time.Time
}

// Variant returns the variant at index, or false when out of range.
func (s *MediaSet) Variant(index int) (MediaVariant, bool) {
	if s == nil || index < 0 || index >= len(s.Variants) {
		return MediaVariant{}, false
	}
	return s.Variants[index], true
}

// Button is one inline keyboard button: either a URL link or an action.
type Button struct {
	Text   string
	URL    string
	Action string
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Button

// OutMessage is a text message to send.
type OutMessage struct {
	ChatID   ChatID
	Text     string
	Markdown bool
	Keyboard Keyboard
}
