package models

import "time"

// DaysInCalendar is the number of doors in every calendar.
const DaysInCalendar = 24

// ContentType describes what a door holds.
type ContentType string

const (
	ContentEmpty ContentType = "empty"
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// ParseContentType maps a stored string to a known ContentType.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentEmpty, ContentText, ContentImage:
		return ContentType(s), true
	}
	return "", false
}

// DisplayName is the human readable label of the content type.
func (ct ContentType) DisplayName() string {
	switch ct {
	case ContentText:
		return "Text"
	case ContentImage:
		return "Image"
	default:
		return "Empty"
	}
}

// Door is one day's content slot in a calendar.
type Door struct {
	Day         int         `json:"day"`                  // 1..24, identity within the calendar
	ContentType ContentType `json:"contentType"`          // empty, text or image
	Text        *string     `json:"text,omitempty"`       // set when ContentType is text
	ImageURL    *string     `json:"imageURL,omitempty"`   // set when ContentType is image
	IsUnlocked  bool        `json:"isUnlocked"`
	UnlockedAt  *time.Time  `json:"unlockedAt,omitempty"` // stamped by the first unlock
}

// NormalizeContentType demotes a content type whose payload is missing to empty.
// A text door needs text and an image door needs an image URL.
func NormalizeContentType(ct ContentType, text, imageURL *string) ContentType {
	if ct == ContentText && text == nil {
		return ContentEmpty
	}
	if ct == ContentImage && imageURL == nil {
		return ContentEmpty
	}
	return ct
}

// NewDoor builds a door, normalizing inconsistent content types instead of failing.
func NewDoor(day int, ct ContentType, text, imageURL *string, isUnlocked bool, unlockedAt *time.Time) Door {
	return Door{
		Day:         day,
		ContentType: NormalizeContentType(ct, text, imageURL),
		Text:        text,
		ImageURL:    imageURL,
		IsUnlocked:  isUnlocked,
		UnlockedAt:  unlockedAt,
	}
}

// EmptyDoor returns a locked door without content.
func EmptyDoor(day int) Door {
	return NewDoor(day, ContentEmpty, nil, nil, false, nil)
}

// HasContent reports whether the door holds text or an image.
func (d Door) HasContent() bool {
	return d.ContentType != ContentEmpty
}

// SetText replaces the door content with text.
func (d *Door) SetText(text string) {
	d.Text = &text
	d.ImageURL = nil
	d.ContentType = ContentText
}

// SetImage replaces the door content with an image reference.
func (d *Door) SetImage(imageURL string) {
	d.ImageURL = &imageURL
	d.Text = nil
	d.ContentType = ContentImage
}

// ClearContent empties the door. The unlock state is kept.
func (d *Door) ClearContent() {
	d.Text = nil
	d.ImageURL = nil
	d.ContentType = ContentEmpty
}

// CanBeUnlocked reports whether the door may be opened at now, taking now's year as the season.
// Only December on or after the door's day qualifies; January through November are locked.
func (d Door) CanBeUnlocked(now time.Time) bool {
	return d.CanBeUnlockedInSeason(now.Year(), now)
}

// CanBeUnlockedInSeason reports whether now is at or after midnight of December d.Day in the given year.
// Once that December has passed every door of the season stays unlockable.
func (d Door) CanBeUnlockedInSeason(season int, now time.Time) bool {
	opens := time.Date(season, time.December, d.Day, 0, 0, 0, 0, now.Location())
	return !now.Before(opens)
}

// Unlock marks the door unlocked at the current time. Repeated calls are no-ops.
func (d *Door) Unlock() {
	d.UnlockAt(time.Now().UTC())
}

// UnlockAt marks the door unlocked at t, stored in UTC, unless it already is.
// Gating with CanBeUnlocked is the caller's job.
func (d *Door) UnlockAt(t time.Time) {
	if d.IsUnlocked {
		return
	}
	at := t.UTC()
	d.IsUnlocked = true
	d.UnlockedAt = &at
}

// ToRecord converts the door into its stored form. Unset optionals are omitted.
func (d Door) ToRecord() Record {
	rec := Record{
		"day":         d.Day,
		"contentType": string(d.ContentType),
		"isUnlocked":  d.IsUnlocked,
	}
	if d.Text != nil {
		rec["text"] = *d.Text
	}
	if d.ImageURL != nil {
		rec["imageURL"] = *d.ImageURL
	}
	if d.UnlockedAt != nil {
		rec["unlockedAt"] = NewTimestamp(*d.UnlockedAt)
	}
	return rec
}

// DoorFromRecord decodes a stored door. It yields no value when day, contentType or
// isUnlocked is missing or contentType is not a known value.
func DoorFromRecord(rec Record) (Door, bool) {
	day, ok := rec.Int("day")
	if !ok {
		return Door{}, false
	}
	raw, ok := rec.String("contentType")
	if !ok {
		return Door{}, false
	}
	ct, ok := ParseContentType(raw)
	if !ok {
		return Door{}, false
	}
	isUnlocked, ok := rec.Bool("isUnlocked")
	if !ok {
		return Door{}, false
	}

	var unlockedAt *time.Time
	if t, ok := rec.Time("unlockedAt"); ok {
		unlockedAt = &t
	}

	return NewDoor(day, ct, rec.OptionalString("text"), rec.OptionalString("imageURL"), isUnlocked, unlockedAt), true
}
