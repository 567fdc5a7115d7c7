package models

import "time"

// Calendar is a gift of 24 doors prepared by a creator for one recipient.
type Calendar struct {
	ID                string    `json:"id"`                // stable primary key (dashless UUID)
	CreatorUID        string    `json:"creatorUID"`        // uid of the user who built it
	RecipientName     string    `json:"recipientName"`
	RecipientInterest string    `json:"recipientInterest"` // free text hint for the creator
	Doors             []Door    `json:"doors"`             // one per day, ordered by day
	CreatedAt         time.Time `json:"createdAt"`         // UTC, immutable
}

// NewCalendar builds a calendar. An empty doors slice is replaced by 24 empty doors;
// a non-empty one is used as given. A zero createdAt means now.
func NewCalendar(id, creatorUID, recipientName, recipientInterest string, doors []Door, createdAt time.Time) Calendar {
	if len(doors) == 0 {
		doors = EmptyDoors()
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return Calendar{
		ID:                id,
		CreatorUID:        creatorUID,
		RecipientName:     recipientName,
		RecipientInterest: recipientInterest,
		Doors:             doors,
		CreatedAt:         createdAt,
	}
}

// EmptyDoors returns doors 1..24 without content.
func EmptyDoors() []Door {
	doors := make([]Door, 0, DaysInCalendar)
	for day := 1; day <= DaysInCalendar; day++ {
		doors = append(doors, EmptyDoor(day))
	}
	return doors
}

// Door returns the door for day, or false when day is outside 1..24 or missing.
func (c Calendar) Door(day int) (Door, bool) {
	if day < 1 || day > DaysInCalendar {
		return Door{}, false
	}
	for _, d := range c.Doors {
		if d.Day == day {
			return d, true
		}
	}
	return Door{}, false
}

// UpdateDoor replaces the door with the same day. It reports false and changes
// nothing when no such door exists.
func (c *Calendar) UpdateDoor(door Door) bool {
	for i := range c.Doors {
		if c.Doors[i].Day == door.Day {
			c.Doors[i] = door
			return true
		}
	}
	return false
}

// IsComplete reports whether every door has content.
func (c Calendar) IsComplete() bool {
	for _, d := range c.Doors {
		if !d.HasContent() {
			return false
		}
	}
	return true
}

// FilledDoorCount counts doors with content.
func (c Calendar) FilledDoorCount() int {
	n := 0
	for _, d := range c.Doors {
		if d.HasContent() {
			n++
		}
	}
	return n
}

// SeasonYear is the December the calendar counts down to.
func (c Calendar) SeasonYear() int {
	return c.CreatedAt.Year()
}

// CanUnlockDoor reports whether the door for day may be opened at now.
func (c Calendar) CanUnlockDoor(day int, now time.Time) bool {
	d, ok := c.Door(day)
	if !ok {
		return false
	}
	return d.CanBeUnlockedInSeason(c.SeasonYear(), now)
}

// RedactedForRecipient returns a copy in which locked doors look empty.
func (c Calendar) RedactedForRecipient() Calendar {
	out := c
	out.Doors = make([]Door, len(c.Doors))
	for i, d := range c.Doors {
		if !d.IsUnlocked {
			d.ClearContent()
		}
		out.Doors[i] = d
	}
	return out
}

// ToRecord converts the calendar into its stored form.
func (c Calendar) ToRecord() Record {
	doors := make([]any, 0, len(c.Doors))
	for _, d := range c.Doors {
		doors = append(doors, d.ToRecord())
	}
	return Record{
		"id":                c.ID,
		"creatorUID":        c.CreatorUID,
		"recipientName":     c.RecipientName,
		"recipientInterest": c.RecipientInterest,
		"doors":             doors,
		"createdAt":         NewTimestamp(c.CreatedAt),
	}
}

// CalendarFromRecord decodes a stored calendar whose document id is id.
// creatorUID, recipientName and recipientInterest are required. Missing or unusable doors
// fall back to 24 empty doors, and a missing createdAt falls back to now.
func CalendarFromRecord(rec Record, id string) (Calendar, bool) {
	creatorUID, ok := rec.String("creatorUID")
	if !ok {
		// older records were written with a misspelled key
		if creatorUID, ok = rec.String("cretorUID"); !ok {
			return Calendar{}, false
		}
	}
	recipientName, ok := rec.String("recipientName")
	if !ok {
		return Calendar{}, false
	}
	recipientInterest, ok := rec.String("recipientInterest")
	if !ok {
		return Calendar{}, false
	}

	var doors []Door
	if doorRecords, ok := rec.Records("doors"); ok {
		for _, dr := range doorRecords {
			// undecodable entries are dropped, not fatal
			if d, ok := DoorFromRecord(dr); ok {
				doors = append(doors, d)
			}
		}
	}

	createdAt, ok := rec.Time("createdAt")
	if !ok {
		createdAt = time.Now().UTC()
	}

	return NewCalendar(id, creatorUID, recipientName, recipientInterest, doors, createdAt), true
}
