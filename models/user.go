package models

// User tracks the calendars a person created and received.
type User struct {
	UID                 string   `json:"uid"` // assigned by the identity provider
	DisplayName         *string  `json:"display_name,omitempty"`
	CreatedCalendarIDs  []string `json:"created_calendars"`  // append order
	ReceivedCalendarIDs []string `json:"received_calendars"` // append order
}

// NewUser builds a user; nil lists become empty lists.
func NewUser(uid string, displayName *string, created, received []string) User {
	if created == nil {
		created = []string{}
	}
	if received == nil {
		received = []string{}
	}
	return User{
		UID:                 uid,
		DisplayName:         displayName,
		CreatedCalendarIDs:  created,
		ReceivedCalendarIDs: received,
	}
}

// AddCreatedCalendar appends a calendar id to the created list.
func (u *User) AddCreatedCalendar(id string) {
	u.CreatedCalendarIDs = append(u.CreatedCalendarIDs, id)
}

// AddReceivedCalendar appends a calendar id to the received list.
func (u *User) AddReceivedCalendar(id string) {
	u.ReceivedCalendarIDs = append(u.ReceivedCalendarIDs, id)
}

// HasReceived reports whether id is in the received list.
func (u User) HasReceived(id string) bool {
	for _, r := range u.ReceivedCalendarIDs {
		if r == id {
			return true
		}
	}
	return false
}

// RemoveCalendar drops every occurrence of id from both lists.
func (u *User) RemoveCalendar(id string) {
	u.CreatedCalendarIDs = without(u.CreatedCalendarIDs, id)
	u.ReceivedCalendarIDs = without(u.ReceivedCalendarIDs, id)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ToRecord converts the user into its stored form. Field names are snake_case on the wire.
func (u User) ToRecord() Record {
	rec := Record{
		"uid":                u.UID,
		"created_calendars":  nonNil(u.CreatedCalendarIDs),
		"received_calendars": nonNil(u.ReceivedCalendarIDs),
	}
	if u.DisplayName != nil {
		rec["display_name"] = *u.DisplayName
	}
	return rec
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// UserFromRecord decodes a stored user. The uid comes from the document id, not the body,
// and every other field degrades to empty, so decoding never fails.
func UserFromRecord(rec Record, uid string) User {
	created, _ := rec.StringSlice("created_calendars")
	received, _ := rec.StringSlice("received_calendars")
	return NewUser(uid, rec.OptionalString("display_name"), created, received)
}
