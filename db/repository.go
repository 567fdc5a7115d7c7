package db

import (
	"adventcal/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMalformedRecord is returned when a stored document exists but cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// Credential is the hashed refresh secret of an anonymous identity.
type Credential struct {
	UID        string
	SecretHash string
	CreatedAt  time.Time
}

func (c Credential) toRecord() models.Record {
	return models.Record{
		"uid":         c.UID,
		"secret_hash": c.SecretHash,
		"createdAt":   models.NewTimestamp(c.CreatedAt),
	}
}

// Repository reads and writes calendars, users and credentials through a DocumentStore.
// Read-modify-write sequences are serialized by a mutex.
type Repository struct {
	store DocumentStore
	mu    sync.Mutex
}

// NewRepository wraps store.
func NewRepository(store DocumentStore) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying document store.
func (r *Repository) Store() DocumentStore {
	return r.store
}

// --- Calendars ---

// GetCalendar loads a calendar. It returns ErrNotFound or ErrMalformedRecord.
func (r *Repository) GetCalendar(ctx context.Context, id string) (models.Calendar, error) {
	rec, err := r.store.Get(ctx, CollectionCalendars, id)
	if err != nil {
		return models.Calendar{}, err
	}
	cal, ok := models.CalendarFromRecord(rec, id)
	if !ok {
		return models.Calendar{}, fmt.Errorf("calendar %s: %w", id, ErrMalformedRecord)
	}
	return cal, nil
}

// CreateCalendar stores a new calendar and appends it to the creator's created list.
func (r *Repository) CreateCalendar(ctx context.Context, cal models.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.ensureUser(ctx, cal.CreatorUID)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, CollectionCalendars, cal.ID, cal.ToRecord()); err != nil {
		return err
	}
	user.AddCreatedCalendar(cal.ID)
	if err := r.store.Set(ctx, CollectionUsers, user.UID, user.ToRecord()); err != nil {
		// an unlisted calendar is unreachable, so drop it
		if delErr := r.store.Delete(ctx, CollectionCalendars, cal.ID); delErr != nil {
			log.Error().Stack().Err(delErr).Str("calendar", cal.ID).Msg("failed to roll back calendar")
		}
		return err
	}

	log.Info().Str("calendar", cal.ID).Str("creator", cal.CreatorUID).Msg("created calendar")
	return nil
}

// UpdateCalendar applies fn to the stored calendar and saves the result unless fn fails.
func (r *Repository) UpdateCalendar(ctx context.Context, id string, fn func(*models.Calendar) error) (models.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cal, err := r.GetCalendar(ctx, id)
	if err != nil {
		return models.Calendar{}, err
	}
	if err := fn(&cal); err != nil {
		return models.Calendar{}, err
	}
	if err := r.store.Set(ctx, CollectionCalendars, id, cal.ToRecord()); err != nil {
		return models.Calendar{}, err
	}
	return cal, nil
}

// DeleteCalendar removes the calendar and drops it from the creator's lists.
// Recipients keep the id; listing skips calendars that no longer exist.
func (r *Repository) DeleteCalendar(ctx context.Context, cal models.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, CollectionCalendars, cal.ID); err != nil {
		return err
	}

	user, err := r.getUser(ctx, cal.CreatorUID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user.RemoveCalendar(cal.ID)
	if err := r.store.Set(ctx, CollectionUsers, user.UID, user.ToRecord()); err != nil {
		return err
	}

	log.Info().Str("calendar", cal.ID).Msg("deleted calendar")
	return nil
}

// ShareCalendar adds the calendar to the recipient's received list.
// The recipient must exist; sharing twice is a no-op.
func (r *Repository) ShareCalendar(ctx context.Context, calendarID, recipientUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.getUser(ctx, recipientUID)
	if err != nil {
		return err
	}
	if user.HasReceived(calendarID) {
		return nil
	}
	user.AddReceivedCalendar(calendarID)
	if err := r.store.Set(ctx, CollectionUsers, user.UID, user.ToRecord()); err != nil {
		return err
	}

	log.Info().Str("calendar", calendarID).Str("recipient", recipientUID).Msg("shared calendar")
	return nil
}

// Stats summarizes what the store holds.
type Stats struct {
	Calendars         int `json:"calendars"`
	CompleteCalendars int `json:"completeCalendars"`
	OpenedDoors       int `json:"openedDoors"`
	Users             int `json:"users"`
}

// Stats scans the calendars and users collections. Undecodable calendars are not counted.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	calendars, err := r.store.List(ctx, CollectionCalendars)
	if err != nil {
		return Stats{}, fmt.Errorf("list calendars: %w", err)
	}
	for _, doc := range calendars {
		cal, ok := models.CalendarFromRecord(doc.Data, doc.ID)
		if !ok {
			continue
		}
		stats.Calendars++
		if cal.IsComplete() {
			stats.CompleteCalendars++
		}
		for _, d := range cal.Doors {
			if d.IsUnlocked {
				stats.OpenedDoors++
			}
		}
	}

	users, err := r.store.List(ctx, CollectionUsers)
	if err != nil {
		return Stats{}, fmt.Errorf("list users: %w", err)
	}
	stats.Users = len(users)
	return stats, nil
}

// --- Users ---

// GetUser loads a user or returns ErrNotFound.
func (r *Repository) GetUser(ctx context.Context, uid string) (models.User, error) {
	return r.getUser(ctx, uid)
}

func (r *Repository) getUser(ctx context.Context, uid string) (models.User, error) {
	rec, err := r.store.Get(ctx, CollectionUsers, uid)
	if err != nil {
		return models.User{}, err
	}
	return models.UserFromRecord(rec, uid), nil
}

// EnsureUser returns the user, creating an empty one on first use.
func (r *Repository) EnsureUser(ctx context.Context, uid string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureUser(ctx, uid)
}

func (r *Repository) ensureUser(ctx context.Context, uid string) (models.User, error) {
	user, err := r.getUser(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	user = models.NewUser(uid, nil, nil, nil)
	if err := r.store.Set(ctx, CollectionUsers, uid, user.ToRecord()); err != nil {
		return models.User{}, err
	}
	log.Info().Str("uid", uid).Msg("created user")
	return user, nil
}

// SetDisplayName updates the user's display name; nil clears it.
func (r *Repository) SetDisplayName(ctx context.Context, uid string, name *string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.ensureUser(ctx, uid)
	if err != nil {
		return models.User{}, err
	}
	user.DisplayName = name
	if err := r.store.Set(ctx, CollectionUsers, uid, user.ToRecord()); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// --- Credentials ---

// SaveCredential stores the hashed refresh secret for uid.
func (r *Repository) SaveCredential(ctx context.Context, cred Credential) error {
	return r.store.Set(ctx, CollectionCredentials, cred.UID, cred.toRecord())
}

// GetCredential loads the credential for uid. It returns ErrNotFound or ErrMalformedRecord.
func (r *Repository) GetCredential(ctx context.Context, uid string) (Credential, error) {
	rec, err := r.store.Get(ctx, CollectionCredentials, uid)
	if err != nil {
		return Credential{}, err
	}
	hash, ok := rec.String("secret_hash")
	if !ok {
		return Credential{}, fmt.Errorf("credential %s: %w", uid, ErrMalformedRecord)
	}
	createdAt, _ := rec.Time("createdAt")
	return Credential{UID: uid, SecretHash: hash, CreatedAt: createdAt}, nil
}

// DeleteCredential removes the credential; a missing one is not an error.
func (r *Repository) DeleteCredential(ctx context.Context, uid string) error {
	err := r.store.Delete(ctx, CollectionCredentials, uid)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
