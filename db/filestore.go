package db

import (
	"adventcal/config"
	"adventcal/models"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore keeps every collection in memory and persists them to a single JSON file.
// Writes are debounced: each change restarts a timer of SaveInterval, and Close flushes
// whatever is still pending. A SaveInterval of zero or less persists after every write.
type FileStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage

	path         string
	saveInterval time.Duration
	enableBackup bool

	saveMutex   sync.Mutex
	saveTimer   *time.Timer
	savePending bool
	// counts persists already started; Add happens under saveMutex
	inflight sync.WaitGroup

	persistMu sync.Mutex
}

// NewFileStore creates the store and loads existing data from cfg.DbFilePath.
// A missing file starts an empty store; an unparsable one is an error.
func NewFileStore(cfg *config.Config) (*FileStore, error) {
	fs := &FileStore{
		collections:  make(map[string]map[string]json.RawMessage),
		path:         cfg.DbFilePath,
		saveInterval: cfg.SaveInterval,
		enableBackup: cfg.EnableBackup,
	}

	log.Info().Str("file", fs.path).Msg("initializing file store")
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fileData, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("file", fs.path).Msg("database file not found, starting empty")
			return nil
		}
		return fmt.Errorf("failed to read database file '%s': %w", fs.path, err)
	}

	var collections map[string]map[string]json.RawMessage
	if err := json.Unmarshal(fileData, &collections); err != nil {
		log.Error().Stack().Err(err).Str("file", fs.path).Msg("failed to parse database file")
		return fmt.Errorf("failed to parse database file '%s': %w", fs.path, err)
	}
	for name, docs := range collections {
		if docs == nil {
			docs = make(map[string]json.RawMessage)
		}
		fs.collections[name] = docs
	}

	ev := log.Info().Str("file", fs.path)
	for name, docs := range fs.collections {
		ev = ev.Int(name, len(docs))
	}
	ev.Msg("loaded database")
	return nil
}

// Get returns a copy of the document.
func (fs *FileStore) Get(_ context.Context, collection, id string) (models.Record, error) {
	fs.mu.RLock()
	raw, ok := fs.collections[collection][id]
	fs.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeRecord(raw)
}

// Set creates or replaces the document.
func (fs *FileStore) Set(_ context.Context, collection, id string, rec models.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	docs, ok := fs.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		fs.collections[collection] = docs
	}
	docs[id] = data
	fs.mu.Unlock()

	fs.requestSave()
	return nil
}

// Delete removes the document.
func (fs *FileStore) Delete(_ context.Context, collection, id string) error {
	fs.mu.Lock()
	if _, ok := fs.collections[collection][id]; !ok {
		fs.mu.Unlock()
		return ErrNotFound
	}
	delete(fs.collections[collection], id)
	fs.mu.Unlock()

	fs.requestSave()
	return nil
}

// List returns every document of the collection ordered by id.
func (fs *FileStore) List(_ context.Context, collection string) ([]Document, error) {
	fs.mu.RLock()
	raws := make(map[string]json.RawMessage, len(fs.collections[collection]))
	for id, raw := range fs.collections[collection] {
		raws[id] = raw
	}
	fs.mu.RUnlock()

	docs := make([]Document, 0, len(raws))
	for id, raw := range raws {
		rec, err := DecodeRecord(raw)
		if err != nil {
			log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("skipping undecodable document")
			continue
		}
		docs = append(docs, Document{ID: id, Data: rec})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// persist writes the current state to disk through a .tmp file and a rename,
// keeping the previous file as .bak when backups are enabled.
func (fs *FileStore) persist() error {
	fs.persistMu.Lock()
	defer fs.persistMu.Unlock()

	fs.mu.RLock()
	jsonData, err := json.MarshalIndent(fs.collections, "", "  ")
	fs.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal database state: %w", err)
	}

	tempFilePath := fs.path + ".tmp"
	backupFilePath := fs.path + ".bak"

	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temporary database file '%s': %w", tempFilePath, err)
	}

	if fs.enableBackup {
		if _, err := os.Stat(fs.path); err == nil {
			if err := os.Rename(fs.path, backupFilePath); err != nil {
				log.Warn().Err(err).Str("backup", backupFilePath).Msg("failed to create backup, saving anyway")
			}
		} else if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", fs.path).Msg("failed to stat database file before backup")
		}
	}

	if err := os.Rename(tempFilePath, fs.path); err != nil {
		_ = os.Remove(tempFilePath)
		return fmt.Errorf("failed to rename '%s' to '%s': %w", tempFilePath, fs.path, err)
	}

	log.Debug().Str("file", fs.path).Msg("saved database state")
	return nil
}

// requestSave schedules a debounced persist.
func (fs *FileStore) requestSave() {
	fs.saveMutex.Lock()
	defer fs.saveMutex.Unlock()

	if fs.saveInterval <= 0 {
		fs.inflight.Add(1)
		go func() {
			defer fs.inflight.Done()
			if err := fs.persist(); err != nil {
				log.Error().Stack().Err(err).Msg("immediate persist failed")
			}
		}()
		return
	}

	if fs.saveTimer != nil {
		fs.saveTimer.Stop()
	}
	fs.savePending = true

	fs.saveTimer = time.AfterFunc(fs.saveInterval, func() {
		fs.saveMutex.Lock()
		if !fs.savePending {
			fs.saveMutex.Unlock()
			return
		}
		fs.savePending = false
		fs.inflight.Add(1)
		fs.saveMutex.Unlock()
		defer fs.inflight.Done()

		if err := fs.persist(); err != nil {
			log.Error().Stack().Err(err).Msg("debounced persist failed")
		}
	})
}

// Close waits for persists already running and flushes a pending save.
func (fs *FileStore) Close() error {
	fs.saveMutex.Lock()
	if fs.saveTimer != nil {
		fs.saveTimer.Stop()
		fs.saveTimer = nil
	}
	needsFinalPersist := fs.savePending
	fs.savePending = false
	fs.saveMutex.Unlock()

	fs.inflight.Wait()

	if !needsFinalPersist {
		return nil
	}

	log.Info().Str("file", fs.path).Msg("performing final persist on close")
	return fs.persist()
}
