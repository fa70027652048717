package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	SnapshotPrefix = "hbkbrowser-session-"
	SnapshotSuffix = ".json"
	LastLocaleKey  = "hbkbrowser-last-locale" + SnapshotSuffix
	currentMarker  = "current"
	// timestamps sort lexically in this format
	backupTimeFormat = "20060102T150405.000000000"
)

type (
	// History keeps the current snapshot of every session plus a limited number of backups
	History struct {
		l       *zap.Logger
		storage Storage
		limit   int
		lock    sync.RWMutex
		now     func() time.Time
	}
	HistoryOption func(*History)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewHistory(l *zap.Logger, storage Storage, opts ...HistoryOption) *History {
	inst := &History{
		l:       l.Named("history"),
		storage: storage,
		limit:   2,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// HistoryWithLimit number of backups kept per session
func HistoryWithLimit(v int) HistoryOption {
	return func(o *History) {
		o.limit = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Add stores data as backup and as current snapshot of session id
func (h *History) Add(ctx context.Context, id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()

	backupKey := sessionPrefix(id) + h.now().UTC().Format(backupTimeFormat) + SnapshotSuffix
	if err := h.storage.Write(ctx, backupKey, data); err != nil {
		return errors.Wrap(err, "failed to write snapshot backup")
	}
	if err := h.storage.Write(ctx, currentKey(id), data); err != nil {
		return errors.Wrap(err, "failed to write current snapshot")
	}
	h.l.Debug("wrote snapshot", zap.String("session", id), zap.String("backup", backupKey))
	if err := h.cleanup(ctx, id); err != nil {
		return errors.Wrap(err, "failed to clean up snapshots")
	}
	return nil
}

// Current returns the current snapshot of session id, os.ErrNotExist if there is none
func (h *History) Current(ctx context.Context, id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.storage.Read(ctx, currentKey(id))
}

// Backups lists the backup keys of session id, newest first
func (h *History) Backups(ctx context.Context, id string) ([]string, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.backups(ctx, id)
}

// Remove deletes every snapshot of session id
func (h *History) Remove(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	keys, err := h.storage.List(ctx, sessionPrefix(id))
	if err != nil {
		return err
	}
	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, h.storage.Delete(ctx, key))
	}
	return errs
}

// SetLastLocale remembers the locale used last
func (h *History) SetLastLocale(ctx context.Context, locale string) error {
	return h.storage.Write(ctx, LastLocaleKey, []byte(locale))
}

// LastLocale returns os.ErrNotExist if no locale was stored yet
func (h *History) LastLocale(ctx context.Context) (string, error) {
	data, err := h.storage.Read(ctx, LastLocaleKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (h *History) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.storage.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *History) backups(ctx context.Context, id string) ([]string, error) {
	keys, err := h.storage.List(ctx, sessionPrefix(id))
	if err != nil {
		return nil, err
	}
	current := currentKey(id)
	var ret []string
	for _, key := range keys {
		if key != current && strings.HasSuffix(key, SnapshotSuffix) {
			ret = append(ret, key)
		}
	}
	return ret, nil
}

func (h *History) cleanup(ctx context.Context, id string) error {
	keys, err := h.backups(ctx, id)
	if err != nil {
		return err
	}
	if len(keys) <= h.limit {
		return nil
	}
	var errs error
	for _, key := range keys[h.limit:] {
		h.l.Debug("removing outdated snapshot", zap.String("key", key))
		errs = multierr.Append(errs, h.storage.Delete(ctx, key))
	}
	return errs
}

func sessionPrefix(id string) string {
	return SnapshotPrefix + id + "-"
}

func currentKey(id string) string {
	return sessionPrefix(id) + currentMarker + SnapshotSuffix
}

// validateID session ids are canonical uuids
func validateID(id string) error {
	if v, err := uuid.Parse(id); err != nil || v.String() != id {
		return errors.Wrapf(ErrInvalidID, "%q", id)
	}
	return nil
}
