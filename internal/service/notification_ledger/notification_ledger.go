package notification_ledger

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ledgerFile is the persisted shape: a set of identity keys ever reported.
type ledgerFile struct {
	NotifiedStreams []string `json:"notified_streams"`
}

// NotificationLedgerService tracks which streams were already reported so a
// matching stream is notified exactly once across restarts. The set grows
// monotonically; it is never pruned.
type NotificationLedgerService struct {
	path string

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewNotificationLedgerService loads the persisted key set. A missing or
// corrupt file degrades to an empty set with a warning, never an error:
// re-notifying after losing the ledger beats refusing to start.
func NewNotificationLedgerService(path string) *NotificationLedgerService {
	service := &NotificationLedgerService{
		path: path,
		keys: make(map[string]struct{}),
	}

	service.load()

	return service
}

func (nls *NotificationLedgerService) load() {
	content, err := os.ReadFile(nls.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("could not read notified streams file %s: %v", nls.path, err)
		}
		return
	}

	var stored ledgerFile
	if err = jsoniter.Unmarshal(content, &stored); err != nil {
		logrus.Warnf("could not parse notified streams file %s: %v, starting with empty list", nls.path, err)
		return
	}

	for _, key := range stored.NotifiedStreams {
		nls.keys[key] = struct{}{}
	}

	logrus.Debugf("loaded %d notified stream key(s)", len(nls.keys))
}

// Contains reports whether a stream was already notified.
func (nls *NotificationLedgerService) Contains(key string) bool {
	nls.mu.Lock()
	defer nls.mu.Unlock()

	_, ok := nls.keys[key]
	return ok
}

// MarkNotified adds keys to the in-memory set. Call Flush to persist.
func (nls *NotificationLedgerService) MarkNotified(keys []string) {
	nls.mu.Lock()
	defer nls.mu.Unlock()

	for _, key := range keys {
		nls.keys[key] = struct{}{}
	}
}

func (nls *NotificationLedgerService) Size() int {
	nls.mu.Lock()
	defer nls.mu.Unlock()

	return len(nls.keys)
}

// Flush rewrites the whole file from the current set, through a temp file and
// rename so a crash cannot truncate it. A flush failure is returned for
// logging but leaves the in-memory set intact; the worst outcome is a
// re-notification after a later restart.
func (nls *NotificationLedgerService) Flush() error {
	nls.mu.Lock()
	keys := make([]string, 0, len(nls.keys))
	for key := range nls.keys {
		keys = append(keys, key)
	}
	nls.mu.Unlock()

	sort.Strings(keys)

	content, err := jsoniter.MarshalIndent(ledgerFile{NotifiedStreams: keys}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal ledger")
	}

	tmp, err := os.CreateTemp(filepath.Dir(nls.path), ".notified-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp ledger")
	}

	if _, err = tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write temp ledger")
	}

	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp ledger")
	}

	if err = os.Rename(tmp.Name(), nls.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "rename temp ledger")
	}

	return nil
}
