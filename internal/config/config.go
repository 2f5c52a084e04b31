package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Config mirrors the config file. Credentials may also come from the
// environment (see the accessor methods), env values are never written back.
type Config struct {
	MaxViewers             *uint64  `json:"max_viewers"`   // nil = unbounded
	MinViewers             uint64   `json:"min_viewers"`
	MaxFollowers           *uint64  `json:"max_followers"` // nil = unbounded
	MinFollowers           uint64   `json:"min_followers"`
	GameIDs                []string `json:"game_ids"`
	RequiredTags           []string `json:"required_tags"`
	ExcludeTags            []string `json:"exclude_tags"`
	IgnoredChannels        []string `json:"ignored_channels"`
	Languages              []string `json:"languages"`
	AffiliateOrPartnerOnly bool     `json:"affiliate_or_partner_only"`
	SearchIntervalMinutes  uint64   `json:"search_interval_minutes"`
	TwitchClientID         string   `json:"twitch_client_id"`
	TwitchClientSecret     string   `json:"twitch_client_secret"`
	TelegramBotToken       string   `json:"telegram_bot_token"`
	TelegramChatID         int64    `json:"telegram_chat_id"`
	Debug                  bool     `json:"debug"`
}

// Criteria is the filter-relevant snapshot handed to one poll cycle.
// Mutations through the service become visible at the next snapshot.
type Criteria struct {
	MinViewers             uint64
	MaxViewers             *uint64
	MinFollowers           uint64
	MaxFollowers           *uint64
	GameIDs                []string
	RequiredTags           []string
	ExcludeTags            []string
	IgnoredChannels        []string
	Languages              []string
	AffiliateOrPartnerOnly bool
	SearchInterval         time.Duration
}

// defaultValues holds raw JSON for every recognized key. Keys missing from
// the file are filled from here and the merged result is persisted back.
var defaultValues = map[string]string{
	"max_viewers":               "20",
	"min_viewers":               "0",
	"max_followers":             "null",
	"min_followers":             "0",
	"game_ids":                  "[]",
	"required_tags":             "[]",
	"exclude_tags":              "[]",
	"ignored_channels":          "[]",
	"languages":                 "[]",
	"affiliate_or_partner_only": "false",
	"search_interval_minutes":   "30",
	"twitch_client_id":          `""`,
	"twitch_client_secret":      `""`,
	"telegram_bot_token":        `""`,
	"telegram_chat_id":          "0",
	"debug":                     "false",
}

type Service struct {
	path string

	mu  sync.RWMutex
	raw map[string]jsoniter.RawMessage // full file content, unknown keys included
	cfg Config
}

// NewService loads the config file, applies defaults for missing keys and
// persists the merged result. A missing or unparseable file is a fatal
// condition for the process, so the error is returned as-is for main to act on.
func NewService(path string) (*Service, error) {
	service := &Service{
		path: path,
	}

	if err := service.load(); err != nil {
		return nil, errors.Wrap(err, "load")
	}

	if err := service.persist(); err != nil {
		return nil, errors.Wrap(err, "persist")
	}

	return service, nil
}

func (s *Service) Path() string {
	return s.path
}

func (s *Service) load() error {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", s.path)
	}

	raw := make(map[string]jsoniter.RawMessage)
	if err = jsoniter.Unmarshal(content, &raw); err != nil {
		return errors.Wrapf(err, "invalid JSON in %s", s.path)
	}

	for key, value := range defaultValues {
		if _, ok := raw[key]; !ok {
			raw[key] = jsoniter.RawMessage(value)
		}
	}

	merged, err := jsoniter.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "marshal merged config")
	}

	var cfg Config
	if err = jsoniter.Unmarshal(merged, &cfg); err != nil {
		return errors.Wrapf(err, "invalid config values in %s", s.path)
	}

	s.mu.Lock()
	s.raw = raw
	s.cfg = cfg
	s.mu.Unlock()

	return nil
}

// Reload re-reads the file. Used by the fsnotify watcher and after external
// writes; the orchestrator picks the change up at its next criteria snapshot.
func (s *Service) Reload() error {
	return s.load()
}

func (s *Service) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.cfg
	cfg.MaxViewers = copyBound(s.cfg.MaxViewers)
	cfg.MaxFollowers = copyBound(s.cfg.MaxFollowers)
	cfg.GameIDs = append([]string(nil), s.cfg.GameIDs...)
	cfg.RequiredTags = append([]string(nil), s.cfg.RequiredTags...)
	cfg.ExcludeTags = append([]string(nil), s.cfg.ExcludeTags...)
	cfg.IgnoredChannels = append([]string(nil), s.cfg.IgnoredChannels...)
	cfg.Languages = append([]string(nil), s.cfg.Languages...)

	return cfg
}

func (s *Service) Criteria() Criteria {
	cfg := s.Snapshot()

	interval := time.Duration(cfg.SearchIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return Criteria{
		MinViewers:             cfg.MinViewers,
		MaxViewers:             cfg.MaxViewers,
		MinFollowers:           cfg.MinFollowers,
		MaxFollowers:           cfg.MaxFollowers,
		GameIDs:                cfg.GameIDs,
		RequiredTags:           cfg.RequiredTags,
		ExcludeTags:            cfg.ExcludeTags,
		IgnoredChannels:        cfg.IgnoredChannels,
		Languages:              cfg.Languages,
		AffiliateOrPartnerOnly: cfg.AffiliateOrPartnerOnly,
		SearchInterval:         interval,
	}
}

func (s *Service) Debug() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Debug
}

// TwitchClientID prefers the environment, matching how the credentials were
// provided historically; the config file is the fallback.
func (s *Service) TwitchClientID() string {
	if v := os.Getenv("TWITCH_CLIENT_ID"); v != "" {
		return v
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TwitchClientID
}

func (s *Service) TwitchClientSecret() string {
	if v := os.Getenv("TWITCH_SECRET"); v != "" {
		return v
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TwitchClientSecret
}

func (s *Service) TelegramBotToken() string {
	if v := os.Getenv("TELEGRAM_API_TOKEN"); v != "" {
		return v
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TelegramBotToken
}

func (s *Service) TelegramChatID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TelegramChatID
}

// AddIgnoredChannel appends a channel to the ignored list unless an entry
// already matches case-insensitively. Returns whether the list changed.
func (s *Service) AddIgnoredChannel(channel string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ignored := range s.cfg.IgnoredChannels {
		if strings.EqualFold(ignored, channel) {
			return false, nil
		}
	}

	s.cfg.IgnoredChannels = append(s.cfg.IgnoredChannels, channel)

	return true, errors.Wrap(s.persistLocked(), "persistLocked")
}

// AddGameID adds a game to the watch list. Returns whether the list changed.
func (s *Service) AddGameID(gameID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.cfg.GameIDs {
		if id == gameID {
			return false, nil
		}
	}

	s.cfg.GameIDs = append(s.cfg.GameIDs, gameID)

	return true, errors.Wrap(s.persistLocked(), "persistLocked")
}

// RemoveGameID removes a game from the watch list by id.
func (s *Service) RemoveGameID(gameID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.cfg.GameIDs {
		if id == gameID {
			s.cfg.GameIDs = append(s.cfg.GameIDs[:i], s.cfg.GameIDs[i+1:]...)
			return true, errors.Wrap(s.persistLocked(), "persistLocked")
		}
	}

	return false, nil
}

func (s *Service) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// persistLocked rewrites the config file with the current typed values merged
// over the raw map, so unknown keys survive the round trip. The write goes
// through a temp file and rename to avoid truncation on crash.
func (s *Service) persistLocked() error {
	for key, value := range marshalKnown(s.cfg) {
		s.raw[key] = value
	}

	content, err := jsoniter.MarshalIndent(s.raw, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp config")
	}

	if _, err = tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write temp config")
	}

	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp config")
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "rename temp config")
	}

	return nil
}

func marshalKnown(cfg Config) map[string]jsoniter.RawMessage {
	known := make(map[string]jsoniter.RawMessage, len(defaultValues))

	content, err := jsoniter.Marshal(cfg)
	if err != nil {
		return known
	}

	_ = jsoniter.Unmarshal(content, &known)

	return known
}

func copyBound(bound *uint64) *uint64 {
	if bound == nil {
		return nil
	}
	v := *bound
	return &v
}
