// Package storage persists per-guild bot state and registration hashes in a
// JSON-backed datastore.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const (
	commandHistoryLimit = 20
	registrationsKey    = "_registrations"
)

type Storage struct {
	mu sync.Mutex
	ds *datastore.DataStore
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Surface   string    `json:"surface"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

// Record is the state kept for one guild.
type Record struct {
	Language            string                 `json:"language,omitempty"`
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
}

// registrations maps scope ("" for global) to command name to definition hash.
type registrations map[string]map[string]string

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// load decodes the value under key into out. Values added in this process are
// Go structs; values read from disk are generic maps. A JSON round-trip covers both.
func (s *Storage) load(key string, out any) (bool, error) {
	data, exists := s.ds.Get(key)
	if !exists {
		return false, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("error marshalling %q: %w", key, err)
	}
	if err := json.Unmarshal(jsonData, out); err != nil {
		return false, fmt.Errorf("error unmarshalling %q: %w", key, err)
	}
	return true, nil
}

func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	var record Record
	ok, err := s.load(guildID, &record)
	if err != nil {
		return nil, err
	}
	if !ok || record.CommandsHistoryList == nil {
		record.CommandsHistoryList = []CommandHistoryRecord{}
	}
	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}
	return &record, nil
}

// AppendCommandToHistory appends a command history record for a guild.
func (s *Storage) AppendCommandToHistory(guildID string, command CommandHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.CommandsHistoryList = append(record.CommandsHistoryList, command)
	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[1:]
	}
	s.ds.Add(guildID, record)
	return nil
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}

// GuildLanguage returns the language set for a guild, or "" when none is.
func (s *Storage) GuildLanguage(guildID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return "", err
	}
	return record.Language, nil
}

func (s *Storage) SetGuildLanguage(guildID, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.Language = lang
	s.ds.Add(guildID, record)
	return nil
}

// CommandHash returns the hash stored for a command registered in scope.
func (s *Storage) CommandHash(scope, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := registrations{}
	if _, err := s.load(registrationsKey, &regs); err != nil {
		return "", false, err
	}
	h, ok := regs[scope][name]
	return h, ok, nil
}

// SetCommandHash records the hash of a command registered in scope.
func (s *Storage) SetCommandHash(scope, name, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := registrations{}
	if _, err := s.load(registrationsKey, &regs); err != nil {
		return err
	}
	if regs[scope] == nil {
		regs[scope] = map[string]string{}
	}
	regs[scope][name] = hash
	s.ds.Add(registrationsKey, regs)
	return nil
}

// ForgetScope drops every hash stored for scope.
func (s *Storage) ForgetScope(scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := registrations{}
	ok, err := s.load(registrationsKey, &regs)
	if err != nil || !ok {
		return err
	}
	delete(regs, scope)
	s.ds.Add(registrationsKey, regs)
	return nil
}
