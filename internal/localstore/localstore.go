// Package localstore keeps small zstd-compressed JSON snapshots on disk:
// the last-authenticated user record and the locally-authored contest list.
// It is a mock-environment convenience, not a durable storage contract.
package localstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/campuscode/sessiond/internal/contest"
)

const (
	userSnapshot     = "current_user.json.zst"
	contestsSnapshot = "contests.json.zst"
)

// User is the locally cached user record.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Store reads and writes snapshots under a single directory.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveUser replaces the cached user record.
func (s *Store) SaveUser(u User) error {
	return s.write(userSnapshot, u)
}

// LoadUser returns the cached user record, or false when none is stored.
func (s *Store) LoadUser() (User, bool, error) {
	var u User
	ok, err := s.read(userSnapshot, &u)
	return u, ok, err
}

// questionSnapshot is the on-disk question form. Unlike the wire-facing
// contest.Question it carries the answer key; the snapshot never leaves the
// host and restored contests must stay gradeable.
type questionSnapshot struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Difficulty string   `json:"difficulty"`
	Points     int      `json:"points"`
	Statement  string   `json:"statement"`
	Options    []string `json:"options,omitempty"`
	AnswerKey  string   `json:"answer_key"`
}

type contestSnapshot struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Status      string             `json:"status"`
	DurationSec int                `json:"duration_sec"`
	Questions   []questionSnapshot `json:"questions"`
}

// SaveContests replaces the locally-authored contest list.
func (s *Store) SaveContests(contests []*contest.Contest) error {
	snaps := make([]contestSnapshot, 0, len(contests))
	for _, c := range contests {
		snap := contestSnapshot{
			ID:          c.ID,
			Title:       c.Title,
			Status:      string(c.Status),
			DurationSec: c.DurationSec,
		}
		for _, q := range c.Questions {
			snap.Questions = append(snap.Questions, questionSnapshot{
				ID:         q.ID,
				Type:       string(q.Type),
				Difficulty: q.Difficulty,
				Points:     q.Points,
				Statement:  q.Statement,
				Options:    q.Options,
				AnswerKey:  q.AnswerKey,
			})
		}
		snaps = append(snaps, snap)
	}
	return s.write(contestsSnapshot, snaps)
}

// LoadContests returns the locally-authored contest list, or false when none
// is stored.
func (s *Store) LoadContests() ([]*contest.Contest, bool, error) {
	var snaps []contestSnapshot
	ok, err := s.read(contestsSnapshot, &snaps)
	if !ok || err != nil {
		return nil, ok, err
	}

	contests := make([]*contest.Contest, 0, len(snaps))
	for _, snap := range snaps {
		c := &contest.Contest{
			ID:          snap.ID,
			Title:       snap.Title,
			Status:      contest.Status(snap.Status),
			DurationSec: snap.DurationSec,
		}
		for _, q := range snap.Questions {
			c.Questions = append(c.Questions, contest.Question{
				ID:         q.ID,
				Type:       contest.QuestionType(q.Type),
				Difficulty: q.Difficulty,
				Points:     q.Points,
				Statement:  q.Statement,
				Options:    q.Options,
				AnswerKey:  q.AnswerKey,
			})
		}
		contests = append(contests, c)
	}
	return contests, true, nil
}

// ClearUser removes the cached user record.
func (s *Store) ClearUser() error {
	err := os.Remove(filepath.Join(s.dir, userSnapshot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove user snapshot: %w", err)
	}
	return nil
}

// write marshals v into a compressed snapshot. The snapshot is written to a
// temp file first and moved into place so readers never see partial writes.
func (s *Store) write(name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", name, err)
	}

	tmpPath := filepath.Join(s.dir, name+".tmp")
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := zw.Write(b); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush snapshot %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to move snapshot %s into place: %w", name, err)
	}
	return nil
}

func (s *Store) read(name string, v interface{}) (bool, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open snapshot %s: %w", name, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	b, err := io.ReadAll(zr)
	if err != nil {
		return false, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal snapshot %s: %w", name, err)
	}
	return true, nil
}
