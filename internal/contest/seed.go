package contest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// SeedQuestion is a single question entry in a contest seed file
type SeedQuestion struct {
	ID         string `toml:"id"`
	Type       string `toml:"type"`
	Difficulty string `toml:"difficulty"`

	// Points defaults to 10 when omitted. Negative values are rejected.
	Points int `toml:"points"`

	Statement string   `toml:"statement"`
	Options   []string `toml:"options"`
	AnswerKey string   `toml:"answer_key"`
}

// seedContest maps to [[contests]] entries in a seed file
type seedContest struct {
	ID          string         `toml:"id"`
	Title       string         `toml:"title"`
	Status      string         `toml:"status"`
	DurationMin int            `toml:"duration_min"`
	DurationSec int            `toml:"duration_sec"`
	Questions   []SeedQuestion `toml:"questions"`
}

type seedRoot struct {
	Contests []seedContest `toml:"contests"`
}

// ParseSeedFile reads a contest seed TOML file and converts it to contests.
func ParseSeedFile(path string) ([]*Contest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var root seedRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	contests := make([]*Contest, 0, len(root.Contests))
	for _, sc := range root.Contests {
		if sc.ID == "" {
			return nil, fmt.Errorf("contest entry is missing an id")
		}

		status := Status(sc.Status)
		switch status {
		case StatusDraft, StatusScheduled, StatusActive, StatusCompleted:
		case "":
			status = StatusDraft
		default:
			return nil, fmt.Errorf("contest %s has unknown status %q", sc.ID, sc.Status)
		}

		// duration_sec wins over duration_min when both are present
		durationSec := sc.DurationSec
		if durationSec == 0 {
			durationSec = sc.DurationMin * 60
		}
		if durationSec <= 0 {
			return nil, fmt.Errorf("contest %s has no duration", sc.ID)
		}

		questions := make([]Question, 0, len(sc.Questions))
		seen := make(map[string]bool, len(sc.Questions))
		for i, sq := range sc.Questions {
			if sq.ID == "" {
				return nil, fmt.Errorf("contest %s question %d is missing an id", sc.ID, i)
			}
			if seen[sq.ID] {
				return nil, fmt.Errorf("contest %s has duplicate question id %s", sc.ID, sq.ID)
			}
			seen[sq.ID] = true

			qType := QuestionType(sq.Type)
			switch qType {
			case QuestionCoding, QuestionMcq:
			default:
				return nil, fmt.Errorf("contest %s question %s has unknown type %q", sc.ID, sq.ID, sq.Type)
			}
			if qType == QuestionMcq && len(sq.Options) == 0 {
				return nil, fmt.Errorf("contest %s question %s is mcq but has no options", sc.ID, sq.ID)
			}
			if sq.AnswerKey == "" {
				return nil, fmt.Errorf("contest %s question %s has no answer key", sc.ID, sq.ID)
			}

			if sq.Points < 0 {
				return nil, fmt.Errorf("contest %s question %s has negative points", sc.ID, sq.ID)
			}
			// omitted points falls back to the 10-point default
			points := sq.Points
			if points == 0 {
				points = 10
			}

			questions = append(questions, Question{
				ID:         sq.ID,
				Type:       qType,
				Difficulty: sq.Difficulty,
				Points:     points,
				Statement:  sq.Statement,
				Options:    sq.Options,
				AnswerKey:  sq.AnswerKey,
			})
		}

		contests = append(contests, &Contest{
			ID:          sc.ID,
			Title:       sc.Title,
			Status:      status,
			DurationSec: durationSec,
			Questions:   questions,
		})
	}

	return contests, nil
}

// LoadSeedDir parses every .toml file in dir into the registry.
func LoadSeedDir(reg *InMemRegistry, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed directory: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		contests, err := ParseSeedFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, fmt.Errorf("seed file %s: %w", e.Name(), err)
		}
		for _, c := range contests {
			reg.Put(c)
			loaded++
		}
	}
	return loaded, nil
}
