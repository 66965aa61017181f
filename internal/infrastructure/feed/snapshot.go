package feed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vitos/bsp_resonance/internal/domain"
)

type snapshotFile struct {
	Symbol string              `yaml:"symbol"`
	Levels []*domain.LevelData `yaml:"levels"`
}

// SnapshotSource reads pre-computed level data from <dir>/<symbol>.yaml.
type SnapshotSource struct {
	dir    string
	levels []string
}

// NewSnapshotSource creates a source. When levels is non-empty every file must
// carry exactly those levels in that order.
func NewSnapshotSource(dir string, levels []string) *SnapshotSource {
	return &SnapshotSource{dir: dir, levels: levels}
}

func (s *SnapshotSource) path(symbol string) string {
	return filepath.Join(s.dir, symbol+".yaml")
}

func (s *SnapshotSource) LoadLevels(ctx context.Context, symbol string) (domain.Levels, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", symbol, domain.ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", symbol, err)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}
	if len(s.levels) > 0 && len(file.Levels) != len(s.levels) {
		return nil, fmt.Errorf("snapshot %s: %d levels, want %d", symbol, len(file.Levels), len(s.levels))
	}

	// re-append so the ordering rules of LevelData hold for file input too
	out := make(domain.Levels, 0, len(file.Levels))
	for i, in := range file.Levels {
		if in == nil {
			return nil, fmt.Errorf("snapshot %s: empty level %d", symbol, i)
		}
		if len(s.levels) > 0 && in.Name != s.levels[i] {
			return nil, fmt.Errorf("snapshot %s: level %d is %q, want %q", symbol, i, in.Name, s.levels[i])
		}
		data := domain.NewLevelData(in.Name)
		data.Pens = in.Pens
		for _, b := range in.Bars {
			if err := data.AppendBar(b); err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
			}
		}
		for _, p := range in.Points {
			if err := data.AppendPoint(p); err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
			}
		}
		out = append(out, data)
	}
	return out, nil
}

// Save writes levels as the snapshot of symbol, replacing any previous file.
func (s *SnapshotSource) Save(symbol string, levels domain.Levels) error {
	raw, err := yaml.Marshal(snapshotFile{Symbol: symbol, Levels: levels})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", symbol, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp := s.path(symbol) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(symbol))
}
