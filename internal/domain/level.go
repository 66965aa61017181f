package domain

import (
	"fmt"
	"sort"
	"time"
)

// Bar is one finalized price sample at a level.
type Bar struct {
	Index  int       `json:"index" yaml:"index"`
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
	// Parent is the index of the coarser-level bar whose range contains this bar.
	// Nil for the coarsest level or while alignment is not computed yet.
	Parent *int `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// ParentIndex resolves the weak back-reference to the containing coarser bar.
func (b Bar) ParentIndex() (int, bool) {
	if b.Parent == nil {
		return 0, false
	}
	return *b.Parent, true
}

// StructuralPoint is a buy/sell point computed by the structural engine.
type StructuralPoint struct {
	BarIndex  int       `json:"bar_index" yaml:"bar_index"`
	Direction Direction `json:"direction" yaml:"direction"`
	Type      string    `json:"type" yaml:"type"` // "1", "2", "3a", "3b", "1,2s" ...
	Price     float64   `json:"price" yaml:"price"`
}

func (p StructuralPoint) IsBuy() bool {
	return p.Direction == DirectionBuy
}

// LevelData holds the bars and structural points of one time resolution.
// Both lists are append-only and chronological.
type LevelData struct {
	Name   string            `json:"name" yaml:"name"`
	Bars   []Bar             `json:"bars" yaml:"bars"`
	Points []StructuralPoint `json:"points" yaml:"points"`
	Pens   int               `json:"pens" yaml:"pens"`
}

func NewLevelData(name string) *LevelData {
	return &LevelData{Name: name}
}

// Levels are ordered from the coarsest (index 0) to the finest resolution.
type Levels []*LevelData

// Finest returns the most granular level, or nil when empty.
func (ls Levels) Finest() *LevelData {
	if len(ls) == 0 {
		return nil
	}
	return ls[len(ls)-1]
}

// Get returns the level at lv, or nil when out of range.
func (ls Levels) Get(lv int) *LevelData {
	if lv < 0 || lv >= len(ls) {
		return nil
	}
	return ls[lv]
}

// Index returns the position of the named level, or -1.
func (ls Levels) Index(name string) int {
	for i, l := range ls {
		if l != nil && l.Name == name {
			return i
		}
	}
	return -1
}

// HasPen reports whether at least one directional segment has formed.
func (l *LevelData) HasPen() bool {
	return l != nil && l.Pens > 0
}

// LastBar returns the newest finalized bar.
func (l *LevelData) LastBar() (Bar, bool) {
	if l == nil || len(l.Bars) == 0 {
		return Bar{}, false
	}
	return l.Bars[len(l.Bars)-1], true
}

// LastPoint returns the newest structural point.
func (l *LevelData) LastPoint() (StructuralPoint, bool) {
	if l == nil || len(l.Points) == 0 {
		return StructuralPoint{}, false
	}
	return l.Points[len(l.Points)-1], true
}

// Bar looks up a bar by its level index.
func (l *LevelData) Bar(index int) (Bar, bool) {
	if l == nil {
		return Bar{}, false
	}
	i := sort.Search(len(l.Bars), func(i int) bool { return l.Bars[i].Index >= index })
	if i < len(l.Bars) && l.Bars[i].Index == index {
		return l.Bars[i], true
	}
	return Bar{}, false
}

// AppendBar adds a newly finalized bar. Indexes must strictly increase.
func (l *LevelData) AppendBar(b Bar) error {
	if last, ok := l.LastBar(); ok && b.Index <= last.Index {
		return fmt.Errorf("level %s: bar index %d not after %d", l.Name, b.Index, last.Index)
	}
	l.Bars = append(l.Bars, b)
	return nil
}

// AppendPoint adds a structural point. Its bar must exist and points stay chronological.
func (l *LevelData) AppendPoint(p StructuralPoint) error {
	if p.Direction != DirectionBuy && p.Direction != DirectionSell {
		return fmt.Errorf("level %s: invalid direction %q", l.Name, p.Direction)
	}
	if _, ok := l.Bar(p.BarIndex); !ok {
		return fmt.Errorf("level %s: point references unknown bar %d", l.Name, p.BarIndex)
	}
	if last, ok := l.LastPoint(); ok && p.BarIndex < last.BarIndex {
		return fmt.Errorf("level %s: point at bar %d precedes last point at %d", l.Name, p.BarIndex, last.BarIndex)
	}
	l.Points = append(l.Points, p)
	return nil
}

// SetParent records the alignment of a bar to its containing coarser bar.
func (l *LevelData) SetParent(index, parent int) error {
	i := sort.Search(len(l.Bars), func(i int) bool { return l.Bars[i].Index >= index })
	if i >= len(l.Bars) || l.Bars[i].Index != index {
		return fmt.Errorf("level %s: unknown bar %d", l.Name, index)
	}
	p := parent
	l.Bars[i].Parent = &p
	return nil
}

// Until returns a copy of the level truncated to bars with index <= index
// and the points those bars trigger.
func (l *LevelData) Until(index int) *LevelData {
	out := &LevelData{Name: l.Name, Pens: l.Pens}
	for _, b := range l.Bars {
		if b.Index > index {
			break
		}
		out.Bars = append(out.Bars, b)
	}
	for _, p := range l.Points {
		if p.BarIndex > index {
			break
		}
		out.Points = append(out.Points, p)
	}
	return out
}
