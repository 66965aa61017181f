package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vitos/bsp_resonance/internal/domain"
)

type replayEvent struct {
	time  time.Time
	level int
	index int
}

// Replay feeds a complete snapshot through the service one finalized bar at a
// time. Bar times are close times; on equal times the finer level goes first
// so a coarse bar sees every finer bar it contains. Structural points become
// visible together with their triggering bar.
func Replay(ctx context.Context, svc *SignalService, symbol string, full domain.Levels) ([]*BarResult, error) {
	var events []replayEvent
	for lv, data := range full {
		for _, b := range data.Bars {
			events = append(events, replayEvent{time: b.Time, level: lv, index: b.Index})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].time.Equal(events[j].time) {
			return events[i].time.Before(events[j].time)
		}
		return events[i].level > events[j].level
	})

	revealed := make([]int, len(full))
	for i := range revealed {
		revealed[i] = -1
	}

	var results []*BarResult
	var errs []error
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		revealed[ev.level] = ev.index

		view := make(domain.Levels, len(full))
		for lv, data := range full {
			view[lv] = data.Until(revealed[lv])
		}

		res, err := svc.ProcessBar(ctx, symbol, view, ev.level)
		if err != nil {
			errs = append(errs, err)
		}
		if res != nil && !res.Empty() {
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}
