package stats

import (
	"context"

	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	VerdictsAll      []model.VerdictTotal
	VerdictsWindow   []model.VerdictTotal
	HighScores       []model.ScoreRecord
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	verdictsAll, err := st.VerdictTotals(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	verdictsWindow, err := st.VerdictTotals(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}
	highScores, err := st.ListHighScores(ctx, cfg.SongID)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		VerdictsAll:      verdictsAll,
		VerdictsWindow:   verdictsWindow,
		HighScores:       highScores,
	}, nil
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
