package engine

import (
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
)

// classify compares a fresh observation against the record's stored state.
//
// Website and stream watches notify on flips only; video watches emit a
// monotone new-item signal. A record that was never successfully probed
// takes the observation as its baseline and stays silent, whichever way the
// first observation points.
func classify(w *watch.Watch, obs watch.Observation) watch.Transition {
	switch w.Kind {
	case watch.KindWebsite:
		if w.LastUp == nil || *w.LastUp == obs.Up {
			return watch.TransitionNone
		}
		if obs.Up {
			return watch.WentUp
		}
		return watch.WentDown

	case watch.KindStream:
		if w.LastUp == nil || *w.LastUp == obs.Up {
			return watch.TransitionNone
		}
		if obs.Up {
			return watch.WentLive
		}
		return watch.WentOffline

	case watch.KindVideo:
		if w.LastItemID == nil || obs.ItemID == "" || *w.LastItemID == obs.ItemID {
			return watch.TransitionNone
		}
		return watch.NewItem
	}
	return watch.TransitionNone
}

// apply folds an observation into the record. LastCheckedAt only moves
// forward; a late commit from a slow poll never rewinds it.
func apply(w *watch.Watch, obs watch.Observation, extra string, at time.Time) {
	switch w.Kind {
	case watch.KindWebsite, watch.KindStream:
		up := obs.Up
		w.LastUp = &up
	case watch.KindVideo:
		if obs.ItemID != "" {
			id := obs.ItemID
			w.LastItemID = &id
		}
	}
	if extra != "" {
		w.Extra = extra
	}
	if at.After(w.LastCheckedAt) {
		w.LastCheckedAt = at
	}
}
