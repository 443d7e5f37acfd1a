package layout

import (
	"slices"

	"mapviewer/pkg/tiles"
)

// Engine keeps the stale layers and the load tracker between layouts.
// It is not safe for concurrent use.
type Engine struct {
	old     []Values
	tracker map[string]tracked
}

type tracked struct {
	idx    tiles.TileIndex
	loaded bool
}

// NewEngine creates an engine with no stale layers
func NewEngine() *Engine {
	return &Engine{}
}

// Transition records a change from prev to next. When the rounded zoom on
// screen (uncommitted zoom offset included) changes, the layer of prev becomes stale and the load tracker is reset to
// the tiles of next. It returns false when the rounded zoom did not change.
func (e *Engine) Transition(prev, next Input) bool {
	prevValues := Compute(prev)
	nextValues := Compute(next)
	if prevValues.RoundedZoom == nextValues.RoundedZoom {
		return false
	}

	e.old = slices.DeleteFunc(e.old, func(o Values) bool {
		return o.RoundedZoom == prevValues.RoundedZoom
	})
	e.old = append(e.old, prevValues)

	e.tracker = make(map[string]tracked)
	for _, idx := range nextValues.Visible() {
		e.tracker[idx.Key()] = tracked{idx: idx}
	}
	if len(e.tracker) == 0 {
		e.old = nil
	}
	return true
}

// TileLoaded marks a tile as loaded. When it was the last pending tile the
// stale layers are dropped and true is returned. Unknown keys and repeated
// loads are ignored.
func (e *Engine) TileLoaded(key string) bool {
	t, ok := e.tracker[key]
	if !ok || t.loaded {
		return false
	}
	t.loaded = true
	e.tracker[key] = t

	return e.settle()
}

// Retain forgets tracked tiles that are not visible for in anymore: they
// will never be drawn, so they must not hold the stale layers. It returns
// true when nothing is left pending and the stale layers were dropped.
func (e *Engine) Retain(in Input) bool {
	if len(e.tracker) == 0 || len(e.old) == 0 {
		return false
	}

	v := Compute(in)
	for key, t := range e.tracker {
		if !v.Contains(t.idx) {
			delete(e.tracker, key)
		}
	}
	return e.settle()
}

func (e *Engine) settle() bool {
	if e.Pending() > 0 || len(e.old) == 0 {
		return false
	}
	e.old = nil
	return true
}

// Pending returns the number of tracked tiles not loaded yet
func (e *Engine) Pending() int {
	n := 0
	for _, t := range e.tracker {
		if !t.loaded {
			n++
		}
	}
	return n
}

// StaleZooms returns the rounded zoom levels currently kept as stale layers
func (e *Engine) StaleZooms() []int {
	out := make([]int, 0, len(e.old))
	for _, o := range e.old {
		out = append(out, o.RoundedZoom)
	}
	return out
}

// Reset drops all stale layers and the tracker
func (e *Engine) Reset() {
	e.old = nil
	e.tracker = nil
}

// Layout computes the descriptors for in, stale layers first
func (e *Engine) Layout(in Input) Result {
	v := Compute(in)

	var out []Descriptor
	for _, o := range e.old {
		out = append(out, stale(o, v)...)
	}
	out = append(out, current(v)...)

	return Result{
		RoundedZoom: v.RoundedZoom,
		Tiles:       out,
		Transform:   transformFor(v),
	}
}

// Resolved is a descriptor with its addresses
type Resolved struct {
	Descriptor
	URL    string `json:"url"`
	SrcSet string `json:"srcset,omitempty"`
}

// Resolve attaches provider addresses to every tile of the layout
func (r Result) Resolve(p tiles.Provider, dprs []float64) []Resolved {
	out := make([]Resolved, 0, len(r.Tiles))
	for _, d := range r.Tiles {
		out = append(out, Resolved{
			Descriptor: d,
			URL:        d.Index.URL(p),
			SrcSet:     d.Index.SrcSet(p, dprs),
		})
	}
	return out
}
