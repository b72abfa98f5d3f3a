package game

import (
	"time"

	"automancy.dev/internal/coord"
)

// await reads one reply with a bounded wait. A timed-out reply is simply
// dropped; the caller decides what the absence means.
func await[T any](ch <-chan T, d time.Duration) (T, bool) {
	var zero T
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case v := <-ch:
		return v, true
	case <-timer.C:
		return zero, false
	}
}

// awaitUntil is await with an absolute deadline.
func awaitUntil[T any](ch <-chan T, deadline time.Time) (T, bool) {
	d := time.Until(deadline)
	if d <= 0 {
		var zero T
		select {
		case v := <-ch:
			return v, true
		default:
			return zero, false
		}
	}
	return await(ch, d)
}

// multiCollectRender fans a render collection out to every actor and
// gathers the replies that arrive before each per-actor timeout. A tile
// that does not answer is left out of the frame; it never stalls it.
func multiCollectRender(actors map[coord.TileCoord]*tileActor, order []coord.TileCoord,
	tick uint64, timeout time.Duration) []RenderOutput {

	type pending struct {
		ch chan RenderOutput
	}
	reqs := make([]pending, 0, len(order))
	sent := make([]bool, len(order))
	for i, c := range order {
		a := actors[c]
		ch := make(chan RenderOutput, 1)
		reqs = append(reqs, pending{ch: ch})
		sent[i] = a != nil && a.send(collectRenderMsg{tick: tick, reply: ch})
	}

	deadline := time.Now().Add(timeout)
	out := make([]RenderOutput, 0, len(order))
	for i := range reqs {
		if !sent[i] {
			continue
		}
		if r, ok := awaitUntil(reqs[i].ch, deadline); ok {
			out = append(out, r)
		}
	}
	return out
}
