package game

import (
	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
	"automancy.dev/internal/mathx"
)

// RenderCommand is the unit of output the renderer collaborator consumes.
// Track registers an instance under a tag, Untrack removes it, Transform
// updates its matrix.
type RenderCommandKind string

const (
	RenderTrack     RenderCommandKind = "track"
	RenderUntrack   RenderCommandKind = "untrack"
	RenderTransform RenderCommandKind = "transform"
)

type RenderCommand struct {
	Kind   RenderCommandKind `json:"kind"`
	Tag    data.Id           `json:"tag"`
	Model  data.Id           `json:"model,omitempty"`
	Matrix *mathx.Matrix4    `json:"matrix,omitempty"`
}

// Animation records one accepted transaction for the renderer to animate.
// Entries age out of the per-tile ring after the animation window.
type Animation struct {
	SourceDir coord.TileCoord `json:"source_dir"`
	Stack     data.ItemStack  `json:"stack"`
	StartTick uint64          `json:"start_tick"`
}

// RenderOutput is one tile's contribution to a frame.
type RenderOutput struct {
	Coord      coord.TileCoord `json:"coord"`
	Commands   []RenderCommand `json:"commands,omitempty"`
	Animations []Animation     `json:"animations,omitempty"`
}

// Frame is the per-tick render payload published to the renderer.
type Frame struct {
	Tick  uint64         `json:"tick"`
	Tiles []RenderOutput `json:"tiles,omitempty"`
}
