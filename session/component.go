package session

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/GoodFridayRobotics/okvis2/cameras"
	"github.com/GoodFridayRobotics/okvis2/estimation"
	"github.com/GoodFridayRobotics/okvis2/frame"
)

// Component is one SLAM run. It either owns its graph or wraps one owned by
// the caller; closing resets only an owned graph. Access during persistence
// operations must be serialized by the caller.
type Component struct {
	imuParameters ImuParameters
	rig           *cameras.Rig
	graph         *estimation.Graph
	frames        map[uint64]*frame.Multiframe
	owned         bool
	clock         clock.Clock
}

// NewComponent creates a component owning a fresh, empty graph.
func NewComponent(imuParameters ImuParameters, rig *cameras.Rig) *Component {
	return &Component{
		imuParameters: imuParameters,
		rig:           rig,
		graph:         estimation.NewGraph(),
		frames:        map[uint64]*frame.Multiframe{},
		owned:         true,
		clock:         clock.New(),
	}
}

// NewComponentAround wraps an externally owned graph and frame set. The
// caller keeps the graph's lifetime; closing the component leaves it
// untouched. The frame map is copied.
func NewComponentAround(imuParameters ImuParameters, rig *cameras.Rig,
	graph *estimation.Graph, frames map[uint64]*frame.Multiframe,
) *Component {
	copied := make(map[uint64]*frame.Multiframe, len(frames))
	for id, frm := range frames {
		copied[id] = frm
	}
	return &Component{
		imuParameters: imuParameters,
		rig:           rig,
		graph:         graph,
		frames:        copied,
		owned:         false,
		clock:         clock.New(),
	}
}

// ImuParameters returns the IMU parameters.
func (c *Component) ImuParameters() ImuParameters {
	return c.imuParameters
}

// Rig returns the camera rig calibration.
func (c *Component) Rig() *cameras.Rig {
	return c.rig
}

// Graph returns the pose and landmark graph, owned or borrowed.
func (c *Component) Graph() *estimation.Graph {
	return c.graph
}

// Frame looks up the multiframe with the given id.
func (c *Component) Frame(id uint64) (*frame.Multiframe, bool) {
	frm, ok := c.frames[id]
	return frm, ok
}

// Frames copies the id to multiframe map.
func (c *Component) Frames() map[uint64]*frame.Multiframe {
	out := make(map[uint64]*frame.Multiframe, len(c.frames))
	for id, frm := range c.frames {
		out[id] = frm
	}
	return out
}

// NumFrames returns the number of stored multiframes.
func (c *Component) NumFrames() int {
	return len(c.frames)
}

// AddFrame stores a multiframe under its id.
func (c *Component) AddFrame(frm *frame.Multiframe) error {
	if frm == nil {
		return errors.New("frame is nil")
	}
	if _, ok := c.frames[frm.ID()]; ok {
		return errors.Errorf("frame %d already exists", frm.ID())
	}
	c.frames[frm.ID()] = frm
	return nil
}

// Close tears down the component. An owned graph is reset; a borrowed one is
// left to its owner.
func (c *Component) Close() error {
	if c.owned {
		c.graph.Reset()
	}
	c.frames = map[uint64]*frame.Multiframe{}
	return nil
}
