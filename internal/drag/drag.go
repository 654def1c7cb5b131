// Package drag turns drag gestures into board operations.
//
// A Controller is either Idle or Dragging. Start records which game is being
// dragged and where it came from; End always returns to Idle and applies at
// most one Reorder or Move to the board it is given. The controller knows
// nothing about pointer events, so any UI (or a test) can drive it with
// synthetic start/end calls.
package drag

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/meur/steamtier/internal/board"
)

// State of a Controller.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Session is the record of an in-flight drag
type Session struct {
	ID     string `json:"id"`
	GameID int64  `json:"game_id"`
	Source string `json:"source,omitempty"` // empty when the game was not on the board
}

// Resolved reports whether the dragged game was found when the drag started
func (s Session) Resolved() bool {
	return s.Source != ""
}

// TargetKind tells what a drop landed on
type TargetKind int

const (
	TargetGame TargetKind = iota
	TargetContainer
)

// Target is what a game was dropped over: another game or a container
type Target struct {
	Kind      TargetKind
	GameID    int64
	Container string
}

// GameTarget is a drop over another game
func GameTarget(id int64) *Target {
	return &Target{Kind: TargetGame, GameID: id}
}

// ContainerTarget is a drop over a container itself
func ContainerTarget(name string) *Target {
	return &Target{Kind: TargetContainer, Container: name}
}

// ParseTarget reads a drop target identifier. "game:<id>" and bare integers
// name a game, "tier:<key>" names a tier (needed for numeric keys), anything
// else names a container. An empty string means the drop missed every
// container and yields nil.
func ParseTarget(raw string) *Target {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return nil
	case strings.HasPrefix(s, "game:"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(s, "game:"), 10, 64); err == nil {
			return GameTarget(id)
		}
		return nil
	case strings.HasPrefix(s, "tier:"):
		return ContainerTarget(strings.TrimPrefix(s, "tier:"))
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return GameTarget(id)
	}
	return ContainerTarget(s)
}

// Action is the board operation a drop resolved to
type Action string

const (
	ActionNone    Action = "none"
	ActionReorder Action = "reorder"
	ActionMove    Action = "move"
)

// Outcome describes what End did
type Outcome struct {
	Action    Action  `json:"action"`
	Session   Session `json:"session"`
	Container string  `json:"container,omitempty"` // destination
	Index     int     `json:"index"`               // destination index, -1 for end of container
}

// Controller tracks at most one drag session. It is not safe for concurrent
// use; one controller belongs to one event loop.
type Controller struct {
	state   State
	session Session
	logger  *slog.Logger
}

// NewController returns an idle controller. A nil logger uses slog.Default.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger}
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Session returns the active session, if any
func (c *Controller) Session() (Session, bool) {
	return c.session, c.state == Dragging
}

// Start begins dragging gameID. Starting while a drag is active cancels the
// previous session first.
func (c *Controller) Start(b board.Board, gameID int64) Session {
	if c.state == Dragging {
		c.logger.Debug("drag restarted before previous drop",
			"session_id", c.session.ID,
			"game_id", c.session.GameID,
		)
		c.Cancel()
	}

	s := Session{ID: uuid.NewString(), GameID: gameID}
	if container, _, ok := b.Locate(gameID); ok {
		s.Source = container
	} else {
		c.logger.Debug("drag started for game not on board", "game_id", gameID)
	}

	c.state = Dragging
	c.session = s
	return s
}

// Cancel drops the active session without touching any board
func (c *Controller) Cancel() {
	c.state = Idle
	c.session = Session{}
}

// End finishes the drag over target and returns the resulting board. The
// controller is Idle afterwards whatever happened. A nil target, an
// unresolved session or a target that is no longer on the board leaves b
// unchanged.
func (c *Controller) End(b board.Board, target *Target) (board.Board, Outcome) {
	if c.state != Dragging {
		return b, Outcome{Action: ActionNone, Index: -1}
	}
	s := c.session
	c.Cancel()

	out := Outcome{Action: ActionNone, Session: s, Index: -1}
	if target == nil || !s.Resolved() {
		return b, out
	}
	// The board may have changed since Start; a stale source is a no-op.
	if b.Index(s.Source, s.GameID) < 0 {
		return b, out
	}

	switch target.Kind {
	case TargetGame:
		if target.GameID == s.GameID {
			return b, out
		}
		dst, idx, ok := b.Locate(target.GameID)
		if !ok {
			return b, out
		}
		out.Container, out.Index = dst, idx
		if dst == s.Source {
			out.Action = ActionReorder
			return b.Reorder(dst, s.GameID, target.GameID), out
		}
		out.Action = ActionMove
		return b.Move(s.GameID, s.Source, dst, &idx), out

	case TargetContainer:
		if !b.HasContainer(target.Container) {
			return b, out
		}
		out.Container = target.Container
		out.Action = ActionMove
		return b.Move(s.GameID, s.Source, target.Container, nil), out
	}
	return b, out
}

// Drop runs a complete gesture on a fresh controller: start dragging gameID
// and release it over target.
func Drop(b board.Board, gameID int64, target *Target, logger *slog.Logger) (board.Board, Outcome) {
	c := NewController(logger)
	c.Start(b, gameID)
	return c.End(b, target)
}
