package obscurance

import (
	"fmt"
	"slices"
)

// CommandOp identifies the kind of a recorded command.
type CommandOp int

const (
	// CommandAcquire binds a pooled temporary to a slot.
	CommandAcquire CommandOp = iota
	// CommandRelease returns the temporary bound to a slot.
	CommandRelease
	// CommandDraw runs one pass.
	CommandDraw
	// CommandCopy copies one slot into another.
	CommandCopy
)

// Command is one recorded step. Only the fields of its Op are set.
type Command struct {
	Op         CommandOp
	Slot       Slot
	Descriptor SurfaceDescriptor
	Program    Program
	Pass       Pass
	Src        Slot
	Dst        Slot
}

// Recording is a host-independent CommandList. It stores slot-level commands only, so one
// recording serves every frame and picks up resized sources and the last pushed parameters.
type Recording struct {
	name     string
	commands []Command
	released bool
}

var _ CommandList = &Recording{}

// NewRecording creates an empty recording.
//
// Parameters:
//   - name: a debug name for the list
//
// Returns:
//   - *Recording: the new recording
func NewRecording(name string) *Recording {
	return &Recording{name: name}
}

func (r *Recording) Name() string {
	return r.name
}

func (r *Recording) AcquireTemporary(slot Slot, desc SurfaceDescriptor) {
	r.record(Command{Op: CommandAcquire, Slot: slot, Descriptor: desc})
}

func (r *Recording) ReleaseTemporary(slot Slot) {
	r.record(Command{Op: CommandRelease, Slot: slot})
}

func (r *Recording) Draw(p Program, pass Pass) {
	r.record(Command{Op: CommandDraw, Program: p, Pass: pass})
}

func (r *Recording) Copy(src, dst Slot) {
	r.record(Command{Op: CommandCopy, Src: src, Dst: dst})
}

func (r *Recording) Len() int {
	return len(r.commands)
}

func (r *Recording) Release() {
	r.released = true
	r.commands = nil
}

// Commands returns the recorded commands in order. The slice must not be modified.
func (r *Recording) Commands() []Command {
	return r.commands
}

func (r *Recording) record(cmd Command) {
	if r.released {
		return
	}
	r.commands = append(r.commands, cmd)
}

// ReplayTarget is the host side of Replay. Replay calls it while the host holds its own lock,
// so implementations must not lock again.
type ReplayTarget interface {
	// AcquireTemporary takes a surface matching desc from the host's pool.
	AcquireTemporary(desc SurfaceDescriptor) (Surface, error)

	// ReleaseTemporary returns a surface to the host's pool.
	ReleaseTemporary(s Surface)

	// GeometryFor returns the geometry surface a pass samples.
	GeometryFor(kind SourceKind) (Surface, error)

	// Draw runs one pass with the given bindings.
	Draw(p Program, pass Pass, b Bindings) error

	// Copy copies src into dst.
	Copy(src, dst Surface) error
}

// Replay runs a recording against a host. b carries the host's frame surfaces for the
// non-temporary slots; temporaries and the geometry slot are bound as the commands run.
// Temporaries still held when a command fails are released before Replay returns.
//
// Parameters:
//   - r: the recording to replay
//   - target: the host performing the work
//   - b: the frame bindings
//
// Returns:
//   - error: the first command failure, or nil
func Replay(r *Recording, target ReplayTarget, b Bindings) error {
	var temporaries []Slot
	defer func() {
		for _, slot := range temporaries {
			target.ReleaseTemporary(b[slot])
		}
	}()

	for _, cmd := range r.commands {
		switch cmd.Op {
		case CommandAcquire:
			s, err := target.AcquireTemporary(cmd.Descriptor)
			if err != nil {
				return err
			}
			b[cmd.Slot] = s
			temporaries = append(temporaries, cmd.Slot)
		case CommandRelease:
			target.ReleaseTemporary(b[cmd.Slot])
			temporaries = slices.DeleteFunc(temporaries, func(s Slot) bool { return s == cmd.Slot })
			b[cmd.Slot] = Surface{}
		case CommandDraw:
			geometry, err := target.GeometryFor(cmd.Pass.Parameters.Source)
			if err != nil {
				return err
			}
			b[SlotGeometry] = geometry
			if err := target.Draw(cmd.Program, cmd.Pass, b); err != nil {
				return fmt.Errorf("%s: %w", cmd.Pass.Kind, err)
			}
		case CommandCopy:
			if err := target.Copy(b[cmd.Src], b[cmd.Dst]); err != nil {
				return err
			}
		}
	}
	return nil
}
