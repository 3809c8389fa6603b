// Package handlers maps editor commands onto session operations. Every
// handler except the stored-scene listing runs on the main loop, which owns
// the session; results come back as text for the shell to print.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/sceneeditor/internal/dispatcher"
	"github.com/OCAP2/sceneeditor/internal/parser"
	"github.com/OCAP2/sceneeditor/internal/session"
	"github.com/OCAP2/sceneeditor/internal/storage"
	"github.com/OCAP2/sceneeditor/internal/timeline"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

// ErrUsage reports a command called with the wrong arguments.
var ErrUsage = errors.New("usage")

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session *session.Session
	Parser  *parser.Parser
	Store   storage.Backend
	// Fetcher is nil when basemap downloads are disabled.
	Fetcher session.Fetcher
	Player  *timeline.Player
	Logger  *slog.Logger
	// Out receives output produced outside a command, such as finished saves.
	Out io.Writer
	// Speed is the initial playback multiplier.
	Speed int
	// IOTimeout bounds each save, load and basemap fetch.
	IOTimeout time.Duration
}

// Service provides handler methods for editor commands.
type Service struct {
	deps  Dependencies
	sess  *session.Session
	parse *parser.Parser
	log   *slog.Logger

	outMu sync.Mutex
	out   io.Writer

	speed int
	quit  bool

	pendingSave    <-chan error
	pendingLoad    <-chan session.Loaded
	pendingBasemap <-chan session.Fetched
	cancelIO       context.CancelFunc
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Player == nil {
		deps.Player = timeline.NewPlayer()
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	if deps.Speed < 1 {
		deps.Speed = 1
	}
	if deps.IOTimeout <= 0 {
		deps.IOTimeout = time.Minute
	}
	return &Service{
		deps:  deps,
		sess:  deps.Session,
		parse: deps.Parser,
		log:   deps.Logger,
		out:   deps.Out,
		speed: deps.Speed,
	}
}

// Printf writes to the shell output. Safe for concurrent use.
func (s *Service) Printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// Quit reports whether the quit command was given.
func (s *Service) Quit() bool {
	return s.quit
}

// Pending reports whether a save, load or basemap fetch is still running.
func (s *Service) Pending() bool {
	return s.pendingSave != nil || s.pendingLoad != nil || s.pendingBasemap != nil
}

// Close stops playback and abandons in-flight I/O.
func (s *Service) Close() {
	s.deps.Player.Stop()
	if s.cancelIO != nil {
		s.cancelIO()
	}
}

// Register adds every editor command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	// scene
	d.Register("new", s.handleNew, dispatcher.Logged(),
		dispatcher.Usage("new <name> <lat> <lon> <radius m> <duration min>  start a scene"))
	d.Register("info", s.handleInfo,
		dispatcher.Usage("info  scene summary"))

	// entities
	d.Register("create", s.handleCreate, dispatcher.Logged(), dispatcher.Alias("add"),
		dispatcher.Usage("create <category> <x,y|@lat,lon> [key=value...]  place an entity at the cursor"))
	d.Register("list", s.handleList, dispatcher.Alias("ls"),
		dispatcher.Usage("list [category]  entities by label"))
	d.Register("show", s.handleShow,
		dispatcher.Usage("show  entities placed at the cursor"))
	d.Register("select", s.handleSelect, dispatcher.Alias("sel"),
		dispatcher.Usage("select <id>  select by id or unique id prefix"))
	d.Register("deselect", s.handleDeselect,
		dispatcher.Usage("deselect  clear the selection"))
	d.Register("delete", s.handleDelete, dispatcher.Logged(), dispatcher.Alias("rm"),
		dispatcher.Usage("delete [id]  delete an entity (default: selected)"))
	d.Register("move", s.handleMove, dispatcher.Logged(), dispatcher.Alias("mv"),
		dispatcher.Usage("move [id] <x,y|@lat,lon>  move at the cursor, or drag a target"))
	d.Register("props", s.handleProps,
		dispatcher.Usage("props [id]  property list"))
	d.Register("set", s.handleSet, dispatcher.Logged(),
		dispatcher.Usage("set <key> <value...>  edit a property of the selected entity"))
	d.Register("assoc", s.handleAssoc, dispatcher.Logged(),
		dispatcher.Usage("assoc <ground id|none>  associate the selected entity with a ground unit"))

	// keyframes
	d.Register("frame", s.handleFrame, dispatcher.Logged(),
		dispatcher.Usage("frame [id]  add a keyframe at the cursor, copying the previous position"))
	d.Register("keyframe", s.handleKeyframe, dispatcher.Logged(),
		dispatcher.Usage("keyframe <HH:MM:SS> <x,y|@lat,lon>  add a keyframe to the selected entity"))
	d.Register("unframe", s.handleUnframe, dispatcher.Logged(),
		dispatcher.Usage("unframe [id]  delete the keyframe at the cursor"))
	d.Register("frames", s.handleFrames,
		dispatcher.Usage("frames [id]  keyframe list"))

	d.Register("undo", s.handleUndo, dispatcher.Logged(), dispatcher.Alias("u"),
		dispatcher.Usage("undo  revert the last edit"))

	// timeline
	d.Register("seek", s.handleSeek, dispatcher.Alias("t"),
		dispatcher.Usage("seek <HH:MM:SS>  move the cursor"))
	d.Register("step", s.handleStep,
		dispatcher.Usage("step  advance the cursor one second"))
	d.Register("reset", s.handleReset,
		dispatcher.Usage("reset  move the cursor to the scene start"))
	d.Register("play", s.handlePlay,
		dispatcher.Usage("play [speed]  start playback"))
	d.Register("pause", s.handlePause, dispatcher.Alias("stop"),
		dispatcher.Usage("pause  stop playback"))
	d.Register("speed", s.handleSpeed,
		dispatcher.Usage("speed <n>  playback multiplier"))

	// persistence
	d.Register("save", s.handleSave, dispatcher.Logged(),
		dispatcher.Usage("save  store the scene"))
	d.Register("load", s.handleLoad, dispatcher.Logged(),
		dispatcher.Usage("load <name>  replace the session with a stored scene"))
	d.Register("scenes", s.handleScenes, dispatcher.Buffered(1),
		dispatcher.Usage("scenes  list stored scenes"))
	d.Register("basemap", s.handleBasemap, dispatcher.Logged(),
		dispatcher.Usage("basemap  download buildings and roads around the scene"))

	d.Register("help", func(dispatcher.Event) (any, error) { return help(d), nil },
		dispatcher.Alias("?"), dispatcher.Usage("help  this list"))
	d.Register("quit", s.handleQuit, dispatcher.Alias("exit", "q"),
		dispatcher.Usage("quit  leave the editor"))
}

func help(d *dispatcher.Dispatcher) string {
	var b strings.Builder
	for _, c := range d.Commands() {
		b.WriteString("  ")
		b.WriteString(c.Usage)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(c.Aliases, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) handleQuit(dispatcher.Event) (any, error) {
	s.quit = true
	return nil, nil
}

// target resolves the entity named by an optional id argument, falling back
// to the selection.
func (s *Service) target(args []string) (*core.Entity, error) {
	if len(args) > 0 {
		return s.sess.Find(args[0])
	}
	return s.sess.Selected()
}

func usage(text string) error {
	return fmt.Errorf("%w: %s", ErrUsage, text)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func describe(e *core.Entity) string {
	return fmt.Sprintf("%s %q [%s]", e.Category, e.Label(), shortID(e.ID))
}
