package handlers

import (
	"fmt"
	"strings"

	"github.com/OCAP2/sceneeditor/internal/association"
	"github.com/OCAP2/sceneeditor/internal/dispatcher"
	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/internal/session"
	"github.com/OCAP2/sceneeditor/internal/timeline"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

func (s *Service) position(arg string) (core.Position2D, error) {
	sc, err := s.sess.Scene()
	if err != nil {
		return core.Position2D{}, err
	}
	return s.parse.ParsePosition(arg, geo.ForScene(&sc))
}

func (s *Service) handleCreate(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, usage("create <category> <x,y|@lat,lon> [key=value...]")
	}
	c, err := s.parse.ParseCategory(e.Args[0])
	if err != nil {
		return nil, err
	}
	pos, err := s.position(e.Args[1])
	if err != nil {
		return nil, err
	}
	props, err := s.parse.ParseProps(e.Args[2:])
	if err != nil {
		return nil, err
	}

	ent, _, err := s.sess.Create(c, pos, props)
	if err != nil {
		return nil, err
	}
	return "created " + describe(ent), nil
}

func (s *Service) handleList(e dispatcher.Event) (any, error) {
	cats := core.Categories
	if len(e.Args) > 0 {
		c, err := s.parse.ParseCategory(e.Args[0])
		if err != nil {
			return nil, err
		}
		cats = []core.Category{c}
	}

	var b strings.Builder
	for _, c := range cats {
		list, err := s.sess.Entities(c)
		if err != nil {
			return nil, err
		}
		for _, ent := range list {
			fmt.Fprintf(&b, "  %-8s  %-20s %s\n", shortID(ent.ID), ent.Label(), c)
		}
	}
	if b.Len() == 0 {
		return "no entities", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Service) handleShow(dispatcher.Event) (any, error) {
	placed, err := s.sess.Visible()
	if err != nil {
		return nil, err
	}

	selected, _ := s.sess.Selected()
	var b strings.Builder
	fmt.Fprintf(&b, "at %s:", timeline.FormatOffset(s.sess.Offset()))
	for _, p := range placed {
		mark := " "
		if selected != nil && selected.ID == p.Entity.ID {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n %s %-8s  %-20s %-20s %s", mark, shortID(p.Entity.ID), p.Entity.Label(),
			p.Entity.Category, p.Position)
		if !p.InScene {
			b.WriteString("  (outside radius)")
		}
	}
	if len(placed) == 0 {
		b.WriteString(" nothing placed")
	}
	return b.String(), nil
}

func (s *Service) handleSelect(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, usage("select <id>")
	}
	ent, err := s.sess.Find(e.Args[0])
	if err != nil {
		return nil, err
	}
	if _, err := s.sess.Select(ent.Ref()); err != nil {
		return nil, err
	}
	return "selected " + describe(ent), nil
}

func (s *Service) handleDeselect(dispatcher.Event) (any, error) {
	s.sess.Deselect()
	return nil, nil
}

func (s *Service) handleDelete(e dispatcher.Event) (any, error) {
	ent, err := s.target(e.Args)
	if err != nil {
		return nil, err
	}
	ch, err := s.sess.Delete(ent.Ref())
	if err != nil {
		return nil, err
	}
	msg := "deleted " + describe(ent)
	if n := len(ch.Refs) - 1; n > 0 {
		msg += fmt.Sprintf(", %d associated entities updated", n)
	}
	return msg, nil
}

func (s *Service) handleMove(e dispatcher.Event) (any, error) {
	var (
		ent *core.Entity
		err error
		arg string
	)
	switch len(e.Args) {
	case 1:
		ent, err = s.sess.Selected()
		arg = e.Args[0]
	case 2:
		ent, err = s.sess.Find(e.Args[0])
		arg = e.Args[1]
	default:
		return nil, usage("move [id] <x,y|@lat,lon>")
	}
	if err != nil {
		return nil, err
	}
	pos, err := s.position(arg)
	if err != nil {
		return nil, err
	}
	if _, err := s.sess.Move(ent.Ref(), pos); err != nil {
		return nil, err
	}
	return fmt.Sprintf("moved %s to %s", describe(ent), pos), nil
}

func (s *Service) handleProps(e dispatcher.Event) (any, error) {
	ent, err := s.target(e.Args)
	if err != nil {
		return nil, err
	}
	fields, err := s.sess.Fields(ent.Ref())
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(describe(ent))
	for _, f := range fields {
		ro := ""
		if f.ReadOnly {
			ro = " (read-only)"
		}
		fmt.Fprintf(&b, "\n  %-22s %s%s", f.Key, f.Value, ro)
	}
	for k, v := range ent.Extra {
		fmt.Fprintf(&b, "\n  %-22s %s", k, v)
	}
	return b.String(), nil
}

func (s *Service) handleSet(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, usage("set <key> <value...>")
	}
	ent, err := s.sess.Selected()
	if err != nil {
		return nil, err
	}
	key, value := e.Args[0], strings.Join(e.Args[1:], " ")
	if key == "associated_ground_id" && value != "" {
		ground, err := s.findGround(value)
		if err != nil {
			return nil, err
		}
		value = ground.ID
	}

	ch, err := s.sess.SetProperty(ent.Ref(), key, value)
	if err != nil {
		return nil, err
	}
	if ch.Op == session.OpAssociate {
		if value == "" {
			return "association cleared", nil
		}
		return associationResult(ch.Status), nil
	}
	return fmt.Sprintf("%s = %q", key, value), nil
}

func (s *Service) findGround(id string) (*core.Entity, error) {
	g, err := s.sess.Find(id)
	if err != nil {
		return nil, err
	}
	if g.Category != core.CategoryGround {
		return nil, fmt.Errorf("%s: %w", describe(g), core.ErrNotGround)
	}
	return g, nil
}

func (s *Service) handleAssoc(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, usage("assoc <ground id|none>")
	}
	ent, err := s.sess.Selected()
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(e.Args[0], "none") {
		if _, err := s.sess.ClearAssociation(ent.Ref()); err != nil {
			return nil, err
		}
		return "association cleared", nil
	}

	ground, err := s.findGround(e.Args[0])
	if err != nil {
		return nil, err
	}
	ch, err := s.sess.Associate(ent.Ref(), ground.ID)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s -> %s: %s", describe(ent), ground.Label(), associationResult(ch.Status)), nil
}

func associationResult(st association.Status) string {
	if st == association.StatusLive {
		return "associated"
	}
	return "associated, ground unit not placed in the scene at the cursor"
}

func (s *Service) handleFrame(e dispatcher.Event) (any, error) {
	ent, err := s.target(e.Args)
	if err != nil {
		return nil, err
	}
	if _, err := s.sess.AddFrame(ent.Ref()); err != nil {
		return nil, err
	}
	return fmt.Sprintf("keyframe at %s for %s", timeline.FormatOffset(s.sess.Offset()), describe(ent)), nil
}

func (s *Service) handleKeyframe(e dispatcher.Event) (any, error) {
	if len(e.Args) != 2 {
		return nil, usage("keyframe <HH:MM:SS> <x,y|@lat,lon>")
	}
	ent, err := s.sess.Selected()
	if err != nil {
		return nil, err
	}
	off, err := s.parse.ParseOffset(e.Args[0])
	if err != nil {
		return nil, err
	}
	pos, err := s.position(e.Args[1])
	if err != nil {
		return nil, err
	}
	sc, _ := s.sess.Scene()
	if _, err := s.sess.AddKeyframe(ent.Ref(), sc.StartTimestamp+off, pos); err != nil {
		return nil, err
	}
	return fmt.Sprintf("keyframe at %s for %s", timeline.FormatOffset(off), describe(ent)), nil
}

func (s *Service) handleUnframe(e dispatcher.Event) (any, error) {
	ent, err := s.target(e.Args)
	if err != nil {
		return nil, err
	}
	if _, err := s.sess.DeleteFrame(ent.Ref()); err != nil {
		return nil, err
	}
	return fmt.Sprintf("keyframe at %s deleted", timeline.FormatOffset(s.sess.Offset())), nil
}

func (s *Service) handleFrames(e dispatcher.Event) (any, error) {
	ent, err := s.target(e.Args)
	if err != nil {
		return nil, err
	}
	list, err := s.sess.FrameList(ent.Ref())
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(describe(ent))
	if len(list) == 0 {
		b.WriteString(": no keyframes")
	}
	for _, f := range list {
		mark := " "
		if f.Current {
			mark = ">"
		}
		fmt.Fprintf(&b, "\n %s %s  %s", mark, f.Offset, f.Position)
	}
	return b.String(), nil
}

func (s *Service) handleUndo(dispatcher.Event) (any, error) {
	ch, err := s.sess.Undo()
	if err != nil {
		return nil, err
	}
	return "undid " + ch.Undone, nil
}
