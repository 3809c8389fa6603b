package handlers

import (
	"fmt"

	"github.com/OCAP2/sceneeditor/internal/dispatcher"
	"github.com/OCAP2/sceneeditor/internal/timeline"
)

func (s *Service) cursorMessage() string {
	return "cursor " + timeline.FormatOffset(s.sess.Offset())
}

func (s *Service) handleSeek(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, usage("seek <HH:MM:SS>")
	}
	off, err := s.parse.ParseOffset(e.Args[0])
	if err != nil {
		return nil, err
	}
	if _, err := s.sess.AdvanceTo(off); err != nil {
		return nil, err
	}
	return s.cursorMessage(), nil
}

func (s *Service) handleStep(dispatcher.Event) (any, error) {
	_, moved, err := s.sess.Step()
	if err != nil {
		return nil, err
	}
	if !moved {
		return "end of scene", nil
	}
	return s.cursorMessage(), nil
}

func (s *Service) handleReset(dispatcher.Event) (any, error) {
	if _, err := s.sess.ResetTimeline(); err != nil {
		return nil, err
	}
	return s.cursorMessage(), nil
}

func (s *Service) handlePlay(e dispatcher.Event) (any, error) {
	if len(e.Args) > 0 {
		speed, err := s.parse.ParseSpeed(e.Args[0])
		if err != nil {
			return nil, err
		}
		s.speed = speed
	}
	if !s.sess.HasScene() {
		_, err := s.sess.Scene()
		return nil, err
	}
	s.deps.Player.Start(s.speed)
	return fmt.Sprintf("playing at %dx", s.speed), nil
}

func (s *Service) handlePause(dispatcher.Event) (any, error) {
	s.deps.Player.Stop()
	return s.cursorMessage(), nil
}

func (s *Service) handleSpeed(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return fmt.Sprintf("speed %dx", s.speed), nil
	}
	speed, err := s.parse.ParseSpeed(e.Args[0])
	if err != nil {
		return nil, err
	}
	s.speed = speed
	if s.deps.Player.Playing() {
		s.deps.Player.Start(speed)
	}
	return fmt.Sprintf("speed %dx", speed), nil
}

// Tick advances playback by one second. Playback stops at the end of the
// scene. Called by the main loop for every player tick.
func (s *Service) Tick() {
	_, moved, err := s.sess.Step()
	if err != nil || !moved {
		s.deps.Player.Stop()
		if err == nil {
			s.Printf("end of scene at %s\n", timeline.FormatOffset(s.sess.Offset()))
		}
	}
}
