package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/OCAP2/sceneeditor/internal/dispatcher"
	"github.com/OCAP2/sceneeditor/pkg/core"
)

const prompt = "> "

// readLines feeds input lines to the main loop. The channel closes at EOF.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// loop owns the session: commands, playback ticks and finished I/O are all
// handled here, one at a time.
func (a *app) loop(in io.Reader, out io.Writer) error {
	defer a.drain()
	lines := readLines(in)
	fmt.Fprint(out, prompt)

	for !a.svc.Quit() {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			a.exec(line)
			fmt.Fprint(out, prompt)
		case <-a.player.Ticks():
			a.svc.Tick()
		case err := <-a.svc.SaveDone():
			a.svc.CompleteSave(err)
		case l := <-a.svc.LoadDone():
			a.svc.CompleteLoad(l)
		case f := <-a.svc.BasemapDone():
			a.svc.CompleteBasemap(f)
		}
	}
	return nil
}

// drain waits for I/O still running at quit or end of input, so shutdown
// does not cancel a final save. Each operation is bounded by its timeout.
func (a *app) drain() {
	if !a.svc.Pending() {
		return
	}
	a.svc.Printf("waiting for running I/O to finish...\n")
	for a.svc.Pending() {
		select {
		case err := <-a.svc.SaveDone():
			a.svc.CompleteSave(err)
		case l := <-a.svc.LoadDone():
			a.svc.CompleteLoad(l)
		case f := <-a.svc.BasemapDone():
			a.svc.CompleteBasemap(f)
		}
	}
}

func (a *app) exec(line string) {
	tokens, err := a.parse.Tokenize(line)
	if err != nil {
		a.svc.Printf("error: %v\n", err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	if !a.disp.HasHandler(tokens[0]) {
		a.svc.Printf("unknown command %q, try help\n", tokens[0])
		return
	}

	res, err := a.disp.Dispatch(dispatcher.Event{Command: tokens[0], Args: tokens[1:]})
	if err != nil {
		a.svc.Printf("error: %s\n", describeError(err))
		return
	}
	if s, ok := res.(string); ok && s != "" && s != "queued" {
		a.svc.Printf("%s\n", s)
	}
}

// describeError adds a hint for the errors a user can act on.
func describeError(err error) string {
	switch {
	case errors.Is(err, core.ErrNoScene):
		return err.Error() + " (start one with new, or load a stored scene)"
	case errors.Is(err, core.ErrNoSelection):
		return err.Error() + " (select an entity first)"
	default:
		return err.Error()
	}
}
