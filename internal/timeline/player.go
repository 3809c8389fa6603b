package timeline

import (
	"sync"
	"time"
)

// MinInterval is the fastest playback tick.
const MinInterval = 10 * time.Millisecond

// Interval returns the tick period for a playback speed multiplier: each tick
// advances one scene second, so speed s takes 1000/s milliseconds per tick.
func Interval(speed int) time.Duration {
	if speed <= 0 {
		return time.Second
	}
	d := time.Duration(1000/speed) * time.Millisecond
	if d < MinInterval {
		return MinInterval
	}
	return d
}

// Player emits playback ticks on a channel. It never touches the cursor
// itself: the main loop receives the tick and advances the session, so all
// mutation stays on one goroutine.
type Player struct {
	mu      sync.Mutex
	ticks   chan struct{}
	stop    chan struct{}
	done    chan struct{}
	playing bool
}

// NewPlayer creates a stopped player.
func NewPlayer() *Player {
	return &Player{ticks: make(chan struct{}, 1)}
}

// Ticks is the channel the main loop selects on.
func (p *Player) Ticks() <-chan struct{} {
	return p.ticks
}

// Playing reports whether the ticker is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Start begins ticking at the given speed, replacing any running ticker.
func (p *Player) Start(speed int) {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.playing = true
	go p.run(Interval(speed), p.stop, p.done)
}

func (p *Player) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a slow consumer gets one pending tick, not a backlog
			select {
			case p.ticks <- struct{}{}:
			default:
			}
		}
	}
}

// Stop halts playback. Calling it when stopped is a no-op. A tick already
// buffered is drained so none arrives after Stop returns.
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	select {
	case <-p.ticks:
	default:
	}
}
