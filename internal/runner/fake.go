package runner

import (
	"context"
	"strings"
	"sync"

	"github.com/hochfrequenz/ghactl/internal/domain"
)

// Fake is a scripted Runner for tests. Respond decides the result of each
// call; when nil every call succeeds with empty output.
type Fake struct {
	mu      sync.Mutex
	calls   []Command
	live    []bool
	Respond func(cmd Command) domain.CommandResult
}

// Run implements Runner.Run
func (f *Fake) Run(_ context.Context, cmd Command) domain.CommandResult {
	return f.record(cmd, false)
}

// RunLive implements Runner.RunLive
func (f *Fake) RunLive(_ context.Context, cmd Command) domain.CommandResult {
	return f.record(cmd, true)
}

func (f *Fake) record(cmd Command, live bool) domain.CommandResult {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.live = append(f.live, live)
	respond := f.Respond
	f.mu.Unlock()

	if respond == nil {
		return domain.CommandResult{}
	}
	return respond(cmd)
}

// Calls returns every command line seen so far, in order
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = c.String()
	}
	return lines
}

// Commands returns the raw commands seen so far
func (f *Fake) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Count returns how many calls started with prefix
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, line := range f.Calls() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// LiveCount returns how many calls used RunLive
func (f *Fake) LiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.live {
		if l {
			n++
		}
	}
	return n
}
