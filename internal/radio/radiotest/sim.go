// Package radiotest provides an in-memory radio for tests of code built
// on radio.Handler.
package radiotest

import (
	"strings"
	"sync"
	"time"
)

// Sim is an in-memory radio speaking the ASCII dialect. It satisfies
// radio.Link. A set command is stored and echoed back verbatim by the
// matching query, so "FRQ 1, 900" answers "FRQ? 1".
//
// Exported fields configure behaviour and must be set before the Sim is
// shared between goroutines.
type Sim struct {
	// Identity maps an exact command to canned reply lines.
	Identity map[string][]string
	// Fail maps a set verb to the ERROR text it answers with.
	Fail map[string]string
	// Timeout makes every Receive time out.
	Timeout bool
	// Refuse makes Connect fail.
	Refuse bool
	// DropAfter closes the link once this many commands were sent.
	DropAfter int
	// Sent records every command, oldest first.
	Sent []string

	mu        sync.Mutex
	sep       string
	state     map[string]string
	connected bool
	pending   string
	lastErr   string
}

// NewSim returns a radio using sep between arguments: ", " or " ".
func NewSim(sep string) *Sim {
	return &Sim{
		sep:      sep,
		Identity: make(map[string][]string),
		Fail:     make(map[string]string),
		state:    make(map[string]string),
	}
}

// addressArgs is how many leading arguments address the setting.
func addressArgs(verb string) int {
	switch verb {
	case "WBG", "DIP":
		return 2
	case "REF", "RBYP", "FNR":
		return 0
	}
	return 1
}

func (s *Sim) split(rest string) []string {
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	if s.sep == " " {
		return strings.Fields(rest)
	}
	parts := strings.Split(rest, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (s *Sim) key(verb string, args []string) string {
	n := addressArgs(verb)
	if n > len(args) {
		n = len(args)
	}
	return verb + " " + strings.Join(args[:n], s.sep)
}

// Seed stores a set command without counting it as traffic.
func (s *Sim) Seed(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	verb, rest, _ := strings.Cut(cmd, " ")
	s.state[s.key(verb, s.split(rest))] = cmd
}

// Calls returns how many commands were sent since the last Reset.
func (s *Sim) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}

// Commands returns a copy of the sent commands.
func (s *Sim) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Sent...)
}

// Reset forgets the sent commands.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = nil
}

// Connect implements radio.Link.
func (s *Sim) Connect(string, string, int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Refuse {
		s.lastErr = "connection refused"
		return false
	}
	s.connected = true
	s.lastErr = ""
	return true
}

// SendCommand implements radio.Link.
func (s *Sim) SendCommand(text string, _ bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	if !s.connected {
		s.lastErr = "not connected"
		return false
	}
	s.Sent = append(s.Sent, text)
	s.pending = text
	return true
}

// Receive implements radio.Link.
func (s *Sim) Receive(time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	if s.DropAfter > 0 && len(s.Sent) >= s.DropAfter {
		s.connected = false
		s.lastErr = "connection lost: EOF"
		return nil
	}
	if s.Timeout {
		s.lastErr = "Timeout"
		return nil
	}

	cmd := s.pending
	if lines, ok := s.Identity[cmd]; ok {
		return append([]string(nil), lines...)
	}

	word, rest, _ := strings.Cut(cmd, " ")
	if verb, ok := strings.CutSuffix(word, "?"); ok {
		line, ok := s.state[s.key(verb, s.split(rest))]
		if !ok {
			return []string{"OK"}
		}
		return []string{line, "OK"}
	}

	if reason, ok := s.Fail[word]; ok {
		return []string{"ERROR: " + reason}
	}
	s.state[s.key(word, s.split(rest))] = cmd
	return []string{"OK"}
}

// IsConnected implements radio.Link.
func (s *Sim) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastError implements radio.Link.
func (s *Sim) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Disconnect implements radio.Link.
func (s *Sim) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}
