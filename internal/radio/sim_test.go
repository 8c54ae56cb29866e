package radio

import "github.com/nerrad567/sdrlink/internal/radio/radiotest"

// connectSim builds a handler for model over sim and runs the connect cascade.
func connectSim(t interface {
	Helper()
	Fatalf(string, ...any)
}, model string, sim *radiotest.Sim, opts ...Option) *Handler {
	t.Helper()
	opts = append(opts, WithLinkFactory(func(*Model) Link { return sim }))
	h, err := NewHandler(model, opts...)
	if err != nil {
		t.Fatalf("NewHandler(%q) error = %v", model, err)
	}
	if !h.Connect("tcp", "sim", -1) {
		t.Fatalf("Connect() = false, LastCommandError %q", h.LastCommandError())
	}
	sim.Reset()
	return h
}
