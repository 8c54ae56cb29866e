package mqtt

import (
	"fmt"
	"strings"
	"sync"
)

type subscription struct {
	filter  string
	qos     byte
	handler MessageHandler
}

// subscriptionSet remembers subscriptions so they survive a reconnect
// with a clean session.
type subscriptionSet struct {
	mu       sync.RWMutex
	byFilter map[string]subscription
}

func (s *subscriptionSet) put(sub subscription) {
	s.mu.Lock()
	s.byFilter[sub.filter] = sub
	s.mu.Unlock()
}

func (s *subscriptionSet) drop(filter string) {
	s.mu.Lock()
	delete(s.byFilter, filter)
	s.mu.Unlock()
}

func (s *subscriptionSet) all() []subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]subscription, 0, len(s.byFilter))
	for _, sub := range s.byFilter {
		out = append(out, sub)
	}
	return out
}

// validFilter checks MQTT wildcard placement: + must fill a whole level
// and # must be the whole last level.
func validFilter(filter string) bool {
	if filter == "" {
		return false
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return false
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return false
		}
	}
	return true
}

// Subscribe registers handler for filter, which may contain + and #
// wildcards. Handler panics are recovered and logged.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if !validFilter(filter) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, filter)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Tracked first so a reconnect racing the SUBACK still restores it.
	c.subs.put(subscription{filter: filter, qos: qos, handler: handler})

	token := c.paho.Subscribe(filter, qos, c.deliver(handler))
	err := waitToken(token, ErrSubscribeFailed)
	if err != nil {
		c.subs.drop(filter)
	}
	return err
}

// Unsubscribe removes a subscription. Messages already in flight may
// still be delivered.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subs.drop(filter)
	return waitToken(c.paho.Unsubscribe(filter), ErrUnsubscribeFailed)
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subs.mu.RLock()
	defer c.subs.mu.RUnlock()
	return len(c.subs.byFilter)
}

// HasSubscription reports whether filter is subscribed verbatim.
func (c *Client) HasSubscription(filter string) bool {
	c.subs.mu.RLock()
	defer c.subs.mu.RUnlock()
	_, ok := c.subs.byFilter[filter]
	return ok
}
