package loadbalancer

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// RoundRobin hands out upstream base URLs in turn. The gateway uses it when a
// route lists more than one reports instance.
type RoundRobin struct {
	targets []*url.URL
	mu      sync.Mutex
	current int
}

// New parses a comma separated list of upstream URLs.
func New(targets string) (*RoundRobin, error) {
	rr := &RoundRobin{}
	for _, raw := range strings.Split(targets, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("bad target URL %q", raw)
		}
		rr.targets = append(rr.targets, u)
	}
	if len(rr.targets) == 0 {
		return nil, fmt.Errorf("no upstream in %q", targets)
	}
	return rr, nil
}

func (rr *RoundRobin) Next() *url.URL {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	u := rr.targets[rr.current]
	rr.current = (rr.current + 1) % len(rr.targets)
	return u
}

func (rr *RoundRobin) Len() int { return len(rr.targets) }
