package connectivity

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harrylevesque/starseeker/internal/utils"
)

// ProbeSource stands in for a mobile platform's network-info facility. It
// reports a link as connected when a non-loopback interface is up, and the
// internet as reachable when a HEAD request to URL gets any HTTP response.
type ProbeSource struct {
	URL        string
	Interval   time.Duration
	HTTPClient *http.Client
	Log        *utils.Logger

	// interfacesUp is swapped in tests.
	interfacesUp func() (bool, error)

	mu     sync.Mutex
	subs   map[int]func(State)
	nextID int
	last   *State
	cancel context.CancelFunc
}

// NewProbeSource polls url every interval while it has subscribers.
func NewProbeSource(url string, interval time.Duration, httpClient *http.Client, log *utils.Logger) *ProbeSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &ProbeSource{
		URL:          url,
		Interval:     interval,
		HTTPClient:   httpClient,
		Log:          log,
		interfacesUp: anyInterfaceUp,
		subs:         make(map[int]func(State)),
	}
}

// Subscribe starts polling on the first subscriber and stops after the last
// one leaves. Callbacks fire only when the reading changes.
func (p *ProbeSource) Subscribe(cb func(State)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = cb
	if p.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go p.poll(ctx)
	}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			if len(p.subs) == 0 && p.cancel != nil {
				p.cancel()
				p.cancel = nil
				p.last = nil
			}
		})
	}
}

// Fetch takes one reading now.
func (p *ProbeSource) Fetch(ctx context.Context) (State, error) {
	up, err := p.interfacesUp()
	if err != nil {
		return State{}, err
	}
	state := State{IsConnected: &up}
	if !up {
		unreachable := false
		state.IsInternetReachable = &unreachable
		return state, nil
	}
	reachable := p.reachable(ctx)
	state.IsInternetReachable = &reachable
	return state, nil
}

func (p *ProbeSource) poll(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		state, err := p.Fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.Log.Warnf("connectivity probe failed: %v", err)
			}
			continue
		}
		p.publish(ctx, state)
	}
}

func (p *ProbeSource) publish(ctx context.Context, state State) {
	p.mu.Lock()
	if ctx.Err() != nil || (p.last != nil && sameState(*p.last, state)) {
		p.mu.Unlock()
		return
	}
	p.last = &state
	subs := make([]func(State), 0, len(p.subs))
	for _, cb := range p.subs {
		subs = append(subs, cb)
	}
	p.mu.Unlock()

	for _, cb := range subs {
		cb(state)
	}
}

func (p *ProbeSource) reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func anyInterfaceUp() (bool, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			return true, nil
		}
	}
	return false, nil
}

func sameState(a, b State) bool {
	return eqBool(a.IsConnected, b.IsConnected) && eqBool(a.IsInternetReachable, b.IsInternetReachable)
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
