package proxydial

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/soheilmv/mvnet/wireerr"
)

// Pool round-robins over a loaded list of proxy URLs, handing back a ready
// Dialer instead of a bare address string — adapted from the teacher's
// proxy.ProxyManager (mutex-guarded slice + rotating index, newline file
// format with "#"-comment support), generalized so callers never parse a
// proxy URL themselves.
type Pool struct {
	mu      sync.Mutex
	dialers []Dialer
	index   int
}

// LoadProxies reads filename, one proxy URL per line, ignoring blank lines
// and lines starting with "#", and replaces the pool's contents. A line
// that fails to parse is skipped rather than aborting the whole load, so a
// single malformed entry doesn't take down the rest of the list.
func (p *Pool) LoadProxies(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return wireerr.NewInvalidInput("cannot open proxy list: " + err.Error())
	}
	defer f.Close()

	var dialers []Dialer
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d, err := New(line)
		if err != nil {
			continue
		}
		dialers = append(dialers, d)
	}
	if err := scanner.Err(); err != nil {
		return wireerr.NewInvalidInput("error reading proxy list: " + err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialers = dialers
	p.index = 0
	return nil
}

// Add appends a single dialer to the pool (e.g. one built by New from a
// request-local override) without touching a loaded list.
func (p *Pool) Add(d Dialer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialers = append(p.dialers, d)
}

// Next returns the next Dialer in rotation, or nil if the pool is empty.
func (p *Pool) Next() Dialer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.dialers) == 0 {
		return nil
	}
	d := p.dialers[p.index]
	p.index = (p.index + 1) % len(p.dialers)
	return d
}

// Count reports how many dialers are currently loaded.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dialers)
}
