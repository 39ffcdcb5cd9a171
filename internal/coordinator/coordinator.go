package coordinator

import (
	"log"
	"sync"
	"time"

	"github.com/maxstorage/maxstorage-bridge/internal/maxstorage"
	"github.com/maxstorage/maxstorage-bridge/internal/metrics"
	"github.com/maxstorage/maxstorage-bridge/internal/models"
)

const (
	defaultInterval = 6 * time.Second

	// On consecutive failures the poll wait doubles until it reaches ten
	// times the configured interval.
	maxBackoffMultiplier = 10
)

// Coordinator owns polling, retry and snapshot storage for one device.
// Everything downstream only ever reads the latest snapshot and reacts to
// notifications; nothing else in the process talks to the device.
type Coordinator interface {
	Start()
	Close()
	Refresh() error
	LatestSnapshot() (maxstorage.Snapshot, bool)
	Subscribe(listener func()) func()
	Healthy() bool
	DeviceIdent() string
	Metadata() models.DeviceMetadata
}

type coordinator struct {
	client    maxstorage.Client
	interval  time.Duration
	done      chan bool
	closeOnce sync.Once

	mux          sync.RWMutex
	snapshot     maxstorage.Snapshot
	hasSnapshot  bool
	healthy      bool
	failures     int
	listeners    map[int]func()
	nextListener int
}

func New(client maxstorage.Client, interval time.Duration) Coordinator {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &coordinator{
		client:    client,
		interval:  interval,
		done:      make(chan bool),
		listeners: make(map[int]func()),
	}
}

func (c *coordinator) Start() {
	go c.run()
}

// Close stops the poll loop. It is safe to call before Start and safe to
// call more than once.
func (c *coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *coordinator) run() {
	for {
		timer := time.NewTimer(c.nextWait())
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := c.Refresh(); err != nil {
			log.Printf("Error fetching data from MaxStorage: %s", err)
		}
	}
}

// Refresh runs one complete update cycle: fetch, store on success, and
// notify every subscriber whether the fetch succeeded or not.
func (c *coordinator) Refresh() error {
	snapshot, err := c.client.GetData()
	c.mux.Lock()
	if err != nil {
		c.failures++
		c.healthy = false
	} else {
		c.failures = 0
		c.healthy = true
		c.snapshot = snapshot
		c.hasSnapshot = true
	}
	c.mux.Unlock()
	if err != nil {
		metrics.SendCountMetric("poll.failure", nil)
	} else {
		metrics.SendCountMetric("poll.success", nil)
	}
	c.notify()
	return err
}

func (c *coordinator) nextWait() time.Duration {
	c.mux.RLock()
	failures := c.failures
	c.mux.RUnlock()
	wait := c.interval
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoffMultiplier*c.interval {
			return maxBackoffMultiplier * c.interval
		}
	}
	return wait
}

func (c *coordinator) notify() {
	c.mux.RLock()
	listeners := make([]func(), 0, len(c.listeners))
	for _, listener := range c.listeners {
		listeners = append(listeners, listener)
	}
	c.mux.RUnlock()
	for _, listener := range listeners {
		listener()
	}
}

func (c *coordinator) LatestSnapshot() (maxstorage.Snapshot, bool) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.snapshot, c.hasSnapshot
}

// Subscribe registers a listener invoked once per completed update cycle.
// The returned function removes the listener and is safe to call more than
// once.
func (c *coordinator) Subscribe(listener func()) func() {
	c.mux.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = listener
	c.mux.Unlock()
	return func() {
		c.mux.Lock()
		delete(c.listeners, id)
		c.mux.Unlock()
	}
}

func (c *coordinator) Healthy() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.healthy
}

func (c *coordinator) DeviceIdent() string {
	return c.client.DeviceInfo().Ident
}

func (c *coordinator) Metadata() models.DeviceMetadata {
	return c.client.DeviceInfo().Metadata()
}
