package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"trajectory-builder/internal/geo"
	mmetrics "trajectory-builder/internal/metrics"
	"trajectory-builder/internal/publisher"
	"trajectory-builder/internal/timeline"
)

// Manager replays timeline groups against the wall clock, one goroutine per
// group, publishing interpolated positions to a sink.
type Manager struct {
	sink            publisher.Sink
	runID           string
	publishInterval time.Duration
	speedMultiplier float64
	metrics         *mmetrics.Collector
	log             logrus.FieldLogger
	now             func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc // group key -> cancel
	wg      sync.WaitGroup

	// scene clock: simulated seconds at wallStart
	sceneStart float64
	wallStart  time.Time
}

func NewManager(sink publisher.Sink, runID string, publishInterval time.Duration, speedMultiplier float64, metrics *mmetrics.Collector, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if speedMultiplier <= 0 {
		speedMultiplier = 1
	}
	return &Manager{
		sink:            sink,
		runID:           runID,
		publishInterval: publishInterval,
		speedMultiplier: speedMultiplier,
		metrics:         metrics,
		log:             log,
		now:             time.Now,
		running:         make(map[string]context.CancelFunc),
	}
}

// Start begins replay of every group. Scene time starts at the earliest group
// start and advances speedMultiplier simulated seconds per wall-clock second.
func (m *Manager) Start(ctx context.Context, groups []timeline.Group) {
	if len(groups) == 0 {
		m.log.Info("no groups to replay")
		return
	}
	start := math.Inf(1)
	for _, g := range groups {
		start = math.Min(start, g.StartTimeSec)
	}
	m.mu.Lock()
	m.sceneStart = start
	m.wallStart = m.now()
	m.mu.Unlock()

	for _, g := range groups {
		m.startGroup(ctx, g)
	}
}

// SimTime returns the scene time for a wall-clock instant.
func (m *Manager) SimTime(at time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sceneStart + at.Sub(m.wallStart).Seconds()*m.speedMultiplier
}

func (m *Manager) startGroup(parent context.Context, g timeline.Group) {
	m.mu.Lock()
	if _, exists := m.running[g.Key]; exists {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.running[g.Key] = cancel
	m.wg.Add(1)
	if m.metrics != nil {
		m.metrics.GroupsStarted.Inc()
		m.metrics.ActiveGroups.Set(float64(len(m.running)))
	}
	m.mu.Unlock()

	log := m.log.WithFields(logrus.Fields{"key": g.Key, "objectID": g.ObjectID})
	log.WithField("start", g.StartTimeSec).Debug("starting group replay")
	go func() {
		defer m.wg.Done()
		if err := m.runGroup(ctx, g, log); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("group replay error")
		}
		m.mu.Lock()
		delete(m.running, g.Key)
		if m.metrics != nil {
			m.metrics.GroupsFinished.Inc()
			m.metrics.ActiveGroups.Set(float64(len(m.running)))
		}
		m.mu.Unlock()
	}()
}

func (m *Manager) runGroup(ctx context.Context, g timeline.Group, log logrus.FieldLogger) error {
	tick := time.NewTicker(m.publishInterval)
	defer tick.Stop()

	var (
		last     geo.Location
		lastSim  float64
		havePrev bool
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			tickStart := time.Now()
			now := m.now()
			simT := m.SimTime(now)
			if simT < g.StartTimeSec {
				continue
			}
			done := !g.Forever() && simT >= g.EndTimeSec
			if done {
				simT = g.EndTimeSec
			}
			pose, _ := g.PositionAt(simT)

			// estimate speed from the previous position in scene time
			speed := 0.0
			if havePrev && simT > lastSim {
				speed = geo.Distance3D(last, pose.Loc) / (simT - lastSim)
			}
			last, lastSim, havePrev = pose.Loc, simT, true

			pm := publisher.PositionMessage{
				RunID:     m.runID,
				ODID:      g.ODID,
				ObjectID:  g.ObjectID,
				Key:       g.Key,
				SimTime:   simT,
				Timestamp: now,
				Lat:       pose.Loc.Lat,
				Lon:       pose.Loc.Lon,
				Alt:       pose.Loc.Alt,
				Bearing:   pose.Bearing,
				Progress:  pose.Progress,
				SpeedMps:  speed,
			}
			if err := m.sink.PublishPosition(ctx, pm); err != nil {
				log.WithError(err).Warn("publish error")
			}
			if m.metrics != nil {
				m.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
			}
			if done {
				log.WithField("end", g.EndTimeSec).Debug("finished group replay")
				return nil
			}
		}
	}
}

// Active returns the number of groups still replaying.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Wait blocks until every group has finished or ctx is done. Groups that
// never end only finish through Stop.
func (m *Manager) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (m *Manager) Stop() {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
