// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/gps"
	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/profile"
	"github.com/relabs-tech/racket_tracker/internal/replay"
	"github.com/relabs-tech/racket_tracker/internal/session"
	"github.com/relabs-tech/racket_tracker/internal/store"
)

// SessionPublisher receives a recorder's results. *link.Publisher satisfies it.
type SessionPublisher interface {
	PublishLive(session.LiveUpdate) error
	PublishEvent(session.Event) error
	PublishSummary(session.Summary) error
}

// Recorder runs one session from a concurrent sample source. Batches may
// arrive from any goroutine; the accumulator only ever sees one at a time.
type Recorder struct {
	mu      sync.Mutex
	acc     *session.Accumulator
	pub     SessionPublisher
	capture *replay.Capture

	events      []session.Event
	pendingEv   []session.Event
	pendingLive []session.LiveUpdate
	lateBatches int
}

// NewRecorder starts a session on acc. pub and capture may be nil.
func NewRecorder(acc *session.Accumulator, p profile.Profile, sport string, pub SessionPublisher, capture *replay.Capture) (*Recorder, error) {
	r := &Recorder{acc: acc, pub: pub, capture: capture}
	err := acc.Start(p, session.Callbacks{
		OnEvent: func(e session.Event) {
			r.events = append(r.events, e)
			r.pendingEv = append(r.pendingEv, e)
		},
		OnLiveUpdate: func(u session.LiveUpdate) {
			r.pendingLive = append(r.pendingLive, u)
		},
	}, sport)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return r, nil
}

// HandleBatch ingests one batch and publishes what it produced. It matches
// link.BatchHandler.
func (r *Recorder) HandleBatch(batch []imu.Sample) {
	r.mu.Lock()
	if r.acc.State() == session.StateEnded {
		r.lateBatches++
		r.mu.Unlock()
		return
	}
	if r.capture != nil {
		if err := r.capture.Write(batch); err != nil {
			log.Printf("recorder: %v", err)
		}
	}
	err := r.acc.Ingest(batch)
	events, lives := r.pendingEv, r.pendingLive
	r.pendingEv, r.pendingLive = nil, nil
	r.mu.Unlock()

	if err != nil {
		log.Printf("recorder: ingest error: %v", err)
	}
	if r.pub == nil {
		return
	}
	// Events go out before the tallies they caused.
	for _, e := range events {
		if err := r.pub.PublishEvent(e); err != nil {
			log.Printf("recorder: %v", err)
		}
	}
	for _, u := range lives {
		if err := r.pub.PublishLive(u); err != nil {
			log.Printf("recorder: %v", err)
		}
	}
}

// Status is a consistent snapshot of the running session.
func (r *Recorder) Status() (session.State, int64, session.LiveUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acc.State(), r.acc.ElapsedMs(), r.acc.Live()
}

// Finish ends the session, publishes the summary and returns it with every impact.
// Batches arriving afterwards are counted and dropped.
func (r *Recorder) Finish() (session.Summary, []session.Event, error) {
	r.mu.Lock()
	sum, err := r.acc.End()
	events := append([]session.Event(nil), r.events...)
	r.mu.Unlock()
	if err != nil {
		return session.Summary{}, nil, err
	}
	if r.pub != nil {
		if err := r.pub.PublishSummary(sum); err != nil {
			log.Printf("recorder: %v", err)
		}
	}
	return sum, events, nil
}

// LateBatches counts batches dropped because they arrived after Finish.
func (r *Recorder) LateBatches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lateBatches
}

// VenueSource reports where the session was played, if known.
type VenueSource interface {
	Latest() (gps.Fix, bool)
}

// SaveSession stores a finished session with meta and the latest fix from
// venue, which may be nil.
func SaveSession(ctx context.Context, st *store.Store, sum session.Summary, events []session.Event, meta store.QAMeta, venue VenueSource) (string, error) {
	rec := store.Record{Summary: sum, Meta: meta}
	if venue != nil {
		if fix, ok := venue.Latest(); ok {
			rec.Venue = &fix
		}
	}
	id, err := st.Save(ctx, rec, events)
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

// LoadProfile resolves the configured sport against the configured catalogue.
func LoadProfile(cfg *config.Config) (profile.Profile, error) {
	catalog, err := profile.Load(cfg.ProfilesPath)
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := catalog.Lookup(cfg.Sport)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("sport %q: %w", cfg.Sport, err)
	}
	return p, nil
}

// Topics maps the configured topic names.
func Topics(cfg *config.Config) link.Topics {
	return link.Topics{
		Raw:     cfg.TopicIMURaw,
		Live:    cfg.TopicLive,
		Event:   cfg.TopicEvent,
		Summary: cfg.TopicSummary,
	}
}

// OpenCapture creates a timestamped JSONL capture file in dir. An empty dir
// returns a nil capture and a no-op close.
func OpenCapture(dir, sport string) (*replay.Capture, func() error, error) {
	if dir == "" {
		return nil, func() error { return nil }, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create capture dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.raw.jsonl", sport, time.Now().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create capture %s: %w", path, err)
	}
	capture := replay.NewCapture(f)
	log.Printf("recorder: capturing raw samples to %s", path)
	return capture, func() error {
		if err := capture.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

// RunRecorder runs a session from the broker's raw topic (or the serial
// dongle when SERIAL_PORT is set) until SIGINT/SIGTERM, then publishes and
// saves the summary.
func RunRecorder() error {
	cfg := config.Get()

	p, err := LoadProfile(cfg)
	if err != nil {
		return err
	}
	scale, err := imu.ScaleForCodes(cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer st.Close()

	client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDRecorder)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	pub := link.NewPublisher(client, Topics(cfg))
	if err := pub.ClearRetained(); err != nil {
		log.Printf("recorder: clear previous session: %v", err)
	}

	capture, closeCapture, err := OpenCapture(cfg.CaptureDir, cfg.Sport)
	if err != nil {
		return err
	}

	rec, err := NewRecorder(session.NewAccumulator(float64(cfg.SampleRateHz)), p, cfg.Sport, pub, capture)
	if err != nil {
		closeCapture()
		return err
	}
	log.Printf("recorder: %s session started (impact %.1f g, gyro %.0f °/s, rally gap %.1f s)",
		cfg.Sport, p.ImpactG, p.GyroPeakDps, p.RallyGapSec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var venue *gps.Tracker
	if cfg.GPSSerialPort != "" {
		venue = &gps.Tracker{}
		go func() {
			if err := venue.Run(ctx, cfg.GPSSerialPort, cfg.GPSBaudRate); err != nil {
				log.Printf("recorder: gps: %v", err)
			}
		}()
	}

	stats := link.NewStats(float64(cfg.SampleRateHz))
	srcErr := make(chan error, 1)
	if cfg.SerialPort != "" {
		src := link.NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate, scale, cfg.SamplesPerBatch, stats)
		go func() { srcErr <- src.Run(ctx, rec.HandleBatch) }()
	} else {
		src := link.NewMQTTSource(client, cfg.TopicIMURaw, scale, stats)
		if err := src.Subscribe(rec.HandleBatch); err != nil {
			closeCapture()
			return err
		}
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-ctx.Done():
			log.Println("recorder: shutting down")
			break wait
		case err := <-srcErr:
			if err != nil {
				log.Printf("recorder: source stopped: %v", err)
			}
			break wait
		case <-ticker.C:
			state, elapsed, live := rec.Status()
			snap := stats.Snapshot()
			log.Printf("recorder: %s %ds swings=%d rally=%d peak=%.2fm/s | link %d samples, %.1f%% dropped",
				state, elapsed/1000, live.Swings, live.Rally, live.PeakSpeed, snap.Samples, snap.DropPct)
		}
	}

	if cfg.SerialPort == "" {
		client.Unsubscribe(cfg.TopicIMURaw).Wait()
	}

	sum, events, err := rec.Finish()
	if cerr := closeCapture(); cerr != nil {
		log.Printf("recorder: close capture: %v", cerr)
	}
	if err != nil {
		return err
	}

	var vs VenueSource
	if venue != nil {
		vs = venue
	}
	id, err := SaveSession(context.Background(), st, sum, events, store.DefaultQAMeta(), vs)
	if err != nil {
		return err
	}
	log.Printf("recorder: saved session %s: %d swings, max rally %d, avg %.2f m/s, max %.2f m/s over %ds",
		id, sum.Swings, sum.MaxRally, sum.AvgSpeed, sum.MaxSpeed, sum.DurationMs/1000)
	return nil
}
