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
	"syscall"
	"time"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/imu"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/sensors"
)

// RawPublisher sends one batch of wire records. *link.Publisher satisfies it.
type RawPublisher interface {
	PublishRaw([]imu.IMURaw) error
}

// Sampler reads src at the given interval and publishes every perBatch
// records as one payload.
type Sampler struct {
	src      imu.IMURawSource
	pub      RawPublisher
	interval time.Duration
	perBatch int

	batch     []imu.IMURaw
	published int
	readErrs  int
}

// NewSampler returns a sampler for src at sampleHz.
func NewSampler(src imu.IMURawSource, pub RawPublisher, sampleHz, perBatch int) *Sampler {
	if sampleHz <= 0 {
		sampleHz = 200
	}
	if perBatch <= 0 {
		perBatch = 10
	}
	return &Sampler{
		src:      src,
		pub:      pub,
		interval: time.Second / time.Duration(sampleHz),
		perBatch: perBatch,
		batch:    make([]imu.IMURaw, 0, perBatch),
	}
}

// Tick takes one reading and publishes when a batch is full.
func (s *Sampler) Tick() error {
	r, err := s.src.ReadRaw()
	if err != nil {
		s.readErrs++
		return fmt.Errorf("read IMU: %w", err)
	}
	s.batch = append(s.batch, r)
	if len(s.batch) < s.perBatch {
		return nil
	}
	out := s.batch
	s.batch = make([]imu.IMURaw, 0, s.perBatch)
	if err := s.pub.PublishRaw(out); err != nil {
		return err
	}
	s.published++
	return nil
}

// Run ticks until ctx is done. Read and publish errors are logged and sampling goes on.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	report := time.NewTicker(10 * time.Second)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				log.Printf("producer: %v", err)
			}
		case <-report.C:
			log.Printf("producer: %d batches published, %d read errors", s.published, s.readErrs)
		}
	}
}

// RunIMUProducer samples the strap's MPU9250 and publishes raw batches.
func RunIMUProducer() error {
	log.Println("starting racket IMU producer")
	cfg := config.Get()

	src, err := sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, cfg.IMUGyroRange)
	if err != nil {
		return err
	}
	return runProducer(cfg, src)
}

// RunMockProducer publishes a synthetic strap stream at the configured rate.
func RunMockProducer() error {
	log.Println("starting racket mock producer")
	cfg := config.Get()

	src := link.NewMockSource(cfg.SampleRateHz, cfg.SamplesPerBatch, 0, uint64(time.Now().UnixNano()))
	return runProducer(cfg, src)
}

func runProducer(cfg *config.Config, src imu.IMURawSource) error {
	client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	pub := link.NewPublisher(client, Topics(cfg))
	sampler := NewSampler(src, pub, cfg.SampleRateHz, cfg.SamplesPerBatch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("producer: publishing %d Hz in batches of %d to %s", cfg.SampleRateHz, cfg.SamplesPerBatch, cfg.TopicIMURaw)
	sampler.Run(ctx)
	log.Println("producer: shutting down")
	return nil
}
