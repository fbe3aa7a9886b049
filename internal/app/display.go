// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/racket_tracker/internal/config"
	"github.com/relabs-tech/racket_tracker/internal/link"
	"github.com/relabs-tech/racket_tracker/internal/session"
)

// DisplayData holds the latest session output for the OLED.
type DisplayData struct {
	mu sync.RWMutex

	live     session.LiveUpdate
	haveLive bool
	lastHit  session.Event
	summary  *session.Summary
}

func (d *DisplayData) PublishLive(u session.LiveUpdate) error {
	d.mu.Lock()
	d.live = u
	d.haveLive = true
	d.summary = nil
	d.mu.Unlock()
	return nil
}

func (d *DisplayData) PublishEvent(e session.Event) error {
	d.mu.Lock()
	d.lastHit = e
	d.mu.Unlock()
	return nil
}

func (d *DisplayData) PublishSummary(s session.Summary) error {
	d.mu.Lock()
	d.summary = &s
	d.mu.Unlock()
	return nil
}

// Lines returns the four text rows the OLED shows.
func (d *DisplayData) Lines(sport string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.summary != nil {
		s := d.summary
		return []string{
			fmt.Sprintf("%s done", strings.ToUpper(s.Sport)),
			fmt.Sprintf("Swings: %d", s.Swings),
			fmt.Sprintf("Rally:  %d max", s.MaxRally),
			fmt.Sprintf("V: %.1f/%.1f", s.AvgSpeed, s.MaxSpeed),
		}
	}
	if !d.haveLive {
		return []string{strings.ToUpper(sport), "Waiting...", "", ""}
	}
	return []string{
		strings.ToUpper(sport),
		fmt.Sprintf("Swings: %d", d.live.Swings),
		fmt.Sprintf("Rally:  %d", d.live.Rally),
		fmt.Sprintf("Hit: %.1f m/s", d.lastHit.Speed),
	}
}

// renderLines draws up to four rows of 7x13 text on a 128x64 frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i >= 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}

// RunDisplay shows the live session on an SSD1306 OLED on the default I2C bus.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderLines([]string{"Racket Tracker", "", "Connecting..."}), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := link.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := SubscribeSession(client, Topics(cfg), data); err != nil {
		return fmt.Errorf("failed to subscribe for display: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for {
		select {
		case <-ctx.Done():
			return dev.Halt()
		case <-ticker.C:
			if err := dev.Draw(dev.Bounds(), renderLines(data.Lines(cfg.Sport)), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
