// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/racket_tracker/internal/imu"
)

type imuSource struct {
	imu   *mpu9250.MPU9250
	start time.Time
}

// NewIMUSource initializes an MPU9250 over SPI with the given range codes
// (accel 0-3 = ±2/4/8/16 g, gyro 0-3 = ±250/500/1000/2000 °/s).
// Timestamps on the returned records are milliseconds since initialization.
func NewIMUSource(spiDev, csPin string, accelRange, gyroRange byte) (imu.IMURawSource, error) {
	accelG, err := imu.AccelRangeG(accelRange)
	if err != nil {
		return nil, fmt.Errorf("IMU: %w", err)
	}
	gyroDPS, err := imu.GyroRangeDPS(gyroRange)
	if err != nil {
		return nil, fmt.Errorf("IMU: %w", err)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%gg)", accelRange, accelG)

	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%g°/s)", gyroRange, gyroDPS)

	return &imuSource{imu: dev, start: time.Now()}, nil
}

// ReadRaw reads accelerometer and gyroscope counts and stamps them.
func (s *imuSource) ReadRaw() (imu.IMURaw, error) {
	tMs := uint32(time.Since(s.start).Milliseconds())

	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.IMURaw{
		TMs: tMs,
		Ax:  ax,
		Ay:  ay,
		Az:  az,
		Gx:  gx,
		Gy:  gy,
		Gz:  gz,
	}, nil
}
