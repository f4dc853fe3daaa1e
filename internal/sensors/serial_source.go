// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gesture_computer/internal/imu"
)

// TypeIMU is the sentence type emitted by the serial IMU bridge:
//
//	$IIIMU,ax,ay,az,gx,gy,gz,mx,my,mz*hh
//
// with acceleration in g, rate in °/s and field in µT.
const TypeIMU = "IMU"

// maxSkippedLines bounds how many non-IMU lines Read consumes before it
// gives up on a single call.
const maxSkippedLines = 32

type imuSentence struct {
	nmea.BaseSentence
	Sample imu.Sample
}

func parseIMU(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeIMU)
	out := imuSentence{
		BaseSentence: s,
		Sample: imu.Sample{
			Source: "serial",
			Ax:     p.Float64(0, "ax"),
			Ay:     p.Float64(1, "ay"),
			Az:     p.Float64(2, "az"),
			Gx:     p.Float64(3, "gx"),
			Gy:     p.Float64(4, "gy"),
			Gz:     p.Float64(5, "gz"),
			Mx:     p.Float64(6, "mx"),
			My:     p.Float64(7, "my"),
			Mz:     p.Float64(8, "mz"),
		},
	}
	return out, p.Err()
}

var sentenceParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{TypeIMU: parseIMU},
}

// ParseSentence decodes one $IIIMU line, checksum included.
func ParseSentence(line string) (imu.Sample, error) {
	s, err := sentenceParser.Parse(strings.TrimSpace(line))
	if err != nil {
		return imu.Sample{}, fmt.Errorf("parse IMU sentence: %w", err)
	}
	m, ok := s.(imuSentence)
	if !ok {
		return imu.Sample{}, fmt.Errorf("parse IMU sentence: unexpected type %s%s", s.TalkerID(), s.DataType())
	}
	return m.Sample, nil
}

// SerialOptions describes the UART the IMU bridge is attached to.
type SerialOptions struct {
	Port     string
	BaudRate int
}

type serialSource struct {
	reader *bufio.Reader
}

// NewSerialSource opens the serial port and reads $IIIMU sentences from it.
// The returned source must be closed.
func NewSerialSource(opts SerialOptions) (imu.Source, io.Closer, error) {
	serialOpts := serial.OpenOptions{
		PortName:              opts.Port,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("serial source: open %s: %w", opts.Port, err)
	}
	slog.Info("serial IMU port opened", "port", opts.Port, "baud", opts.BaudRate)

	return newSerialSource(port), port, nil
}

func newSerialSource(r io.Reader) *serialSource {
	return &serialSource{reader: bufio.NewReader(r)}
}

// Read returns the next IMU sentence on the line. Other NMEA traffic and
// blank lines are skipped.
func (s *serialSource) Read() (imu.Sample, error) {
	for i := 0; i < maxSkippedLines; i++ {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return imu.Sample{}, fmt.Errorf("serial source: read: %w", err)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") || !strings.Contains(line, TypeIMU+",") {
			continue
		}
		return ParseSentence(line)
	}
	return imu.Sample{}, fmt.Errorf("serial source: no IMU sentence in %d lines", maxSkippedLines)
}
