// Package capture acquires photo bytes from local sources: a picked file
// or a camera device. Camera failures map to distinct, actionable errors
// so callers can steer the user to the file path instead of crashing.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// Acquisition failures a user can act on. Callers match with errors.Is
// and fall back to the file source.
var (
	ErrPermissionDenied = errors.New("camera access denied: grant read permission on the device or pick a file instead")
	ErrNoDevice         = errors.New("no camera device found: connect one or pick a file instead")
	ErrDeviceBusy       = errors.New("camera is in use by another application: close it or pick a file instead")
)

// Frame is one captured photo. Mirror marks frames from a front-facing
// lens so normalization can match the preview the user saw.
type Frame struct {
	Data   []byte
	Mirror bool
}

// Source yields one frame per acquisition. Implementations hold no open
// handles between calls; everything acquired inside Acquire is released
// before it returns.
type Source interface {
	Describe() string
	Acquire(ctx context.Context) (Frame, error)
}

// FileSource reads a photo the user already has.
type FileSource struct {
	Path string
}

func (s FileSource) Describe() string { return "file " + s.Path }

func (s FileSource) Acquire(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Frame{}, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return Frame{Data: data}, nil
}

const defaultMaxFrame = 8 << 20

// CameraSource pulls a single JPEG frame from a device node or FIFO that
// emits an MJPEG stream (v4l2loopback, a gstreamer pipe or similar
// feeder). The device is opened per acquisition and closed on every
// return path, so the hardware indicator never stays lit.
type CameraSource struct {
	Path        string
	FrontFacing bool
	MaxFrame    int // read cap in bytes; 0 means 8 MiB
}

func (s CameraSource) Describe() string { return "camera " + s.Path }

func (s CameraSource) Acquire(ctx context.Context) (Frame, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Frame{}, openError(err, s.Path)
	}
	defer f.Close()

	if deadline, ok := ctx.Deadline(); ok {
		// works on pipes and char devices; plain files ignore it
		_ = f.SetReadDeadline(deadline)
	}

	data, err := readJPEGFrame(ctx, f, s.maxFrame())
	if err != nil {
		return Frame{}, fmt.Errorf("capture from %s: %w", s.Path, err)
	}
	return Frame{Data: data, Mirror: s.FrontFacing}, nil
}

func (s CameraSource) maxFrame() int {
	if s.MaxFrame > 0 {
		return s.MaxFrame
	}
	return defaultMaxFrame
}

func openError(err error, path string) error {
	switch {
	case os.IsPermission(err):
		return fmt.Errorf("%w (%s)", ErrPermissionDenied, path)
	case os.IsNotExist(err):
		return fmt.Errorf("%w (%s)", ErrNoDevice, path)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w (%s)", ErrDeviceBusy, path)
	default:
		return fmt.Errorf("open camera %s: %w", path, err)
	}
}

// readJPEGFrame scans the stream for one complete SOI..EOI frame.
func readJPEGFrame(ctx context.Context, r io.Reader, max int) ([]byte, error) {
	buf := make([]byte, 32<<10)
	var acc []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if frame := extractJPEG(acc); frame != nil {
				return frame, nil
			}
			if len(acc) > max {
				return nil, errors.New("no complete JPEG frame within read limit")
			}
		}
		if err != nil {
			if frame := extractJPEG(acc); frame != nil {
				return frame, nil
			}
			if err == io.EOF {
				return nil, errors.New("stream ended before a complete JPEG frame")
			}
			return nil, err
		}
	}
}

func extractJPEG(b []byte) []byte {
	start := bytes.Index(b, []byte{0xFF, 0xD8, 0xFF})
	if start < 0 {
		return nil
	}
	end := bytes.Index(b[start:], []byte{0xFF, 0xD9})
	if end < 0 {
		return nil
	}
	return append([]byte(nil), b[start:start+end+2]...)
}
