// Command carelens analyzes photos of care documents or rooms from the
// terminal: stage files or grab a camera frame, send them through
// carelens-proxy and print the structured result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"carelens/internal/analysis"
	"carelens/internal/capture"
	"carelens/internal/client"
	"carelens/internal/config"
	apperrors "carelens/internal/errors"
	"carelens/internal/imaging"
	"carelens/internal/session"
)

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	var files multiFlag
	flag.Var(&files, "image", "photo file to analyze (repeatable)")
	camera := flag.String("camera", "", "camera device or FIFO emitting MJPEG, e.g. /dev/video0")
	front := flag.Bool("front", false, "camera is front-facing; mirror the frame to match its preview")
	kindArg := flag.String("kind", string(analysis.KindDocument), "analysis kind: document or environment")
	server := flag.String("server", cfg.BaseURL, "carelens-proxy base URL")
	timeout := flag.Duration("timeout", cfg.Timeout, "end-to-end analysis timeout")
	flag.Parse()

	kind := analysis.Kind(strings.ToLower(strings.TrimSpace(*kindArg)))
	if kind != analysis.KindDocument && kind != analysis.KindEnvironment {
		fmt.Fprintf(os.Stderr, "unknown kind %q: use document or environment\n", *kindArg)
		os.Exit(2)
	}
	if *camera == "" && len(files) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to analyze: pass -camera or at least one -image")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	frames := collectFrames(ctx, *camera, *front, files)
	if len(frames) == 0 {
		os.Exit(1)
	}

	sess := session.New(client.New(*server, *timeout))
	if err := sess.SetKind(kind); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	staged := 0
	for _, fr := range frames {
		opts := imaging.Options{MaxEdge: cfg.MaxEdge, Quality: cfg.JPEGQuality, Mirror: fr.Mirror}
		jpeg, err := imaging.Normalize(fr.Data, opts)
		if err != nil {
			// one unreadable photo never sinks the rest
			fmt.Fprintf(os.Stderr, "skipping a photo that could not be read as an image: %v\n", err)
			continue
		}
		if _, err := sess.Stage(jpeg, "image/jpeg"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		staged++
	}
	if staged == 0 {
		fmt.Fprintln(os.Stderr, "no usable photos to analyze")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "analyzing %d photo(s) as %s...\n", staged, kind)
	if err := sess.Submit(ctx); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.MessageOf(err))
		os.Exit(1)
	}

	printResult(os.Stdout, sess.Result())
}

// collectFrames acquires from the camera first, then the files. A camera
// failure prints its own guidance (every camera error names the file
// fallback) and the run continues with whatever files were given.
func collectFrames(ctx context.Context, camera string, front bool, files []string) []capture.Frame {
	var frames []capture.Frame

	if camera != "" {
		src := capture.CameraSource{Path: camera, FrontFacing: front}
		fr, err := src.Acquire(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			if len(files) == 0 {
				return nil
			}
		} else {
			frames = append(frames, fr)
		}
	}

	for _, path := range files {
		fr, err := capture.FileSource{Path: path}.Acquire(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		frames = append(frames, fr)
	}
	return frames
}

func printResult(w io.Writer, res analysis.Result) {
	if s := strings.TrimSpace(res.DetectedTextSummary); s != "" {
		fmt.Fprintf(w, "Detected\n  %s\n\n", s)
	}
	if len(res.PossibleCauses) > 0 {
		fmt.Fprintln(w, "Possible causes")
		for _, c := range res.PossibleCauses {
			fmt.Fprintf(w, "  - %s\n", c)
		}
		fmt.Fprintln(w)
	}
	if len(res.PreventionStrategies) > 0 {
		fmt.Fprintln(w, "Prevention")
		for _, p := range res.PreventionStrategies {
			fmt.Fprintf(w, "  - %s: %s [%s]\n", p.Measure, p.Rationale, p.Category)
		}
		fmt.Fprintln(w)
	}
	if s := strings.TrimSpace(res.HandoverNote); s != "" {
		fmt.Fprintf(w, "Handover note\n  %s\n", s)
	}
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
