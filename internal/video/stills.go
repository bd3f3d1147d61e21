// Package video provides frame sources for the lane aggregator and the
// quadrant geometry used to split a frame into lanes.
package video

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/smartcity/flowsense/internal/domain"
)

// ErrCaptureUnsupported is returned when a capture device is requested.
// Live capture needs a native video stack this service does not link.
var ErrCaptureUnsupported = errors.New("video: capture devices are not supported")

// ErrNoFrames is returned when a path holds no decodable images
var ErrNoFrames = errors.New("video: no frames found")

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// StillsOpener opens directories of still images (or a single image) as a
// looping frame feed. Files are played in lexical order.
type StillsOpener struct{}

// Open implements domain.FrameOpener
func (StillsOpener) Open(src domain.VideoSource) (domain.FrameSource, error) {
	if src.IsDevice() {
		return nil, fmt.Errorf("%w (device %d)", ErrCaptureUnsupported, src.Device)
	}
	return OpenStills(src.Path)
}

// StillsSource is a FrameSource backed by image files
type StillsSource struct {
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
}

// OpenStills lists the frames under path, which may be a directory or one file
func OpenStills(path string) (*StillsSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("video: failed to open %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("video: failed to list %s: %w", path, err)
		}
		for _, e := range entries {
			if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, path)
	}

	return &StillsSource{files: files}, nil
}

// Len returns the number of frames in one pass
func (s *StillsSource) Len() int {
	return len(s.files)
}

// Next decodes the next frame, returning io.EOF after the last one
func (s *StillsSource) Next() (image.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, os.ErrClosed
	}
	if s.next >= len(s.files) {
		s.mu.Unlock()
		return nil, io.EOF
	}
	name := s.files[s.next]
	s.next++
	s.mu.Unlock()

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("video: failed to open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("video: failed to decode %s: %w", filepath.Base(name), err)
	}
	return img, nil
}

// Rewind restarts playback from the first frame
func (s *StillsSource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	s.next = 0
	return nil
}

// Close releases the source; further reads fail
func (s *StillsSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
