package frameio

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/banshee-data/stabilizer/internal/fsutil"
	"github.com/banshee-data/stabilizer/internal/monitoring"
	"github.com/banshee-data/stabilizer/internal/video/l1image"
)

// ErrNoFrames is returned when an input directory holds no image files.
var ErrNoFrames = errors.New("no frames found")

// OutputPattern names the files written by DirSink.
const OutputPattern = "frame_%06d.png"

var frameExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

var lastNumber = regexp.MustCompile(`(\d+)\D*$`)

// DirSource reads numbered image files from a directory in frame order.
type DirSource struct {
	fs    fsutil.FileSystem
	dir   string
	files []string
	pos   int
}

// NewDirSource lists the frames in dir. Files are ordered by the last
// number in their name (frame_9.png before frame_10.png); files without a
// number come last in lexical order.
func NewDirSource(fsys fsutil.FileSystem, dir string) (*DirSource, error) {
	names, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}

	var frames []string
	skipped := 0
	for _, n := range names {
		if frameExtensions[strings.ToLower(filepath.Ext(n))] {
			frames = append(frames, n)
		} else {
			skipped++
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoFrames)
	}
	if skipped > 0 {
		monitoring.Logf("[frameio] %s: ignoring %d non-image files", dir, skipped)
	}

	sort.SliceStable(frames, func(i, j int) bool {
		ni, oki := frameNumber(frames[i])
		nj, okj := frameNumber(frames[j])
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return frames[i] < frames[j]
		}
	})
	return &DirSource{fs: fsys, dir: dir, files: frames}, nil
}

func frameNumber(name string) (int, bool) {
	m := lastNumber.FindStringSubmatch(strings.TrimSuffix(name, filepath.Ext(name)))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int { return len(s.files) }

// Files returns the frame file names in playback order.
func (s *DirSource) Files() []string { return append([]string(nil), s.files...) }

// Next decodes the next frame. It returns io.EOF after the last file.
func (s *DirSource) Next(ctx context.Context) (*l1image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}
	name := filepath.Join(s.dir, s.files[s.pos])
	s.pos++

	f, err := s.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return l1image.FromGray(toGray(img)), nil
}

// toGray returns img as 8-bit luma.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// DirSink writes frames as numbered gray PNGs. Every frame must have the
// shape of the first one written.
type DirSink struct {
	fs            fsutil.FileSystem
	dir           string
	next          int
	width, height int
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(fsys fsutil.FileSystem, dir string) (*DirSink, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DirSink{fs: fsys, dir: dir}, nil
}

// Written returns the number of frames written so far.
func (s *DirSink) Written() int { return s.next }

// Write encodes img as the next frame.
func (s *DirSink) Write(ctx context.Context, img *l1image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if img.Empty() {
		return l1image.ErrEmptyImage
	}
	if s.next == 0 {
		s.width, s.height = img.Width, img.Height
	} else if img.Width != s.width || img.Height != s.height {
		return fmt.Errorf("frame %d is %s, sink is %dx%d: %w",
			s.next, img, s.width, s.height, l1image.ErrShapeMismatch)
	}

	name := filepath.Join(s.dir, fmt.Sprintf(OutputPattern, s.next))
	w, err := s.fs.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := png.Encode(w, img.ToGray()); err != nil {
		w.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	s.next++
	return nil
}
