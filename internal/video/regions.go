package video

import (
	"image"
	"image/draw"

	"github.com/smartcity/flowsense/internal/domain"
)

// Region is a normalized rectangle, with coordinates in [0,1] of the frame size
type Region struct {
	X1, Y1, X2, Y2 float64
}

// laneRegions splits the frame into quadrants, one per approach
var laneRegions = [domain.LaneCount]Region{
	domain.North: {0, 0, 0.5, 0.5},
	domain.South: {0.5, 0.5, 1, 1},
	domain.East:  {0.5, 0, 1, 0.5},
	domain.West:  {0, 0.5, 0.5, 1},
}

// LaneRegion returns the quadrant sampled for lane
func LaneRegion(lane domain.LaneID) Region {
	if !lane.Valid() {
		panic("video: invalid lane " + lane.String())
	}
	return laneRegions[lane]
}

// Rect converts the region into pixel coordinates within bounds
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	return image.Rect(
		bounds.Min.X+int(float64(w)*r.X1),
		bounds.Min.Y+int(float64(h)*r.Y1),
		bounds.Min.X+int(float64(w)*r.X2),
		bounds.Min.Y+int(float64(h)*r.Y2),
	)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop returns the part of frame covered by region
func Crop(frame image.Image, region Region) image.Image {
	rect := region.Rect(frame.Bounds())
	if si, ok := frame.(subImager); ok {
		return si.SubImage(rect)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, rect.Min, draw.Src)
	return dst
}

// CropLane returns the quadrant of frame belonging to lane
func CropLane(frame image.Image, lane domain.LaneID) image.Image {
	return Crop(frame, LaneRegion(lane))
}
