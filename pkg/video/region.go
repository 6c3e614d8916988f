package video

import (
	"image"
	"math"

	"github.com/chenBenjamin97/shot-labeler/pkg/detection"
	"gocv.io/x/gocv"
)

//ExpandRect scales box by factor around its center and clamps the result to a width x height image.
//Returns false when nothing of the expanded box is left inside the image.
func ExpandRect(box detection.BoundingBox, factor float64, width, height int) (image.Rectangle, bool) {
	center := box.Center()
	halfW := box.Width() * factor / 2
	halfH := box.Height() * factor / 2

	rect := image.Rect(
		int(math.Floor(center.X-halfW)),
		int(math.Floor(center.Y-halfH)),
		int(math.Ceil(center.X+halfW)),
		int(math.Ceil(center.Y+halfH)),
	)
	clampRect(&rect, width, height)

	if rect.Empty() {
		return image.Rectangle{}, false
	}
	return rect, true
}

//clampRect fixes rectangle values in case they are out of frame's range
func clampRect(rect *image.Rectangle, width, height int) {
	if rect.Min.X < 0 {
		rect.Min.X = 0
	} else if rect.Min.X > width {
		rect.Min.X = width
	}

	if rect.Min.Y < 0 {
		rect.Min.Y = 0
	} else if rect.Min.Y > height {
		rect.Min.Y = height
	}

	if rect.Max.X < 0 {
		rect.Max.X = 0
	} else if rect.Max.X > width {
		rect.Max.X = width
	}

	if rect.Max.Y < 0 {
		rect.Max.Y = 0
	} else if rect.Max.Y > height {
		rect.Max.Y = height
	}
}

//ExtractRegion crops the expanded box out of img and resizes it to size x size.
//The returned Mat is owned by the caller and must be closed, also when ok is false.
func ExtractRegion(img gocv.Mat, box detection.BoundingBox, factor float64, size int) (gocv.Mat, bool) {
	if img.Empty() || size <= 0 {
		return gocv.NewMat(), false
	}

	rect, ok := ExpandRect(box, factor, img.Cols(), img.Rows())
	if !ok {
		return gocv.NewMat(), false
	}

	region := img.Region(rect)
	defer region.Close()

	out := gocv.NewMat()
	gocv.Resize(region, &out, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)
	if out.Empty() {
		return out, false
	}
	return out, true
}
