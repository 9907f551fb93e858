package pipeline

import (
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// ImageNet statistics, in RGB order. The backbone was trained on inputs
// normalized with these values.
var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

type Preprocessor struct {
	Size int
	Mean [3]float32
	Std  [3]float32
}

func NewPreprocessor(size int) Preprocessor {
	return Preprocessor{
		Size: size,
		Mean: imageNetMean,
		Std:  imageNetStd,
	}
}

// Blob turns a BGR frame into a normalized 1x3xSizexSize float32 blob in
// RGB order. The caller owns the returned Mat.
func (p Preprocessor) Blob(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), xerrors.Errorf("empty frame: %w", ErrInference)
	}

	// swapRB converts BGR to RGB; scale maps [0,255] to [0,1]
	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(p.Size, p.Size), gocv.NewScalar(0, 0, 0, 0), true, false)
	if blob.Empty() {
		blob.Close()
		return gocv.NewMat(), xerrors.Errorf("blob conversion failed: %w", ErrInference)
	}

	data, err := blob.DataPtrFloat32()
	plane := p.Size * p.Size
	if err != nil || len(data) != 3*plane {
		blob.Close()
		return gocv.NewMat(), xerrors.Errorf("unexpected blob layout (%d values): %w", len(data), ErrInference)
	}

	for c := 0; c < 3; c++ {
		channel := data[c*plane : (c+1)*plane]
		for i, v := range channel {
			channel[i] = (v - p.Mean[c]) / p.Std[c]
		}
	}

	return blob, nil
}
