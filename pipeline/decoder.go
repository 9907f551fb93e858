package pipeline

import (
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

type captureDecoder struct {
	capture *gocv.VideoCapture
	total   int
}

// OpenVideo opens a local video file with OpenCV's capture backend.
func OpenVideo(path string) (Decoder, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if capture != nil {
			capture.Close()
		}
		return nil, xerrors.Errorf("open %s: %v: %w", path, err, ErrUnreadableVideo)
	}

	if !capture.IsOpened() {
		capture.Close()
		return nil, xerrors.Errorf("open %s: %w", path, ErrUnreadableVideo)
	}

	return &captureDecoder{
		capture: capture,
		total:   int(capture.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

func (d *captureDecoder) TotalFrames() int {
	return d.total
}

func (d *captureDecoder) Read(dst *gocv.Mat) bool {
	return d.capture.Read(dst)
}

func (d *captureDecoder) Close() error {
	return d.capture.Close()
}
