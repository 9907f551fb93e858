package inference

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

type dnnService struct {
	net    gocv.Net
	device string
}

// NewDNN loads the classifier described by the model parameters.
//
// The backbone file is an ONNX export of a pretrained EfficientNet-B0 whose
// 1000-class head was replaced by Dropout(0.2) + Linear(1). Its head is not
// fine-tuned, so unless WeightsPath points to a fine-tuned export the
// probabilities it produces are not calibrated. WeightsPath, when set,
// replaces the backbone file entirely and must exist and parse.
func NewDNN(cfgSvc config.IService) (IService, error) {
	params := cfgSvc.GetModelParameters()

	modelPath := params.BackbonePath
	if params.WeightsPath != "" {
		modelPath = params.WeightsPath
	}

	fi, err := os.Stat(modelPath)
	if err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", modelPath, err, ErrModelLoad)
	}
	if fi.IsDir() || fi.Size() == 0 {
		return nil, xerrors.Errorf("%s is not a model file: %w", modelPath, ErrModelLoad)
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, xerrors.Errorf("%s could not be parsed: %w", modelPath, ErrModelLoad)
	}

	device, err := bindDevice(&net, params.Device)
	if err != nil {
		net.Close()
		return nil, xerrors.Errorf("%v: %w", err, ErrModelLoad)
	}

	lgr.Logger.Info("classifier loaded",
		slog.String("model", modelPath),
		slog.String("device", device),
		slog.Bool("fineTuned", params.WeightsPath != ""),
		slog.String("openCV", gocv.Version()),
	)

	return &dnnService{
		net:    net,
		device: device,
	}, nil
}

// preferable is the part of gocv.Net that device selection touches.
type preferable interface {
	SetPreferableBackend(backend gocv.NetBackendType) error
	SetPreferableTarget(target gocv.NetTargetType) error
}

// cudaDeviceCount reports CUDA devices usable by OpenCV. Zero unless the
// binary is built with the cuda tag.
var cudaDeviceCount = cudaDevices

// bindDevice pins the net to the requested device. OpenCV accepts a CUDA
// backend even when it has no CUDA support, so a device must be counted
// before CUDA is reported. "cuda" without one is an error; "auto" falls
// back to the CPU.
func bindDevice(net preferable, device string) (string, error) {
	switch device {
	case "cuda", "auto":
		err := xerrors.New("no cuda enabled device")
		if cudaDeviceCount() > 0 {
			err = net.SetPreferableBackend(gocv.NetBackendCUDA)
			if err == nil {
				err = net.SetPreferableTarget(gocv.NetTargetCUDA)
			}
			if err == nil {
				return "cuda", nil
			}
		}
		if device == "cuda" {
			return "", fmt.Errorf("cuda device unavailable: %w", err)
		}
		lgr.Logger.Warn("cuda unavailable, falling back to cpu", slog.Any("error", err))
	case "opencl":
		if err := net.SetPreferableBackend(gocv.NetBackendOpenCV); err != nil {
			return "", err
		}
		if err := net.SetPreferableTarget(gocv.NetTargetFP32); err != nil {
			return "", err
		}
		return "opencl", nil
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		return "", err
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		return "", err
	}
	return "cpu", nil
}

func (svc *dnnService) Infer(blob gocv.Mat) (float32, error) {
	if blob.Empty() {
		return 0, xerrors.Errorf("empty input blob: %w", ErrInference)
	}

	svc.net.SetInput(blob, "")

	output := svc.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() != 1 {
		return 0, xerrors.Errorf("expected a single logit, got dims %v: %w", output.Size(), ErrInference)
	}

	data, err := output.DataPtrFloat32()
	if err != nil || len(data) == 0 {
		return 0, xerrors.Errorf("unreadable output (%v): %w", err, ErrInference)
	}

	return data[0], nil
}

func (svc *dnnService) Device() string {
	return svc.device
}

func (svc *dnnService) Close() error {
	return svc.net.Close()
}
