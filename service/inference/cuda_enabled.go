//go:build cuda

package inference

import "gocv.io/x/gocv/cuda"

func cudaDevices() int {
	return cuda.GetCudaEnabledDeviceCount()
}
