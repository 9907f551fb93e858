//go:build !cuda

package inference

func cudaDevices() int {
	return 0
}
