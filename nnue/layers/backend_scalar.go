//go:build !goexperiment.simd || !amd64

package layers

const simdEnabled = false
