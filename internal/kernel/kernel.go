// Package kernel gates the shadow observer's use of TCP_INFO fields
// that only exist on sufficiently recent Linux kernels, the same way
// the teacher gated its own TCP_INFO struct layout.
package kernel

import dockerkernel "github.com/docker/docker/pkg/parsers/kernel"

// minTimestampKernel is the oldest kernel version SupportsRichTCPInfo
// accepts.
var minTimestampKernel = dockerkernel.VersionInfo{Kernel: 4, Major: 10, Minor: 0}

// SupportsRichTCPInfo reports whether the running kernel is at least
// minTimestampKernel. On any detection failure it returns false rather
// than erroring, so a caller never fails flow init over it; the shadow
// observer only logs a warning and reads the same fields either way.
func SupportsRichTCPInfo() bool {
	v, err := dockerkernel.GetKernelVersion()
	if err != nil {
		return false
	}
	return dockerkernel.CompareKernelVersion(*v, minTimestampKernel) >= 0
}

// Version returns the running kernel's parsed version, and whether
// detection succeeded at all.
func Version() (dockerkernel.VersionInfo, bool) {
	v, err := dockerkernel.GetKernelVersion()
	if err != nil {
		return dockerkernel.VersionInfo{}, false
	}
	return *v, true
}
