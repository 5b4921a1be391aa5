// Package device defines the accelerator buffer contract used by the region
// profile stage and provides Emulator, a software accelerator that runs the
// search kernels on goroutines over an fmindex.Index.
//
// A Source hands out one buffer handle per slot. The host fills a handle
// (AddQuery or AddSeed), calls Send to launch the kernel asynchronously and
// Receive to wait for the results. Clear rewinds the handle for reuse.
//
//	emu, err := device.NewEmulator(idx, device.Config{
//	    NumBuffers:           4,
//	    BufferSize:           4 * datasize.MB,
//	    MaxConcurrentKernels: 2,
//	})
//	buf, err := emu.AdaptiveBuffer(0, device.DefaultAdaptiveParams())
package device
