// SPDX-License-Identifier: EPL-2.0

// Package device connects a Renderer to an audio output.
//
// Player uses ebitengine/oto with 32-bit float samples. Building with the
// headless tag swaps it for a timer-driven twin with the same API. Manual
// renders on demand and is what tests and offline rendering use:
//
//	m, _ := device.NewManual(device.DefaultConfig(), eng, nil)
//	out := m.Tick() // one period
package device
