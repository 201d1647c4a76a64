// SPDX-License-Identifier: EPL-2.0

// Package engine ties the mixer, the decode pipeline and the monitor into a
// playback engine.
//
// An Engine is driven from two sides. Control methods (Play, Stop,
// SetVolume, SetPan, Seek) enqueue commands and return immediately; they
// fail with ErrQueueFull instead of blocking. Render is called by the
// output device once per period and never allocates, locks or performs I/O.
// Decoding happens on pipeline goroutines started by Start.
//
//	e, err := engine.New(engine.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer e.Close()
//
//	player, err := device.NewPlayer(e.Device(), e)
//	...
//	if err := e.Start(ctx); err != nil {
//		return err
//	}
//	player.Start()
//
//	f, _ := os.Open("theme.ogg")
//	id, err := e.Open("ogg", f, engine.WithVolume(0.8))
//
// Every voice reports its progress through State. Finished and failed
// voices are logged by the monitor, which also exports the mixer counters
// through OpenTelemetry.
package engine
