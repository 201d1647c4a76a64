// SPDX-License-Identifier: EPL-2.0

// Package ring provides the sample buffer exchanged between a decoding
// goroutine and the real-time mixer.
//
// A SampleBuffer is written by exactly one goroutine and read by exactly one
// other. Index discipline alone keeps it consistent: the producer publishes
// the write cursor after copying samples in, and the consumer publishes the
// read cursor after copying samples out. No locks, no allocation after New.
//
//	buf := ring.New(8192, 2)
//	written := buf.Write(decoded) // producer
//	read := buf.Read(period)      // consumer
//
// The buffer never grows. A consumer that finds fewer frames than it needs
// treats the rest as silence.
package ring
