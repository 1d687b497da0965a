// Package flashlog implements the flash-wear-aware durable logger.
//
// Producers push bounded text lines into a fixed-capacity ring with a
// short bounded wait; a full ring drops the newest line and counts it.
// One low-priority flusher drains the ring to the log file, woken either
// by an explicit Flush or by a timer, so the number of physical writes is
// bounded no matter how chatty the producers are.
package flashlog
