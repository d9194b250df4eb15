package logbuf

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shortbox/shortbox/internal/messaging"
	"github.com/shortbox/shortbox/internal/store"
)

// Capacity defaults applied when Config leaves them zero.
const (
	DefaultPrimaryMax   = 1000
	DefaultSecondaryMax = 50
)

// packageTag marks entries the buffer emits about itself, such as
// delivery-failure notices.
const packageTag = "logbuf"

// Config carries the buffer's dependencies and capacities.
type Config struct {
	// PrimaryMax caps the primary buffer; defaults to DefaultPrimaryMax.
	PrimaryMax int

	// SecondaryMax caps the secondary buffer; defaults to DefaultSecondaryMax.
	SecondaryMax int

	// Mirror, when non-nil, receives the serialized secondary buffer after
	// every change. Write failures are absorbed.
	Mirror store.Slot

	// Publish, when non-nil, hands each new entry to the delivery pipeline.
	Publish messaging.Publish[Entry]

	// Clock stamps entries; defaults to time.Now.
	Clock func() time.Time

	Logger *zap.Logger
}

// Buffer keeps recent entries in two bounded FIFO rings: a primary ring
// serving reads and a smaller secondary ring mirrored to a storage slot.
// When both are full the oldest entry is evicted first. Delivery to the
// collector is fire and forget; no outcome of it ever blocks or fails a
// Log call.
type Buffer struct {
	mu        sync.Mutex
	primary   []Entry
	secondary []Entry

	primaryMax   int
	secondaryMax int
	mirror       store.Slot
	publish      messaging.Publish[Entry]
	clock        func() time.Time
	logger       *zap.Logger
}

// New builds a Buffer, applying defaults for unset Config fields.
func New(cfg Config) *Buffer {
	if cfg.PrimaryMax <= 0 {
		cfg.PrimaryMax = DefaultPrimaryMax
	}
	if cfg.SecondaryMax <= 0 {
		cfg.SecondaryMax = DefaultSecondaryMax
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Buffer{
		primaryMax:   cfg.PrimaryMax,
		secondaryMax: cfg.SecondaryMax,
		mirror:       cfg.Mirror,
		publish:      cfg.Publish,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
	}
}

// Log records an entry in both rings, refreshes the mirror, and hands the
// entry to the delivery pipeline. It never returns an error and never
// blocks on delivery.
func (b *Buffer) Log(stack string, level Level, pkg, message string, contextValue ...any) {
	entry := Entry{
		Timestamp: b.clock(),
		Stack:     stack,
		Level:     level,
		Package:   pkg,
		Message:   message,
	}
	if len(contextValue) > 0 {
		entry.Context = contextValue[0]
	}

	b.mu.Lock()
	b.primary = appendBounded(b.primary, entry, b.primaryMax)
	b.secondary = appendBounded(b.secondary, entry, b.secondaryMax)
	b.persistMirrorLocked()
	b.mu.Unlock()

	b.deliver(entry)
}

func (b *Buffer) Debug(stack, pkg, message string, contextValue ...any) {
	b.Log(stack, LevelDebug, pkg, message, contextValue...)
}

func (b *Buffer) Info(stack, pkg, message string, contextValue ...any) {
	b.Log(stack, LevelInfo, pkg, message, contextValue...)
}

func (b *Buffer) Warn(stack, pkg, message string, contextValue ...any) {
	b.Log(stack, LevelWarn, pkg, message, contextValue...)
}

func (b *Buffer) Error(stack, pkg, message string, contextValue ...any) {
	b.Log(stack, LevelError, pkg, message, contextValue...)
}

func (b *Buffer) Fatal(stack, pkg, message string, contextValue ...any) {
	b.Log(stack, LevelFatal, pkg, message, contextValue...)
}

// TypeMismatch records an error-level entry for a value of an unexpected
// type reaching a boundary.
func (b *Buffer) TypeMismatch(stack, pkg, received, expected string) {
	b.Log(stack, LevelError, pkg, fmt.Sprintf("received type %s, expected type %s", received, expected))
}

// StorageFailure records a fatal-level entry for a storage or
// connectivity failure.
func (b *Buffer) StorageFailure(stack, pkg string, err error) {
	b.Log(stack, LevelFatal, pkg, fmt.Sprintf("storage failure: %v", err))
}

// RecordDeliveryFailure notes a failed delivery attempt as a warn-level
// entry in the secondary buffer only. The notice is never handed to the
// delivery pipeline, so an unreachable collector cannot feed the very
// pipeline that reports on it.
func (b *Buffer) RecordDeliveryFailure(original Entry, cause error) {
	entry := Entry{
		Timestamp: b.clock(),
		Stack:     original.Stack,
		Level:     LevelWarn,
		Package:   packageTag,
		Message:   fmt.Sprintf("delivery failed: %v", cause),
		Context:   map[string]string{"originalMessage": original.Message},
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.secondary = appendBounded(b.secondary, entry, b.secondaryMax)
	b.persistMirrorLocked()
}

// Entries returns a copy of the primary buffer, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.primary)
}

// SecondaryEntries returns a copy of the secondary buffer, oldest first.
func (b *Buffer) SecondaryEntries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.secondary)
}

// Clear empties both buffers and rewrites the mirror.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.primary = nil
	b.secondary = nil
	b.persistMirrorLocked()
}

func (b *Buffer) deliver(entry Entry) {
	if b.publish == nil {
		return
	}

	if err := b.publish(&entry); err != nil {
		b.logger.Warn("failed to publish log entry for delivery", zap.Error(err))
	}
}

// persistMirrorLocked rewrites the mirror slot from the secondary buffer.
// Failures are absorbed: the in-memory rings outlive a broken mirror.
func (b *Buffer) persistMirrorLocked() {
	if b.mirror == nil {
		return
	}

	entries := b.secondary
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		b.noteMirrorFailureLocked(err)
		return
	}

	if err := b.mirror.Store(context.Background(), data); err != nil {
		b.noteMirrorFailureLocked(err)
	}
}

// noteMirrorFailureLocked records a failed mirror write in the secondary
// ring without another persist attempt, so a broken mirror cannot recurse.
func (b *Buffer) noteMirrorFailureLocked(cause error) {
	b.logger.Warn("failed to persist mirror buffer", zap.Error(cause))

	entry := Entry{
		Timestamp: b.clock(),
		Stack:     "backend",
		Level:     LevelWarn,
		Package:   packageTag,
		Message:   fmt.Sprintf("mirror persist failed: %v", cause),
	}
	b.secondary = appendBounded(b.secondary, entry, b.secondaryMax)
}

func appendBounded(entries []Entry, entry Entry, max int) []Entry {
	entries = append(entries, entry)
	if len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	return entries
}
