package logbuf_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortbox/shortbox/internal/logbuf"
	"github.com/shortbox/shortbox/internal/store"
)

var errMock = errors.New("mock error")

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testTime
}

type failingSlot struct {
	mu     sync.Mutex
	stores int
}

func (f *failingSlot) Load(_ context.Context) ([]byte, error) {
	return nil, nil
}

func (f *failingSlot) Store(_ context.Context, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stores++

	return errMock
}

func (f *failingSlot) storeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stores
}

type capturingPublish struct {
	mu      sync.Mutex
	entries []logbuf.Entry
	err     error
}

func (c *capturingPublish) publish(entry *logbuf.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}

	c.entries = append(c.entries, *entry)

	return nil
}

func (c *capturingPublish) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func TestBufferLog(t *testing.T) {
	t.Run("records an entry with its metadata", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{Clock: fixedClock})

		buffer.Log("shortener", logbuf.LevelInfo, "registry", "record created", map[string]string{"code": "abc123"})

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Timestamp.Equal(testTime))
		assert.Equal(t, "shortener", entries[0].Stack)
		assert.Equal(t, logbuf.LevelInfo, entries[0].Level)
		assert.Equal(t, "registry", entries[0].Package)
		assert.Equal(t, "record created", entries[0].Message)
		assert.Equal(t, map[string]string{"code": "abc123"}, entries[0].Context)
	})

	t.Run("omits context when none is given", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{})

		buffer.Log("shortener", logbuf.LevelInfo, "registry", "record created")

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].Context)
	})

	t.Run("caps the primary buffer with FIFO eviction", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{PrimaryMax: 5})

		for i := 0; i < 8; i++ {
			buffer.Info("shortener", "registry", fmt.Sprintf("message %d", i))
		}

		entries := buffer.Entries()
		require.Len(t, entries, 5)
		assert.Equal(t, "message 3", entries[0].Message)
		assert.Equal(t, "message 7", entries[4].Message)
	})

	t.Run("caps the secondary buffer independently", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{PrimaryMax: 10, SecondaryMax: 3})

		for i := 0; i < 6; i++ {
			buffer.Info("shortener", "registry", fmt.Sprintf("message %d", i))
		}

		assert.Len(t, buffer.Entries(), 6)

		secondary := buffer.SecondaryEntries()
		require.Len(t, secondary, 3)
		assert.Equal(t, "message 3", secondary[0].Message)
		assert.Equal(t, "message 5", secondary[2].Message)
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{})

		buffer.Info("shortener", "registry", "original")

		tampered := buffer.Entries()
		tampered[0].Message = "tampered"

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "original", entries[0].Message)
	})
}

func TestBufferLevels(t *testing.T) {
	buffer := logbuf.New(logbuf.Config{})

	buffer.Debug("shortener", "registry", "debug message")
	buffer.Info("shortener", "registry", "info message")
	buffer.Warn("shortener", "registry", "warn message")
	buffer.Error("shortener", "registry", "error message")
	buffer.Fatal("shortener", "registry", "fatal message")

	entries := buffer.Entries()
	require.Len(t, entries, 5)

	want := []logbuf.Level{
		logbuf.LevelDebug,
		logbuf.LevelInfo,
		logbuf.LevelWarn,
		logbuf.LevelError,
		logbuf.LevelFatal,
	}
	for i, level := range want {
		assert.Equal(t, level, entries[i].Level)
	}
}

func TestBufferHelpers(t *testing.T) {
	t.Run("type mismatch produces an error entry", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{})

		buffer.TypeMismatch("shortener", "handlers", "int", "string")

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, logbuf.LevelError, entries[0].Level)
		assert.Equal(t, "received type int, expected type string", entries[0].Message)
	})

	t.Run("storage failure produces a fatal entry", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{})

		buffer.StorageFailure("shortener", "store", errors.New("disk gone"))

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, logbuf.LevelFatal, entries[0].Level)
		assert.Equal(t, "storage failure: disk gone", entries[0].Message)
	})
}

func TestBufferDelivery(t *testing.T) {
	t.Run("publishes every logged entry", func(t *testing.T) {
		pub := &capturingPublish{}
		buffer := logbuf.New(logbuf.Config{Publish: pub.publish})

		buffer.Info("shortener", "registry", "first")
		buffer.Warn("shortener", "registry", "second")
		buffer.Error("shortener", "registry", "third")

		require.Equal(t, 3, pub.count())
		assert.Equal(t, "first", pub.entries[0].Message)
		assert.Equal(t, logbuf.LevelError, pub.entries[2].Level)
	})

	t.Run("absorbs publish failures", func(t *testing.T) {
		pub := &capturingPublish{err: errMock}
		buffer := logbuf.New(logbuf.Config{Publish: pub.publish})

		buffer.Info("shortener", "registry", "still buffered")

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "still buffered", entries[0].Message)
	})

	t.Run("works without a publisher", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{})

		buffer.Info("shortener", "registry", "no delivery configured")

		assert.Len(t, buffer.Entries(), 1)
	})
}

func TestBufferMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the secondary buffer after every log", func(t *testing.T) {
		slot := store.NewMemorySlot()
		buffer := logbuf.New(logbuf.Config{SecondaryMax: 2, Mirror: slot})

		for i := 0; i < 3; i++ {
			buffer.Info("shortener", "registry", fmt.Sprintf("message %d", i))
		}

		data, err := slot.Load(ctx)
		require.NoError(t, err)

		var persisted []logbuf.Entry
		require.NoError(t, json.Unmarshal(data, &persisted))
		require.Len(t, persisted, 2)
		assert.Equal(t, "message 1", persisted[0].Message)
		assert.Equal(t, "message 2", persisted[1].Message)
	})

	t.Run("degrades a mirror write failure to a secondary-only note", func(t *testing.T) {
		slot := &failingSlot{}
		buffer := logbuf.New(logbuf.Config{Mirror: slot})

		buffer.Info("shortener", "registry", "memory outlives the mirror")

		entries := buffer.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "memory outlives the mirror", entries[0].Message)

		secondary := buffer.SecondaryEntries()
		require.Len(t, secondary, 2)
		assert.Equal(t, logbuf.LevelWarn, secondary[1].Level)
		assert.Contains(t, secondary[1].Message, "mirror persist failed")

		// Exactly one write attempt: the failure note never re-persists.
		assert.Equal(t, 1, slot.storeCount())
	})

	t.Run("clear empties both buffers and the mirror", func(t *testing.T) {
		slot := store.NewMemorySlot()
		buffer := logbuf.New(logbuf.Config{Mirror: slot})

		buffer.Info("shortener", "registry", "first")
		buffer.Info("shortener", "registry", "second")

		buffer.Clear()

		assert.Empty(t, buffer.Entries())
		assert.Empty(t, buffer.SecondaryEntries())

		data, err := slot.Load(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	})
}

func TestBufferDeliveryFailure(t *testing.T) {
	t.Run("records the failure only in the secondary buffer", func(t *testing.T) {
		pub := &capturingPublish{}
		buffer := logbuf.New(logbuf.Config{Publish: pub.publish})

		original := logbuf.Entry{
			Stack:   "shortener",
			Level:   logbuf.LevelError,
			Package: "registry",
			Message: "boom",
		}
		buffer.RecordDeliveryFailure(original, errMock)

		assert.Empty(t, buffer.Entries())
		assert.Equal(t, 0, pub.count(), "failure notices must never re-enter delivery")

		secondary := buffer.SecondaryEntries()
		require.Len(t, secondary, 1)
		assert.Equal(t, logbuf.LevelWarn, secondary[0].Level)
		assert.Equal(t, "shortener", secondary[0].Stack)
		assert.Equal(t, "delivery failed: mock error", secondary[0].Message)
		assert.Equal(t, map[string]string{"originalMessage": "boom"}, secondary[0].Context)
	})

	t.Run("failure notices respect the secondary cap", func(t *testing.T) {
		buffer := logbuf.New(logbuf.Config{SecondaryMax: 2})

		for i := 0; i < 3; i++ {
			buffer.RecordDeliveryFailure(logbuf.Entry{Message: fmt.Sprintf("attempt %d", i)}, errMock)
		}

		secondary := buffer.SecondaryEntries()
		require.Len(t, secondary, 2)
		assert.Equal(t, map[string]string{"originalMessage": "attempt 1"}, secondary[0].Context)
	})

	t.Run("failure notices refresh the mirror", func(t *testing.T) {
		slot := store.NewMemorySlot()
		buffer := logbuf.New(logbuf.Config{Mirror: slot})

		buffer.RecordDeliveryFailure(logbuf.Entry{Message: "boom"}, errMock)

		data, err := slot.Load(context.Background())
		require.NoError(t, err)

		var persisted []logbuf.Entry
		require.NoError(t, json.Unmarshal(data, &persisted))
		require.Len(t, persisted, 1)
		assert.Equal(t, logbuf.LevelWarn, persisted[0].Level)
	})
}
