package result

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifex/exchange-adapter/pkg/logging"
)

func TestResultTags(t *testing.T) {
	t.Run("success carries data", func(t *testing.T) {
		r := Ok(42)
		assert.True(t, r.IsSuccess())
		assert.Equal(t, StatusSuccess, r.Status())
		assert.Equal(t, 42, r.Data())
		assert.Empty(t, r.Msg())
		assert.NoError(t, r.Err())
	})

	t.Run("error carries message", func(t *testing.T) {
		r := Failf[int]("bad response: %d", 500)
		assert.True(t, r.IsError())
		assert.Equal(t, "bad response: 500", r.Msg())
		assert.Zero(t, r.Data())
		require.Error(t, r.Err())
		assert.False(t, errors.Is(r.Err(), ErrUnsupported))
	})

	t.Run("unsupported is not an error tag", func(t *testing.T) {
		r := Unsupported[int]("no funding rate on spot")
		assert.True(t, r.IsUnsupported())
		assert.False(t, r.IsError())
		assert.True(t, errors.Is(r.Err(), ErrUnsupported))
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "SUCCESS", StatusSuccess.String())
	assert.Equal(t, "ERROR", StatusError.String())
	assert.Equal(t, "UNSUPPORTED", StatusUnsupported.String())
}

func TestFrom(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.True(t, From("x", nil).IsSuccess())
	})
	t.Run("plain error", func(t *testing.T) {
		assert.True(t, From("", errors.New("boom")).IsError())
	})
	t.Run("unsupported error", func(t *testing.T) {
		err := fmt.Errorf("okx spot: %w", ErrUnsupported)
		r := From("", err)
		assert.True(t, r.IsUnsupported())
	})
}

func TestGuard(t *testing.T) {
	log := logging.NewNop()

	t.Run("returns data on success", func(t *testing.T) {
		r := Guard(log, "fetch", func() (string, error) { return "ok", nil })
		require.True(t, r.IsSuccess())
		assert.Equal(t, "ok", r.Data())
	})

	t.Run("classifies unsupported", func(t *testing.T) {
		r := Guard(log, "fetch", func() (string, error) {
			return "", Unsupportedf("no such endpoint")
		})
		assert.True(t, r.IsUnsupported())
	})

	t.Run("classifies error", func(t *testing.T) {
		r := Guard(log, "fetch", func() (string, error) {
			return "", errors.New("timeout")
		})
		assert.True(t, r.IsError())
		assert.Contains(t, r.Msg(), "timeout")
	})

	t.Run("recovers panics", func(t *testing.T) {
		r := Guard(log, "fetch", func() (string, error) {
			panic("nil map write")
		})
		require.True(t, r.IsError())
		assert.Contains(t, r.Msg(), "panic in fetch")
		assert.Contains(t, r.Msg(), "nil map write")
	})

	t.Run("nil logger is tolerated", func(t *testing.T) {
		r := Guard(nil, "fetch", func() (int, error) { return 0, errors.New("x") })
		assert.True(t, r.IsError())
	})
}
