package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceErrorMatchesSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(NewSourceError("kap", "THYAO", cause), "refresh")

	assert.True(t, Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, cause))

	var se *SourceError
	assert.True(t, As(err, &se))
	assert.Equal(t, "kap", se.Source)
}

func TestStoreError(t *testing.T) {
	assert.Nil(t, NewStoreError("save", nil))

	err := NewStoreError("save alert", errors.New("disk full"))
	assert.True(t, Is(err, ErrDatabaseError))
	assert.Contains(t, err.Error(), "save alert")
}

func TestParseAndValidationErrors(t *testing.T) {
	assert.True(t, Is(NewParseError("date", "yarın", "no pattern"), ErrParse))
	assert.True(t, Is(NewValidationError("symbol", "??", "bad"), ErrInputValidation))
	assert.Nil(t, Wrapf(nil, "x %d", 1))
}
