package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLine struct {
	values []int
	closed bool
	err    error
}

func (l *fakeLine) SetValue(value int) error {
	if l.err != nil {
		return l.err
	}
	l.values = append(l.values, value)
	return nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

func TestPowerLine(t *testing.T) {
	line := &fakeLine{}
	p := NewPowerLine(line)

	assert.NoError(t, p.Enable())
	assert.NoError(t, p.Disable())
	assert.NoError(t, p.Close())

	assert.Equal(t, []int{1, 0}, line.values)
	assert.True(t, line.closed)
	assert.Error(t, p.Enable(), "Enable() after Close() should fail")
	assert.NoError(t, p.Close(), "second Close() should be a no-op")
}

func TestPowerLineSetError(t *testing.T) {
	p := NewPowerLine(&fakeLine{err: errors.New("busy")})

	err := p.Enable()

	assert.ErrorContains(t, err, "busy")
}

func TestNilPowerLine(t *testing.T) {
	var p *PowerLine

	assert.NoError(t, p.Enable())
	assert.NoError(t, p.Disable())
	assert.NoError(t, p.Close())
}
