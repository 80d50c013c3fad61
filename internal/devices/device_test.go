package devices

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEraseMode(t *testing.T) {
	tests := []struct {
		in   string
		want EraseMode
	}{
		{"quick", ModeQuick},
		{"QUICK", ModeQuick},
		{"full", ModeFull},
		{"Advanced", ModeAdvanced},
	}
	for _, tc := range tests {
		got, err := ParseEraseMode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseEraseMode_Invalid(t *testing.T) {
	_, err := ParseEraseMode("paranoid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidEraseMode))
}

func TestSizeGiB(t *testing.T) {
	d := StorageDevice{Size: 500 * (1 << 30)}
	assert.Equal(t, uint64(500), d.SizeGiB())

	small := StorageDevice{Size: 512}
	assert.Equal(t, uint64(0), small.SizeGiB())
}
