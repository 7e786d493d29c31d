package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"1024", 1024, false},
		{"1024B", 1024, false},
		{"1Ki", KiB, false},
		{"64Mi", 64 * MiB, false},
		{"64mib", 64 * MiB, false},
		{"1GiB", GiB, false},
		{"2Ti", 2 * TiB, false},
		{"100MB", 100 * MB, false},
		{"1k", KB, false},
		{"1.5Gi", GiB + 512*MiB, false},
		{"  256Mi ", 256 * MiB, false},
		{"", 0, true},
		{"abc", 0, true},
		{"10XB", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalText(t *testing.T) {
	tests := []struct {
		in   ByteSize
		want string
	}{
		{0, "0"},
		{1000, "1000"},
		{KiB, "1Ki"},
		{64 * MiB, "64Mi"},
		{GiB + 512*MiB, "1536Mi"},
		{3 * TiB, "3Ti"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			text, err := tt.in.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(text))

			var back ByteSize
			require.NoError(t, back.UnmarshalText(text))
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).String())
	assert.Equal(t, "64.00MiB", (64 * MiB).String())
	assert.Equal(t, "1.50GiB", (GiB + 512*MiB).String())
}
