package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutsValidate(t *testing.T) {
	for _, l := range []*Layout{LegacyLayout(), Release33Layout()} {
		t.Run(l.Version.String(), func(t *testing.T) {
			require.NoError(t, l.Validate(DEFAULT_RECORD_LENGTH))
			assert.Equal(t, 9594, l.End())

			// Offsets strictly increase and never overlap.
			for i := 1; i < len(l.Fields); i++ {
				assert.GreaterOrEqual(t, l.Fields[i].Offset, l.Fields[i-1].End(),
					"%s overlaps %s", l.Fields[i].Name, l.Fields[i-1].Name)
			}
		})
	}
}

func TestValidateRejectsShortRecord(t *testing.T) {
	err := LegacyLayout().Validate(9593)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 9594 bytes")

	assert.NoError(t, LegacyLayout().Validate(9594))
}

func TestValidateRejectsOverlap(t *testing.T) {
	l := newLayout(Legacy, []Field{
		{Latitude, 0, Int32, COUNT_SHOT, SCALE_MICRO_DEGREES},
		{Longitude, 100, Int32, COUNT_SHOT, SCALE_MICRO_DEGREES},
	})
	err := l.Validate(DEFAULT_RECORD_LENGTH)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestLayoutDivergence(t *testing.T) {
	legacy := LegacyLayout()
	r33 := Release33Layout()

	// Signal begin moves ahead of the attitude block in release 33.
	assert.Equal(t, LEGACY_OFFSET_SIG_BEG_OFF, legacy.MustField(SignalBeginOffset).Offset)
	assert.Equal(t, R33_OFFSET_SIG_BEG_OFF, r33.MustField(SignalBeginOffset).Offset)

	// Atmosphere bytes exist only in release 33.
	assert.False(t, legacy.HasAtmosphere())
	assert.True(t, r33.HasAtmosphere())
	_, ok := legacy.Field(AtmosphereConf)
	assert.False(t, ok)

	// Every other field sits at the same offset with the same encoding.
	for _, f := range legacy.Fields {
		if f.Name == SignalBeginOffset {
			continue
		}
		g, ok := r33.Field(f.Name)
		require.True(t, ok, "release 33 lacks %s", f.Name)
		assert.Equal(t, f, g)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"legacy", Legacy, false},
		{"LEGACY", Legacy, false},
		{"r33", Release33, false},
		{" release33 ", Release33, false},
		{"33", Release33, false},
		{"r34", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFor(t *testing.T) {
	l, err := For(Release33)
	require.NoError(t, err)
	assert.Same(t, Release33Layout(), l)

	_, err = For(Version(9))
	assert.Error(t, err)
}

func TestFieldGeometry(t *testing.T) {
	f := LegacyLayout().MustField(PeakRangeOffset)
	assert.Equal(t, 4, f.Width())
	assert.Equal(t, 960, f.Size())
	assert.Equal(t, OFFSET_G_AMP-684, f.End())

	assert.Panics(t, func() { LegacyLayout().MustField(AtmosphereFlag) })
}
