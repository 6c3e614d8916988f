package label

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelRoundTrip(t *testing.T) {
	t.Parallel()

	l := Label{
		CourtPosition: FarAd,
		Side:          Backhand,
		ShotType:      Return,
		Direction:     InsideOut,
		Formation:     NonServe,
		Outcome:       In,
	}

	s := l.String()
	assert.Equal(t, "far_ad_backhand_return_io_non-serve_in", s)
	assert.Equal(t, strings.ToLower(s), s)

	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, l, parsed)
	assert.Len(t, parsed.Tokens(), 6)
}

func TestParseRejectsBadLabels(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"near_deuce_forehand_serve_t_conventional",
		"near_deuce_forehand_serve_t_conventional_in_extra",
		"middle_deuce_forehand_serve_t_conventional_in",
		"near_deuce_forehand_serve_XX_conventional_in",
	}
	for _, c := range cases {
		_, err := Parse(c)
		assert.True(t, errors.Is(err, ErrInvalidLabel), c)
	}
}

func TestCourtPositionParts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "near", NearAd.Half())
	assert.Equal(t, "ad", NearAd.CourtSide())
	assert.Equal(t, "far", FarDeuce.Half())
	assert.Equal(t, "deuce", FarDeuce.CourtSide())
}

func TestParseHandedness(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Left, ParseHandedness("Left"))
	assert.Equal(t, Right, ParseHandedness(" right "))
	assert.Equal(t, Unknown, ParseHandedness(""))
	assert.Equal(t, Unknown, ParseHandedness("ambidextrous"))
}
