package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		name      string
		dp        float64
		wantText  string
		wantClass string
		wantArrow string
	}{
		{"crash", -12.5, "YES!", ClassYes, "▼"},
		{"crash boundary", -10, "YES!", ClassYes, "▼"},
		{"significant drop", -7.3, "BLEEDING", ClassBleeding, "▼"},
		{"drop boundary", -5, "BLEEDING", ClassBleeding, "▼"},
		{"mildly down", -2.1, "WOBBLY", ClassWobbly, "▼"},
		{"minus two is flat", -2, "FLAT", ClassSideways, "▬"},
		{"flat", 0, "FLAT", ClassSideways, "▬"},
		{"barely up is flat", 0.2, "FLAT", ClassSideways, "▬"},
		{"gentle rise", 0.21, "CLIMBING", ClassClimbing, "▲"},
		{"rise boundary", 2, "CLIMBING", ClassClimbing, "▲"},
		{"still climbing", 2.01, "NOT YET!", ClassNo, "▲"},
		{"big rally", 8.4, "NOT YET!", ClassNo, "▲"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(ptr(tc.dp))
			assert.Equal(t, tc.wantText, got.Text)
			assert.Equal(t, tc.wantClass, got.Class)
			assert.Equal(t, tc.wantArrow, got.Arrow)
			assert.NotEmpty(t, got.Subtitle)
			assert.Empty(t, got.Warning)
		})
	}
}

func TestClassifyMissingChange(t *testing.T) {
	got := Classify(nil)
	require.Equal(t, ClassSideways, got.Class)
	assert.Equal(t, "FLAT", got.Text)
	assert.NotEmpty(t, got.Warning, "missing dp should surface a warning")
}

func TestClassifySubtitleFormatting(t *testing.T) {
	got := Classify(ptr(-11.239))
	assert.Equal(t, "S&P 500 down -11.24%. Deep breaths.", got.Subtitle)
}

func TestErrorStatus(t *testing.T) {
	got := ErrorStatus(errors.New("api request timed out"))
	assert.Equal(t, "ERROR", got.Text)
	assert.Equal(t, ClassError, got.Class)
	assert.Equal(t, "?", got.Arrow)
	assert.Equal(t, "api request timed out", got.Warning)

	got = ErrorStatus(nil)
	assert.Equal(t, "Could not fetch market data.", got.Warning)
}

func TestEmbedFor(t *testing.T) {
	for _, class := range []string{ClassYes, ClassBleeding, ClassWobbly, ClassNo, ClassClimbing, ClassSideways, ClassError} {
		assert.Contains(t, EmbedFor(class), "giphy.com/embed/", "class %s", class)
	}
	assert.Equal(t, defaultEmbed, EmbedFor("maybe"))
}
