package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestTimeframe(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     Timeframe
		duration time.Duration
		wantErr  bool
	}{
		{name: "five minute", input: "5m", want: FiveMinute, duration: time.Minute * 5},
		{name: "fifteen minute", input: "15m", want: FifteenMinute, duration: time.Minute * 15},
		{name: "one hour", input: "1H", want: OneHour, duration: time.Hour},
		{name: "one hour lowercase", input: "1h", want: OneHour, duration: time.Hour},
		{name: "four hour", input: "4H", want: FourHour, duration: time.Hour * 4},
		{name: "unknown", input: "1d", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tf, err := ParseTimeframe(test.input)
			if test.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tf, test.want)
			assert.Equal(t, tf.Duration(), test.duration)

			// Ensure the parsed timeframe stringifies back to a parsable value.
			again, err := ParseTimeframe(tf.String())
			assert.NoError(t, err)
			assert.Equal(t, again, tf)
		})
	}
}
