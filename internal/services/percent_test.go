package services

import "testing"

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct{ found, total, want int }{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5
		{1, 200, 1}, // 0.5
		{1, 201, 0},
		{7, 7, 100},
	}
	for _, c := range cases {
		if got := percent(c.found, c.total); got != c.want {
			t.Errorf("percent(%d, %d) = %d, want %d", c.found, c.total, got, c.want)
		}
	}
}
