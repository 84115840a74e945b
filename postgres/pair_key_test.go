package postgres

import "testing"

func Test_pairKey(t *testing.T) {
	tt := []struct {
		name string
		a, b string
		want string
	}{
		{
			name: "already_sorted",
			a:    "a1",
			b:    "b2",
			want: "a1:b2",
		},
		{
			name: "reversed",
			a:    "b2",
			b:    "a1",
			want: "a1:b2",
		},
		{
			name: "symmetry",
			a:    "d0j4bq2s1f4c73a0b5gg",
			b:    "d0j4bq2s1f4c73a0b5h0",
			want: pairKey("d0j4bq2s1f4c73a0b5h0", "d0j4bq2s1f4c73a0b5gg"),
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := pairKey(tc.a, tc.b); got != tc.want {
				t.Errorf("pairKey(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
