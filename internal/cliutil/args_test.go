package cliutil

import (
	"reflect"
	"testing"
)

func TestNormalizeArgs(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "documented single-dash invocation",
			in:   []string{"-datadir=~/stakepoolDemoTest/stakepool", "-testnet"},
			want: []string{"--datadir=~/stakepoolDemoTest/stakepool", "--testnet"},
		},
		{
			name: "double-dash untouched",
			in:   []string{"--datadir=/srv/pool", "--regtest"},
			want: []string{"--datadir=/srv/pool", "--regtest"},
		},
		{
			name: "short flags untouched",
			in:   []string{"-v", "-h"},
			want: []string{"-v", "-h"},
		},
		{
			name: "positional args untouched",
			in:   []string{"status", "-"},
			want: []string{"status", "-"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeArgs(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("NormalizeArgs(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
