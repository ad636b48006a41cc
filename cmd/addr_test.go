package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "default", args: nil, want: "127.0.0.1:8100"},
		{name: "positional", args: []string{"0.0.0.0:9000"}, want: "0.0.0.0:9000"},
		{name: "flag", args: []string{"--addr", ":8088"}, want: ":8088"},
		{name: "single dash flag", args: []string{"-addr", "localhost:8088"}, want: "localhost:8088"},
		{name: "missing port", args: []string{"127.0.0.1"}, wantErr: true},
		{name: "port not numeric", args: []string{"127.0.0.1:http"}, wantErr: true},
		{name: "port out of range", args: []string{"127.0.0.1:70000"}, wantErr: true},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseListenAddr("serve", tt.args, "127.0.0.1:8100")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
