package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worklane/portal-realtime/internal/realtime"
)

func TestEndpointURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "http to ws", base: "http://portal.local:8080", want: "ws://portal.local:8080/u1@x"},
		{name: "https to wss", base: "https://portal.local/api", want: "wss://portal.local/api/u1@x"},
		{name: "ws passes through", base: "ws://portal.local", want: "ws://portal.local/u1@x"},
		{name: "unsupported scheme", base: "ftp://portal.local", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := realtime.EndpointURL(tc.base, "u1@x")
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
