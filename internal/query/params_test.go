package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Select(t *testing.T) {
	p := Params{"user_id": int64(1), "days": int64(7), "restaurant_id": int64(2)}

	got, err := p.Select([]string{"days", "user_id"})
	require.NoError(t, err)
	assert.Equal(t, Params{"days": int64(7), "user_id": int64(1)}, got)

	got, err = p.Select(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = p.Select([]string{"delivery_id"})
	var bindErr *BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "delivery_id", bindErr.Param)
}

func TestParams_String(t *testing.T) {
	p := Params{"user_id": int64(1), "days": int64(7)}
	assert.Equal(t, "days=7, user_id=1", p.String())
	assert.Equal(t, []string{"days", "user_id"}, p.Keys())
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    Params
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: Params{}},
		{name: "integers", pairs: []string{"user_id=3", "days = 30"}, want: Params{"user_id": int64(3), "days": int64(30)}},
		{name: "string", pairs: []string{"status=delivered"}, want: Params{"status": "delivered"}},
		{name: "value with equals", pairs: []string{"expr=a=b"}, want: Params{"expr": "a=b"}},
		{name: "missing equals", pairs: []string{"user_id"}, wantErr: true},
		{name: "empty name", pairs: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssignments(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Downtown", "Downtown"},
		{int64(365), "365"},
		{3, "3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatParam(tt.in))
	}
}
