package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		params   Params
		style    PlaceholderStyle
		wantText string
		wantArgs []any
	}{
		{
			name:     "no parameters",
			text:     "SELECT 1",
			params:   Params{},
			wantText: "SELECT 1",
		},
		{
			name:     "single dollar",
			text:     "SELECT * FROM orders WHERE user_id = :user_id",
			params:   Params{"user_id": int64(7)},
			wantText: "SELECT * FROM orders WHERE user_id = $1",
			wantArgs: []any{int64(7)},
		},
		{
			name:     "repeated name reuses index",
			text:     "SELECT :a, :b, :a",
			params:   Params{"a": int64(1), "b": "x"},
			wantText: "SELECT $1, $2, $1",
			wantArgs: []any{int64(1), "x"},
		},
		{
			name:     "question style repeats argument",
			text:     "SELECT :a, :b, :a",
			params:   Params{"a": int64(1), "b": "x"},
			style:    QuestionStyle,
			wantText: "SELECT ?, ?, ?",
			wantArgs: []any{int64(1), "x", int64(1)},
		},
		{
			name:     "cast is not a parameter",
			text:     "SELECT :days::int, created_at::date FROM t",
			params:   Params{"days": int64(7)},
			wantText: "SELECT $1::int, created_at::date FROM t",
			wantArgs: []any{int64(7)},
		},
		{
			name:     "literals and comments are skipped",
			text:     "SELECT ':nope', \"col:x\" -- :also_nope\n/* :still_nope */ WHERE id = :id",
			params:   Params{"id": int64(3)},
			wantText: "SELECT ':nope', \"col:x\" -- :also_nope\n/* :still_nope */ WHERE id = $1",
			wantArgs: []any{int64(3)},
		},
		{
			name:     "escaped quote inside literal",
			text:     "SELECT 'it''s :x' , :y",
			params:   Params{"y": "v"},
			wantText: "SELECT 'it''s :x' , $1",
			wantArgs: []any{"v"},
		},
		{
			name:     "interval arithmetic",
			text:     "WHERE ts >= NOW() - CAST(:days AS INTEGER) * INTERVAL '1 day'",
			params:   Params{"days": int64(30)},
			wantText: "WHERE ts >= NOW() - CAST($1 AS INTEGER) * INTERVAL '1 day'",
			wantArgs: []any{int64(30)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := Bind(tt.text, tt.params, tt.style)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBind_MissingParam(t *testing.T) {
	_, _, err := Bind("SELECT * FROM r WHERE restaurant_id = :restaurant_id", Params{"user_id": int64(1)}, DollarStyle)
	require.Error(t, err)

	var bindErr *BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "restaurant_id", bindErr.Param)
	assert.Equal(t, KindBinding, KindOf(err))
}

func TestReferencedParams(t *testing.T) {
	names := ReferencedParams("SELECT :b, :a, :b FROM t WHERE x = ':c' AND y::text = :a")
	assert.Equal(t, []string{"b", "a"}, names)
	assert.Empty(t, ReferencedParams("SELECT 1"))
}
