package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestFlatten(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	oid := bson.NewObjectID()

	docs := []bson.D{
		{
			{Key: "_id", Value: oid},
			{Key: "meta", Value: bson.D{
				{Key: "sensor_id", Value: "s-1"},
				{Key: "location", Value: bson.D{{Key: "zone", Value: "grill"}}},
			}},
			{Key: "ts", Value: bson.NewDateTimeFromTime(ts)},
			{Key: "readings", Value: bson.A{int32(1), int32(2)}},
		},
		{
			{Key: "_id", Value: oid},
			{Key: "extra", Value: bson.M{"b": 2, "a": 1}},
			{Key: "empty", Value: bson.D{}},
			{Key: "gone", Value: bson.Null{}},
		},
	}

	res := Flatten(docs)
	assert.Equal(t, []string{"_id", "meta.sensor_id", "meta.location.zone", "ts", "readings", "extra.a", "extra.b", "empty", "gone"}, res.Columns)
	require.Len(t, res.Rows, 2)

	first := res.Rows[0]
	assert.Equal(t, oid.Hex(), first["_id"])
	assert.Equal(t, "grill", first["meta.location.zone"])
	assert.Equal(t, ts, first["ts"])
	assert.Equal(t, []any{int32(1), int32(2)}, first["readings"])

	second := res.Rows[1]
	_, present := second["meta.sensor_id"]
	assert.False(t, present)
	assert.Equal(t, 1, second["extra.a"])
	assert.Nil(t, second["empty"])
	assert.Nil(t, second["gone"])
}

func TestFlatten_Empty(t *testing.T) {
	res := Flatten(nil)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Columns)
	assert.NotNil(t, res.Rows)
}
