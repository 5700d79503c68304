package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/leapstack-labs/querydash/internal/query"
)

func TestDefault_IsValid(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.NoError(t, cat.Validate())

	assert.Len(t, cat.Relational, 19)
	assert.Len(t, cat.Document, 9)
	assert.Len(t, cat.Params, 4)
	assert.Equal(t, "Manager: Restaurant Order Statistics (Table)", cat.Relational[0].Name)
}

func TestDefault_EveryRelationalEntryQualifiesCompletely(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	for _, e := range cat.Relational {
		t.Run(e.Name, func(t *testing.T) {
			assert.Contains(t, e.SQL, SchemaPlaceholder)
			sql := Qualify(e.SQL, DefaultSchema)
			assert.NotContains(t, sql, "{S}")

			// Binding against the declared defaults must succeed.
			params, err := cat.Defaults().Select(e.Params)
			require.NoError(t, err)
			_, _, err = query.Bind(sql, params, query.DollarStyle)
			assert.NoError(t, err)
		})
	}
}

func TestDefault_DocumentPipelinesKeepOrder(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	e, ok := cat.LookupIn(Document, "TS: Latest 20 Sensor Data Records (Table)")
	require.True(t, ok)
	assert.Equal(t, "sensor", e.Collection)
	require.Len(t, e.Pipeline, 3)

	assert.Equal(t, "$sort", e.Pipeline[0][0].Key)
	assert.Equal(t, bson.D{{Key: "ts", Value: int32(-1)}}, e.Pipeline[0][0].Value)
	assert.Equal(t, bson.D{{Key: "$limit", Value: int32(20)}}, e.Pipeline[1])

	project, ok := e.Pipeline[2][0].Value.(bson.D)
	require.True(t, ok)
	var keys []string
	for _, el := range project {
		keys = append(keys, el.Key)
	}
	assert.Equal(t, []string{"_id", "Time", "Sensor ID", "Equipment ID", "Temperature(℃)", "Humidity(%)", "Smoke Concentration", "Status"}, keys)

	avg, ok := cat.LookupIn(Document, "Telemetry: Average Sensor Readings (Table)")
	require.True(t, ok)
	group := avg.Pipeline[0][0].Value.(bson.D)
	assert.Equal(t, bson.E{Key: "_id", Value: nil}, group[0])
	assert.Equal(t, bson.E{Key: "Record Count", Value: bson.D{{Key: "$count", Value: bson.D{}}}}, group[4])
}

func TestDefault_MultiSeriesBar(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	e, ok := cat.Lookup("Quality: Dish Compliance Rate Comparison (Bar)")
	require.True(t, ok)
	assert.Equal(t, ChartBar, e.Chart.Kind)
	assert.Equal(t, "dish_name", e.Chart.X)
	assert.Equal(t, []string{"temp_compliance_rate", "time_compliance_rate"}, e.Chart.Y)
}

func TestQualify(t *testing.T) {
	sql := "SELECT * FROM {S}.orders o JOIN {S}.users u ON o.user_id = u.user_id JOIN {S}.dishs d ON true"
	got := Qualify(sql, "smart_kitchen")

	assert.Equal(t,
		"SELECT * FROM smart_kitchen.orders o JOIN smart_kitchen.users u ON o.user_id = u.user_id JOIN smart_kitchen.dishs d ON true",
		got)
	assert.Equal(t, 3, strings.Count(got, "smart_kitchen."))
	assert.Equal(t, "SELECT 1", Qualify("SELECT 1", "smart_kitchen"))
}

func TestValidSchema(t *testing.T) {
	assert.True(t, ValidSchema("smart_kitchen"))
	assert.True(t, ValidSchema("public"))
	assert.False(t, ValidSchema(""))
	assert.False(t, ValidSchema("x; DROP TABLE orders; --"))
	assert.False(t, ValidSchema("my-schema"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errPart string
	}{
		{
			name:    "empty",
			yaml:    "",
			errPart: "empty document",
		},
		{
			name:    "unknown key",
			yaml:    "queries: []\n",
			errPart: "queries",
		},
		{
			name: "unknown chart type",
			yaml: `relational:
  - name: q
    sql: SELECT 1 FROM {S}.t
    chart: {type: scatter}
`,
			errPart: `unknown chart type "scatter"`,
		},
		{
			name: "bar without y",
			yaml: `relational:
  - name: q
    sql: SELECT 1 FROM {S}.t
    chart: {type: bar, x: a}
`,
			errPart: `bar chart requires "y"`,
		},
		{
			name: "stage is not a mapping",
			yaml: `document:
  - name: d
    collection: c
    pipeline: [1]
`,
			errPart: "pipeline stage must be a mapping",
		},
		{
			name: "bad param kind",
			yaml: `params:
  - name: p
    kind: float
`,
			errPart: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "test.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestParse_ChartDefaults(t *testing.T) {
	cat, err := Parse([]byte(`relational:
  - name: q
    sql: SELECT 1 FROM {S}.t
  - name: tm
    sql: SELECT 1 FROM {S}.t
    chart: {type: treemap, path: region, values: n}
`), "")
	require.NoError(t, err)
	assert.Equal(t, ChartTable, cat.Relational[0].Chart.Kind)
	assert.Equal(t, []string{"region"}, cat.Relational[1].Chart.Path)
	assert.Equal(t, "n", cat.Relational[1].Chart.Values)
}

func TestValidate(t *testing.T) {
	cat, err := Parse([]byte(`params:
  - name: days
    default: 7
    min: 1
    max: 365
  - name: user_id
    default: 1
relational:
  - name: q1
    tags: [manager]
    params: [days]
    sql: SELECT * FROM {S}.t WHERE d > :days AND u = :user_id
  - name: q1
    tags: [janitor]
    params: [user_id, restaurant_id]
    sql: SELECT * FROM {S}.t WHERE u = :user_id
document:
  - name: d1
    collection: ""
    pipeline: []
`), "")
	require.NoError(t, err)

	err = cat.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var messages []string
	for _, issue := range verr.Issues {
		messages = append(messages, issue.String())
	}
	assert.Contains(t, messages, "q1: sql references :user_id but the entry does not require it")
	assert.Contains(t, messages, "q1: duplicate entry name")
	assert.Contains(t, messages, `q1: parameter "restaurant_id" is not declared`)
	assert.Contains(t, messages, `q1: parameter "restaurant_id" is required but never referenced`)
	assert.Contains(t, messages, `q1: unknown role tag "janitor"`)
	assert.Contains(t, messages, "d1: missing collection")
	assert.Contains(t, messages, "d1: empty pipeline")
}

func TestFilterByRole(t *testing.T) {
	entries := []Entry{
		{Name: "m1", Tags: []string{"manager"}},
		{Name: "untagged"},
		{Name: "c1", Tags: []string{"Chef"}},
		{Name: "shared", Tags: []string{"ALL"}},
		{Name: "m2", Tags: []string{"manager", "quality"}},
	}

	names := func(es []Entry) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.Name)
		}
		return out
	}

	tests := []struct {
		role string
		want []string
	}{
		{role: "manager", want: []string{"m1", "untagged", "shared", "m2"}},
		{role: "MANAGER", want: []string{"m1", "untagged", "shared", "m2"}},
		{role: "chef", want: []string{"untagged", "c1", "shared"}},
		{role: "quality", want: []string{"untagged", "shared", "m2"}},
		{role: "all", want: []string{"untagged", "shared"}},
		{role: "nobody", want: []string{"untagged", "shared"}},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, names(FilterByRole(entries, tt.role)))
		})
	}

	assert.Empty(t, FilterByRole(nil, "manager"))
}

func TestFilterByRole_EntriesComeFromCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	for _, role := range Roles {
		for _, e := range FilterByRole(cat.Relational, role) {
			_, ok := cat.LookupIn(Relational, e.Name)
			assert.True(t, ok)
			assert.True(t, e.VisibleTo(role))
		}
	}
	assert.Len(t, FilterByRole(cat.Relational, "chef"), 4)
}

func TestResolve(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	params, err := cat.Resolve(map[string]string{"days": "30"})
	require.NoError(t, err)
	assert.Equal(t, int64(30), params["days"])
	assert.Equal(t, int64(1), params["user_id"])

	_, err = cat.Resolve(map[string]string{"days": "400"})
	assert.Equal(t, query.KindBinding, query.KindOf(err))

	_, err = cat.Resolve(map[string]string{"user_id": "0"})
	assert.Equal(t, query.KindBinding, query.KindOf(err))

	_, err = cat.Resolve(map[string]string{"kitchen_id": "1"})
	assert.Equal(t, query.KindBinding, query.KindOf(err))

	_, err = cat.Resolve(map[string]string{"days": "seven"})
	assert.Equal(t, query.KindBinding, query.KindOf(err))
}
