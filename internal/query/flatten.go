package query

import (
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Flatten converts documents into a Result. Nested documents become dotted
// column names ("meta.sensor_id"); arrays stay as values. Columns appear in
// the order they are first seen across the documents.
func Flatten(docs []bson.D) *Result {
	res := &Result{Rows: make([]Row, 0, len(docs))}
	seen := map[string]bool{}

	for _, doc := range docs {
		row := Row{}
		flattenInto(row, "", doc, func(col string) {
			if !seen[col] {
				seen[col] = true
				res.Columns = append(res.Columns, col)
			}
		})
		res.Rows = append(res.Rows, row)
	}
	return res
}

func flattenInto(row Row, prefix string, doc bson.D, addColumn func(string)) {
	for _, el := range doc {
		name := el.Key
		if prefix != "" {
			name = prefix + "." + el.Key
		}

		switch v := el.Value.(type) {
		case bson.D:
			if len(v) == 0 {
				addColumn(name)
				row[name] = nil
				continue
			}
			flattenInto(row, name, v, addColumn)
		case bson.M:
			flattenInto(row, name, sortedD(v), addColumn)
		case map[string]any:
			flattenInto(row, name, sortedD(v), addColumn)
		default:
			addColumn(name)
			row[name] = scalar(v)
		}
	}
}

// scalar converts BSON-specific leaf values into plain Go values.
func scalar(v any) any {
	switch t := v.(type) {
	case bson.DateTime:
		return t.Time().UTC()
	case bson.ObjectID:
		return t.Hex()
	case bson.Decimal128:
		return t.String()
	case bson.Null, bson.Undefined:
		return nil
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = scalar(e)
		}
		return out
	}
	return v
}

// sortedD orders an unordered map by key so flattening stays deterministic.
func sortedD[M ~map[string]any](m M) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}
