package home

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/query"
)

const sessionName = "querydash"

// Signals is the datastar signal set of the dashboard page.
type Signals struct {
	Role       string         `json:"role"`
	AutoRun    bool           `json:"autoRun"`
	Params     map[string]any `json:"params"`
	PgEntry    string         `json:"pgEntry"`
	MongoEntry string         `json:"mongoEntry"`
}

// Selection is what the user picked: role, raw parameter values, the
// auto-run toggle and one entry per panel.
type Selection struct {
	Role       string
	AutoRun    bool
	Params     map[string]string
	PgEntry    string
	MongoEntry string
}

// selectionFromSignals converts browser signals. Numbers arrive as float64.
func selectionFromSignals(s Signals) Selection {
	sel := Selection{
		Role:       s.Role,
		AutoRun:    s.AutoRun,
		PgEntry:    s.PgEntry,
		MongoEntry: s.MongoEntry,
		Params:     make(map[string]string, len(s.Params)),
	}
	for k, v := range s.Params {
		switch t := v.(type) {
		case nil:
		case string:
			sel.Params[k] = strings.TrimSpace(t)
		case float64:
			sel.Params[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			sel.Params[k] = strconv.FormatBool(t)
		default:
			raw, _ := json.Marshal(t)
			sel.Params[k] = string(raw)
		}
	}
	return sel
}

// signals converts a selection back for data-signals and signal patches.
func (s Selection) signals() Signals {
	params := make(map[string]any, len(s.Params))
	for k, v := range s.Params {
		params[k] = v
	}
	return Signals{
		Role:       s.Role,
		AutoRun:    s.AutoRun,
		Params:     params,
		PgEntry:    s.PgEntry,
		MongoEntry: s.MongoEntry,
	}
}

// normalize fills gaps in sel: unknown roles fall back to defaultRole, every
// declared parameter gets a raw value, and entries not visible to the role
// are replaced by the first visible one. The returned parameter context is
// nil with a BindingError when a raw value does not parse.
func normalize(svc *dashboard.Service, sel Selection, defaultRole string) (Selection, query.Params, error) {
	cat := svc.Catalog()

	sel.Role = strings.ToLower(strings.TrimSpace(sel.Role))
	if !catalog.KnownRole(sel.Role) {
		sel.Role = defaultRole
	}

	raw := make(map[string]string, len(cat.Params))
	for _, def := range cat.Params {
		if v, ok := sel.Params[def.Name]; ok {
			raw[def.Name] = v
		} else if def.Default != nil {
			raw[def.Name] = query.FormatParam(def.Default)
		}
	}
	sel.Params = raw

	sel.PgEntry = pick(svc.Entries(catalog.Relational, sel.Role), sel.PgEntry)
	sel.MongoEntry = pick(svc.Entries(catalog.Document, sel.Role), sel.MongoEntry)

	params, err := cat.Resolve(raw)
	return sel, params, err
}

func pick(entries []catalog.Entry, name string) string {
	for _, e := range entries {
		if e.Name == name {
			return name
		}
	}
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Name
}

func loadSelection(store sessions.Store, r *http.Request) Selection {
	sel := Selection{}
	session, err := store.Get(r, sessionName)
	if err != nil {
		return sel
	}
	sel.Role, _ = session.Values["role"].(string)
	sel.AutoRun, _ = session.Values["auto_run"].(bool)
	sel.PgEntry, _ = session.Values["pg_entry"].(string)
	sel.MongoEntry, _ = session.Values["mongo_entry"].(string)
	if raw, ok := session.Values["params"].(string); ok {
		_ = json.Unmarshal([]byte(raw), &sel.Params)
	}
	return sel
}

func saveSelection(store sessions.Store, w http.ResponseWriter, r *http.Request, sel Selection) error {
	session, _ := store.Get(r, sessionName)
	params, err := json.Marshal(sel.Params)
	if err != nil {
		return err
	}
	session.Values["role"] = sel.Role
	session.Values["auto_run"] = sel.AutoRun
	session.Values["pg_entry"] = sel.PgEntry
	session.Values["mongo_entry"] = sel.MongoEntry
	session.Values["params"] = string(params)
	return session.Save(r, w)
}
