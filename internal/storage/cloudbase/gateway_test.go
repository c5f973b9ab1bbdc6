package cloudbase

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
)

const testToken = "test-token"

// fakeGateway is an in-memory stand-in for the CloudBase document API.
type fakeGateway struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	g := &fakeGateway{collections: map[string][]map[string]any{}}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return g, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "INVALID_ACCESS_TOKEN", "message": "bad token"})
		return
	}

	// /api/v2/envs/{env}/databases/{collection}/documents[:action]
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(parts) != 7 {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": r.URL.Path})
		return
	}
	collection := parts[5]
	action := ""
	if i := strings.Index(parts[6], ":"); i >= 0 {
		action = parts[6][i+1:]
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	filter, _ := body["query"].(map[string]any)

	switch action {
	case "":
		doc := body["data"].(map[string]any)
		for _, d := range g.collections[collection] {
			if d["_id"] == doc["_id"] {
				writeJSON(w, http.StatusConflict, map[string]string{"code": codeDuplicate, "message": "duplicate _id"})
				return
			}
		}
		g.collections[collection] = append(g.collections[collection], doc)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"_id": doc["_id"]}})
	case "find":
		list := g.match(collection, filter)
		if raw, ok := body["sort"].([]any); ok && len(raw) > 0 {
			s := raw[0].(map[string]any)
			field, dir := s["field"].(string), s["direction"].(string)
			sort.SliceStable(list, func(i, j int) bool {
				a, _ := list[i][field].(float64)
				b, _ := list[j][field].(float64)
				if dir == "desc" {
					return a > b
				}
				return a < b
			})
		}
		offset, _ := body["offset"].(float64)
		limit, _ := body["limit"].(float64)
		if int(offset) >= len(list) {
			list = nil
		} else {
			list = list[int(offset):]
		}
		if limit > 0 && int(limit) < len(list) {
			list = list[:int(limit)]
		}
		if list == nil {
			list = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"list": list}})
	case "update":
		set := body["data"].(map[string]any)["$set"].(map[string]any)
		updated := 0
		matched := g.match(collection, filter)
		for _, d := range matched {
			for k, v := range set {
				d[k] = v
			}
			updated++
		}
		res := map[string]any{"updated": updated}
		if len(matched) == 0 && body["upsert"] == true {
			doc := map[string]any{}
			for k, v := range filter {
				doc[k] = v
			}
			for k, v := range set {
				doc[k] = v
			}
			g.collections[collection] = append(g.collections[collection], doc)
			res["upserted_id"] = doc["_id"]
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": res})
	case "delete":
		var kept []map[string]any
		deleted := 0
		for _, d := range g.collections[collection] {
			if matches(d, filter) {
				deleted++
				continue
			}
			kept = append(kept, d)
		}
		g.collections[collection] = kept
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": deleted}})
	case "count":
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"total": len(g.match(collection, filter))}})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "INVALID_ACTION", "message": action})
	}
}

func (g *fakeGateway) match(collection string, filter map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range g.collections[collection] {
		if matches(d, filter) {
			out = append(out, d)
		}
	}
	return out
}

func matches(doc, filter map[string]any) bool {
	for field, want := range filter {
		got := doc[field]
		ops, isOps := want.(map[string]any)
		if !isOps {
			if !reflect.DeepEqual(got, want) {
				return false
			}
			continue
		}
		n, ok := got.(float64)
		if !ok {
			return false
		}
		for op, v := range ops {
			bound := v.(float64)
			switch op {
			case "$gte":
				if n < bound {
					return false
				}
			case "$lt":
				if n >= bound {
					return false
				}
			}
		}
	}
	return true
}
