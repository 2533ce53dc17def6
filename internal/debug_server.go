package internal

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const previewSize = 96

type InspectRow struct {
	Key        string
	Collection string
	Sequence   string
	Size       int
	Preview    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  string
}

// MountDebug registers GET /debug/stats and, when db is set,
// GET /debug/inspect which lists the stored keys under ?prefix=.
func MountDebug(mux *http.ServeMux, log *slog.Logger, db *badger.DB, stats StatsProvider, mapper RowMapper) {
	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc("GET /debug/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats()); err != nil {
			log.Error("Unable to encode stats", "error", err)
		}
	})

	if db == nil {
		return
	}
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("GET /debug/inspect", func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Prefix: r.URL.Query().Get("prefix")}
		if raw, err := json.MarshalIndent(stats(), "", "  "); err == nil {
			data.Stats = string(raw)
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			prefix := []byte(data.Prefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				key := string(item.KeyCopy(nil))
				if err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(key, val))
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Error("Unable to inspect store", "prefix", data.Prefix, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// DefaultMapper reads "{collection}:{sequence}" keys written by the badger store.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:        key,
		Collection: "default",
		Sequence:   "-",
		Size:       len(val),
		Preview:    string(val),
	}
	if collection, seq, ok := strings.Cut(key, ":"); ok {
		row.Collection = collection
		if n, err := strconv.ParseUint(seq, 10, 64); err == nil {
			row.Sequence = strconv.FormatUint(n, 10)
		}
	}
	if len(row.Preview) > previewSize {
		row.Preview = row.Preview[:previewSize] + "…"
	}
	return row
}
