// Package regdisplay exposes register activity over HTTP.
//
// A View is the table the operator looks at: one row per register with its
// formatted value and the kinds of activity currently highlighted.  It is fed
// by a tracker's handlers, so it never polls the tracker for values.
package regdisplay

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"sync"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/servolab/activity"
	"github.com/nasa-jpl/servolab/device"
	"github.com/nasa-jpl/servolab/generichttp"
	"github.com/nasa-jpl/servolab/registers"
	"github.com/nasa-jpl/servolab/server"
)

// Row is the display state of one register
type Row struct {
	Name        string               `json:"name"`
	DisplayName string               `json:"displayName"`
	Subsystem   string               `json:"subsystem"`
	Address     string               `json:"address"`
	Visible     bool                 `json:"visible"`
	Known       bool                 `json:"known"`
	Raw         int64                `json:"raw"`
	Value       string               `json:"value"`
	Marks       []activity.EventKind `json:"marks"`
}

type rowState struct {
	raw    int64
	known  bool
	active [3]bool
}

// View keeps the display state of every register in a catalog.
// It implements activity.MarkHandler and activity.ValueHandler and is safe for
// concurrent use.
type View struct {
	cat  *registers.Catalog
	tree *registers.Node

	mu   sync.RWMutex
	rows map[string]*rowState
}

// NewView creates a view with every register unknown and unmarked
func NewView(cat *registers.Catalog) *View {
	rows := make(map[string]*rowState, cat.Len())
	for _, n := range cat.Names() {
		rows[n] = &rowState{}
	}
	return &View{cat: cat, tree: registers.BuildTree(cat), rows: rows}
}

// Mark implements activity.MarkHandler
func (v *View) Mark(register string, kind activity.EventKind, active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.rows[register]; ok && kind >= activity.Read && kind <= activity.Changed {
		s.active[kind] = active
	}
}

// ValueChanged implements activity.ValueHandler
func (v *View) ValueChanged(register string, value int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.rows[register]; ok {
		s.raw = value
		s.known = true
	}
}

// Rows returns every row in catalog order
func (v *View) Rows() []Row {
	defs := v.cat.Definitions()
	out := make([]Row, len(defs))
	v.mu.RLock()
	defer v.mu.RUnlock()
	for i, d := range defs {
		out[i] = v.row(d)
	}
	return out
}

// Row returns the row of the named register
func (v *View) Row(name string) (Row, error) {
	d, err := v.cat.ByName(name)
	if err != nil {
		return Row{}, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.row(d), nil
}

// Tree returns the subsystem hierarchy of the catalog
func (v *View) Tree() *registers.Node {
	return v.tree
}

func (v *View) row(d registers.Definition) Row {
	s := v.rows[d.Name]
	r := Row{
		Name:        d.Name,
		DisplayName: d.Label(),
		Subsystem:   d.Subsystem,
		Address:     fmt.Sprintf("%#x", d.Address),
		Visible:     d.Visible,
		Known:       s.known,
		Marks:       []activity.EventKind{},
	}
	if s.known {
		r.Raw = s.raw
		r.Value = d.FormatValue(s.raw)
	}
	for _, k := range activity.Kinds {
		if s.active[k] {
			r.Marks = append(r.Marks, k)
		}
	}
	return r
}

// HTTPRegisters binds a View, the runner feeding it and optionally a device to HTTP routes
type HTTPRegisters struct {
	View   *View
	Runner *activity.Runner
	Dev    *device.Recording

	RouteTable generichttp.RouteTable
}

// NewHTTPRegisters builds the route table.  The read and write routes are only
// present if dev is not nil.
func NewHTTPRegisters(view *View, runner *activity.Runner, dev *device.Recording) HTTPRegisters {
	h := HTTPRegisters{View: view, Runner: runner, Dev: dev, RouteTable: generichttp.RouteTable{}}
	rt := h.RouteTable
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/registers"}] = h.GetRows
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/registers/{name}"}] = h.GetRow
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/tree"}] = h.GetTree
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/marks"}] = h.GetMarks
	if dev != nil {
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/registers/{name}"}] = h.Write
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/registers/{name}/read"}] = h.Read
	}
	return h
}

// RT satisfies generichttp.HTTPer
func (h HTTPRegisters) RT() generichttp.RouteTable {
	return h.RouteTable
}

// GetRows returns every row as JSON
func (h HTTPRegisters) GetRows(w http.ResponseWriter, r *http.Request) {
	server.ReplyJSON(w, h.View.Rows())
}

// GetRow returns one row as JSON, 404 if the register does not exist
func (h HTTPRegisters) GetRow(w http.ResponseWriter, r *http.Request) {
	row, err := h.View.Row(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	server.ReplyJSON(w, row)
}

// GetTree returns the subsystem tree as JSON
func (h HTTPRegisters) GetTree(w http.ResponseWriter, r *http.Request) {
	server.ReplyJSON(w, h.View.Tree())
}

// GetMarks returns the active marks and their expiry as JSON
func (h HTTPRegisters) GetMarks(w http.ResponseWriter, r *http.Request) {
	server.ReplyJSON(w, h.Runner.Marks())
}

// Write parses {"int": value} and writes it to the named register
func (h HTTPRegisters) Write(w http.ResponseWriter, r *http.Request) {
	def, err := h.View.cat.ByName(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	in := server.IntT{}
	err = json.NewDecoder(r.Body).Decode(&in)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Dev.Write(def.Address, in.Int)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Read reads the named register from the device and returns its value as {"int": value}.
// It is a GET route and so passes the operator lock.
func (h HTTPRegisters) Read(w http.ResponseWriter, r *http.Request) {
	def, err := h.View.cat.ByName(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	v, err := h.Dev.Read(def.Address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := server.HumanPayload{T: types.Int64, Int: v}
	hp.EncodeAndRespond(w, r)
}
