// Package oxidbtest runs an in-memory oxidb-server speaking the framed JSON
// protocol, for tests that exercise the real client.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Server is an in-memory document store reachable over TCP.
type Server struct {
	ln net.Listener

	mu          sync.Mutex
	collections map[string][]map[string]any
	indexes     map[string][]map[string]any
	nextID      float64
	failures    map[string]string
	commands    []string
	wg          sync.WaitGroup
}

// Start listens on a loopback port and serves until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{
		ln:          ln,
		collections: map[string][]map[string]any{},
		indexes:     map[string][]map[string]any{},
		failures:    map[string]string{},
	}
	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the "host:port" the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting connections.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

// FailNext makes the next request for cmd return an error response.
func (s *Server) FailNext(cmd, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[cmd] = msg
}

// Commands returns the command names received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Docs returns a copy of the documents stored in collection.
func (s *Server) Docs(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		out = append(out, copyDoc(d))
	}
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		var req map[string]any
		var resp map[string]any
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = map[string]any{"ok": false, "error": "invalid json"}
		} else {
			resp = s.handle(req)
		}
		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) handle(req map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	s.commands = append(s.commands, cmd)
	if msg, ok := s.failures[cmd]; ok {
		delete(s.failures, cmd)
		return map[string]any{"ok": false, "error": msg}
	}

	data, err := s.dispatch(cmd, req)
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}
	}
	return map[string]any{"ok": true, "data": data}
}

func (s *Server) dispatch(cmd string, req map[string]any) (any, error) {
	collection, _ := req["collection"].(string)
	query, _ := req["query"].(map[string]any)

	switch cmd {
	case "ping":
		return "pong", nil
	case "insert":
		doc, ok := req["doc"].(map[string]any)
		if !ok {
			return nil, errors.New("doc must be an object")
		}
		s.nextID++
		stored := copyDoc(doc)
		stored["_id"] = s.nextID
		s.collections[collection] = append(s.collections[collection], stored)
		return map[string]any{"id": s.nextID}, nil
	case "find_one":
		for _, d := range s.collections[collection] {
			if matches(d, query) {
				return copyDoc(d), nil
			}
		}
		return nil, nil
	case "find":
		docs := s.filter(collection, query)
		if sortSpec, ok := req["sort"].(map[string]any); ok {
			sortDocs(docs, sortSpec)
		}
		if skip, ok := req["skip"].(float64); ok {
			if int(skip) >= len(docs) {
				docs = nil
			} else {
				docs = docs[int(skip):]
			}
		}
		if limit, ok := req["limit"].(float64); ok && int(limit) < len(docs) {
			docs = docs[:int(limit)]
		}
		out := make([]any, 0, len(docs))
		for _, d := range docs {
			out = append(out, d)
		}
		return out, nil
	case "count":
		return map[string]any{"count": float64(len(s.filter(collection, query)))}, nil
	case "create_index", "create_composite_index":
		name := indexName(req)
		for _, idx := range s.indexes[collection] {
			if idx["name"] == name {
				return nil, fmt.Errorf("index %s already exists", name)
			}
		}
		s.indexes[collection] = append(s.indexes[collection], map[string]any{"name": name, "type": cmd})
		return "ok", nil
	case "list_indexes":
		out := make([]any, 0, len(s.indexes[collection]))
		for _, idx := range s.indexes[collection] {
			out = append(out, idx)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *Server) filter(collection string, query map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range s.collections[collection] {
		if matches(d, query) {
			out = append(out, copyDoc(d))
		}
	}
	return out
}

func indexName(req map[string]any) string {
	if f, ok := req["field"].(string); ok {
		return f
	}
	fields, _ := req["fields"].([]any)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprint(f))
	}
	return strings.Join(parts, "_")
}

func matches(doc, query map[string]any) bool {
	for k, want := range query {
		got, ok := lookup(doc, k)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func sortDocs(docs []map[string]any, spec map[string]any) {
	for field, dir := range spec {
		desc := false
		if d, ok := dir.(float64); ok && d < 0 {
			desc = true
		}
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := lookup(docs[i], field)
			b, _ := lookup(docs[j], field)
			less := fmt.Sprint(a) < fmt.Sprint(b)
			if af, ok := a.(float64); ok {
				if bf, ok := b.(float64); ok {
					less = af < bf
				}
			}
			if desc {
				return !less && fmt.Sprint(a) != fmt.Sprint(b)
			}
			return less
		})
		return
	}
}

func copyDoc(doc map[string]any) map[string]any {
	data, _ := json.Marshal(doc)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}
