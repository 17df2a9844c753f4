package zipcode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultTable(t *testing.T) {
	table := Default()
	if table.Len() == 0 {
		t.Fatal("embedded table is empty")
	}
	p, ok := table.Lookup("10001")
	if !ok {
		t.Fatal("expected 10001 in embedded table")
	}
	if diff := cmp.Diff(Place{Zip: "10001", City: "New York", State: "NY"}, p); diff != "" {
		t.Fatalf("place mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggest(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("zip,city,state\n")
	for i := 0; i < 15; i++ {
		sb.WriteString("1000")
		sb.WriteByte(byte('0' + i%10))
		sb.WriteString(",Town,NY\n")
	}
	sb.WriteString("20001,Washington,DC\n")
	table, err := ParseTable(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := table.Suggest("1000"); len(got) != MaxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", MaxSuggestions, len(got))
	}
	got := table.Suggest("2")
	if len(got) != 1 || got[0].Zip != "20001" {
		t.Fatalf("unexpected suggestions %+v", got)
	}
	if got := table.Suggest(""); got != nil {
		t.Fatalf("empty prefix should suggest nothing, got %+v", got)
	}
}

func TestParseTableRejectsShortRows(t *testing.T) {
	if _, err := ParseTable(strings.NewReader("zip,city,state\n10001,New York\n")); err == nil {
		t.Fatal("expected error")
	}
}

func zippopotam(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/us/12345":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"post code":"12345","places":[{"place name":"Schenectady","state abbreviation":"NY"}]}`))
		case "/us/55555":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolverLocalHitSkipsRemote(t *testing.T) {
	var hits int32
	srv := zippopotam(t, &hits)
	r := NewResolver(Default(), NewRemote(srv.URL+"/us", srv.Client(), time.Second))

	p, err := r.Resolve(context.Background(), "60601")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.City != "Chicago" {
		t.Fatalf("expected Chicago, got %q", p.City)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no remote calls, got %d", n)
	}
}

func TestResolverRemoteFallback(t *testing.T) {
	var hits int32
	srv := zippopotam(t, &hits)
	r := NewResolver(Default(), NewRemote(srv.URL+"/us/", srv.Client(), time.Second))

	p, err := r.Resolve(context.Background(), "12345")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff(Place{Zip: "12345", City: "Schenectady", State: "NY"}, p); diff != "" {
		t.Fatalf("place mismatch (-want +got):\n%s", diff)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one remote call, got %d", n)
	}
}

func TestResolverRemoteMiss(t *testing.T) {
	var hits int32
	srv := zippopotam(t, &hits)
	r := NewResolver(Default(), NewRemote(srv.URL+"/us/", srv.Client(), time.Second))

	for _, zip := range []string{"00000", "55555"} {
		_, err := r.Resolve(context.Background(), zip)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", zip, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected one call per lookup, got %d", n)
	}
}

func TestResolverRejectsPartialZip(t *testing.T) {
	var hits int32
	srv := zippopotam(t, &hits)
	r := NewResolver(Default(), NewRemote(srv.URL+"/us/", srv.Client(), time.Second))

	if _, err := r.Resolve(context.Background(), "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("partial zip must not reach the network, got %d calls", n)
	}
}

func TestResolverWithoutRemote(t *testing.T) {
	r := NewResolver(Default(), nil)
	if _, err := r.Resolve(context.Background(), "12345"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
