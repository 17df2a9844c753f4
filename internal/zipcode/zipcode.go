// Package zipcode resolves US ZIP codes to a city and state, first from a
// small embedded table and then from the zippopotam.us API.
package zipcode

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

// MaxSuggestions caps the prefix matches returned by Suggest.
const MaxSuggestions = 10

// ErrNotFound is returned when no source knows the ZIP.
var ErrNotFound = errors.New("zipcode: not found")

//go:embed zipcodes.csv
var embedded []byte

// Place is a resolved ZIP.
type Place struct {
	Zip   string `json:"zip"`
	City  string `json:"city"`
	State string `json:"state"`
}

// Table is an in-memory ZIP index kept in file order.
type Table struct {
	places []Place
	byZip  map[string]Place
}

// Default returns the table embedded in the binary.
func Default() *Table {
	t, err := ParseTable(bytes.NewReader(embedded))
	if err != nil {
		panic(fmt.Sprintf("zipcode: embedded table: %v", err))
	}
	return t
}

// ParseTable reads "zip,city,state" CSV with a header row.
func ParseTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse zip table: %w", err)
	}
	t := &Table{byZip: make(map[string]Place, len(records))}
	for i, rec := range records {
		if i == 0 && rec[0] == "zip" {
			continue
		}
		p := Place{Zip: rec[0], City: rec[1], State: rec[2]}
		t.places = append(t.places, p)
		t.byZip[p.Zip] = p
	}
	return t, nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.places) }

// Places returns every entry in file order.
func (t *Table) Places() []Place { return slices.Clone(t.places) }

// Lookup finds an exact ZIP.
func (t *Table) Lookup(zip string) (Place, bool) {
	p, ok := t.byZip[zip]
	return p, ok
}

// Suggest returns up to MaxSuggestions entries whose ZIP starts with prefix.
// An empty prefix suggests nothing.
func (t *Table) Suggest(prefix string) []Place {
	if prefix == "" {
		return nil
	}
	var out []Place
	for _, p := range t.places {
		if strings.HasPrefix(p.Zip, prefix) {
			out = append(out, p)
			if len(out) == MaxSuggestions {
				break
			}
		}
	}
	return out
}

// Lookuper resolves a full ZIP, typically over the network.
type Lookuper interface {
	Lookup(ctx context.Context, zip string) (Place, error)
}

// DefaultRemoteURL is the zippopotam.us US endpoint; the ZIP is appended.
const DefaultRemoteURL = "https://api.zippopotam.us/us/"

// Remote queries a zippopotam-compatible API.
type Remote struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewRemote creates a client for baseURL. A nil client uses
// http.DefaultClient.
func NewRemote(baseURL string, client *http.Client, timeout time.Duration) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Remote{baseURL: baseURL, client: client, timeout: timeout}
}

type remoteResponse struct {
	Places []struct {
		PlaceName         string `json:"place name"`
		StateAbbreviation string `json:"state abbreviation"`
	} `json:"places"`
}

func (r *Remote) Lookup(ctx context.Context, zip string) (Place, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+zip, nil)
	if err != nil {
		return Place{}, fmt.Errorf("build zip request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("zip request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return Place{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("zip lookup returned %s", resp.Status)
	}

	var body remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("decode zip response: %w", err)
	}
	if len(body.Places) == 0 {
		return Place{}, ErrNotFound
	}
	return Place{
		Zip:   zip,
		City:  body.Places[0].PlaceName,
		State: body.Places[0].StateAbbreviation,
	}, nil
}

// Resolver consults the local table and falls back to one remote lookup.
type Resolver struct {
	table  *Table
	remote Lookuper
}

// NewResolver combines a table with an optional remote source.
func NewResolver(table *Table, remote Lookuper) *Resolver {
	return &Resolver{table: table, remote: remote}
}

// Resolve returns the place for a 5-digit ZIP. A local hit never touches the
// network. Any remote failure is reported as ErrNotFound wrapped with the
// cause.
func (r *Resolver) Resolve(ctx context.Context, zip string) (Place, error) {
	if len(zip) != 5 {
		return Place{}, ErrNotFound
	}
	if p, ok := r.table.Lookup(zip); ok {
		return p, nil
	}
	if r.remote == nil {
		return Place{}, ErrNotFound
	}
	p, err := r.remote.Lookup(ctx, zip)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Place{}, err
		}
		return Place{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return p, nil
}

// Suggest proxies to the local table.
func (r *Resolver) Suggest(prefix string) []Place {
	return r.table.Suggest(prefix)
}
