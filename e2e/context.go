package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext holds the state of one scenario: the last response and the
// ids created along the way.
type TestContext struct {
	BaseURL string
	Client  *http.Client
	DB      *sql.DB

	LastStatus int
	LastBody   []byte
	vars       map[string]string
}

func NewTestContext(baseURL string, db *sql.DB) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
		DB:      db,
		vars:    map[string]string{},
	}
}

// Reset clears per-scenario state and picks a fresh run id for seeded rows.
func (tc *TestContext) Reset() {
	tc.LastStatus = 0
	tc.LastBody = nil
	tc.vars = map[string]string{"run": strconv.FormatInt(time.Now().UnixNano(), 36)}
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.LastStatus = resp.StatusCode
	tc.LastBody, err = io.ReadAll(resp.Body)
	return err
}

// GetResponseField reads a dotted path such as "audit_chain.chain_id" from
// the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.LastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not json: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if doc, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not in response: %s", field, tc.LastBody)
		}
	}
	return doc, nil
}

func (tc *TestContext) Status() int {
	return tc.LastStatus
}

func (tc *TestContext) Set(name, value string) {
	tc.vars[name] = value
}

func (tc *TestContext) Get(name string) string {
	return tc.vars[name]
}

func (tc *TestContext) Exec(ctx context.Context, query string, args ...any) error {
	if tc.DB == nil {
		return fmt.Errorf("no database configured")
	}
	_, err := tc.DB.ExecContext(ctx, query, args...)
	return err
}
