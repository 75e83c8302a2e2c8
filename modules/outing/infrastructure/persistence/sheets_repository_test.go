package persistence_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/iota-uz/outing-approval/modules/outing/domain/entities/outingrequest"
	"github.com/iota-uz/outing-approval/modules/outing/infrastructure/persistence"
	"github.com/iota-uz/outing-approval/pkg/credential"
)

var cellRangeRe = regexp.MustCompile(`^([A-Z]+)(\d+):([A-Z]+)(\d+)$`)

// fakeSheets emulates the values endpoints of the spreadsheet API for a single
// sheet: get of the full range, append and update of a cell range.
type fakeSheets struct {
	t     *testing.T
	mu    sync.Mutex
	grid  [][]interface{}
	auths []string
	calls []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auths = append(f.auths, r.Header.Get("Authorization"))

	const prefix = "/v4/spreadsheets/sheet-123/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get "+rng)
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "majorDimension": "ROWS", "values": f.grid})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		f.calls = append(f.calls, "append "+strings.TrimSuffix(rng, ":append"))
		assert.Equal(f.t, "RAW", r.URL.Query().Get("valueInputOption"))
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.grid = append(f.grid, body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-123"})
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update "+rng)
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.applyUpdate(rng, body.Values[0])
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedCells": len(body.Values[0])})
	default:
		http.Error(w, "unexpected call", http.StatusBadRequest)
	}
}

func (f *fakeSheets) applyUpdate(rng string, values []interface{}) {
	cells := rng[strings.Index(rng, "!")+1:]
	m := cellRangeRe.FindStringSubmatch(cells)
	require.NotNil(f.t, m, "bad update range %s", rng)
	require.Equal(f.t, "K", m[1])
	require.Equal(f.t, "L", m[3])
	row, _ := strconv.Atoi(m[2])
	for len(f.grid[row-1]) < 12 {
		f.grid[row-1] = append(f.grid[row-1], "")
	}
	f.grid[row-1][10] = values[0]
	f.grid[row-1][11] = values[1]
}

type countingSource struct {
	mu sync.Mutex
	n  int
}

func (s *countingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return &oauth2.Token{AccessToken: fmt.Sprintf("assertion-%d", s.n), TokenType: "Bearer"}, nil
}

func newSheetsRepo(t *testing.T) (*persistence.SheetsRepository, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{t: t, grid: [][]interface{}{toAny(persistence.Columns[:])}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	repo, err := persistence.NewSheetsRepository(context.Background(), persistence.SheetsRepositoryConfig{
		SpreadsheetID: "sheet-123",
		SheetName:     "Sheet1",
		TokenSource:   &countingSource{},
		Endpoint:      srv.URL + "/",
	})
	require.NoError(t, err)
	return repo, fake
}

func toAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func TestSheetsRepository(t *testing.T) {
	repo, _ := newSheetsRepo(t)
	exerciseRepository(t, repo)
}

func TestSheetsRepository_UpdateTargetsMatchedRow(t *testing.T) {
	repo, fake := newSheetsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newRecord("id-1", "A")))
	require.NoError(t, repo.Append(ctx, newRecord("id-2", "B")))
	require.NoError(t, repo.UpdateStatus(ctx, "id-2", outingrequest.StatusRejected, "busy"))

	assert.Equal(t, []string{
		"append Sheet1!A:O",
		"append Sheet1!A:O",
		"get Sheet1!A:O",
		"update Sheet1!K3:L3",
	}, fake.calls)
	assert.Equal(t, "rejected", fake.grid[2][10])
	assert.Equal(t, "busy", fake.grid[2][11])
}

func TestSheetsRepository_MissingIDWritesNothing(t *testing.T) {
	repo, fake := newSheetsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newRecord("id-1", "A")))
	err := repo.UpdateStatus(ctx, "nope", outingrequest.StatusApproved, "")
	require.ErrorIs(t, err, outingrequest.ErrRecordNotFound)

	for _, c := range fake.calls {
		assert.False(t, strings.HasPrefix(c, "update"), c)
	}
}

func TestSheetsRepository_FreshCredentialPerCall(t *testing.T) {
	repo, fake := newSheetsRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newRecord("id-1", "A")))
	require.NoError(t, repo.UpdateStatus(ctx, "id-1", outingrequest.StatusApproved, "OK"))

	assert.Equal(t, []string{"Bearer assertion-1", "Bearer assertion-2", "Bearer assertion-3"}, fake.auths)
}

func TestSheetsRepository_PropagatesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	repo, err := persistence.NewSheetsRepository(context.Background(), persistence.SheetsRepositoryConfig{
		SpreadsheetID: "sheet-123",
		TokenSource:   &countingSource{},
		Endpoint:      srv.URL + "/",
	})
	require.NoError(t, err)

	err = repo.Append(context.Background(), newRecord("id-1", "A"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append record row")
}

func TestSheetsRepository_CredentialFailuresSurface(t *testing.T) {
	signer := credential.NewSigner("https://www.googleapis.com/auth/spreadsheets", "https://oauth2.googleapis.com/token")
	cases := []struct {
		name   string
		source oauth2.TokenSource
		want   error
	}{
		{
			name:   "assertion source without key",
			source: credential.AssertionTokenSource(signer, credential.ServiceIdentity{Email: "svc@example.iam.gserviceaccount.com"}),
			want:   credential.ErrMissingKey,
		},
		{
			name: "exchange source with garbage key",
			source: credential.ExchangeTokenSource(context.Background(), signer,
				credential.ServiceIdentity{Email: "svc@example.iam.gserviceaccount.com", PrivateKey: "garbage"}, nil),
			want: credential.ErrMalformedKey,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeSheets{t: t, grid: [][]interface{}{toAny(persistence.Columns[:])}}
			srv := httptest.NewServer(fake)
			defer srv.Close()

			repo, err := persistence.NewSheetsRepository(context.Background(), persistence.SheetsRepositoryConfig{
				SpreadsheetID: "sheet-123",
				TokenSource:   tc.source,
				Endpoint:      srv.URL + "/",
			})
			require.NoError(t, err)

			ctx := context.Background()
			require.ErrorIs(t, repo.Append(ctx, newRecord("id-1", "A")), tc.want)
			require.ErrorIs(t, repo.UpdateStatus(ctx, "id-1", outingrequest.StatusApproved, "OK"), tc.want)
			assert.Empty(t, fake.calls)
		})
	}
}

func TestNewSheetsRepository_RequiresConfig(t *testing.T) {
	_, err := persistence.NewSheetsRepository(context.Background(), persistence.SheetsRepositoryConfig{TokenSource: &countingSource{}})
	require.Error(t, err)
	_, err = persistence.NewSheetsRepository(context.Background(), persistence.SheetsRepositoryConfig{SpreadsheetID: "x"})
	require.Error(t, err)
}
