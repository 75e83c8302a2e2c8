package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSign_PrintsDecodedClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("SHEETS_SERVICE_ACCOUNT_EMAIL", "bridge@project.iam.gserviceaccount.com")
	t.Setenv("SHEETS_PRIVATE_KEY", strings.ReplaceAll(pemText, "\n", `\n`))

	out, err := run(t, "sign")
	require.NoError(t, err)

	var got struct {
		Assertion string         `json:"assertion"`
		Claims    map[string]any `json:"claims"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, strings.Split(got.Assertion, "."), 3)
	assert.Equal(t, "bridge@project.iam.gserviceaccount.com", got.Claims["iss"])
	assert.Equal(t, "https://www.googleapis.com/auth/spreadsheets", got.Claims["scope"])
	assert.InDelta(t, 3600, got.Claims["exp"].(float64)-got.Claims["iat"].(float64), 0.001)
}

func TestSign_MissingKey(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("SHEETS_SERVICE_ACCOUNT_EMAIL", "bridge@project.iam.gserviceaccount.com")
	t.Setenv("SHEETS_PRIVATE_KEY", "")

	_, err := run(t, "sign")
	require.Error(t, err)
}

func TestDecide_SendsOutcome(t *testing.T) {
	var pushed []string
	push := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		pushed = append(pushed, string(raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer push.Close()

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LINE_API_BASE_URL", push.URL)
	t.Setenv("LINE_TARGET_USER_ID", "U123")
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "decide", "abc", "approve", "looks fine")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","status":"approved","comment":"looks fine"}`, out)

	require.Len(t, pushed, 1)
	assert.Contains(t, pushed[0], "abc")
	assert.Contains(t, pushed[0], "approved")
}

func TestDecide_RejectsUnknownAction(t *testing.T) {
	_, err := run(t, "decide", "abc", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maybe")
}

func TestLookup_MissingRecord(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	_, err := run(t, "lookup", "nope")
	require.Error(t, err)
}
