package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapo-hq/keygate/pkg/cli"
	"gapo-hq/keygate/pkg/iam"
)

func runKeysFetchTo(t *testing.T, output string) (string, error) {
	t.Helper()
	orig := keysFlags.output
	keysFlags.output = output
	t.Cleanup(func() { keysFlags.output = orig })

	var buf bytes.Buffer
	keysFetchCmd.SetOut(&buf)
	t.Cleanup(func() { keysFetchCmd.SetOut(nil) })
	err := runKeysFetch(keysFetchCmd, nil)
	return buf.String(), err
}

func TestKeysFetchMasksKeys(t *testing.T) {
	fake, srv := newFakeIAM(t,
		iam.APIKeyRecord{APIKey: "svc-orders-0123456789", Source: "orders"},
		iam.APIKeyRecord{APIKey: "svc-billing-0123456789", Source: "billing"},
	)
	writeConfig(t, fmt.Sprintf("iam:\n  url: %s\n  api_key: bootstrap-key\n", srv.URL))

	out, err := runKeysFetchTo(t, "text")
	require.NoError(t, err)

	assert.NotContains(t, out, "0123456789", "output leaks full keys")
	for _, want := range []string{"SOURCE", "billing", "orders", "svc-***"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "billing"), strings.Index(out, "orders"), "rows not sorted by source")
	assert.Equal(t, "bootstrap-key", fake.lastKey())
}

func TestKeysFetchJSON(t *testing.T) {
	_, srv := newFakeIAM(t, iam.APIKeyRecord{APIKey: "svc-orders-0123456789", Source: "orders"})
	writeConfig(t, fmt.Sprintf("iam:\n  url: %s\n  api_key: bootstrap-key\n", srv.URL))

	out, err := runKeysFetchTo(t, "json")
	require.NoError(t, err)

	var rows []keyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	assert.Equal(t, []keyRow{{Source: "orders", APIKey: "svc-***"}}, rows)
}

func TestKeysFetchDuplicateKeysLastWins(t *testing.T) {
	_, srv := newFakeIAM(t,
		iam.APIKeyRecord{APIKey: "svc-shared-0123456789", Source: "orders"},
		iam.APIKeyRecord{APIKey: "svc-shared-0123456789", Source: "billing"},
	)
	writeConfig(t, fmt.Sprintf("iam:\n  url: %s\n  api_key: bootstrap-key\n", srv.URL))

	out, err := runKeysFetchTo(t, "json")
	require.NoError(t, err)

	var rows []keyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	assert.Equal(t, []keyRow{{Source: "billing", APIKey: "svc-***"}}, rows)
}

func TestKeysFetchEmptyList(t *testing.T) {
	_, srv := newFakeIAM(t)
	writeConfig(t, fmt.Sprintf("iam:\n  url: %s\n  api_key: bootstrap-key\n", srv.URL))

	out, err := runKeysFetchTo(t, "json")
	require.NoError(t, err)

	var rows []keyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows), out)
	assert.Empty(t, rows)
}

func TestKeysFetchResolvesSecretReference(t *testing.T) {
	fake, srv := newFakeIAM(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iam-key"), []byte("from-file\n"), 0o600))
	writeConfig(t, fmt.Sprintf(
		"iam:\n  url: %s\n  api_key: ${secret:iam-key}\nsecrets:\n  file_dir: %s\n  watch: false\n",
		srv.URL, dir))

	_, err := runKeysFetchTo(t, "text")
	require.NoError(t, err)
	assert.Equal(t, "from-file", fake.lastKey())
}

func TestKeysFetchUpstreamFailure(t *testing.T) {
	fake, srv := newFakeIAM(t)
	fake.status = http.StatusServiceUnavailable
	writeConfig(t, fmt.Sprintf("iam:\n  url: %s\n  api_key: bootstrap-key\n", srv.URL))

	_, err := runKeysFetchTo(t, "text")
	require.Error(t, err)
	assert.True(t, iam.IsFetchError(err), "error = %v, want a wrapped FetchError", err)
	assert.Equal(t, cli.ExitUpstream, exitCode(err))
}

func TestKeysFetchInvalidOutput(t *testing.T) {
	_, err := runKeysFetchTo(t, "yaml")

	var cfgErr *cli.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestKeyListTable(t *testing.T) {
	list := newKeyList(map[string]string{"short": "a", "svc-b-0123456789": "a", "svc-z-0123456789": "0"})

	assert.Equal(t, []string{"SOURCE", "API KEY"}, list.Header())
	assert.Equal(t, [][]string{
		{"0", "svc-***"},
		{"a", "***"},
		{"a", "svc-***"},
	}, list.Rows())
}
