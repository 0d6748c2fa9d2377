package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/server"
	"github.com/adfharrison1/wqdb/pkg/storage"
	"github.com/adfharrison1/wqdb/pkg/workqueue"
)

const elementJSON = `{"_id": "%s", "WMCore.WorkQueue.DataStructs.WorkQueueElement.WorkQueueElement": {"RequestName": "%s", "Status": "Running", "Jobs": %s}}`

func element(id, request, jobs string) string {
	return fmt.Sprintf(elementJSON, id, request, jobs)
}

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		emitCmd.Flags().Set("map", "WorkQueue/jobStatusByRequest")
		emitCmd.Flags().Set("skip-empty", "false")
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func parseLines(t *testing.T, out string) []emitLine {
	t.Helper()
	var lines []emitLine
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var l emitLine
		require.NoError(t, json.Unmarshal([]byte(line), &l))
		lines = append(lines, l)
	}
	return lines
}

func TestEmit_Stdin(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ids   []string
		count []int
	}{
		{"single document", element("a", "ReqA", "null"), []string{"a"}, []int{1}},
		{"array", "[" + element("a", "ReqA", "1") + "," + element("b", "ReqB", "-1") + "]", []string{"a", "b"}, []int{1, 0}},
		{"ndjson", element("a", "ReqA", "2") + "\n" + element("b", "ReqB", "3") + "\n", []string{"a", "b"}, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runRoot(t, tt.input, "emit")
			require.NoError(t, err)

			lines := parseLines(t, out)
			require.Len(t, lines, len(tt.ids))
			for i, line := range lines {
				assert.Equal(t, tt.ids[i], line.ID)
				assert.Len(t, line.Emissions, tt.count[i])
			}
		})
	}
}

func TestEmit_Values(t *testing.T) {
	out, err := runRoot(t, element("a", "ReqA", "null"), "emit")
	require.NoError(t, err)

	lines := parseLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, []domain.Emission{{Key: []interface{}{"ReqA", "Running"}, Value: 0.0}}, lines[0].Emissions)
}

func TestEmit_SkipEmpty(t *testing.T) {
	input := element("a", "ReqA", "1") + "\n" + element("b", "ReqB", "-1")
	out, err := runRoot(t, input, "emit", "--skip-empty")
	require.NoError(t, err)

	lines := parseLines(t, out)
	require.Len(t, lines, 1)
	assert.Equal(t, "a", lines[0].ID)
}

func TestEmit_Files(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	require.NoError(t, os.WriteFile(first, []byte(element("a", "ReqA", "1")), 0644))
	require.NoError(t, os.WriteFile(second, []byte("["+element("b", "ReqB", "2")+"]"), 0644))

	out, err := runRoot(t, "", "emit", first, second)
	require.NoError(t, err)
	assert.Len(t, parseLines(t, out), 2)
}

func TestEmit_Errors(t *testing.T) {
	_, err := runRoot(t, "{", "emit")
	assert.Error(t, err)

	_, err = runRoot(t, `"just a string"`, "emit")
	assert.Error(t, err)

	_, err = runRoot(t, "{}", "emit", "--map", "WorkQueue/unknown")
	assert.ErrorIs(t, err, domain.ErrUnknownMapFunction)
}

func TestVersion(t *testing.T) {
	out, err := runRoot(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "wqdb dev\n", out)
}

func TestLoad_AgainstServer(t *testing.T) {
	srv, err := server.NewServer(storage.WithDataDir(t.TempDir()))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	_, err = runRoot(t, "", "load", "--url", ts.URL, "--count", "250", "--batch", "100", "--define-view", "--seed", "1")
	require.NoError(t, err)

	result, err := srv.Engine().FindAll("workqueue", nil, &domain.PaginationOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(250), result.Total)

	rows, err := srv.Engine().QueryView("workqueue", "jobStatusByRequest", nil)
	require.NoError(t, err)
	assert.Greater(t, rows.TotalRows, 0)
	assert.LessOrEqual(t, rows.TotalRows, 250)
}

func TestGenerateElement(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		doc := generateElement(rng, 5)
		ele := doc[workqueue.ElementKey].(map[string]interface{})
		assert.Contains(t, elementStatuses, ele["Status"])
		assert.Regexp(t, `^request_00[0-4]$`, ele["RequestName"])
	}
}
