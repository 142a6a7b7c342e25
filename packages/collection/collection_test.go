package collection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCollection(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeCollection(t, "requests.json", `[
  {"method": "GET", "url": "https://example.com/users"},
  {
    "id": "create-user",
    "method": "POST",
    "url": "https://example.com/users",
    "headers": {"Authorization": "Bearer token"},
    "fields": {"name": "alice"},
    "contentType": "application/json",
    "timeoutMs": 5000
  }
]`)

	reqs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "GET", reqs[0].Method)
	assert.Equal(t, "https://example.com/users", reqs[0].URL)
	assert.NotNil(t, reqs[0].Headers)

	assert.Equal(t, "create-user", reqs[1].ID)
	assert.Equal(t, "POST", reqs[1].Method)
	assert.Equal(t, "Bearer token", reqs[1].Headers["Authorization"])
	assert.Equal(t, "alice", reqs[1].Fields["name"])
	assert.Equal(t, "application/json", reqs[1].ContentType)
	assert.Equal(t, 5*time.Second, reqs[1].Timeout)
}

func TestLoad_YAML(t *testing.T) {
	path := writeCollection(t, "requests.yaml", `
- method: GET
  url: https://example.com/health
- method: DELETE
  url: https://example.com/users/1
  crossOrigin: true
`)

	reqs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "GET", reqs[0].Method)
	assert.Equal(t, "DELETE", reqs[1].Method)
	assert.True(t, reqs[1].CrossOrigin)
}

func TestLoad_RejectsMissingURL(t *testing.T) {
	path := writeCollection(t, "bad.json", `[{"method": "GET"}]`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestLoad_RejectsUnknownMethod(t *testing.T) {
	path := writeCollection(t, "bad.json", `[{"method": "TRACE", "url": "https://example.com"}]`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeCollection(t, "bad.json", `[{"method": "GET", "url": "https://example.com", "retries": 3}]`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestLoad_RejectsMalformedJSON(t *testing.T) {
	path := writeCollection(t, "bad.json", `[{"method": "GET"`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsYAMLThatIsNotAList(t *testing.T) {
	path := writeCollection(t, "bad.yaml", `method: GET`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
