package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSAS = "sv=2022-11-02&ss=b&srt=co&sp=rwdlac&se=2030-01-01T00:00:00Z&sig=abc123"

func validSource() MapConfigSource {
	return MapConfigSource{
		"AZURE_STORAGE_ACCOUNT_NAME": "ctkstorage",
		"AZURE_STORAGE_SAS":          testSAS,
		"FUNCTION_KEYS":              "fn-key",
	}
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(validSource())
	require.NoError(t, err)

	assert.Equal(t, "ctkstorage", s.StorageAccountName.Value())
	assert.Equal(t, 20, s.LoggerVerbosity)
	assert.Equal(t, "text", s.LogFormat)
	assert.Equal(t, []string{"docx"}, s.ValidFileExtensions)
	assert.False(t, s.EnforceFileExtensions)
	assert.Equal(t, 8080, s.HTTPPort)
	assert.Equal(t, 30*time.Second, s.HTTPReadTimeout)
	assert.Equal(t, int64(100<<20), s.MaxBodySizeBytes)
	assert.Equal(t, []Secret{"fn-key"}, s.FunctionKeys)
	assert.False(t, s.ServiceBusEnabled())
	assert.Equal(t, "https://ctkstorage.blob.core.windows.net/", s.AccountURL())
}

func TestLoad_MissingSecrets(t *testing.T) {
	for _, key := range []string{"AZURE_STORAGE_ACCOUNT_NAME", "AZURE_STORAGE_SAS"} {
		t.Run(key, func(t *testing.T) {
			src := validSource()
			delete(src, key)

			_, err := Load(src)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestLoad_MalformedSecrets(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"account name upper case", "AZURE_STORAGE_ACCOUNT_NAME", "CtkStorage"},
		{"account name too short", "AZURE_STORAGE_ACCOUNT_NAME", "ab"},
		{"account name punctuation", "AZURE_STORAGE_ACCOUNT_NAME", "ctk-storage"},
		{"sas without signature", "AZURE_STORAGE_SAS", "sv=2022-11-02&sp=r"},
		{"sas not a query string", "AZURE_STORAGE_SAS", "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := validSource()
			src[tt.key] = tt.value

			_, err := Load(src)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestLoad_SASLeadingQuestionMark(t *testing.T) {
	src := validSource()
	src["AZURE_STORAGE_SAS"] = "?" + testSAS

	s, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, testSAS, s.StorageSAS.Value())
}

func TestLoad_MalformedScalars(t *testing.T) {
	for _, key := range []string{"LOGGER_VERBOSITY", "HTTP_PORT", "ENFORCE_FILE_EXTENSIONS", "RATE_LIMIT_RPS"} {
		t.Run(key, func(t *testing.T) {
			src := validSource()
			src[key] = "not-a-value"

			_, err := Load(src)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestLoad_RequiresAccessKey(t *testing.T) {
	src := validSource()
	delete(src, "FUNCTION_KEYS")

	_, err := Load(src)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	src["ADMIN_KEYS"] = "admin-key"
	_, err = Load(src)
	assert.NoError(t, err)
}

func TestLoad_BlankAccessKeysDoNotCount(t *testing.T) {
	for _, raw := range []string{`[""]`, `["", "  "]`, " , "} {
		t.Run(raw, func(t *testing.T) {
			src := validSource()
			src["FUNCTION_KEYS"] = raw

			_, err := Load(src)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}

	src := validSource()
	src["ADMIN_KEYS"] = `["", "admin-key"]`
	s, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, []Secret{"admin-key"}, s.AdminKeys)
}

func TestLoad_FileExtensions(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{`["docx", "xlsx"]`, []string{"docx", "xlsx"}},
		{"docx, .PPTX", []string{"docx", "pptx"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			src := validSource()
			src["VALID_FILE_EXTENSIONS"] = tt.raw

			s, err := Load(src)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.ValidFileExtensions)
		})
	}
}

func TestIsAllowedExtension(t *testing.T) {
	s := &Settings{ValidFileExtensions: []string{"docx"}}

	assert.True(t, s.IsAllowedExtension("report.docx"))
	assert.True(t, s.IsAllowedExtension("REPORT.DOCX"))
	assert.False(t, s.IsAllowedExtension("report.pdf"))
	assert.False(t, s.IsAllowedExtension("report"))
}

func TestSecret_DoesNotLeak(t *testing.T) {
	s := Secret("super-secret")

	assert.Equal(t, "**********", s.String())
	assert.NotContains(t, fmt.Sprintf("%v %s %#v", s, s, s), "super-secret")
	assert.Equal(t, "super-secret", s.Value())
}

func TestAccountURL_EndpointOverride(t *testing.T) {
	src := validSource()
	src["AZURE_STORAGE_BLOB_ENDPOINT"] = "http://127.0.0.1:10000/devstoreaccount1"

	s, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1/", s.AccountURL())
}

func TestLoadFromEnv_WithYAMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")
	content := "AZURE_STORAGE_ACCOUNT_NAME: fromfile\n" +
		"AZURE_STORAGE_SAS: \"" + testSAS + "\"\n" +
		"VALID_FILE_EXTENSIONS:\n  - docx\n  - xlsx\n" +
		"HTTP_PORT: 9090\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("AZURE_STORAGE_ACCOUNT_NAME", "fromenv")
	t.Setenv("FUNCTION_KEYS", "fn-key")

	s, err := LoadFromEnv()
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, "fromenv", s.StorageAccountName.Value())
	assert.Equal(t, []string{"docx", "xlsx"}, s.ValidFileExtensions)
	assert.Equal(t, 9090, s.HTTPPort)
}

func TestNewFileConfigSource_UnsupportedFormat(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(file, []byte("x = 1"), 0o600))

	_, err := NewFileConfigSource(file)
	assert.Error(t, err)
}
