package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Retries  int    `json:"retries"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = os.WriteFile(name, []byte(`{
		// comments are allowed
		username: "student",
		password: "default",
		retries: 3,
	}`), 0666)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := ReadConfig[testConfig](name)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, testConfig{Username: "student", Password: "default", Retries: 3}, cfg)

	err = os.WriteFile(LocalName(name), []byte(`{password: "secret"}`), 0666)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = ReadConfig[testConfig](name)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, testConfig{Username: "student", Password: "secret", Retries: 3}, cfg)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "config.local.json5", LocalName("config.json5"))
	require.Equal(t, filepath.Join("a", "b.local.json"), LocalName(filepath.Join("a", "b.json")))
}
