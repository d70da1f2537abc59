package ux

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestNewFormatterUnknownFormat(t *testing.T) {
	_, err := NewFormatter("xml", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(sample{Name: "wave", Count: 2}))

	var out sample
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, sample{Name: "wave", Count: 2}, out)
	// Default output is indented.
	assert.Contains(t, buf.String(), "\n  ")
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, err)

	require.NoError(t, f.Format(sample{Name: "wave", Count: 2}))
	assert.NotContains(t, buf.String(), "\n  ")
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(sample{Name: "wave", Count: 2}))

	var out sample
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, sample{Name: "wave", Count: 2}, out)
}

func TestTextFormatterString(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format("plan written"))
	assert.Equal(t, "plan written\n", buf.String())
}

func TestTextFormatterRejectsNonStringer(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	assert.Error(t, f.Format(sample{}))
}

func TestPathDefaults(t *testing.T) {
	pd := NewPathDefaults("proj")

	assert.Equal(t, "proj/tasks.md", pd.TasksFile())
	assert.Equal(t, "proj/execution_plan.json", pd.PlanFile())
	assert.Equal(t, "proj/wavectl.yml", pd.ConfigFile())
	assert.Equal(t, "proj/.wavectl/verify", pd.VerifyDir())
	assert.Equal(t, "proj/.wavectl/progress.md", pd.ProgressFile())
}

func TestPathDefaultsEmptyBase(t *testing.T) {
	pd := NewPathDefaults("")

	assert.Equal(t, "tasks.md", pd.TasksFile())
}
