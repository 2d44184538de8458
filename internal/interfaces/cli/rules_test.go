package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescope/placescope/pkg/errors"
)

func writeRulesDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insights.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRulesLint_CleanDocument(t *testing.T) {
	path := writeRulesDoc(t, `{
		"top_rated": {
			"label": "Top rated",
			"order": 1,
			"filter": "p.rating >= 4.5 && p.reviews >= 100",
			"sort": "desc:rating",
			"heat": "p.trust_score || 0.5"
		},
		"hidden_gems": {
			"label": "Hidden gems",
			"order": 2,
			"filter": "p.trust >= 0.7",
			"sort": "desc:trust"
		}
	}`)

	out, err := execute(t, "rules", "lint", path)
	require.NoError(t, err)

	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "top_rated")
	assert.Contains(t, out, "hidden_gems")
	assert.Contains(t, out, "desc:rating")
	assert.Contains(t, out, "2 rules, 0 degraded")
}

func TestRulesLint_DegradedRulesFailTheRun(t *testing.T) {
	path := writeRulesDoc(t, `{
		"broken": {
			"label": "Broken",
			"filter": "category == 'museum'",
			"sort": "sideways:rating"
		}
	}`)

	out, err := execute(t, "rules", "lint", path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleDocument))
	assert.Contains(t, err.Error(), "1 of 1 rules degraded")

	// The report is printed before the run is failed.
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "predicate, sort")
}

func TestRulesLint_MalformedDocument(t *testing.T) {
	path := writeRulesDoc(t, `not a json object`)

	_, err := execute(t, "rules", "lint", path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRuleDocument))
}

func TestRulesLint_MissingFile(t *testing.T) {
	_, err := execute(t, "rules", "lint", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamRequest))
}

func TestRulesLint_NoSourceConfigured(t *testing.T) {
	_, err := execute(t, "rules", "lint")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	assert.Contains(t, err.Error(), "no insight source")
}
