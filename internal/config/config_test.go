package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultMainConfig(t *testing.T) {
	c := DefaultMainConfig()

	assert.Equal(t, 30, c.RecentTermDays)
	assert.Equal(t, "yaml", c.Ledger.Backend)
	assert.Equal(t, "./controlnumbers.yaml", c.Ledger.Path)
	assert.Equal(t, "PARTNER_ID", c.Interchange.SenderID)
	assert.Equal(t, "ZZ", c.Interchange.ReceiverQualifier)
	assert.Equal(t, "\t", c.Import.Delimiter)
	assert.Equal(t, 1, c.Import.HeaderRow)
	assert.Equal(t, 5, c.Import.DataStartRow)
	assert.Equal(t, 2, c.Import.DataStartColumn)
	assert.Equal(t, "{group}_{mode}_{timestamp}.x12", c.FilenameFormat)
	assert.Equal(t, "193200000X", c.TaxonomyCode)
	assert.NoError(t, validateMainConfig(c))
}

func TestLoadMainConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
output_dir: out
log_level: debug
recent_term_days: 45
default_effective_date: "2018-02-01"
interchange:
  sender_id: ACME
  receiver_tin: "987654321"
ledger:
  backend: sqlite
  path: ledger.db
submitter:
  organization_name: Acme Clinic
  npi: "1234567890"
import:
  delimiter: ","
`)

	c, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "out", c.OutputDir)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 45, c.RecentTermDays)
	assert.Equal(t, "ACME", c.Interchange.SenderID)
	assert.Equal(t, "RCVR_ID", c.Interchange.ReceiverID)
	assert.Equal(t, "987654321", c.Interchange.ReceiverTIN)
	assert.Equal(t, "sqlite", c.Ledger.Backend)
	assert.Equal(t, "ledger.db", c.Ledger.Path)
	assert.Equal(t, "Acme Clinic", c.Submitter.OrganizationName)
	assert.Equal(t, "non_person", c.Submitter.Type)
	assert.Equal(t, ",", c.Import.Delimiter)
	assert.Equal(t, 5, c.Import.DataStartRow)

	effective, err := c.EffectiveDateDefault()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC), effective)
}

func TestLoadMainConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"backend":            "ledger:\n  backend: redis\n",
		"log format":         "log_format: xml\n",
		"negative days":      "recent_term_days: -1\n",
		"effective date":     "default_effective_date: 02/01/2018\n",
		"sender length":      "interchange:\n  sender_id: ABCDEFGHIJKLMNOP\n",
		"data start row":     "import:\n  header_row: 3\n  data_start_row: 2\n",
		"sender delimiter":   "interchange:\n  sender_id: \"AB*CD\"\n",
		"receiver tin":       "interchange:\n  receiver_tin: \"12~34\"\n",
		"qualifier":          "interchange:\n  sender_qualifier: \"Z:Z\"\n",
		"taxonomy delimiter": "taxonomy_code: \"X*Y\"\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", content)
			_, err := LoadMainConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadImportProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_claims.yml", `
kind: claim
file_matching_patterns: ["*_claims_*.xlsx"]
`)
	writeFile(t, dir, "a_enroll.yaml", `
name: Payroll export
kind: enrollment
file_matching_patterns: ["enroll_*.csv"]
import:
  delimiter: ","
  data_start_row: 2
transformation_rules:
  - field: SSN
    actions:
      - type: extract_digits
static_fields:
  - field: EmploymentInfo.GroupID
    value: G100
`)
	writeFile(t, dir, "notes.txt", "ignored")

	defaults := DefaultMainConfig().Import
	profiles, err := LoadImportProfiles(dir, defaults)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	enroll := profiles[0]
	assert.Equal(t, "Payroll export", enroll.Name)
	assert.Equal(t, KindEnrollment, enroll.Kind)
	assert.Equal(t, ",", enroll.Import.Delimiter)
	assert.Equal(t, 1, enroll.Import.HeaderRow)
	assert.Equal(t, 2, enroll.Import.DataStartRow)
	assert.Equal(t, 2, enroll.Import.DataStartColumn)
	require.Len(t, enroll.TransformationRules, 1)
	assert.Equal(t, "extract_digits", enroll.TransformationRules[0].Actions[0].Type)
	require.Len(t, enroll.StaticFields, 1)
	assert.Equal(t, "G100", enroll.StaticFields[0].Value)

	claims := profiles[1]
	assert.Equal(t, "b_claims", claims.Name)
	assert.Equal(t, "\t", claims.Import.Delimiter)
	assert.Equal(t, 5, claims.Import.DataStartRow)

	assert.Same(t, enroll, MatchProfile(profiles, KindEnrollment, "/in/enroll_june.csv"))
	assert.Same(t, claims, MatchProfile(profiles, KindClaim, "acme_claims_06.xlsx"))
	assert.Nil(t, MatchProfile(profiles, KindClaim, "enroll_june.csv"))
}

func TestLoadImportProfilesRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "kind: eligibility\n")

	_, err := LoadImportProfiles(dir, DefaultMainConfig().Import)
	assert.Error(t, err)
}

func TestLoadImportProfilesMissingDirectory(t *testing.T) {
	profiles, err := LoadImportProfiles(filepath.Join(t.TempDir(), "none"), DefaultMainConfig().Import)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile(KindClaim, ImportSettings{Delimiter: ","})
	assert.Equal(t, "default", p.Name)
	assert.Equal(t, ",", p.Import.Delimiter)
	assert.Equal(t, 5, p.Import.DataStartRow)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	c := DefaultMainConfig()
	c.InputDir = filepath.Join(dir, "in")
	c.OutputDir = filepath.Join(dir, "out")
	c.InputArchiveDir = filepath.Join(dir, "archive")
	c.ArchiveInputs = true

	require.NoError(t, c.EnsureDirectories())
	for _, d := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
