// =============================================================================
// EDI Generator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the import profiles
// that describe how a given source file is read.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings, trading
//      partner identifiers, the control number ledger, the claim submitter
//   2. Import Profiles (profiles/*.yaml): Per-source import rules
//
// ARCHITECTURE:
//   - Every setting has a default, so a missing main config file is not an
//     error; the CLI falls back to DefaultMainConfig()
//   - Profiles are selected by file name pattern, first match wins
//   - All configurations are validated on load
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is where import files are picked up when no --input is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is where generated .x12 files are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives import files after a successful run when
	// ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveInputs moves processed import files to InputArchiveDir.
	// Default: false
	ArchiveInputs bool `yaml:"archive_inputs"`

	// ProfilesDir holds import profile files.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. Empty logs to stderr.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// FilenameFormat defines the output file name.
	// Placeholders:
	//   {group}     - Group id; the separator that follows is dropped when empty
	//   {mode}      - TEST or PROD
	//   {type}      - 834 or 837
	//   {timestamp} - UTC timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "{group}_{mode}_{timestamp}.x12"
	FilenameFormat string `yaml:"filename_format"`

	// NewlineBetweenSegments writes one segment per line.
	// Default: false
	NewlineBetweenSegments bool `yaml:"newline_between_segments"`

	// =========================================================================
	// TRANSACTION SETTINGS
	// =========================================================================

	// RecentTermDays is how long a terminated enrollee keeps being sent.
	// Default: 30
	RecentTermDays int `yaml:"recent_term_days"`

	// DefaultEffectiveDate (YYYY-MM-DD) is applied to enrollees imported
	// without an effective date. Empty leaves them unchanged.
	DefaultEffectiveDate string `yaml:"default_effective_date"`

	// TaxonomyCode is the billing provider taxonomy on 837 PRV.
	// Default: "193200000X"
	TaxonomyCode string `yaml:"taxonomy_code"`

	// Interchange identifies the trading partners.
	Interchange InterchangeConfig `yaml:"interchange"`

	// Ledger selects the control number store.
	Ledger LedgerConfig `yaml:"ledger"`

	// Submitter is the billing provider of claim files.
	Submitter SubmitterConfig `yaml:"submitter"`

	// Import is the default import settings used when no profile matches.
	Import ImportSettings `yaml:"import"`
}

// InterchangeConfig holds the sender and receiver identifiers.
type InterchangeConfig struct {
	SenderID          string `yaml:"sender_id"`
	ReceiverID        string `yaml:"receiver_id"`
	SenderQualifier   string `yaml:"sender_qualifier"`
	ReceiverQualifier string `yaml:"receiver_qualifier"`
	SenderTIN         string `yaml:"sender_tin"`
	ReceiverTIN       string `yaml:"receiver_tin"`
}

// LedgerConfig selects the control number backend.
type LedgerConfig struct {
	// Backend is "yaml" or "sqlite".
	// Default: "yaml"
	Backend string `yaml:"backend"`

	// Path is the ledger file or database.
	// Default: "./controlnumbers.yaml"
	Path string `yaml:"path"`
}

// SubmitterConfig describes the claim submitter and billing provider.
type SubmitterConfig struct {
	// Type is "person" or "non_person".
	// Default: "non_person"
	Type             string `yaml:"type"`
	OrganizationName string `yaml:"organization_name"`
	FirstName        string `yaml:"first_name"`
	MiddleName       string `yaml:"middle_name"`
	LastName         string `yaml:"last_name"`
	NPI              string `yaml:"npi"`
	EIN              string `yaml:"ein"`
	Phone            string `yaml:"phone"`
	Email            string `yaml:"email"`
	Street           string `yaml:"street"`
	City             string `yaml:"city"`
	State            string `yaml:"state"`
	Zip              string `yaml:"zip"`
}

// =============================================================================
// IMPORT SETTINGS STRUCTURE
// =============================================================================

// ImportSettings contains settings for reading an import file.
type ImportSettings struct {
	// Delimiter separates fields in delimited text files.
	// Common values: "\t" (tab), "," (comma), "|" (pipe)
	// Default: tab
	Delimiter string `yaml:"delimiter"`

	// HeaderRow is the 1-based row holding the dotted field addresses.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// DataStartRow is the 1-based row where records begin. The import
	// templates carry three rows of guidance under the header.
	// Default: 5
	DataStartRow int `yaml:"data_start_row"`

	// DataStartColumn is the 1-based column where fields begin. Column A of
	// the templates is a row label.
	// Default: 2
	DataStartColumn int `yaml:"data_start_column"`

	// Sheet is the worksheet read from XLSX files. Empty means the first.
	Sheet string `yaml:"sheet"`
}

// =============================================================================
// IMPORT PROFILE STRUCTURE
// =============================================================================

// ImportProfile holds the rules for one kind of import file.
type ImportProfile struct {
	// Name is used in logs and error messages.
	Name string `yaml:"name"`

	// Kind is "enrollment" or "claim".
	Kind string `yaml:"kind"`

	// FileMatchingPatterns are glob patterns matched against the input file
	// name.
	// Examples:
	//   - "enroll_*.txt"
	//   - "*_claims_*.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Import overrides the main import settings for matching files.
	Import ImportSettings `yaml:"import"`

	// SchemaTemplate is an optional XLSX workbook overriding field limits.
	SchemaTemplate string `yaml:"schema_template"`

	// TransformationRules are applied to raw values before mapping.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// StaticFields are values applied to every record. A static field fills
	// a column only when the file leaves it empty.
	StaticFields []StaticField `yaml:"static_fields"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a transformation to apply to a specific field.
type TransformationRule struct {
	// Field is the dotted address of the column, e.g. "SSN" or
	// "Dependents[1].Name.Last". A "*" suffix matches every index, e.g.
	// "Dependents[*].SSN".
	Field string `yaml:"field"`

	// Actions is a list of transformations applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "prepend_string"       : Add Value to the beginning
	//   - "append_string"        : Add Value to the end
	//   - "pad_zeros_to_length"  : Pad with leading zeros to length Value
	//   - "uppercase"            : Convert to uppercase
	//   - "lowercase"            : Convert to lowercase
	//   - "trim"                 : Remove leading and trailing whitespace
	//   - "replace"              : Replace Find with Value
	//   - "regex_replace"        : Replace the Find pattern with Value
	//   - "extract_digits"       : Keep digits only
	//   - "remove_special_chars" : Keep letters and digits only
	//   - "format_date"          : Reformat "input|output" Go layouts
	//   - "lookup"               : Replace through LookupTable
	//   - "if_empty_use_default" : Use Value when empty
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is used for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// StaticField defines a field with a constant value.
type StaticField struct {
	// Field is the dotted address to fill.
	Field string `yaml:"field"`

	// Value is the constant value for this field.
	Value string `yaml:"value"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultMainConfig returns a configuration with every default applied.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.FilenameFormat == "" {
		config.FilenameFormat = "{group}_{mode}_{timestamp}.x12"
	}
	if config.RecentTermDays == 0 {
		config.RecentTermDays = 30
	}
	if config.TaxonomyCode == "" {
		config.TaxonomyCode = "193200000X"
	}

	ic := &config.Interchange
	if ic.SenderID == "" {
		ic.SenderID = "PARTNER_ID"
	}
	if ic.ReceiverID == "" {
		ic.ReceiverID = "RCVR_ID"
	}
	if ic.SenderQualifier == "" {
		ic.SenderQualifier = "ZZ"
	}
	if ic.ReceiverQualifier == "" {
		ic.ReceiverQualifier = "ZZ"
	}
	if ic.SenderTIN == "" {
		ic.SenderTIN = "SENDER_TIN"
	}
	if ic.ReceiverTIN == "" {
		ic.ReceiverTIN = "RCVR_TIN"
	}

	if config.Ledger.Backend == "" {
		config.Ledger.Backend = "yaml"
	}
	if config.Ledger.Path == "" {
		config.Ledger.Path = "./controlnumbers.yaml"
	}

	if config.Submitter.Type == "" {
		config.Submitter.Type = "non_person"
	}

	applyImportDefaults(&config.Import)
}

// applyImportDefaults fills unset import settings.
func applyImportDefaults(settings *ImportSettings) {
	if settings.Delimiter == "" {
		settings.Delimiter = "\t"
	}
	if settings.HeaderRow == 0 {
		settings.HeaderRow = 1
	}
	if settings.DataStartRow == 0 {
		settings.DataStartRow = 5
	}
	if settings.DataStartColumn == 0 {
		settings.DataStartColumn = 2
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.Ledger.Backend) {
	case "yaml", "sqlite":
	default:
		return fmt.Errorf("ledger.backend must be yaml or sqlite, got %q", config.Ledger.Backend)
	}

	switch strings.ToLower(config.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", config.LogFormat)
	}

	if config.RecentTermDays < 0 {
		return fmt.Errorf("recent_term_days must not be negative")
	}

	if _, err := config.EffectiveDateDefault(); err != nil {
		return err
	}

	if len(config.Interchange.SenderID) > 15 || len(config.Interchange.ReceiverID) > 15 {
		return fmt.Errorf("interchange sender_id and receiver_id must be at most 15 characters")
	}

	if err := validateSegmentValues(config); err != nil {
		return err
	}

	if err := validateImportSettings(config.Import); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	return nil
}

// validateSegmentValues rejects settings that are written into segments
// verbatim and contain an X12 delimiter.
func validateSegmentValues(config *MainConfig) error {
	delims := x12.DefaultDelimiters()
	values := []struct{ name, value string }{
		{"interchange.sender_id", config.Interchange.SenderID},
		{"interchange.receiver_id", config.Interchange.ReceiverID},
		{"interchange.sender_qualifier", config.Interchange.SenderQualifier},
		{"interchange.receiver_qualifier", config.Interchange.ReceiverQualifier},
		{"interchange.sender_tin", config.Interchange.SenderTIN},
		{"interchange.receiver_tin", config.Interchange.ReceiverTIN},
		{"taxonomy_code", config.TaxonomyCode},
	}
	for _, v := range values {
		if delims.Conflicts(v.value) {
			return fmt.Errorf("%s %q contains an X12 delimiter", v.name, v.value)
		}
	}
	return nil
}

func validateImportSettings(settings ImportSettings) error {
	if settings.HeaderRow < 1 {
		return fmt.Errorf("header_row must be at least 1")
	}
	if settings.DataStartRow <= settings.HeaderRow {
		return fmt.Errorf("data_start_row (%d) must come after header_row (%d)", settings.DataStartRow, settings.HeaderRow)
	}
	if settings.DataStartColumn < 1 {
		return fmt.Errorf("data_start_column must be at least 1")
	}
	return nil
}

// EffectiveDateDefault parses DefaultEffectiveDate. The zero time means no
// default is configured.
func (c *MainConfig) EffectiveDateDefault() (time.Time, error) {
	if c.DefaultEffectiveDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", c.DefaultEffectiveDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("default_effective_date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// EnsureDirectories creates the working directories if they are missing.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{c.InputDir, c.OutputDir}
	if c.ArchiveInputs {
		dirs = append(dirs, c.InputArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// IMPORT PROFILE LOADING
// =============================================================================

// LoadImportProfiles loads all profiles from a directory. A missing
// directory yields no profiles.
//
// PARAMETERS:
//   - profilesDir: The directory containing profile files.
//   - defaults: Import settings inherited by every profile.
//
// RETURNS:
//   - Profiles sorted by file name.
//   - An error if any file cannot be parsed or is invalid.
func LoadImportProfiles(profilesDir string, defaults ImportSettings) ([]*ImportProfile, error) {
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	profiles := make([]*ImportProfile, 0, len(files))
	for _, file := range files {
		profile, err := loadImportProfile(file, defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// loadImportProfile loads a single profile file.
func loadImportProfile(filePath string, defaults ImportSettings) (*ImportProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile ImportProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	applyProfileDefaults(&profile, defaults)

	switch profile.Kind {
	case KindEnrollment, KindClaim:
	default:
		return nil, fmt.Errorf("kind must be %q or %q, got %q", KindEnrollment, KindClaim, profile.Kind)
	}
	if err := validateImportSettings(profile.Import); err != nil {
		return nil, err
	}

	return &profile, nil
}

// Profile kinds.
const (
	KindEnrollment = "enrollment"
	KindClaim      = "claim"
)

// applyProfileDefaults inherits unset import settings from defaults.
func applyProfileDefaults(profile *ImportProfile, defaults ImportSettings) {
	s := &profile.Import
	if s.Delimiter == "" {
		s.Delimiter = defaults.Delimiter
	}
	if s.HeaderRow == 0 {
		s.HeaderRow = defaults.HeaderRow
	}
	if s.DataStartRow == 0 {
		s.DataStartRow = defaults.DataStartRow
	}
	if s.DataStartColumn == 0 {
		s.DataStartColumn = defaults.DataStartColumn
	}
	if s.Sheet == "" {
		s.Sheet = defaults.Sheet
	}
	applyImportDefaults(s)
}

// MatchProfile returns the first profile of kind whose patterns match the
// base name of file, or nil.
func MatchProfile(profiles []*ImportProfile, kind, file string) *ImportProfile {
	name := filepath.Base(file)
	for _, p := range profiles {
		if p.Kind != kind {
			continue
		}
		for _, pattern := range p.FileMatchingPatterns {
			if ok, _ := filepath.Match(pattern, name); ok {
				return p
			}
		}
	}
	return nil
}

// DefaultProfile is used for files no profile claims.
func DefaultProfile(kind string, settings ImportSettings) *ImportProfile {
	profile := &ImportProfile{Name: "default", Kind: kind, Import: settings}
	applyImportDefaults(&profile.Import)
	return profile
}
