// =============================================================================
// EDI Generator - Entity Source
// =============================================================================
//
// This module turns an import file into domain aggregates. It is the only
// way records enter the generator.
//
// IMPORT PIPELINE:
//   1. Pick the import profile for the file (or the default profile)
//   2. Read the file (.xlsx through excelize, anything else as delimited text)
//   3. Fill static fields, then apply transformation rules
//   4. Validate every row against the field rules
//   5. Map rows onto enrollees or claims
//
// A file with any validation error yields no records.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/csvparser"
	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/validation"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
	"github.com/ginjaninja78/edi-enrollment/internal/xlsxparser"
)

// ErrInvalidImport is returned when an import file fails validation. The
// accompanying Import carries the individual errors.
var ErrInvalidImport = errors.New("import file failed validation")

// ErrNoEffectiveDate is the cause recorded for an enrollee without an
// effective date when no default_effective_date is configured.
var ErrNoEffectiveDate = errors.New("no effective date and no default_effective_date configured")

// =============================================================================
// SOURCE STRUCTURE
// =============================================================================

// Source loads import files.
type Source struct {
	// Profiles are matched against the file name; see config.MatchProfile.
	Profiles []*config.ImportProfile

	// Defaults are the import settings of files no profile claims.
	Defaults config.ImportSettings

	// Delimiters are the separators values may not contain.
	Delimiters x12.Delimiters

	// EffectiveDate is given to enrollees without one. Zero leaves them
	// empty.
	EffectiveDate time.Time

	// Now supplies the default DateSigned.
	Now func() time.Time

	Logger logrus.FieldLogger
}

// NewSource creates a Source from the main configuration.
func NewSource(cfg *config.MainConfig, profiles []*config.ImportProfile, logger logrus.FieldLogger) (*Source, error) {
	effective, err := cfg.EffectiveDateDefault()
	if err != nil {
		return nil, err
	}
	return &Source{
		Profiles:      profiles,
		Defaults:      cfg.Import,
		Delimiters:    x12.DefaultDelimiters(),
		EffectiveDate: effective,
		Now:           time.Now,
		Logger:        logger,
	}, nil
}

// Import is a loaded file.
type Import[T any] struct {
	// File is the path that was read.
	File string

	// Profile is the name of the profile applied.
	Profile string

	// Records are the mapped aggregates in row order.
	Records []T

	// Validation holds every rejected value. It is never nil.
	Validation *validation.ValidationResult
}

// =============================================================================
// LOADING
// =============================================================================

// LoadEnrollees reads an enrollment import file.
//
// RETURNS:
//   - The import. On ErrInvalidImport it carries the validation errors and
//     no records.
//   - An error if the file cannot be read or fails validation.
func (s *Source) LoadEnrollees(path string) (*Import[domain.Enrollee], error) {
	table, imp, err := load[domain.Enrollee](s, path, config.KindEnrollment, validation.EnrollmentRules())
	if err != nil {
		return imp, err
	}

	today := domain.Date(s.now())
	for _, row := range table.Rows {
		e, err := MapEnrollee(row)
		if err != nil {
			return reject(imp, err)
		}
		if e.EffectiveDate.IsZero() {
			e.EffectiveDate = s.EffectiveDate
		}
		if e.EffectiveDate.IsZero() {
			return reject(imp, &FieldError{Row: row.Number, Field: "EffectiveDate", Rule: "required", Err: ErrNoEffectiveDate})
		}
		if e.DateSigned.IsZero() {
			e.DateSigned = today
		}
		imp.Records = append(imp.Records, e)
	}

	s.logger().WithFields(logrus.Fields{"file": filepath.Base(path), "enrollees": len(imp.Records)}).
		Info("Loaded enrollment import")
	return imp, nil
}

// LoadClaims reads a claim import file.
func (s *Source) LoadClaims(path string) (*Import[domain.Claim], error) {
	table, imp, err := load[domain.Claim](s, path, config.KindClaim, validation.ClaimRules())
	if err != nil {
		return imp, err
	}

	for _, row := range table.Rows {
		c, err := MapClaim(row)
		if err != nil {
			return reject(imp, err)
		}
		imp.Records = append(imp.Records, c)
	}

	s.logger().WithFields(logrus.Fields{"file": filepath.Base(path), "claims": len(imp.Records)}).
		Info("Loaded claim import")
	return imp, nil
}

// load runs every step up to mapping.
func load[T any](s *Source, path, kind string, rules validation.Rules) (*csvparser.Table, *Import[T], error) {
	profile := config.MatchProfile(s.Profiles, kind, path)
	if profile == nil {
		profile = config.DefaultProfile(kind, s.Defaults)
	}
	imp := &Import[T]{
		File:       path,
		Profile:    profile.Name,
		Validation: &validation.ValidationResult{IsValid: true},
	}
	logger := s.logger().WithFields(logrus.Fields{"file": filepath.Base(path), "profile": profile.Name})

	table, err := readTable(path, profile.Import)
	if err != nil {
		return nil, imp, err
	}
	logger.Debugf("Read %d rows", len(table.Rows))

	for _, field := range UnknownFields(kind, table.Headers) {
		logger.WithField("field", field).Warn("Ignoring unknown column")
	}

	transformer := NewTransformer(profile.TransformationRules)
	for i := range table.Rows {
		ApplyStaticFields(&table.Rows[i], profile.StaticFields)
		if err := transformer.TransformRow(&table.Rows[i]); err != nil {
			return nil, imp, fmt.Errorf("failed to apply transformations: %w", err)
		}
	}

	if profile.SchemaTemplate != "" {
		schema, err := xlsxparser.ParseSchema(profile.SchemaTemplate)
		if err != nil {
			return nil, imp, fmt.Errorf("failed to parse schema template: %w", err)
		}
		rules = rules.Merge(schema)
	}

	options := validation.DefaultValidationOptions()
	options.Delimiters = s.Delimiters
	imp.Validation = validation.NewValidatorWithOptions(rules, options).ValidateTable(table)
	for _, ve := range imp.Validation.Errors {
		logger.WithField("row", ve.RowNumber).Warn(ve.Error())
	}
	if !imp.Validation.IsValid {
		return nil, imp, fmt.Errorf("%s: %w (%d errors)", filepath.Base(path), ErrInvalidImport, imp.Validation.ErrorCount)
	}

	return table, imp, nil
}

// reject records a mapping failure as a validation error.
func reject[T any](imp *Import[T], err error) (*Import[T], error) {
	var fe *FieldError
	if !errors.As(err, &fe) {
		return imp, err
	}
	rule := fe.Rule
	if rule == "" {
		rule = "mapping"
	}
	imp.Records = nil
	imp.Validation.IsValid = false
	imp.Validation.ErrorCount++
	imp.Validation.Errors = append(imp.Validation.Errors, &validation.ValidationError{
		Severity:  validation.SeverityError,
		Field:     fe.Field,
		Value:     fe.Value,
		Rule:      rule,
		Message:   fe.Err.Error(),
		RowNumber: fe.Row,
	})
	return imp, fmt.Errorf("%s: %w (%v)", filepath.Base(imp.File), ErrInvalidImport, err)
}

// readTable dispatches on the file extension.
func readTable(path string, settings config.ImportSettings) (*csvparser.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return xlsxparser.Parse(path, settings)
	}
	return csvparser.Parse(path, settings)
}

func (s *Source) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Source) logger() logrus.FieldLogger {
	if s.Logger == nil {
		l := logrus.New()
		l.SetOutput(nopWriter{})
		return l
	}
	return s.Logger
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
