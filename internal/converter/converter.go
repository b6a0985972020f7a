// =============================================================================
// EDI Generator - Converter Module
// =============================================================================
//
// This module runs a generation job from import files to interchange files.
//
// ENROLLMENT PIPELINE (834):
//   1. Load the import file through the Source
//   2. Open the control number ledger
//   3. Assemble one interchange per group (--split-groups) and/or a combined
//      interchange
//   4. Write each interchange to the output directory
//   5. Archive the import file
//
// CLAIM PIPELINE (837):
//   Same steps, with one interchange per import file billed by the
//   configured submitter.
//
// CONCURRENCY:
//   Files are processed one at a time. The ledger is single-writer and every
//   assembly issues numbers from it, so there is nothing to parallelise.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/edi-enrollment/internal/assembler"
	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/domain"
	"github.com/ginjaninja78/edi-enrollment/internal/ledger"
	"github.com/ginjaninja78/edi-enrollment/internal/validation"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
	"github.com/ginjaninja78/edi-enrollment/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single import file.
type Result struct {
	// FilePath is the path to the import file that was processed.
	FilePath string

	// OutputFiles are the interchange files written, in write order. On a
	// dry run they are the names that would have been written.
	OutputFiles []string

	// ErrorLog is the path of the error log written for a rejected file.
	ErrorLog string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of import rows mapped to records.
	RowsProcessed int

	// Interchanges is the number of interchanges assembled.
	Interchanges int

	// Included and Excluded count the records encoded and filtered out
	// across every interchange of the file.
	Included int
	Excluded int

	// Segments is the total segment count across interchanges.
	Segments int

	// ValidationErrors is the number of rejected values.
	ValidationErrors int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// RUN PARAMETERS
// =============================================================================

// EnrollmentRun are the per-run options of an enrollment job.
type EnrollmentRun struct {
	Mode x12.Mode

	// GroupID restricts the run to one group. Input with other groups fails.
	GroupID string

	// SplitGroups writes one single-group interchange per group id.
	SplitGroups bool

	// Combined also writes an all-groups interchange when SplitGroups is set.
	Combined bool

	IncludeDependents    bool
	IncludeBeneficiaries bool

	// DryRun assembles against a copy of the ledger and writes nothing.
	DryRun bool
}

// ClaimRun are the per-run options of a claim job.
type ClaimRun struct {
	Mode   x12.Mode
	DryRun bool
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs generation jobs.
type Converter struct {
	cfg    *config.MainConfig
	source *Source
	files  *utils.FileManager
	logger logrus.FieldLogger
	now    func() time.Time
}

// New creates a new Converter.
//
// PARAMETERS:
//   - cfg: The main application configuration.
//   - source: Loads import files.
//   - logger: Receives progress and errors.
//
// RETURNS:
//   - A new Converter instance.
func New(cfg *config.MainConfig, source *Source, logger logrus.FieldLogger) *Converter {
	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir)
	files.ArchiveOnSuccess = cfg.ArchiveInputs
	files.UseTimestampSubdirs = true

	if logger == nil {
		logger = source.logger()
	}
	return &Converter{
		cfg:    cfg,
		source: source,
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces time.Now for assembly, file naming and archiving.
func (c *Converter) SetClock(now func() time.Time) {
	c.now = now
	c.files.Now = now
	c.source.Now = now
}

// DiscoverInputs returns the files in the input directory, or paths when any
// are given.
func (c *Converter) DiscoverInputs(paths []string) ([]string, error) {
	if len(paths) > 0 {
		return paths, nil
	}
	return c.files.DiscoverInputFiles("*")
}

// =============================================================================
// ENROLLMENT
// =============================================================================

// Enroll generates 834 interchanges for every input file.
//
// RETURNS:
//   - One result per input file.
//   - An error if the ledger cannot be opened. File failures are reported
//     in the results, not here.
func (c *Converter) Enroll(inputs []string, run EnrollmentRun) ([]Result, error) {
	book, closeLedger, err := c.openLedger(run.DryRun)
	if err != nil {
		return nil, err
	}
	defer closeLedger()

	results := make([]Result, 0, len(inputs))
	for _, input := range inputs {
		result := c.enrollFile(book, input, run)
		c.logResult(result)
		results = append(results, result)
	}
	return results, nil
}

func (c *Converter) enrollFile(book *ledger.Ledger, input string, run EnrollmentRun) (result Result) {
	startTime := time.Now()
	result.FilePath = input
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	imp, err := c.source.LoadEnrollees(input)
	if err != nil {
		return c.fail(result, imp.Validation, err)
	}
	result.Stats.RowsProcessed = len(imp.Records)

	opts := assembler.EnrollmentOptions{
		Mode:                 run.Mode,
		GroupID:              run.GroupID,
		IncludeDependents:    run.IncludeDependents,
		IncludeBeneficiaries: run.IncludeBeneficiaries,
		RecentTermDays:       c.cfg.RecentTermDays,
		Newline:              c.cfg.NewlineBetweenSegments,
	}

	type job struct {
		group     string
		enrollees []domain.Enrollee
	}
	var jobs []job
	if run.SplitGroups && run.GroupID == "" {
		for _, g := range groupEnrollees(imp.Records) {
			jobs = append(jobs, job{group: g.id, enrollees: g.enrollees})
		}
		if run.Combined {
			jobs = append(jobs, job{enrollees: imp.Records})
		}
	} else {
		jobs = append(jobs, job{group: run.GroupID, enrollees: imp.Records})
	}

	// Every interchange is assembled before any is written, so a failed
	// group leaves no partial set of files behind.
	built := make([]*assembler.Result, 0, len(jobs))
	for _, j := range jobs {
		opts.GroupID = j.group
		a := assembler.NewEnrollmentAssembler(book, c.interchange(), opts,
			assembler.WithClock(c.now),
			assembler.WithLogger(c.logger.WithField("file", filepath.Base(input))))

		res, err := a.Build(j.enrollees)
		if err != nil {
			return c.fail(result, nil, fmt.Errorf("failed to assemble 834 for group %q: %w", j.group, err))
		}
		built = append(built, res)
	}

	for i, res := range built {
		c.tally(&result, res)

		path, err := c.write(res.Text, jobs[i].group, run.Mode, "834", run.DryRun)
		if err != nil {
			return c.fail(result, nil, err)
		}
		result.OutputFiles = append(result.OutputFiles, path)
	}

	return c.finish(result, run.DryRun)
}

type group struct {
	id        string
	enrollees []domain.Enrollee
}

// groupEnrollees partitions enrollees by group id in first-seen order.
func groupEnrollees(enrollees []domain.Enrollee) []group {
	index := make(map[string]int)
	var groups []group
	for _, e := range enrollees {
		id := e.GroupID()
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, group{id: id})
		}
		groups[i].enrollees = append(groups[i].enrollees, e)
	}
	return groups
}

// =============================================================================
// CLAIMS
// =============================================================================

// Claim generates one 837 interchange per input file.
func (c *Converter) Claim(inputs []string, run ClaimRun) ([]Result, error) {
	submitter, err := SubmitterFromConfig(c.cfg.Submitter)
	if err != nil {
		return nil, err
	}

	book, closeLedger, err := c.openLedger(run.DryRun)
	if err != nil {
		return nil, err
	}
	defer closeLedger()

	results := make([]Result, 0, len(inputs))
	for _, input := range inputs {
		result := c.claimFile(book, input, submitter, run)
		c.logResult(result)
		results = append(results, result)
	}
	return results, nil
}

func (c *Converter) claimFile(book *ledger.Ledger, input string, submitter domain.Submitter, run ClaimRun) (result Result) {
	startTime := time.Now()
	result.FilePath = input
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	imp, err := c.source.LoadClaims(input)
	if err != nil {
		return c.fail(result, imp.Validation, err)
	}
	result.Stats.RowsProcessed = len(imp.Records)

	a := assembler.NewClaimAssembler(book, c.interchange(), assembler.ClaimOptions{
		Mode:         run.Mode,
		TaxonomyCode: c.cfg.TaxonomyCode,
		Newline:      c.cfg.NewlineBetweenSegments,
	}, assembler.WithClock(c.now), assembler.WithLogger(c.logger.WithField("file", filepath.Base(input))))

	res, err := a.Build(imp.Records, submitter)
	if err != nil {
		return c.fail(result, nil, fmt.Errorf("failed to assemble 837: %w", err))
	}
	c.tally(&result, res)

	path, err := c.write(res.Text, "", run.Mode, "837", run.DryRun)
	if err != nil {
		return c.fail(result, nil, err)
	}
	result.OutputFiles = append(result.OutputFiles, path)

	return c.finish(result, run.DryRun)
}

// =============================================================================
// CONFIGURATION MAPPING
// =============================================================================

// InterchangeFromConfig converts the interchange section of the config.
func InterchangeFromConfig(ic config.InterchangeConfig) assembler.Interchange {
	return assembler.Interchange{
		SenderID:          ic.SenderID,
		ReceiverID:        ic.ReceiverID,
		SenderQualifier:   ic.SenderQualifier,
		ReceiverQualifier: ic.ReceiverQualifier,
		SenderTIN:         ic.SenderTIN,
		ReceiverTIN:       ic.ReceiverTIN,
	}
}

// SubmitterFromConfig converts the submitter section of the config.
func SubmitterFromConfig(sc config.SubmitterConfig) (domain.Submitter, error) {
	entity, err := domain.ParseEntityType(sc.Type)
	if err != nil {
		return domain.Submitter{}, fmt.Errorf("submitter: %w", err)
	}
	s := domain.Submitter{
		Person: domain.Person{
			Name:  domain.PersonName{First: sc.FirstName, Middle: sc.MiddleName, Last: sc.LastName},
			Phone: sc.Phone,
			Email: sc.Email,
			Address: domain.Address{
				Street: sc.Street,
				City:   sc.City,
				State:  sc.State,
				Zip:    sc.Zip,
			},
		},
		Type:             entity,
		OrganizationName: sc.OrganizationName,
		NPINumber:        sc.NPI,
		EIN:              sc.EIN,
	}

	delims := x12.DefaultDelimiters()
	for field, value := range map[string]string{
		"organization_name": sc.OrganizationName, "first_name": sc.FirstName, "last_name": sc.LastName,
		"npi": sc.NPI, "ein": sc.EIN, "street": sc.Street, "city": sc.City, "email": sc.Email,
	} {
		if delims.Conflicts(value) {
			return domain.Submitter{}, fmt.Errorf("submitter %s %q contains an X12 delimiter", field, value)
		}
	}
	return s, nil
}

func (c *Converter) interchange() assembler.Interchange {
	return InterchangeFromConfig(c.cfg.Interchange)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openLedger opens the configured store. A dry run copies the stored values
// into memory so nothing is persisted.
func (c *Converter) openLedger(dryRun bool) (*ledger.Ledger, func() error, error) {
	store, closeStore, err := ledger.OpenStore(c.cfg.Ledger.Backend, c.cfg.Ledger.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if dryRun {
		values, err := store.Load()
		closeStore()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		store, closeStore = ledger.NewMemoryStore(values), func() error { return nil }
	}

	book, err := ledger.New(store, ledger.WithLogger(c.logger))
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return book, closeStore, nil
}

func (c *Converter) tally(result *Result, res *assembler.Result) {
	result.Stats.Interchanges++
	result.Stats.Included += res.Included
	result.Stats.Excluded += res.Excluded
	result.Stats.Segments += len(res.Segments)
}

// write stores one interchange. The name never collides with an existing
// file: a numeric suffix is added instead.
func (c *Converter) write(text, group string, mode x12.Mode, transaction string, dryRun bool) (string, error) {
	name := utils.GenerateOutputFileName(c.cfg.FilenameFormat, map[string]string{
		"group": group,
		"mode":  mode.Keyword(),
		"type":  transaction,
	}, c.now())
	name = c.uniqueName(name)

	if dryRun {
		c.logger.WithField("output", name).Debugf("Dry run, not writing:\n%s", text)
		return filepath.Join(c.cfg.OutputDir, name), nil
	}

	path, err := c.files.WriteOutputFile(name, text)
	if err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return path, nil
}

func (c *Converter) uniqueName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(c.cfg.OutputDir, candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = base + "_" + strconv.Itoa(n) + ext
	}
}

// fail marks the result failed and writes an error log when validation
// rejected the file.
func (c *Converter) fail(result Result, rejected *validation.ValidationResult, err error) Result {
	result.Success = false
	result.Error = err

	if rejected == nil || len(rejected.Errors) == 0 {
		return result
	}
	result.Stats.ValidationErrors = rejected.ErrorCount

	entries := make([]utils.ErrorLogEntry, 0, len(rejected.Errors))
	for _, ve := range rejected.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			FileName:     filepath.Base(result.FilePath),
			ErrorType:    ve.Rule,
			ErrorMessage: ve.Message,
			RowNumber:    ve.RowNumber,
			FieldName:    ve.Field,
			FieldValue:   ve.Value,
		})
	}
	logPath, logErr := utils.WriteErrorLog(entries, c.cfg.OutputDir, c.now())
	if logErr != nil {
		c.logger.WithError(logErr).Error("Failed to write error log")
		return result
	}
	result.ErrorLog = logPath
	return result
}

// finish archives the input of a successful, non-dry run.
func (c *Converter) finish(result Result, dryRun bool) Result {
	result.Success = true
	if dryRun {
		return result
	}

	archived, err := c.files.ArchiveInputFile(result.FilePath)
	if err != nil {
		// The interchange is already written; a failed archive only leaves
		// the input in place.
		c.logger.WithError(err).WithField("file", result.FilePath).Warn("Failed to archive input file")
		return result
	}
	if archived != result.FilePath {
		c.logger.WithField("archive", archived).Debug("Archived input file")
	}
	return result
}

func (c *Converter) logResult(result Result) {
	entry := c.logger.WithFields(logrus.Fields{
		"file":         filepath.Base(result.FilePath),
		"rows":         result.Stats.RowsProcessed,
		"interchanges": result.Stats.Interchanges,
		"segments":     result.Stats.Segments,
		"elapsed":      result.Stats.ProcessingTime,
	})
	if result.Success {
		entry.WithField("outputs", result.OutputFiles).Info("Processed file")
		return
	}
	if result.ErrorLog != "" {
		entry = entry.WithField("error_log", result.ErrorLog)
	}
	entry.WithError(result.Error).Error("Failed to process file")
}
