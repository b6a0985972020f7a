// =============================================================================
// EDI Generator - File Manager Utility
// =============================================================================
//
// This module provides utilities for managing files and directories,
// including:
//   - Output file naming
//   - Writing interchange files without leaving partial output behind
//   - Archiving processed import files
//   - Error logs for rejected imports
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the generator.
type FileManager struct {
	// InputDir is the directory import files are read from.
	InputDir string

	// OutputDir is the directory interchange files are written to.
	OutputDir string

	// InputArchiveDir is the directory processed import files move to.
	InputArchiveDir string

	// UseTimestampSubdirs archives into YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool

	// ArchiveOnSuccess enables ArchiveInputFile.
	ArchiveOnSuccess bool

	// Now is the clock used for archive subdirectories.
	Now func() time.Time
}

// NewFileManager creates a new FileManager instance.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		ArchiveOnSuccess: true,
		Now:              time.Now,
	}
}

// EnsureDirectories creates the output directory and, when archiving is
// enabled, the archive directory.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.OutputDir}
	if fm.ArchiveOnSuccess {
		dirs = append(dirs, fm.InputArchiveDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DiscoverInputFiles returns the regular files in InputDir matching pattern.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			result = append(result, file)
		}
	}

	return result, nil
}

// WriteOutputFile writes content to OutputDir/fileName. The content lands in
// a temporary file first and is renamed into place, so a failed write never
// leaves a truncated interchange behind.
//
// RETURNS:
//   - The path of the written file.
//   - An error if the file already exists or cannot be written.
func (fm *FileManager) WriteOutputFile(fileName, content string) (string, error) {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(fm.OutputDir, fileName)
	if _, err := os.Stat(outputPath); err == nil {
		return "", fmt.Errorf("output file already exists: %s", outputPath)
	}

	tmp, err := os.CreateTemp(fm.OutputDir, "."+fileName+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.WriteString(tmp, content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return "", fmt.Errorf("failed to move output file into place: %w", err)
	}

	return outputPath, nil
}

// ArchiveInputFile moves a processed import file into InputArchiveDir.
//
// RETURNS:
//   - The archive path, or filePath unchanged when archiving is disabled.
//   - An error if the move fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across filesystems; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.now()
		return filepath.Join(archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(archiveDir, fileName)
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// =============================================================================
// FILE NAMING
// =============================================================================

var emptyPlaceholder = regexp.MustCompile(`\{group\}[_\-.]?`)

// GenerateOutputFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format, e.g. "{group}_{mode}_{timestamp}.x12".
//   - params: Placeholder values; "group", "mode" and "type" are expected.
//   - now: The run time. The timestamp is rendered in UTC.
//
// RETURNS:
//   - The file name. An empty group drops the placeholder and the separator
//     after it; ".x12" is appended when the format has no extension.
func GenerateOutputFileName(format string, params map[string]string, now time.Time) string {
	now = now.UTC()

	result := format
	if params["group"] == "" {
		result = emptyPlaceholder.ReplaceAllString(result, "")
	}

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeFileName(value)
	}

	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if filepath.Ext(result) == "" {
		result += ".x12"
	}

	return result
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._\-]`)

// sanitizeFileName replaces characters that are not safe in file names.
func sanitizeFileName(s string) string {
	return unsafeFileChars.ReplaceAllString(s, "_")
}

// =============================================================================
// ERROR LOGGING
// =============================================================================

// ErrorLogEntry represents a single rejected value.
type ErrorLogEntry struct {
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes rejected values to error_log_{timestamp}.txt in
// outputDir.
//
// RETURNS:
//   - The path to the error log, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", now.UTC().Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "EDI Generator - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		now.UTC().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1, entry.FileName, entry.ErrorType, entry.ErrorMessage)
		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}
