package store

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"

	apperrors "msecli/internal/errors"
	"msecli/pkg/contracts/domain"
)

// WriteIssuerCodes replaces the issuer-codes file with codes
func WriteIssuerCodes(path string, codes []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create issuer directory", err).WithContext("path", path)
	}

	// write beside the target and rename so a failed write keeps the old list
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return apperrors.NewStorageError("create issuer codes", err).WithContext("path", path)
	}

	writer := csv.NewWriter(file)
	err = writer.Write(domain.IssuerCodesHeader)
	for _, code := range codes {
		if err != nil {
			break
		}
		err = writer.Write([]string{code})
	}
	writer.Flush()
	if err == nil {
		err = writer.Error()
	}
	if err == nil {
		err = file.Sync()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return apperrors.NewStorageError("write issuer codes", err).WithContext("path", path)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorageError("replace issuer codes", err).WithContext("path", path)
	}
	return nil
}

// ReadIssuerCodes returns the codes listed after the header.
// Blank lines are ignored.
func ReadIssuerCodes(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewNotFoundError("issuer codes file").WithContext("path", path)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("open issuer codes", err).WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewStorageError("read issuer codes", err).WithContext("path", path)
	}

	var codes []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if code := strings.TrimSpace(row[0]); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}
