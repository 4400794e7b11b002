// Package export writes harvested data to spreadsheets and CSV files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/leadharvest/internal/domain"
)

// SheetName is the worksheet candidates are written to.
const SheetName = "Leads"

// CandidateHeader is the column order of candidate spreadsheets.
var CandidateHeader = []string{"Name", "ID", "URL"}

// WriteCandidates writes cs to an XLSX file at path, replacing it. When
// withSent is true a fourth "Sent" column is added.
func WriteCandidates(path string, cs []domain.Candidate, withSent bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()
	xl.SetSheetName(xl.GetSheetName(0), SheetName)

	header := append([]string(nil), CandidateHeader...)
	if withSent {
		header = append(header, "Sent")
	}
	if err := xl.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for ri := range cs {
		c := &cs[ri]
		url := c.ProfileURL
		if url == "" {
			url = domain.ProfileURL(c.ID)
		}
		record := []interface{}{c.FullName(), c.ID, url}
		if withSent {
			sent := "no"
			if c.Contacted {
				sent = "yes"
			}
			record = append(record, sent)
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		if err := xl.SetSheetRow(SheetName, cellRef, &record); err != nil {
			return fmt.Errorf("write row %d: %w", ri+2, err)
		}
	}

	if err := xl.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// ReadCandidateIDs returns the ID column of a spreadsheet written by
// WriteCandidates. Rows with a non-numeric id are skipped.
func ReadCandidateIDs(path string) ([]int64, error) {
	xl, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var ids []int64
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GroupFileName names the per-group export: leads_<niche>_<group>.xlsx.
func GroupFileName(niche string, groupID int64) string {
	return fmt.Sprintf("leads_%s_%d.xlsx", safeName(niche), groupID)
}

func safeName(s string) string {
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_", " ", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	out := replacer.Replace(strings.TrimSpace(s))
	if out == "" {
		return "all"
	}
	return out
}

// Dir writes candidate spreadsheets under one directory.
type Dir struct {
	Path    string
	Overall string
}

// ExportGroup writes leads_<niche>_<group>.xlsx and returns its path.
func (d Dir) ExportGroup(niche string, groupID int64, cs []domain.Candidate) (string, error) {
	path := filepath.Join(d.Path, GroupFileName(niche, groupID))
	return path, WriteCandidates(path, cs, false)
}

// ExportOverall writes the combined spreadsheet and returns its path.
func (d Dir) ExportOverall(cs []domain.Candidate) (string, error) {
	name := d.Overall
	if name == "" {
		name = "user_ids.xlsx"
	}
	path := filepath.Join(d.Path, name)
	return path, WriteCandidates(path, cs, false)
}
