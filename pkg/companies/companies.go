// Package companies loads the sponsorship-history company roster from CSV.
// Adapters use it to decide which boards to poll, and the scorer uses the
// hiring history to weight employer friendliness.
package companies

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Company is one roster row. NewHires is the count of approved sponsorship
// petitions in the most recent fiscal year.
type Company struct {
	Name          string
	PriorityScore float64
	NewHires      int
	ApprovalRate  float64
	ATSType       string
	LeverName     string
	City          string
	State         string
}

// History is the per-employer sponsorship record used by the scorer,
// keyed by lowercased company name.
type History struct {
	NewHires     int
	ApprovalRate float64
}

// Load parses the roster CSV. Unknown columns are ignored and missing
// optional columns default to zero values, so roster exports from different
// years stay loadable.
func Load(path string) ([]Company, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open companies csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse companies csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["Company_Name"]; !ok {
		return nil, fmt.Errorf("companies csv missing Company_Name column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Company
	for _, row := range records[1:] {
		name := field(row, "Company_Name")
		if name == "" {
			continue
		}
		out = append(out, Company{
			Name:          name,
			PriorityScore: parseFloat(field(row, "H1B_Priority_Score")),
			NewHires:      parseInt(field(row, "New_Hires_Approved_2025")),
			ApprovalRate:  parseFloat(field(row, "Approval_Rate_%")),
			ATSType:       field(row, "ATS_Type"),
			LeverName:     field(row, "lever_name"),
			City:          field(row, "City"),
			State:         field(row, "State"),
		})
	}
	return out, nil
}

// HistoryIndex builds the scorer lookup from the roster.
func HistoryIndex(roster []Company) map[string]History {
	idx := make(map[string]History, len(roster))
	for _, c := range roster {
		idx[strings.ToLower(c.Name)] = History{
			NewHires:     c.NewHires,
			ApprovalRate: c.ApprovalRate,
		}
	}
	return idx
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Some exports carry counts as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
