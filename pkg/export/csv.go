package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jobtrack/pkg/models"
)

type CSVExporter struct {
	outputDir string
}

// NewCSVExporter creates a new CSV exporter with the specified output directory
func NewCSVExporter(outputDir string) *CSVExporter {
	return &CSVExporter{
		outputDir: outputDir,
	}
}

func (e *CSVExporter) ExportJobs(jobs []models.JobPosting, filename string) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if filename == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		filename = fmt.Sprintf("jobs_export_%s.csv", timestamp)
	}
	if !strings.HasSuffix(filename, ".csv") {
		filename += ".csv"
	}

	filePath := filepath.Join(e.outputDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{
		"Job ID",
		"Title",
		"Company",
		"Location",
		"Score",
		"Status",
		"Source",
		"Posted Date",
		"URL",
		"Description",
		"First Seen",
		"Applied Date",
		"Notes",
	}

	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range jobs {
		status := job.Status
		if status == "" {
			status = models.StatusNew
		}
		record := []string{
			job.JobID,
			job.Title,
			job.Company,
			job.Location,
			strconv.Itoa(job.Score),
			status,
			job.Source,
			job.PostedDate,
			job.URL,
			cleanDescription(job.Description),
			job.FirstSeen.Format("2006-01-02 15:04:05"),
			job.AppliedDate,
			job.Notes,
		}

		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write job record: %w", err)
		}
	}

	return filePath, nil
}

// ExportWithStats writes the jobs file plus a companion stats file with
// the dashboard counters and the consolidated source breakdown.
func (e *CSVExporter) ExportWithStats(jobs []models.JobPosting, stats *models.Stats, filename string) (string, error) {
	jobsFile, err := e.ExportJobs(jobs, filename)
	if err != nil {
		return "", err
	}

	statsFilename := strings.TrimSuffix(filename, ".csv") + "_stats.csv"
	if filename == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		statsFilename = fmt.Sprintf("jobs_stats_%s.csv", timestamp)
	}

	statsPath := filepath.Join(e.outputDir, statsFilename)

	file, err := os.Create(statsPath)
	if err != nil {
		return jobsFile, fmt.Errorf("failed to create stats CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"Metric", "Value"})
	writer.Write([]string{"Total Jobs", strconv.Itoa(stats.TotalJobs)})
	writer.Write([]string{"High Score Jobs", strconv.Itoa(stats.HighScoreJobs)})
	writer.Write([]string{"New Jobs (24h)", strconv.Itoa(stats.NewJobs)})
	writer.Write([]string{"Applied", strconv.Itoa(stats.Applied)})
	writer.Write([]string{"Interviewing", strconv.Itoa(stats.Interviewing)})
	writer.Write([]string{"Offers", strconv.Itoa(stats.Offers)})

	writer.Write([]string{})

	writer.Write([]string{"Source", "Job Count"})
	for _, src := range stats.Sources {
		writer.Write([]string{src.Name, strconv.Itoa(src.Count)})
	}

	return jobsFile, nil
}

func cleanDescription(description string) string {
	// Remove newlines and excessive whitespace for CSV
	cleaned := strings.ReplaceAll(description, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")

	for strings.Contains(cleaned, "  ") {
		cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	}

	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > 500 {
		cleaned = cleaned[:500] + "..."
	}

	return cleaned
}
