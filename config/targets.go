package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"review-scraper/models"

	"gopkg.in/yaml.v3"
)

type targetList struct {
	Targets []struct {
		Name   string `yaml:"name"`
		URL    string `yaml:"url"`
		Output string `yaml:"output"`
	} `yaml:"targets"`
}

// LoadTargets reads a target list: YAML for .yaml/.yml files, otherwise CSV
// with a header holding name and url columns and an optional output column
func LoadTargets(path string) ([]models.TargetJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configErr(err, "failed to open target list %s", path)
	}
	defer f.Close()

	var jobs []models.TargetJob
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		jobs, err = parseYAMLTargets(f)
	default:
		jobs, err = parseCSVTargets(f)
	}
	if err != nil {
		return nil, configErr(err, "invalid target list %s", path)
	}
	return jobs, nil
}

func parseYAMLTargets(r io.Reader) ([]models.TargetJob, error) {
	var list targetList
	if err := yaml.NewDecoder(r).Decode(&list); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	jobs := make([]models.TargetJob, 0, len(list.Targets))
	for i, t := range list.Targets {
		job := models.TargetJob{
			Name:   strings.TrimSpace(t.Name),
			URL:    strings.TrimSpace(t.URL),
			Output: strings.TrimSpace(t.Output),
		}
		if err := checkTarget(job, i+1); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseCSVTargets(r io.Reader) ([]models.TargetJob, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, okName := cols["name"]
	urlCol, okURL := cols["url"]
	if !okName || !okURL {
		return nil, fmt.Errorf("header must contain name and url columns, got %v", header)
	}
	outputCol, hasOutput := cols["output"]

	var jobs []models.TargetJob
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		job := models.TargetJob{
			Name: field(row, nameCol),
			URL:  field(row, urlCol),
		}
		if hasOutput {
			job.Output = field(row, outputCol)
		}
		if job.Name == "" && job.URL == "" {
			continue
		}
		if err := checkTarget(job, line); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func checkTarget(job models.TargetJob, line int) error {
	if job.URL == "" {
		return fmt.Errorf("target %d has no url", line)
	}
	if job.Name == "" && job.Output == "" {
		return fmt.Errorf("target %d needs a name or an output", line)
	}
	return nil
}
