package calc

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/pkg/models/decryption"
)

// RunStat sums up several decrypt runs.
type RunStat struct {
	Runs            int
	Total           int
	Downloaded      int
	Success         int
	Failed          int
	NotDownloaded   int
	NoAccessBatches int
	FailureReasons  map[string]int
}

// SuccessRate is the share of requested items that were decrypted.
func (s *RunStat) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// DownloadRate is the share of requested items that could be downloaded.
func (s *RunStat) DownloadRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Downloaded) / float64(s.Total)
}

// Add merges one run into the stat.
func (s *RunStat) Add(result *decryption.Result) {
	if s.FailureReasons == nil {
		s.FailureReasons = make(map[string]int)
	}

	s.Runs++
	s.Total += result.Summary.Total
	s.Downloaded += result.Summary.Downloaded
	s.Success += result.Summary.Success
	s.Failed += result.Summary.Failed
	s.NotDownloaded += result.Summary.NotDownloaded
	s.NoAccessBatches += result.NoAccessBatches
	for _, failure := range result.Failures {
		s.FailureReasons[failure.Reason]++
	}
}

// AggregateResultFiles loads each result file and merges them.
func AggregateResultFiles(filePaths []string) (*RunStat, error) {
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no result files specified")
	}

	stat := &RunStat{FailureReasons: make(map[string]int)}
	for _, filePath := range filePaths {
		result, err := loadResult(filePath)
		if err != nil {
			return nil, err
		}

		if result.Summary.Total != result.Summary.Downloaded+result.Summary.NotDownloaded {
			log.Warnf("Run '%v' in '%v' has an inconsistent summary.", result.RunID, filePath)
		}
		stat.Add(result)
	}

	return stat, nil
}

func loadResult(filePath string) (*decryption.Result, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read file '%v'", filePath)
	}

	result := &decryption.Result{}
	if err = json.Unmarshal(content, result); err != nil {
		return nil, errors.Wrapf(err, "cannot parse result from file '%v'", filePath)
	}

	return result, nil
}
