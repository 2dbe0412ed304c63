package main

import (
	"os"

	"gitee.com/czyczk/datawave/cmd/runstat/calc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func main() {
	filePath := "cmd/runstat/tasks.yaml"
	if len(os.Args) > 1 {
		filePath = os.Args[1]
	}

	config, err := loadConfig(filePath)
	if err != nil {
		log.Fatal(err)
	}

	for i, task := range config.Tasks {
		stat, err := calc.AggregateResultFiles(task.Results)
		if err != nil {
			log.Fatal(errors.Wrapf(err, "failed on task #%v", i))
		}

		log.Infof("Task #%v-Runs: %v, items: %v", i, stat.Runs, stat.Total)
		log.Infof("Task #%v-Success rate: %.2f%%, download rate: %.2f%%", i, stat.SuccessRate()*100, stat.DownloadRate()*100)
		log.Infof("Task #%v-Batches denied: %v", i, stat.NoAccessBatches)
		for reason, count := range stat.FailureReasons {
			log.Infof("Task #%v-Failure '%v': %v", i, reason, count)
		}
	}
}
