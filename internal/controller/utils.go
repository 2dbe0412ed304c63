package controller

import "strings"

// parseIDList splits a comma separated list of IDs, dropping blank entries.
func parseIDList(raw string) []string {
	ids := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}
