package api

import (
	"net/url"
	"strconv"
)

// paginationParams are query parameters that control paging, not filtering
var paginationParams = map[string]bool{
	"limit":  true,
	"offset": true,
	"after":  true,
	"before": true,
}

// parseFilter builds a document filter from query parameters. Numbers and
// the literals true and false are typed; anything else matches as a string.
func parseFilter(query url.Values, skip map[string]bool) map[string]interface{} {
	filter := make(map[string]interface{})
	for key, values := range query {
		if skip[key] || len(values) == 0 {
			continue
		}
		value := values[0] // Take first value if multiple provided

		if num, err := strconv.ParseFloat(value, 64); err == nil {
			filter[key] = num
		} else if value == "true" || value == "false" {
			filter[key] = value == "true"
		} else {
			filter[key] = value
		}
	}
	return filter
}
