package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/wqdb/pkg/workqueue"
)

// elementStatuses are the statuses given to generated work queue elements
var elementStatuses = []string{"Available", "Negotiating", "Acquired", "Running", "Done", "Failed", "Canceled"}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Insert generated work queue elements into a running server",
	Long: `Load inserts randomly generated WorkQueue elements through the batch insert
endpoint of a running server and reports the insert rate. Some elements have a
null, missing or negative job count so that views see every kind of element.
With --define-view the jobStatusByRequest view is created first.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().Int("count", 1000, "number of elements to insert")
	loadCmd.Flags().Int("batch", 100, "elements per batch request")
	loadCmd.Flags().Int("requests", 20, "number of distinct request names")
	loadCmd.Flags().String("url", "http://localhost:8080", "server URL")
	loadCmd.Flags().String("collection", "workqueue", "collection to insert into")
	loadCmd.Flags().Bool("define-view", false, "create the jobStatusByRequest view before loading")
	loadCmd.Flags().Int64("seed", 0, "random seed (0 uses the current time)")

	rootCmd.AddCommand(loadCmd)
}

// generateElement builds a work queue element document
func generateElement(rng *rand.Rand, requests int) map[string]interface{} {
	ele := map[string]interface{}{
		"RequestName": fmt.Sprintf("request_%03d", rng.Intn(requests)),
		"Status":      elementStatuses[rng.Intn(len(elementStatuses))],
	}
	switch n := rng.Intn(20); {
	case n == 0:
		// Jobs missing
	case n == 1:
		ele["Jobs"] = nil
	case n == 2:
		ele["Jobs"] = -1
	default:
		ele["Jobs"] = rng.Intn(500)
	}
	return map[string]interface{}{workqueue.ElementKey: ele}
}

func postJSON(client *http.Client, url, method string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	batchSize, _ := cmd.Flags().GetInt("batch")
	requests, _ := cmd.Flags().GetInt("requests")
	serverURL, _ := cmd.Flags().GetString("url")
	collection, _ := cmd.Flags().GetString("collection")
	defineView, _ := cmd.Flags().GetBool("define-view")
	seed, _ := cmd.Flags().GetInt64("seed")

	if count <= 0 || batchSize <= 0 || requests <= 0 {
		return fmt.Errorf("count, batch and requests must be greater than 0")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	client := &http.Client{Timeout: 30 * time.Second}
	out := cmd.OutOrStdout()

	if defineView {
		url := fmt.Sprintf("%s/collections/%s/views/jobStatusByRequest", serverURL, collection)
		if err := postJSON(client, serverURL+"/collections/"+collection+"/batch", http.MethodPost,
			map[string]interface{}{"documents": []interface{}{generateElement(rng, requests)}}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		if err := postJSON(client, url, http.MethodPut, map[string]string{"map": workqueue.JobStatusByRequestMap}); err != nil {
			return fmt.Errorf("failed to define view: %w", err)
		}
		count--
	}

	fmt.Fprintf(out, "Starting load test: inserting %d elements to %s (seed %d)\n", count, serverURL, seed)

	startTime := time.Now()
	successCount := 0
	errorCount := 0

	for done := 0; done < count; done += batchSize {
		n := batchSize
		if done+n > count {
			n = count - done
		}
		docs := make([]interface{}, n)
		for i := range docs {
			docs[i] = generateElement(rng, requests)
		}

		err := postJSON(client, serverURL+"/collections/"+collection+"/batch", http.MethodPost,
			map[string]interface{}{"documents": docs})
		if err != nil {
			errorCount += n
			fmt.Fprintf(out, "Error inserting batch at %d: %v\n", done, err)
		} else {
			successCount += n
		}

		elapsed := time.Since(startTime)
		fmt.Fprintf(out, "Progress: %d/%d elements - Rate: %.1f elements/sec - Success: %d, Errors: %d\n",
			done+n, count, float64(done+n)/elapsed.Seconds(), successCount, errorCount)
	}

	totalTime := time.Since(startTime)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Successful inserts: %d\n", successCount)
	fmt.Fprintf(out, "Failed inserts:     %d\n", errorCount)
	fmt.Fprintf(out, "Total time:         %v\n", totalTime)

	if errorCount > 0 {
		return fmt.Errorf("%d elements failed to insert", errorCount)
	}
	return nil
}
