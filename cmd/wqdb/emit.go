package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/wqdb/pkg/domain"
	"github.com/adfharrison1/wqdb/pkg/indexing"
	"github.com/adfharrison1/wqdb/pkg/workqueue"
)

var emitCmd = &cobra.Command{
	Use:   "emit [files...]",
	Short: "Print the view emissions of JSON documents",
	Long: `Emit runs a map function over JSON documents and prints one JSON line per
document with its emissions. Each input holds a single document, an array of
documents, or newline-delimited documents. Standard input is read when no file
is given. Nothing is stored.`,
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().String("map", workqueue.JobStatusByRequestMap, "map function to run")
	emitCmd.Flags().Bool("skip-empty", false, "omit documents that emit nothing")

	rootCmd.AddCommand(emitCmd)
}

// emitLine is one line of emit output
type emitLine struct {
	ID        string            `json:"id,omitempty"`
	Emissions []domain.Emission `json:"emissions"`
}

func runEmit(cmd *cobra.Command, args []string) error {
	mapName, _ := cmd.Flags().GetString("map")
	skipEmpty, _ := cmd.Flags().GetBool("skip-empty")

	registry := indexing.NewRegistry()
	if err := workqueue.RegisterViews(registry); err != nil {
		return err
	}
	if _, ok := registry.Lookup(mapName); !ok {
		return fmt.Errorf("%w: %s (available: %v)", domain.ErrUnknownMapFunction, mapName, registry.Names())
	}
	engine := indexing.NewIndexEngine(registry, 1)

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()
	enc := json.NewEncoder(out)

	emitAll := func(r io.Reader) error {
		return readDocuments(r, func(doc domain.Document) error {
			emissions, err := engine.Emit(mapName, doc)
			if err != nil {
				return err
			}
			if skipEmpty && len(emissions) == 0 {
				return nil
			}
			return enc.Encode(emitLine{ID: doc.ID(), Emissions: emissions})
		})
	}

	if len(args) == 0 {
		if err := emitAll(cmd.InOrStdin()); err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
		return nil
	}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = emitAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// readDocuments decodes a stream of JSON values and calls fn for every
// document. Top-level arrays are flattened; values that are not objects are
// rejected.
func readDocuments(r io.Reader, fn func(domain.Document) error) error {
	dec := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		var batch []domain.Document
		if err := json.Unmarshal(raw, &batch); err == nil {
			for _, doc := range batch {
				if doc == nil {
					return fmt.Errorf("array element is not a document")
				}
				if err := fn(doc); err != nil {
					return err
				}
			}
			continue
		}

		var doc domain.Document
		if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
			return fmt.Errorf("expected a document or an array of documents")
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}
