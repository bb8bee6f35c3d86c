package predmap

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/soundprediction/predmap"
	"github.com/soundprediction/predmap/pkg/config"
	"github.com/soundprediction/predmap/pkg/types"
	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:   "map <triples-file>",
	Short: "Map a file of triples to Biolink predicates",
	Long: `Map a file of subject/relationship/object triples to Biolink predicates.

The input file is a JSON array or JSONL stream of triples. Results are
written as JSON to stdout, or to the file given with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

var (
	mapOutput string
	mapMethod string
)

func init() {
	rootCmd.AddCommand(mapCmd)

	mapCmd.Flags().StringVarP(&mapOutput, "output", "o", "", "Output file (default stdout)")
	mapCmd.Flags().StringVar(&mapMethod, "retrieval-method", "", "Retrieval backend (cosine_similarities, nearest_neighbor, vectordb)")
	mapCmd.Flags().String("corpus-file", "", "Path to the predicate corpus (.json or .jsonl)")
}

func runMap(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("corpus-file") {
		cfg.Store.CorpusFile, _ = cmd.Flags().GetString("corpus-file")
	}

	method, err := types.ParseRetrievalMethod(mapMethod)
	if err != nil {
		return fmt.Errorf("unknown retrieval method %q", mapMethod)
	}

	edges, err := predmap.LoadTriplesFromFile(args[0])
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		return fmt.Errorf("no triples found in %s", args[0])
	}

	client, err := predmap.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize predicate mapper: %w", err)
	}
	defer client.Close()

	mapped, err := client.MapPredicates(cmd.Context(), edges, method)
	if err != nil {
		return err
	}

	out := os.Stdout
	if mapOutput != "" {
		f, err := os.Create(mapOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(mapped)
}
