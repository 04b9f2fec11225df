// Command docstore inspects and edits a document database stored in a
// bbolt file. Documents are given as JSON objects and identifiers as JSON
// values, so string IDs need quoting: docstore get users '"alice"'.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docukv/docstore"
)

var (
	dbPath     string
	idProperty string

	db *docstore.Database

	rootCmd = &cobra.Command{
		Use:          "docstore",
		Short:        "Document store over an ordered key-value file",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := docstore.OpenBoltRegistry(dbPath, 0600, nil)
			if err != nil {
				return fmt.Errorf("opening %s: %w", dbPath, err)
			}
			db = docstore.NewDatabase(registry)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	}

	putCmd = &cobra.Command{
		Use:   "put [collection] [document-json]",
		Short: "Inserts a document, generating an identifier when absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}

			var doc docstore.Document
			if err := json.Unmarshal([]byte(args[1]), &doc); err != nil {
				return fmt.Errorf("document must be a JSON object: %w", err)
			}

			stored, err := coll.InsertWithGenerator(cmd.Context(), doc, docstore.NewID(), func(string) string {
				return docstore.NewID()
			})
			if err != nil {
				return err
			}
			return printJSON(stored)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [collection] [id-json]",
		Short: "Reads a document by identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}
			id, err := decodeID(args[1])
			if err != nil {
				return err
			}

			doc, err := coll.FindByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(doc)
		},
	}

	delCmd = &cobra.Command{
		Use:   "del [collection] [id-json]",
		Short: "Deletes a document by identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}
			id, err := decodeID(args[1])
			if err != nil {
				return err
			}

			doc, err := coll.RemoveByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(doc)
		},
	}

	findCmd = &cobra.Command{
		Use:   "find [collection] [selector] [value-json]",
		Short: "Finds documents whose selector path equals the given value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}

			var value interface{}
			if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
				return fmt.Errorf("value must be JSON: %w", err)
			}

			docs, err := coll.Find(cmd.Context(), args[1], value)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				if err := printJSON(doc); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "%d document(s)\n", len(docs))
			return nil
		},
	}

	detailsCmd = &cobra.Command{
		Use:   "details [collection]",
		Short: "Shows collection size and index names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}
			details, err := coll.Details(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(details)
		},
	}

	collectionsCmd = &cobra.Command{
		Use:   "collections",
		Short: "Lists the collections in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := db.Collections(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Manage secondary indexes",
	}

	indexCreateCmd = &cobra.Command{
		Use:   "create [collection] [selector]",
		Short: "Creates and backfills an index on a selector path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}
			if err := coll.CreateIndex(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Println("index created")
			return nil
		},
	}

	indexDropCmd = &cobra.Command{
		Use:   "drop [collection] [selector]",
		Short: "Drops an index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}
			if err := coll.DropIndex(cmd.Context(), args[1]); err != nil {
				return err
			}
			fmt.Println("index dropped")
			return nil
		},
	}

	indexShowCmd = &cobra.Command{
		Use:   "show [collection] [selector]",
		Short: "Prints the index buckets for a selector path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, err := openCollection(cmd, args[0])
			if err != nil {
				return err
			}
			buckets, err := coll.GetIndex(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return printJSON(buckets)
		},
	}
)

func openCollection(cmd *cobra.Command, name string) (*docstore.Collection[string], error) {
	return db.Collection(cmd.Context(), name, docstore.WithIDProperty(idProperty))
}

func decodeID(arg string) (string, error) {
	var id string
	if err := json.Unmarshal([]byte(arg), &id); err != nil {
		return "", fmt.Errorf("id must be a JSON string: %w", err)
	}
	return id, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "docstore.db", "Path to the database file")
	rootCmd.PersistentFlags().StringVar(&idProperty, "id-property", docstore.DefaultIDProperty, "Top-level property holding the document identifier")

	indexCmd.AddCommand(indexCreateCmd)
	indexCmd.AddCommand(indexDropCmd)
	indexCmd.AddCommand(indexShowCmd)

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(indexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
