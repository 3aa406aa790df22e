package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jask/donormatch/internal/config"
	"github.com/jask/donormatch/internal/database"
	"github.com/jask/donormatch/internal/database/repository"
	"github.com/jask/donormatch/internal/dedup"
	"github.com/jask/donormatch/internal/directory"
	"github.com/jask/donormatch/internal/export"
	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/secrets"
	"github.com/jask/donormatch/internal/service"
	"github.com/jask/donormatch/internal/testdata"
	"github.com/jask/donormatch/internal/tui"
)

func newProcessCmd(e *env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "process <records.json>...",
		Short: "Merge and match already extracted payment records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []*model.RawPaymentRecord
			for _, path := range args {
				recs, err := readBatch(path)
				if err != nil {
					return err
				}
				raw = append(raw, recs...)
			}
			ing, dir, err := e.ingestor()
			if err != nil {
				return err
			}
			res, err := ing.ProcessRaw(cmd.Context(), raw, dir)
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), res)
			return writeRecords(out, res.Records)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write enriched records as JSON to this file")
	return cmd
}

func newExtractCmd(e *env) *cobra.Command {
	var (
		out     string
		rawOnly bool
	)
	cmd := &cobra.Command{
		Use:   "extract <scan>...",
		Short: "Extract payments from scanned checks and envelopes, then match them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ing, dir, err := e.ingestor()
			if err != nil {
				return err
			}
			if rawOnly {
				raw, err := ing.Extract(cmd.Context(), args)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out, raw)
			}
			res, err := ing.IngestFiles(cmd.Context(), args, dir)
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), res)
			return writeRecords(out, res.Records)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write output as JSON to this file")
	cmd.Flags().BoolVar(&rawOnly, "raw", false, "only extract; print raw records without matching")
	return cmd
}

func (e *env) ingestor() (*service.Ingestor, directory.Directory, error) {
	db, err := e.open()
	if err != nil {
		return nil, nil, err
	}
	dir, err := e.directory()
	if err != nil {
		return nil, nil, err
	}
	ex, err := e.extractor()
	if err != nil {
		return nil, nil, err
	}
	return &service.Ingestor{
		Extractor: ex,
		Pipeline:  e.pipeline(),
		Batches:   repository.NewBatchRepo(db),
		Logger:    e.logger,
	}, dir, nil
}

func newCustomersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "customers", Short: "Manage the local customer roster"}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <roster.csv>",
		Short: "Load customers from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			res, err := directory.NewSQLiteDirectory(db).ImportCSV(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, errors %d\n", res.Imported, res.Skipped, len(res.Errors))
			for _, err := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "  ", err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roster customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			all, err := repository.NewCustomerRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCITY\tEMAIL")
			for _, c := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.DisplayName, c.BillAddr.City, c.Email)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func newBatchesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List processed batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			list, err := repository.NewBatchRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "BATCH\tCREATED\tRECORDS\tDISCARDED\tERRORS")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Records, b.Discarded, b.Errors)
			}
			return tw.Flush()
		},
	}
}

func newReviewCmd(e *env) *cobra.Command {
	var listOnly bool
	cmd := &cobra.Command{
		Use:   "review <batch-id>",
		Short: "Approve or reject pending matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			batches := repository.NewBatchRepo(db)
			svc := &service.ReviewService{Batches: batches, Logger: e.logger}
			if listOnly {
				pending, err := svc.Pending(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRecords(cmd.OutOrStdout(), pending)
				return nil
			}
			records, err := batches.Records(cmd.Context(), args[0], repository.RecordFilter{})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return eris.Errorf("batch %s has no records", args[0])
			}
			_, err = tea.NewProgram(tui.New(cmd.Context(), args[0], records, svc), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&listOnly, "list", false, "print pending records instead of opening the review screen")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <batch-id>",
		Short: "Write a batch to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			records, err := repository.NewBatchRepo(db).Records(cmd.Context(), args[0], repository.RecordFilter{})
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".xlsx"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteXLSX(f, records); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default <batch-id>.xlsx)")
	return cmd
}

func newSyncCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <batch-id>",
		Short: "Create new customers and apply contact updates in the directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			dir, err := e.directory()
			if err != nil {
				return err
			}
			batches := repository.NewBatchRepo(db)
			records, err := batches.Records(cmd.Context(), args[0], repository.RecordFilter{})
			if err != nil {
				return err
			}
			s := &service.Syncer{Directory: dir, Batches: batches, BatchID: args[0], Logger: e.logger}
			res, err := s.Apply(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, updated %d, skipped %d, errors %d\n", res.Created, res.Updated, res.Skipped, len(res.Errors))
			for _, err := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "  ", err)
			}
			return nil
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	var (
		customers int
		records   int
		seed      int64
		out       string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty roster with fake customers and write a fake extraction batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			g := testdata.New(seed)
			roster := g.Customers(customers)
			n, err := database.SeedCustomers(cmd.Context(), db, roster)
			if err != nil {
				return err
			}
			if n == 0 {
				if roster, err = repository.NewCustomerRepo(db).List(cmd.Context()); err != nil {
					return err
				}
			}
			batch := g.Batch(roster, records)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d customers, generated %d raw records\n", n, len(batch))
			if out == "" {
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), out, batch)
		},
	}
	cmd.Flags().IntVar(&customers, "customers", 25, "number of fake customers")
	cmd.Flags().IntVar(&records, "records", 20, "number of fake payments")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the fake batch as JSON to this file")
	return cmd
}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yaml.Marshal(e.cfg.Redacted())
			if err != nil {
				return eris.Wrap(err, "marshal config")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", config.Path(), data)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Path())
		},
	})
	return cmd
}

func newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "secrets", Short: "Store API keys and tokens outside the config file"}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <openai|quickbooks>",
		Short: "Read a secret from stdin and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			value := strings.TrimSpace(line)
			if value == "" {
				return eris.New("empty secret")
			}
			store, err := secrets.Default()
			if err != nil {
				return err
			}
			return store.Put(args[0], value)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := secrets.Default()
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := secrets.Default()
			if err != nil {
				return err
			}
			names, err := store.Names()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})
	return cmd
}

func newResetCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete stored batches (and with --all, the local roster)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := e.open()
			if err != nil {
				return err
			}
			svc := &service.MaintenanceService{DB: db}
			if all {
				if err := svc.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all data removed")
				return nil
			}
			n, err := svc.ClearBatches(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d batches\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also remove the local customer roster")
	return cmd
}

func readBatch(path string) ([]*model.RawPaymentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := dedup.DecodeBatch(f)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return recs, nil
}

func printBatch(w io.Writer, res service.BatchResult) {
	fmt.Fprintf(w, "batch %s: %d records, %d merged groups, %d discarded, %d errors\n",
		res.BatchID, len(res.Records), len(res.MergeLog), len(res.Discarded), len(res.Errors))
	printRecords(w, res.Records)
	for _, d := range res.Discarded {
		fmt.Fprintln(w, "discarded:", d.Error())
	}
	for _, err := range res.Errors {
		fmt.Fprintln(w, "error:", err)
	}
}

func printRecords(w io.Writer, records []model.EnrichedRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSCORE\tPAYER\tAMOUNT\tCUSTOMER\tUPDATES")
	for _, r := range records {
		var updates []string
		if r.Status.AddressUpdated {
			updates = append(updates, "address")
		}
		if r.Status.EmailUpdated {
			updates = append(updates, "email")
		}
		if r.Status.PhoneUpdated {
			updates = append(updates, "phone")
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%s\t%s\t%s\n",
			r.ID, r.MatchStatus, r.MatchScore, r.PayerInfo.FullName, r.PaymentInfo.Amount,
			r.PayerInfo.CustomerRef.ID, strings.Join(updates, ","))
	}
	_ = tw.Flush()
}

func writeRecords(path string, records []model.EnrichedRecord) error {
	if path == "" {
		return nil
	}
	return writeJSON(nil, path, records)
}

// writeJSON writes v to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
