package main

// docctl drives a running API server:
//   go run ./cmd/docctl upload ./invoice.pdf
//   go run ./cmd/docctl analyze <id> --async
//   go run ./cmd/docctl list --output yaml

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docsum-backend/internal/docclient"
)

type options struct {
	server  string
	output  string
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "docctl",
		Short:        "Upload, analyze and inspect documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "json", "yaml":
				return nil
			default:
				return fmt.Errorf("--output must be json or yaml, got %q", opts.output)
			}
		},
	}
	root.SetOut(out)

	defaultServer := os.Getenv("DOCSUM_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "API base URL")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "request timeout")

	client := func() *docclient.Client { return docclient.New(opts.server, opts.timeout) }

	var contentType string
	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF or DOCX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := client().Upload(cmd.Context(), args[0], contentType, data)
			if err != nil {
				return err
			}
			return render(out, opts.output, res)
		},
	}
	upload.Flags().StringVar(&contentType, "content-type", "", "override the declared MIME type")

	var async bool
	analyze := &cobra.Command{
		Use:   "analyze <id>",
		Short: "Summarize and classify a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().Analyze(cmd.Context(), args[0], async)
			if err != nil {
				return err
			}
			return render(out, opts.output, res)
		},
	}
	analyze.Flags().BoolVar(&async, "async", false, "queue the analysis instead of waiting")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(out, opts.output, res)
		},
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List document records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return render(out, opts.output, res)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "page size (max 100)")
	list.Flags().IntVar(&offset, "offset", 0, "records to skip")

	urlCmd := &cobra.Command{
		Use:   "url <id>",
		Short: "Print a time-limited download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().DownloadURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(out, opts.output, res)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return render(out, opts.output, map[string]any{"documentId": args[0], "deleted": true})
		},
	}

	root.AddCommand(upload, analyze, get, list, urlCmd, del)
	return root
}

func render(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
